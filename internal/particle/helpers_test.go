package particle

import "image"

func pt(x, y int) image.Point { return image.Point{X: x, Y: y} }

// unionFind is a minimal disjoint-set forest used as an independent labeler.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// countComponents counts 4-connected foreground regions with union-find.
func countComponents(pix []int, w, h int) int {
	u := newUnionFind(len(pix))
	for y := range h {
		for x := range w {
			i := y*w + x
			if pix[i] != 1 {
				continue
			}
			if x > 0 && pix[i-1] == 1 {
				u.union(i, i-1)
			}
			if y > 0 && pix[i-w] == 1 {
				u.union(i, i-w)
			}
		}
	}
	roots := map[int]struct{}{}
	for i, v := range pix {
		if v == 1 {
			roots[u.find(i)] = struct{}{}
		}
	}
	return len(roots)
}
