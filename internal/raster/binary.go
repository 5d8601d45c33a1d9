package raster

import "fmt"

// BinOp selects a pixelwise binary operation.
type BinOp int

const (
	OpAnd BinOp = iota
	OpOr
	OpXor
	OpAndNot // a AND NOT b
)

// String returns the operation name.
func (op BinOp) String() string {
	switch op {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpAndNot:
		return "andnot"
	default:
		return fmt.Sprintf("binop(%d)", int(op))
	}
}

// BinaryOp combines two equally sized rasters pixel by pixel. The result
// copies depth and palette from a.
func BinaryOp(a, b *Raster, op BinOp) (*Raster, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return nil, fmt.Errorf("size mismatch: %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	out := a.NewLike()
	ForRows(a.Height, 0, func(y0, y1 int) {
		for i := y0 * a.Width; i < y1*a.Width; i++ {
			p, q := a.Pix[i], b.Pix[i]
			switch op {
			case OpAnd:
				out.Pix[i] = p & q
			case OpOr:
				out.Pix[i] = p | q
			case OpXor:
				out.Pix[i] = p ^ q
			case OpAndNot:
				out.Pix[i] = p &^ q
			}
		}
	})
	return out, nil
}

// IsBinary reports whether every pixel is Background or Foreground. On failure
// it also returns the first offending coordinate and value.
func IsBinary(r *Raster) (ok bool, x, y, v int) {
	for i, p := range r.Pix {
		if p != Background && p != Foreground {
			return false, i % r.Width, i / r.Width, p
		}
	}
	return true, 0, 0, 0
}
