package particle

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// TableHeader lists the report columns in output order.
var TableHeader = []string{
	"Label", "Area", "Centroid (x,y)", "Eccentricity", "Perimeter", "Circularity",
	"Bounding Box (x1,y1),(x2,y2)", "Convex Hull Area", "Density", "Diameter",
}

// WriteTable writes one row per particle with the columns of TableHeader.
// The layout depends only on the particle values, so output can be diffed
// between runs.
func WriteTable(w io.Writer, particles []Particle) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight|tabwriter.Debug)
	for i, h := range TableHeader {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw, "\t")
	for _, p := range particles {
		fmt.Fprintf(tw, "%d\t%d\t(%.2f, %.2f)\t%.4f\t%d\t%.4f\t(%d, %d), (%d, %d)\t%.2f\t%.4f\t%.2f\t\n",
			p.Label,
			p.Area,
			p.Centroid.X, p.Centroid.Y,
			p.Eccentricity,
			p.Perimeter,
			p.Circularity,
			p.BoundingBox.Min.X, p.BoundingBox.Min.Y, p.BoundingBox.Max.X, p.BoundingBox.Max.Y,
			p.ConvexHullArea,
			p.Density,
			p.Diameter,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Particles: %d\n", len(particles))
	return err
}
