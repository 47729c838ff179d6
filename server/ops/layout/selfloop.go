package layout

import "fmt"

// SelfLoopPath routes an edge whose source and target are the same node as
// a visible arc. Source and target anchors are the node's port centers; a
// straight or bezier path between them would be degenerate, so the arc
// radii come from the node dimensions instead.
func SelfLoopPath(sx, sy, tx, ty, width, height float64, horizontal bool) string {
	if horizontal {
		// Bulge proportional to the anchor distance; the anchors of a
		// self-loop coincide, so fall back to a fixed-radius loop.
		rx := (sx - tx) * 0.6
		if rx <= 0 {
			rx = width * 0.3
		}
		return fmt.Sprintf("M %s %s A %s %s 0 1 0 %s %s",
			num(sx-5), num(sy), num(rx), num(height/2), num(tx+2), num(ty))
	}
	return fmt.Sprintf("M %s %s A %s %s 0 1 0 %s %s",
		num(sx), num(sy), num(65*width/200), num(5*height/6), num(tx+1), num(ty))
}

func num(f float64) string {
	return fmt.Sprintf("%g", f)
}
