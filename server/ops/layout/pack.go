package layout

// PackGap is the spacing between packed nodes, and VerticalClearance the
// gap between the laid-out graph and the packing area.
const (
	PackGap           = 10
	VerticalClearance = 100
)

// Pack arranges nodes with no incident edges in a row-major grid below the
// laid-out graph. The cursor starts at (0, maxY+clearance), advances by
// node width plus a fixed gap and wraps to a new row before a node would
// overflow maxX. Order-preserving and deterministic.
func Pack(nodes []Node, maxX, maxY float64) map[string]Position {
	ret := make(map[string]Position, len(nodes))
	x := float64(0)
	y := maxY + VerticalClearance
	for _, n := range nodes {
		if x+n.Width > maxX {
			x = 0
			y += n.Height + PackGap
		}
		ret[n.ID] = Position{X: x, Y: y}
		x += n.Width + PackGap
	}
	return ret
}
