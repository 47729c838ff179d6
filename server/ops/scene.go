package ops

import (
	"strconv"

	"github.com/linesight/linesight/api/scene"
	"github.com/linesight/linesight/server/ops/layout"
)

// Default node dimensions in the tree view.
const (
	NodeWidth  = 150
	NodeHeight = 60
)

// CompileScene lays out the committed topology nodes and assembles the
// declarative tree-view scene. Edges derive from each node's input stations
// filtered to ids present in the topology; nodes keep the editor's paint
// order, with positions from the layered layout for edge-incident nodes and
// from grid packing for the rest.
func CompileScene(nodes []NodeAttrs, selected int64, hasSelection bool,
	dir scene.Direction, edgeType scene.EdgeType,
) scene.Graph {
	horizontal := dir == scene.DirectionHorizontal

	present := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}

	var lnodes []layout.Node
	var ledges []layout.Edge
	var edges []scene.Edge
	for _, n := range nodes {
		lnodes = append(lnodes, layout.Node{
			ID:     nodeID(n.ID),
			Width:  NodeWidth,
			Height: NodeHeight,
		})
		for _, input := range n.InputStations {
			if !present[input] {
				continue
			}
			typ := edgeType
			if input == n.ID {
				typ = scene.EdgeSelfLoop
			}
			edges = append(edges, scene.Edge{
				ID:     nodeID(input) + "-" + nodeID(n.ID),
				Source: nodeID(input),
				Target: nodeID(n.ID),
				Type:   typ,
			})
			ledges = append(ledges, layout.Edge{
				Source: nodeID(input),
				Target: nodeID(n.ID),
			})
		}
	}

	connected, disconnected := layout.Connected(lnodes, ledges)
	res := layout.Layout(connected, ledges, horizontal)
	packed := layout.Pack(disconnected, res.MaxX, res.MaxY)

	positions := res.Positions
	for id, p := range packed {
		positions[id] = p
	}

	g := scene.Graph{
		Direction: dir,
		MaxX:      res.MaxX,
		MaxY:      res.MaxY,
	}
	sourcePort, targetPort := ports(horizontal)
	for _, n := range nodes {
		p := positions[nodeID(n.ID)]
		g.Nodes = append(g.Nodes, scene.Node{
			ID:            nodeID(n.ID),
			Name:          n.Name,
			StationNumber: n.StationNumber,
			X:             p.X,
			Y:             p.Y,
			Width:         NodeWidth,
			Height:        NodeHeight,
			Class:         nodeClass(n),
			SourcePort:    sourcePort,
			TargetPort:    targetPort,
			InputStations: n.InputStations,
			Selected:      hasSelection && n.ID == selected,
		})
	}

	for i, e := range edges {
		if e.Type != scene.EdgeSelfLoop {
			continue
		}
		p := positions[e.Source]
		sx, sy := portAnchor(p, sourcePort)
		tx, ty := portAnchor(p, targetPort)
		edges[i].Path = layout.SelfLoopPath(sx, sy, tx, ty, NodeWidth, NodeHeight, horizontal)
	}
	g.Edges = edges
	return g
}

func nodeID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func nodeClass(n NodeAttrs) scene.NodeClass {
	switch {
	case n.Bypass:
		return scene.ClassBypass
	case n.NotAllowed:
		return scene.ClassNotAllowed
	default:
		return scene.ClassNormal
	}
}

func ports(horizontal bool) (source, target scene.PortSide) {
	if horizontal {
		return scene.PortRight, scene.PortLeft
	}
	return scene.PortBottom, scene.PortTop
}

func portAnchor(p layout.Position, side scene.PortSide) (x, y float64) {
	switch side {
	case scene.PortTop:
		return p.X + NodeWidth/2, p.Y
	case scene.PortBottom:
		return p.X + NodeWidth/2, p.Y + NodeHeight
	case scene.PortLeft:
		return p.X, p.Y + NodeHeight/2
	default:
		return p.X + NodeWidth, p.Y + NodeHeight/2
	}
}
