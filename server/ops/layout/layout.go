// Package layout computes 2D positions for the tree view: a layered layout
// for machines connected by input-station edges, grid packing for the rest,
// and arc geometry for self-loop edges.
package layout

import (
	"sort"
)

// RankSep is the fixed gap between consecutive ranks.
const RankSep = 50

// Node is an unpositioned machine with fixed dimensions.
type Node struct {
	ID     string
	Width  float64
	Height float64
}

// Edge is a directed input-station relation. Source and Target may be equal.
type Edge struct {
	Source string
	Target string
}

// Position is a node's computed top-left corner.
type Position struct {
	X float64
	Y float64
}

// Result holds the positions of the laid-out nodes and the maximum extent
// reached, which seeds the packing of disconnected nodes.
type Result struct {
	Positions map[string]Position
	MaxX      float64
	MaxY      float64
}

// Connected partitions nodes by edge incidence, preserving input order.
// A self-looped node counts as connected.
func Connected(nodes []Node, edges []Edge) (connected, disconnected []Node) {
	incident := make(map[string]bool)
	for _, e := range edges {
		incident[e.Source] = true
		incident[e.Target] = true
	}
	for _, n := range nodes {
		if incident[n.ID] {
			connected = append(connected, n)
		} else {
			disconnected = append(disconnected, n)
		}
	}
	return connected, disconnected
}

// Layout arranges the edge-incident subgraph in ranks along the main axis.
// Self-loops and cycle-closing back edges are ignored for ranking. The
// returned positions cover exactly the given nodes; an empty node set
// yields a zero extent.
func Layout(nodes []Node, edges []Edge, horizontal bool) Result {
	res := Result{Positions: make(map[string]Position)}
	if len(nodes) == 0 {
		return res
	}

	byID := make(map[string]Node, len(nodes))
	order := make([]string, 0, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		order = append(order, n.ID)
	}

	out, in := adjacency(nodes, edges)
	ranks := assignRanks(order, out, in)
	orderRanks(ranks, in)

	// Size of each rank along the cross axis, including separation
	// proportional to node width.
	crossExtent := func(rank []string) float64 {
		var ext float64
		for i, id := range rank {
			n := byID[id]
			if i > 0 {
				ext += nodeSep(n)
			}
			ext += crossSize(n, horizontal)
		}
		return ext
	}

	var maxCross float64
	for _, rank := range ranks {
		if ext := crossExtent(rank); ext > maxCross {
			maxCross = ext
		}
	}

	var main float64
	for _, rank := range ranks {
		// Center the rank on the widest one.
		cross := (maxCross - crossExtent(rank)) / 2
		var rankDepth float64
		for i, id := range rank {
			n := byID[id]
			if i > 0 {
				cross += nodeSep(n)
			}
			if horizontal {
				res.Positions[id] = Position{X: main, Y: cross}
			} else {
				res.Positions[id] = Position{X: cross, Y: main}
			}
			cross += crossSize(n, horizontal)
			if d := mainSize(n, horizontal); d > rankDepth {
				rankDepth = d
			}
		}
		main += rankDepth + RankSep
	}

	for id, p := range res.Positions {
		n := byID[id]
		if x := p.X + n.Width; x > res.MaxX {
			res.MaxX = x
		}
		if y := p.Y + n.Height; y > res.MaxY {
			res.MaxY = y
		}
	}
	return res
}

// nodeSep is the separation between neighbouring nodes in a rank,
// proportional to node width.
func nodeSep(n Node) float64 {
	return n.Width / 20
}

func crossSize(n Node, horizontal bool) float64 {
	if horizontal {
		return n.Height
	}
	return n.Width
}

func mainSize(n Node, horizontal bool) float64 {
	if horizontal {
		return n.Width
	}
	return n.Height
}

func adjacency(nodes []Node, edges []Edge) (out, in map[string][]string) {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}
	out = make(map[string][]string)
	in = make(map[string][]string)
	for _, e := range edges {
		if e.Source == e.Target {
			continue
		}
		if !present[e.Source] || !present[e.Target] {
			continue
		}
		out[e.Source] = append(out[e.Source], e.Target)
		in[e.Target] = append(in[e.Target], e.Source)
	}
	return out, in
}

// assignRanks layers the graph by repeatedly peeling nodes whose remaining
// in-degree is zero. Cycle-closing back edges are removed first so every
// node gets a rank.
func assignRanks(order []string, out, in map[string][]string) [][]string {
	back := findBackEdges(order, out)
	deg := make(map[string]int, len(order))
	for _, id := range order {
		deg[id] = 0
	}
	for _, id := range order {
		for _, pred := range in[id] {
			if back[edgeKey(pred, id)] {
				continue
			}
			deg[id]++
		}
	}

	var queue []string
	for _, id := range order {
		if deg[id] == 0 {
			queue = append(queue, id)
		}
	}

	var ranks [][]string
	assigned := make(map[string]bool)
	for len(queue) > 0 {
		rank := queue
		ranks = append(ranks, rank)
		queue = nil
		for _, id := range rank {
			assigned[id] = true
		}
		for _, id := range rank {
			for _, succ := range out[id] {
				if back[edgeKey(id, succ)] || assigned[succ] {
					continue
				}
				deg[succ]--
				if deg[succ] == 0 {
					queue = append(queue, succ)
					assigned[succ] = true
				}
			}
		}
	}

	// Anything left (shouldn't happen once back edges are removed) goes in
	// a final rank, preserving input order.
	var rest []string
	for _, id := range order {
		if !assigned[id] {
			rest = append(rest, id)
		}
	}
	if len(rest) > 0 {
		ranks = append(ranks, rest)
	}
	return ranks
}

func edgeKey(from, to string) string {
	return from + "\x00" + to
}

// findBackEdges marks edges that close a cycle, found by depth-first search
// from each unvisited node in input order.
func findBackEdges(order []string, out map[string][]string) map[string]bool {
	back := make(map[string]bool)
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		onStack[id] = true
		for _, succ := range out[id] {
			if onStack[succ] {
				back[edgeKey(id, succ)] = true
				continue
			}
			if !visited[succ] {
				visit(succ)
			}
		}
		onStack[id] = false
	}
	for _, id := range order {
		if !visited[id] {
			visit(id)
		}
	}
	return back
}

// orderRanks reduces edge crossings by sorting each rank on the mean
// position of its predecessors in the rank above, with id as tiebreak.
func orderRanks(ranks [][]string, in map[string][]string) {
	if len(ranks) < 2 {
		return
	}
	pos := make(map[string]int)
	for _, id := range ranks[0] {
		pos[id] = len(pos)
	}
	for r := 1; r < len(ranks); r++ {
		rank := ranks[r]
		bary := make(map[string]float64, len(rank))
		for _, id := range rank {
			var sum, count float64
			for _, pred := range in[id] {
				if p, ok := pos[pred]; ok {
					sum += float64(p)
					count++
				}
			}
			if count == 0 {
				bary[id] = float64(len(rank))
			} else {
				bary[id] = sum / count
			}
		}
		sort.SliceStable(rank, func(i, j int) bool {
			if bary[rank[i]] != bary[rank[j]] {
				return bary[rank[i]] < bary[rank[j]]
			}
			return rank[i] < rank[j]
		})
		for _, id := range rank {
			pos[id] = len(pos)
		}
	}
}
