package layout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNodes(ids ...string) []Node {
	ret := make([]Node, 0, len(ids))
	for _, id := range ids {
		ret = append(ret, Node{ID: id, Width: 150, Height: 60})
	}
	return ret
}

func TestConnectedPartition(t *testing.T) {
	nodes := testNodes("1", "2", "3", "4")
	edges := []Edge{{Source: "1", Target: "2"}, {Source: "3", Target: "3"}}

	conn, disc := Connected(nodes, edges)

	assert.Equal(t, testNodes("1", "2", "3"), conn)
	assert.Equal(t, testNodes("4"), disc)
}

func TestLayoutEmpty(t *testing.T) {
	res := Layout(nil, nil, false)
	assert.Empty(t, res.Positions)
	assert.Zero(t, res.MaxX)
	assert.Zero(t, res.MaxY)
}

func TestLayoutChainVertical(t *testing.T) {
	nodes := testNodes("1", "2", "3")
	edges := []Edge{
		{Source: "1", Target: "2"},
		{Source: "2", Target: "3"},
	}

	res := Layout(nodes, edges, false)
	require.Len(t, res.Positions, 3)

	// One node per rank, stacked along y with the fixed rank separation.
	assert.Equal(t, float64(0), res.Positions["1"].Y)
	assert.Equal(t, float64(60+RankSep), res.Positions["2"].Y)
	assert.Equal(t, float64(2*(60+RankSep)), res.Positions["3"].Y)

	// Single-node ranks all centered on the same x.
	assert.Equal(t, res.Positions["1"].X, res.Positions["2"].X)
	assert.Equal(t, res.Positions["2"].X, res.Positions["3"].X)

	assert.Equal(t, float64(150), res.MaxX)
	assert.Equal(t, float64(3*60+2*RankSep), res.MaxY)
}

func TestLayoutHorizontalSwapsAxes(t *testing.T) {
	nodes := testNodes("1", "2")
	edges := []Edge{{Source: "1", Target: "2"}}

	res := Layout(nodes, edges, true)
	assert.Equal(t, float64(0), res.Positions["1"].X)
	assert.Equal(t, float64(150+RankSep), res.Positions["2"].X)
	assert.Equal(t, res.Positions["1"].Y, res.Positions["2"].Y)
}

func TestLayoutRankSeparation(t *testing.T) {
	// Diamond: 1 -> {2, 3} -> 4. Nodes 2 and 3 share a rank and must be
	// separated by at least the node separation distance.
	nodes := testNodes("1", "2", "3", "4")
	edges := []Edge{
		{Source: "1", Target: "2"},
		{Source: "1", Target: "3"},
		{Source: "2", Target: "4"},
		{Source: "3", Target: "4"},
	}

	res := Layout(nodes, edges, false)
	require.Len(t, res.Positions, 4)

	p2, p3 := res.Positions["2"], res.Positions["3"]
	assert.Equal(t, p2.Y, p3.Y)
	gap := p3.X - p2.X
	if gap < 0 {
		gap = -gap
	}
	assert.GreaterOrEqual(t, gap, float64(150)+nodeSep(nodes[0]))
}

func TestLayoutToleratesCycle(t *testing.T) {
	nodes := testNodes("1", "2", "3")
	edges := []Edge{
		{Source: "1", Target: "2"},
		{Source: "2", Target: "3"},
		{Source: "3", Target: "1"},
	}

	res := Layout(nodes, edges, false)
	assert.Len(t, res.Positions, 3)
}

func TestLayoutIgnoresSelfLoopForRanking(t *testing.T) {
	nodes := testNodes("1", "2")
	edges := []Edge{
		{Source: "1", Target: "1"},
		{Source: "1", Target: "2"},
	}

	res := Layout(nodes, edges, false)
	require.Len(t, res.Positions, 2)
	assert.Less(t, res.Positions["1"].Y, res.Positions["2"].Y)
}

func TestLayoutDeterministic(t *testing.T) {
	nodes := testNodes("4", "2", "7", "1")
	edges := []Edge{
		{Source: "4", Target: "2"},
		{Source: "4", Target: "7"},
		{Source: "7", Target: "1"},
	}
	first := Layout(nodes, edges, false)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Layout(nodes, edges, false))
	}
}

func TestPackGrid(t *testing.T) {
	nodes := testNodes("a", "b", "c")
	pos := Pack(nodes, 500, 200)

	assert.Equal(t, Position{X: 0, Y: 300}, pos["a"])
	assert.Equal(t, Position{X: 160, Y: 300}, pos["b"])
	assert.Equal(t, Position{X: 320, Y: 300}, pos["c"])
}

func TestPackWraps(t *testing.T) {
	nodes := testNodes("a", "b", "c")
	pos := Pack(nodes, 340, 0)

	assert.Equal(t, Position{X: 0, Y: 100}, pos["a"])
	assert.Equal(t, Position{X: 160, Y: 100}, pos["b"])
	// 320+150 > 340 so the third node wraps to a new row.
	assert.Equal(t, Position{X: 0, Y: 170}, pos["c"])
}

func TestPackNoOverlap(t *testing.T) {
	nodes := testNodes("1", "2", "3", "4", "5", "6", "7")
	pos := Pack(nodes, 0, 0)

	seen := make(map[Position]string)
	for id, p := range pos {
		prev, clash := seen[p]
		require.False(t, clash, "%s and %s share %v", prev, id, p)
		seen[p] = id
	}
}

func TestSelfLoopPathIsArc(t *testing.T) {
	vertical := SelfLoopPath(75, 60, 75, 0, 150, 60, false)
	assert.True(t, strings.HasPrefix(vertical, "M "))
	assert.Contains(t, vertical, " A ")

	horizontal := SelfLoopPath(150, 30, 150, 30, 150, 60, true)
	assert.Contains(t, horizontal, " A ")
	// Coincident anchors must still produce a non-degenerate radius.
	assert.Contains(t, horizontal, "45")
}
