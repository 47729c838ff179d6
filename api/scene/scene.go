// Package scene is the declarative description handed to the external
// chart/graph renderer: positioned nodes, routed edges and point series.
// The renderer owns painting and interaction; linesight owns geometry and
// classification.
package scene

// Direction is the flow axis of the tree layout.
type Direction string

const (
	DirectionVertical   Direction = "vertical"
	DirectionHorizontal Direction = "horizontal"
)

// PortSide is where edges enter or leave a node.
type PortSide string

const (
	PortTop    PortSide = "top"
	PortBottom PortSide = "bottom"
	PortLeft   PortSide = "left"
	PortRight  PortSide = "right"
)

// NodeClass drives node styling in the renderer.
type NodeClass string

const (
	ClassNormal     NodeClass = "normal"
	ClassBypass     NodeClass = "bypass"
	ClassNotAllowed NodeClass = "not_allowed"
)

// Node is a positioned machine in the tree view. Nodes is painted in slice
// order, so the last node is topmost.
type Node struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	StationNumber string    `json:"station_number"`
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	Width         float64   `json:"width"`
	Height        float64   `json:"height"`
	Class         NodeClass `json:"class"`
	SourcePort    PortSide  `json:"source_port"`
	TargetPort    PortSide  `json:"target_port"`
	InputStations []int64   `json:"input_stations,omitempty"`
	Selected      bool      `json:"selected,omitempty"`
}

type EdgeType string

const (
	EdgeStep     EdgeType = "step"
	EdgeBezier   EdgeType = "bezier"
	EdgeSelfLoop EdgeType = "selfloop"
)

// Edge is a directed connection. Self-loop edges carry an explicit arc path;
// all others are routed by the renderer from the port positions.
type Edge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"type"`
	Path   string   `json:"path,omitempty"`
}

// Graph is the full tree-view scene.
type Graph struct {
	Direction Direction `json:"direction"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	MaxX      float64   `json:"max_x"`
	MaxY      float64   `json:"max_y"`
}

// SeriesClass partitions scatter points by anomaly outcome.
type SeriesClass string

const (
	SeriesAnomaly     SeriesClass = "anomaly"
	SeriesNormal      SeriesClass = "normal"
	SeriesUnprocessed SeriesClass = "unprocessed"
	SeriesUnknown     SeriesClass = "unknown"
)

// ScatterPoint is one classified cycle: X in epoch milliseconds, Y the
// sequence distance, with a back-reference to the source cycle.
type ScatterPoint struct {
	X          int64   `json:"x"`
	Y          float64 `json:"y"`
	CycleID    string  `json:"cycle_id"`
	CycleLogID int64   `json:"cycle_log_id"`
}

type ScatterSeries struct {
	Class  SeriesClass    `json:"class"`
	Points []ScatterPoint `json:"points"`
}

// ThresholdPoint is one step of the threshold line, tagged with the
// change-log entry that produced it.
type ThresholdPoint struct {
	X       int64   `json:"x"`
	Y       float64 `json:"y"`
	EntryID string  `json:"entry_id"`
}

// Chart is the scatter-view scene for one machine and sequence.
type Chart struct {
	Machine   string           `json:"machine"`
	Sequence  string           `json:"sequence"`
	Series    []ScatterSeries  `json:"series"`
	Threshold []ThresholdPoint `json:"threshold,omitempty"`
}

// ComparisonPoint pairs an actual sample with the positionally matched
// ideal value.
type ComparisonPoint struct {
	X      float64 `json:"x"`
	Actual float64 `json:"actual"`
	Ideal  float64 `json:"ideal"`
}

// Comparison is the aligned ideal-vs-actual view for a selected cycle.
// Available is false when no change-log window covers the cycle.
type Comparison struct {
	Signal     string            `json:"signal"`
	EntryID    string            `json:"entry_id,omitempty"`
	CycleLogID int64             `json:"cycle_log_id"`
	Available  bool              `json:"available"`
	Points     []ComparisonPoint `json:"points,omitempty"`
}
