// Package api defines the wire contracts for linesight: the upstream JSON
// payloads consumed from the data service and the request/response bodies
// served to the dashboard renderer.
package api

import (
	"sort"
	"strconv"
	"time"
)

// SignalData is the per-sequence score for one cycle. Anomaly is tri-state:
// nil means the sequence has not been scored yet.
type SignalData struct {
	Anomaly  *bool   `json:"anomaly"`
	Distance float64 `json:"distance"`
}

// Cycle is one recorded production cycle for a machine.
type Cycle struct {
	ID            string                `json:"id"`
	MachineID     string                `json:"machine_id"`
	CycleLogID    int64                 `json:"cycle_log_id"`
	StartTime     string                `json:"start_time"`
	EndTime       string                `json:"end_time"`
	ProcessedTime string                `json:"processed_time"`
	Processed     bool                  `json:"anomaly_processed"`
	Sequences     map[string]SignalData `json:"data"`
}

// Start parses the cycle's start timestamp.
func (c Cycle) Start() (time.Time, error) {
	return time.Parse(time.RFC3339, c.StartTime)
}

type PredictionResult struct {
	MachineID      string           `json:"machine_id"`
	LastSyncedTime string           `json:"last_synced_time"`
	FromTime       string           `json:"from_time"`
	ToTime         string           `json:"to_time"`
	Unprocessed    map[string]int   `json:"unprocessed_sequences"`
	Cycles         map[string]Cycle `json:"cycles"`
}

// PredictionPayload is the per-cycle anomaly prediction document.
// Cycles is keyed by the cycle's start time in epoch seconds.
type PredictionPayload struct {
	Status bool             `json:"Status"`
	Result PredictionResult `json:"Result"`
}

// CycleEpochs returns the prediction's cycle keys as epoch seconds,
// ascending. Keys that don't parse are dropped.
func (p PredictionPayload) CycleEpochs() []int64 {
	ret := make([]int64, 0, len(p.Result.Cycles))
	for k := range p.Result.Cycles {
		epoch, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		ret = append(ret, epoch)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// LearnedParameter is a learned threshold and ideal curve for one sequence.
type LearnedParameter struct {
	Threshold   float64   `json:"threshold"`
	AverageList []float64 `json:"average_list"`
}

type SequenceConfig struct {
	Window    int `json:"window"`
	MaxPoints int `json:"max_points"`
	MinPoints int `json:"min_points"`
}

type ConfigParameters struct {
	ToolSequenceMap map[string]int            `json:"tool_sequence_map"`
	Sequence        map[string]SequenceConfig `json:"sequence"`
}

// ChangeLogEntry is a versioned snapshot of learned parameters. Its validity
// window opens at StartTime and closes at the next entry's StartTime.
type ChangeLogEntry struct {
	ID        string                      `json:"id"`
	MachineID string                      `json:"machine_id"`
	StartTime string                      `json:"start_time"`
	Config    ConfigParameters            `json:"config_parameters"`
	Learned   map[string]LearnedParameter `json:"learned_parameters"`
}

// Start parses the entry's validity window start.
func (e ChangeLogEntry) Start() (time.Time, error) {
	return time.Parse(time.RFC3339, e.StartTime)
}

type ChangeLogPayload struct {
	Status bool             `json:"Status"`
	Result []ChangeLogEntry `json:"Result"`
}

// Sequences returns the tool-sequence names from the first entry, which is
// authoritative for the whole log. Sorted for deterministic selection.
func (p ChangeLogPayload) Sequences() []string {
	if len(p.Result) == 0 {
		return nil
	}
	ret := make([]string, 0, len(p.Result[0].Config.ToolSequenceMap))
	for seq := range p.Result[0].Config.ToolSequenceMap {
		ret = append(ret, seq)
	}
	sort.Strings(ret)
	return ret
}

// TimeSeriesCycle holds signal traces for one cycle, keyed by signal name
// and then by sample timestamp.
type TimeSeriesCycle struct {
	CycleData map[string]map[string]float64 `json:"cycle_data"`
}

type TimeSeriesResult struct {
	Data map[string]TimeSeriesCycle `json:"data"`
}

// TimeSeriesPayload is the raw signal document, keyed by cycle-log id.
type TimeSeriesPayload struct {
	Status bool             `json:"Status"`
	Result TimeSeriesResult `json:"Result"`
}

// Machine is one topology node of a production line.
type Machine struct {
	ID             int64   `json:"id"`
	MachineID      int64   `json:"machine_id"`
	Name           string  `json:"name"`
	StationNumber  string  `json:"station_number"`
	InputStations  []int64 `json:"input_stations"`
	IdealCycleTime float64 `json:"ideal_cycle_time"`
}

// TopologyPayload describes a production line: its machines and the two
// mutually exclusive routing lists.
type TopologyPayload struct {
	BypassList     []int64   `json:"bypass_list"`
	NotAllowedList []int64   `json:"not_allowed_list"`
	Machines       []Machine `json:"prod_machine_map"`
}

// Filters are the dashboard query parameters. Machine or time range changes
// invalidate fetched data; a tool-only change reselects within it.
type Filters struct {
	Machine  string `json:"machine"`
	Tool     string `json:"tool"`
	FromTime string `json:"from_time"`
	ToTime   string `json:"to_time"`
}

// DataChanged reports whether switching to o requires a re-fetch of
// upstream payloads.
func (f Filters) DataChanged(o Filters) bool {
	return f.Machine != o.Machine || f.FromTime != o.FromTime || f.ToTime != o.ToTime
}

type SetFiltersRequest struct {
	Filters Filters `json:"filters"`
}

// EditRequest carries buffered edits for the selected node. Nil fields are
// left untouched.
type EditRequest struct {
	Name          *string `json:"name,omitempty"`
	StationNumber *string `json:"station_number,omitempty"`
	Bypass        *bool   `json:"bypass,omitempty"`
	NotAllowed    *bool   `json:"not_allowed,omitempty"`
}

type SelectResponse struct {
	Session string `json:"session"`
}

// NodePreview is the read-only hover summary for a node.
type NodePreview struct {
	Name          string  `json:"name"`
	StationNumber string  `json:"station_number"`
	InputStations []int64 `json:"input_stations,omitempty"`
}

// LoadStatus reports the per-slot fetch state for the dashboard spinner.
type LoadStatus struct {
	Prediction bool `json:"prediction"`
	ChangeLog  bool `json:"change_log"`
	TimeSeries bool `json:"time_series"`
	Topology   bool `json:"topology"`
}

type GetStatusResponse struct {
	Loading   LoadStatus `json:"loading"`
	Filters   Filters    `json:"filters"`
	Sequences []string   `json:"sequences,omitempty"`
}
