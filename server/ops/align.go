package ops

import (
	"sort"
	"strconv"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/linesight/linesight/api"
	"github.com/linesight/linesight/api/scene"
)

// ErrNoWindow means no change-log validity window covers the cycle's start
// time. Comparison data is unavailable rather than erroneous.
var ErrNoWindow = errors.New("no change-log window covers cycle", j.C("ERR_e83a51f6d92c470b"))

// ActiveEntry finds the change-log entry whose validity window contains t:
// the latest entry with start_time <= t. Entries are sorted ascending by
// start time before the search. A t before the first entry has no window.
func ActiveEntry(entries []api.ChangeLogEntry, t time.Time) (api.ChangeLogEntry, error) {
	type timed struct {
		start time.Time
		entry api.ChangeLogEntry
	}
	sorted := make([]timed, 0, len(entries))
	for _, e := range entries {
		start, err := e.Start()
		if err != nil {
			continue
		}
		sorted = append(sorted, timed{start: start, entry: e})
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].start.Before(sorted[j].start)
	})

	// First entry strictly after t; the one before it owns the window.
	idx := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].start.After(t)
	})
	if idx == 0 {
		return api.ChangeLogEntry{}, errors.Wrap(ErrNoWindow, "", j.KV("at", t))
	}
	return sorted[idx-1].entry, nil
}

// signalSample is one actual measurement within a cycle.
type signalSample struct {
	offset float64
	value  float64
}

// orderedSamples flattens a signal trace into samples ordered by ascending
// timestamp. Keys that don't parse as numbers are dropped.
func orderedSamples(trace map[string]float64) []signalSample {
	ret := make([]signalSample, 0, len(trace))
	for ts, v := range trace {
		offset, err := strconv.ParseFloat(ts, 64)
		if err != nil {
			continue
		}
		ret = append(ret, signalSample{offset: offset, value: v})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].offset < ret[j].offset })
	return ret
}

// AlignSignals pairs each actual sample with the ideal value at the same
// positional index, clamping to the last ideal value once the ideal list is
// exhausted.
func AlignSignals(ideal []float64, trace map[string]float64) []scene.ComparisonPoint {
	samples := orderedSamples(trace)
	ret := make([]scene.ComparisonPoint, 0, len(samples))
	for i, s := range samples {
		var iv float64
		if i < len(ideal) {
			iv = ideal[i]
		} else if len(ideal) > 0 {
			iv = ideal[len(ideal)-1]
		}
		ret = append(ret, scene.ComparisonPoint{X: s.offset, Actual: s.value, Ideal: iv})
	}
	return ret
}

// CompileComparison aligns the ideal curve of the cycle's active change-log
// window with the fetched signal trace. ErrNoWindow and a missing trace
// both yield an unavailable comparison, not an error.
func CompileComparison(cycle api.Cycle, log api.ChangeLogPayload,
	ts api.TimeSeriesPayload, sequence, signal string,
) (scene.Comparison, error) {
	cmp := scene.Comparison{
		Signal:     signal,
		CycleLogID: cycle.CycleLogID,
	}
	start, err := cycle.Start()
	if err != nil {
		return scene.Comparison{}, errors.Wrap(err, "cycle start time",
			j.KV("cycle", cycle.ID))
	}
	entry, err := ActiveEntry(log.Result, start)
	if errors.Is(err, ErrNoWindow) {
		return cmp, nil
	} else if err != nil {
		return scene.Comparison{}, err
	}
	lp, ok := entry.Learned[sequence]
	if !ok {
		return cmp, nil
	}
	trace := ts.Result.Data[strconv.FormatInt(cycle.CycleLogID, 10)].CycleData[signal]
	if len(trace) == 0 {
		return cmp, nil
	}
	cmp.EntryID = entry.ID
	cmp.Available = true
	cmp.Points = AlignSignals(lp.AverageList, trace)
	return cmp, nil
}
