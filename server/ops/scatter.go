package ops

import (
	"sort"
	"strconv"

	"github.com/linesight/linesight/api"
	"github.com/linesight/linesight/api/scene"
)

// seriesOrder fixes the order classes appear in the chart legend.
var seriesOrder = []scene.SeriesClass{
	scene.SeriesAnomaly,
	scene.SeriesNormal,
	scene.SeriesUnprocessed,
	scene.SeriesUnknown,
}

// Classify partitions cycles into the four scatter classes for one
// sequence. Cycles without data for the sequence are skipped; every other
// cycle lands in exactly one class. Points are ordered by timestamp.
func Classify(cycles map[string]api.Cycle, sequence string) map[scene.SeriesClass][]scene.ScatterPoint {
	ret := make(map[scene.SeriesClass][]scene.ScatterPoint)
	for key, cycle := range cycles {
		epoch, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		sig, ok := cycle.Sequences[sequence]
		if !ok {
			continue
		}
		var class scene.SeriesClass
		switch {
		case !cycle.Processed:
			class = scene.SeriesUnprocessed
		case sig.Anomaly == nil:
			class = scene.SeriesUnknown
		case *sig.Anomaly:
			class = scene.SeriesAnomaly
		default:
			class = scene.SeriesNormal
		}
		ret[class] = append(ret[class], scene.ScatterPoint{
			X:          epoch * 1000,
			Y:          sig.Distance,
			CycleID:    cycle.ID,
			CycleLogID: cycle.CycleLogID,
		})
	}
	for _, points := range ret {
		sort.Slice(points, func(i, j int) bool { return points[i].X < points[j].X })
	}
	return ret
}

// thresholdStep is one change-log entry's threshold placed on the time axis.
type thresholdStep struct {
	x       int64
	y       float64
	entryID string
}

// ThresholdSeries builds the right-continuous step function of learned
// thresholds over the visible range [minX, maxX] (epoch milliseconds).
// The first point is forced to minX; if the last entry's window opens
// within range its value is extended to maxX, otherwise a single point at
// maxX holds the second-to-last value. With one entry the series is a flat
// line across the range; with none there is no series.
func ThresholdSeries(entries []api.ChangeLogEntry, sequence string, minX, maxX int64) []scene.ThresholdPoint {
	var steps []thresholdStep
	for _, e := range entries {
		lp, ok := e.Learned[sequence]
		if !ok {
			continue
		}
		start, err := e.Start()
		if err != nil {
			continue
		}
		steps = append(steps, thresholdStep{
			x:       start.UnixMilli(),
			y:       lp.Threshold,
			entryID: e.ID,
		})
	}
	if len(steps) == 0 {
		return nil
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].x < steps[j].x })

	if len(steps) == 1 {
		only := steps[0]
		return []scene.ThresholdPoint{
			{X: minX, Y: only.y, EntryID: only.entryID},
			{X: maxX, Y: only.y, EntryID: only.entryID},
		}
	}

	var ret []scene.ThresholdPoint
	for i, st := range steps {
		switch {
		case i == 0:
			ret = append(ret, scene.ThresholdPoint{X: minX, Y: st.y, EntryID: st.entryID})
		case i == len(steps)-1:
			if st.x < maxX {
				ret = append(ret,
					scene.ThresholdPoint{X: st.x, Y: st.y, EntryID: st.entryID},
					scene.ThresholdPoint{X: maxX, Y: st.y, EntryID: st.entryID},
				)
			} else {
				// The last entry's window never became visible.
				prev := steps[len(steps)-2]
				ret = append(ret, scene.ThresholdPoint{X: maxX, Y: prev.y, EntryID: st.entryID})
			}
		default:
			ret = append(ret, scene.ThresholdPoint{X: st.x, Y: st.y, EntryID: st.entryID})
		}
	}
	return ret
}

// CompileChart assembles the scatter scene for the selected sequence from
// the prediction and change-log payloads.
func CompileChart(pred api.PredictionPayload, log api.ChangeLogPayload, sequence string) scene.Chart {
	chart := scene.Chart{
		Machine:  pred.Result.MachineID,
		Sequence: sequence,
	}
	classified := Classify(pred.Result.Cycles, sequence)
	for _, class := range seriesOrder {
		chart.Series = append(chart.Series, scene.ScatterSeries{
			Class:  class,
			Points: classified[class],
		})
	}

	epochs := pred.CycleEpochs()
	if len(epochs) == 0 {
		return chart
	}
	minX := epochs[0] * 1000
	maxX := epochs[len(epochs)-1] * 1000
	chart.Threshold = ThresholdSeries(log.Result, sequence, minX, maxX)
	return chart
}
