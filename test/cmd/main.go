// A stand-in upstream data service. It serves randomly generated but
// internally consistent prediction, change-log, time-series and topology
// payloads so the dashboard can be run without the real data platform.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/linesight/linesight/api"
)

var port = flag.Int("port", 8093, "port to serve generated payloads on")

const (
	cycleCount  = 40
	sampleCount = 30
)

var sequences = []string{"seq_drill", "seq_mill", "seq_polish"}

type anomalyClass int

const (
	classNormal anomalyClass = iota
	classAnomaly
	classUnprocessed
	classUnknown
)

var classWeights = map[anomalyClass]int{
	classNormal:      80,
	classAnomaly:     8,
	classUnprocessed: 7,
	classUnknown:     5,
}

type generator struct {
	r *rand.Rand
}

func (g generator) topology() api.TopologyPayload {
	machines := []api.Machine{
		{ID: 1, MachineID: 10, Name: "Loader", StationNumber: "M010"},
		{ID: 2, MachineID: 20, Name: "Press", StationNumber: "M020", InputStations: []int64{10}},
		{ID: 3, MachineID: 30, Name: "Drill", StationNumber: "M030", InputStations: []int64{20}},
		{ID: 4, MachineID: 40, Name: "Mill", StationNumber: "M040", InputStations: []int64{20}},
		{ID: 5, MachineID: 50, Name: "Wash", StationNumber: "M050", InputStations: []int64{30, 40, 50}},
		{ID: 6, MachineID: 60, Name: "Gauge", StationNumber: "M060", InputStations: []int64{50}},
		{ID: 7, MachineID: 70, Name: "Spare Rig", StationNumber: "M070"},
	}
	return api.TopologyPayload{
		BypassList:     []int64{40},
		NotAllowedList: []int64{70},
		Machines:       machines,
	}
}

func (g generator) prediction(machine string, from, to time.Time) api.PredictionPayload {
	cycles := make(map[string]api.Cycle, cycleCount)
	step := to.Sub(from) / cycleCount
	for i := 0; i < cycleCount; i++ {
		start := from.Add(time.Duration(i) * step)
		data := make(map[string]api.SignalData, len(sequences))
		processed := true
		for _, seq := range sequences {
			sd := api.SignalData{Distance: g.r.Float64() * 2}
			switch ChooseWeighted(g.r, classWeights) {
			case classNormal:
				v := false
				sd.Anomaly = &v
			case classAnomaly:
				v := true
				sd.Anomaly = &v
				sd.Distance += 2
			case classUnprocessed:
				processed = false
			case classUnknown:
			}
			data[seq] = sd
		}
		cycles[strconv.FormatInt(start.Unix(), 10)] = api.Cycle{
			ID:         fmt.Sprintf("cycle-%d", i),
			MachineID:  machine,
			CycleLogID: int64(1000 + i),
			StartTime:  start.UTC().Format(time.RFC3339),
			EndTime:    start.Add(step / 2).UTC().Format(time.RFC3339),
			Processed:  processed,
			Sequences:  data,
		}
	}
	return api.PredictionPayload{
		Status: true,
		Result: api.PredictionResult{
			MachineID:      machine,
			LastSyncedTime: to.UTC().Format(time.RFC3339),
			FromTime:       from.UTC().Format(time.RFC3339),
			ToTime:         to.UTC().Format(time.RFC3339),
			Cycles:         cycles,
		},
	}
}

func (g generator) changeLog(machine string, from, to time.Time) api.ChangeLogPayload {
	toolMap := make(map[string]int, len(sequences))
	for i, seq := range sequences {
		toolMap[seq] = i + 1
	}

	var entries []api.ChangeLogEntry
	span := to.Sub(from) / 3
	for i := 0; i < 3; i++ {
		learned := make(map[string]api.LearnedParameter, len(sequences))
		for _, seq := range sequences {
			ideal := make([]float64, sampleCount)
			for s := range ideal {
				ideal[s] = g.r.Float64() * 5
			}
			learned[seq] = api.LearnedParameter{
				Threshold:   1.5 + g.r.Float64(),
				AverageList: ideal,
			}
		}
		entries = append(entries, api.ChangeLogEntry{
			ID:        fmt.Sprintf("entry-%d", i),
			MachineID: machine,
			StartTime: from.Add(time.Duration(i) * span).UTC().Format(time.RFC3339),
			Config:    api.ConfigParameters{ToolSequenceMap: toolMap},
			Learned:   learned,
		})
	}
	return api.ChangeLogPayload{Status: true, Result: entries}
}

func (g generator) timeSeries() api.TimeSeriesPayload {
	data := make(map[string]api.TimeSeriesCycle, cycleCount)
	for i := 0; i < cycleCount; i++ {
		trace := make(map[string]float64, sampleCount)
		for s := 0; s < sampleCount; s++ {
			trace[strconv.Itoa(s * 100)] = g.r.Float64() * 5
		}
		data[strconv.Itoa(1000+i)] = api.TimeSeriesCycle{
			CycleData: map[string]map[string]float64{
				"spindle_1_load": trace,
				"spindle_2_load": trace,
			},
		}
	}
	return api.TimeSeriesPayload{
		Status: true,
		Result: api.TimeSeriesResult{Data: data},
	}
}

func timeRange(r *http.Request) (time.Time, time.Time) {
	now := time.Now()
	from, to := now.Add(-24*time.Hour), now
	if t, err := time.Parse(time.RFC3339, r.URL.Query().Get("from_time")); err == nil {
		from = t
	}
	if t, err := time.Parse(time.RFC3339, r.URL.Query().Get("to_time")); err == nil {
		to = t
	}
	return from, to
}

func respond(w http.ResponseWriter, r *http.Request, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error(r.Context(), err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func main() {
	flag.Parse()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	g := generator{r: rand.New(rand.NewSource(time.Now().UnixNano()))}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/topology", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, g.topology())
	})
	mux.HandleFunc("/api/v1/prediction", func(w http.ResponseWriter, r *http.Request) {
		from, to := timeRange(r)
		respond(w, r, g.prediction(r.URL.Query().Get("machine"), from, to))
	})
	mux.HandleFunc("/api/v1/change_log", func(w http.ResponseWriter, r *http.Request) {
		from, to := timeRange(r)
		respond(w, r, g.changeLog(r.URL.Query().Get("machine"), from, to))
	})
	mux.HandleFunc("/api/v1/time_series", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, g.timeSeries())
	})

	srv := &http.Server{Addr: ":" + strconv.Itoa(*port), Handler: mux}
	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info(ctx, "sample data service listening", j.KV("port", *port))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}
