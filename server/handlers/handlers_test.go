package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesight/linesight/api"
	"github.com/linesight/linesight/api/scene"
	"github.com/linesight/linesight/server/ops"
)

type testState struct {
	s *ops.State
}

func (s testState) State() *ops.State {
	return s.s
}

type fakeSource struct {
	topology   api.TopologyPayload
	prediction api.PredictionPayload
	changeLog  api.ChangeLogPayload
	timeSeries api.TimeSeriesPayload
}

func (f fakeSource) Prediction(context.Context, string, string, string) (api.PredictionPayload, error) {
	return f.prediction, nil
}

func (f fakeSource) ChangeLog(context.Context, string) (api.ChangeLogPayload, error) {
	return f.changeLog, nil
}

func (f fakeSource) TimeSeries(context.Context, string, string, string) (api.TimeSeriesPayload, error) {
	return f.timeSeries, nil
}

func (f fakeSource) Topology(context.Context) (api.TopologyPayload, error) {
	return f.topology, nil
}

func boolPtr(b bool) *bool { return &b }

func testSource() fakeSource {
	anomaly := api.SignalData{Anomaly: boolPtr(true), Distance: 3.2}
	normal := api.SignalData{Anomaly: boolPtr(false), Distance: 0.4}
	return fakeSource{
		topology: api.TopologyPayload{
			BypassList:     []int64{34},
			NotAllowedList: []int64{35},
			Machines: []api.Machine{
				{ID: 1, MachineID: 34, Name: "Press", StationNumber: "M034"},
				{ID: 2, MachineID: 35, Name: "Drill", StationNumber: "M035", InputStations: []int64{34}},
				{ID: 3, MachineID: 36, Name: "Wash", StationNumber: "M036", InputStations: []int64{35}},
			},
		},
		prediction: api.PredictionPayload{
			Status: true,
			Result: api.PredictionResult{
				MachineID: "press_7",
				Cycles: map[string]api.Cycle{
					"1714557600": {
						ID: "c1", CycleLogID: 9,
						StartTime: "2024-05-01T10:00:00Z",
						Processed: true,
						Sequences: map[string]api.SignalData{"seq_a": normal},
					},
					"1714561200": {
						ID: "c2", CycleLogID: 10,
						StartTime: "2024-05-01T11:00:00Z",
						Processed: true,
						Sequences: map[string]api.SignalData{"seq_a": anomaly},
					},
				},
			},
		},
		changeLog: api.ChangeLogPayload{
			Status: true,
			Result: []api.ChangeLogEntry{{
				ID:        "e1",
				StartTime: "2024-05-01T00:00:00Z",
				Config:    api.ConfigParameters{ToolSequenceMap: map[string]int{"seq_a": 1}},
				Learned: map[string]api.LearnedParameter{
					"seq_a": {Threshold: 1.5, AverageList: []float64{1, 2, 3}},
				},
			}},
		},
		timeSeries: api.TimeSeriesPayload{
			Status: true,
			Result: api.TimeSeriesResult{
				Data: map[string]api.TimeSeriesCycle{
					"9": {CycleData: map[string]map[string]float64{
						"spindle_1_load": {"0": 1.0, "100": 2.5, "200": 4.0},
					}},
				},
			},
		},
	}
}

func setup(t *testing.T) (*httptest.Server, *ops.Loader) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	l := ops.NewLoader(ctx, testSource(), ops.NewMemStore(), api.Filters{Machine: "press_7", Tool: "seq_a"})
	s := testState{s: ops.NewState(l, ops.NewMemStore())}

	srv := httptest.NewServer(CreateRouter(s))
	t.Cleanup(srv.Close)

	l.RefreshTopology(ctx)
	return srv, l
}

func waitLoaded(t *testing.T, l *ops.Loader) {
	l.RefreshData()
	require.Eventually(t, func() bool {
		_, ok1, _ := l.Prediction()
		_, ok2, _ := l.ChangeLog()
		_, ok3, _ := l.TimeSeries()
		return ok1 && ok2 && ok3
	}, time.Second, time.Millisecond)
}

func getJSON(t *testing.T, srv *httptest.Server, path string, v any) *http.Response {
	resp, err := srv.Client().Get(srv.URL + path)
	jtest.RequireNil(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if v != nil && resp.StatusCode == http.StatusOK {
		jtest.RequireNil(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body, v any) *http.Response {
	b, err := json.Marshal(body)
	jtest.RequireNil(t, err)
	resp, err := srv.Client().Post(srv.URL+path, "application/json", bytes.NewReader(b))
	jtest.RequireNil(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if v != nil && resp.StatusCode == http.StatusOK {
		jtest.RequireNil(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestTreeScene(t *testing.T) {
	srv, _ := setup(t)

	var g scene.Graph
	resp := getJSON(t, srv, "/linesight/api/tree/scene", &g)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, scene.DirectionVertical, g.Direction)

	classes := make(map[string]scene.NodeClass)
	for _, n := range g.Nodes {
		classes[n.ID] = n.Class
	}
	assert.Equal(t, scene.ClassBypass, classes["34"])
	assert.Equal(t, scene.ClassNotAllowed, classes["35"])
	assert.Equal(t, scene.ClassNormal, classes["36"])
}

func TestNodeEditFlow(t *testing.T) {
	srv, _ := setup(t)

	var sel api.SelectResponse
	resp := postJSON(t, srv, "/linesight/api/node/select", map[string]int64{"id": 36}, &sel)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, sel.Session)

	resp = postJSON(t, srv, "/linesight/api/node/edit",
		api.EditRequest{StationNumber: strPtr("M099")}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var attrs ops.NodeAttrs
	resp = postJSON(t, srv, "/linesight/api/node/save", struct{}{}, &attrs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(99), attrs.ID)
	assert.Equal(t, "M099", attrs.StationNumber)

	var g scene.Graph
	getJSON(t, srv, "/linesight/api/tree/scene", &g)
	ids := make(map[string]bool)
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	assert.True(t, ids["99"])
	assert.False(t, ids["36"])
}

func TestSaveDuplicateStationRejected(t *testing.T) {
	srv, _ := setup(t)

	resp := postJSON(t, srv, "/linesight/api/node/select", map[string]int64{"id": 36}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv, "/linesight/api/node/edit",
		api.EditRequest{StationNumber: strPtr("M034")}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = postJSON(t, srv, "/linesight/api/node/save", struct{}{}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Edit mode stays open, so a corrected save still works.
	resp = postJSON(t, srv, "/linesight/api/node/edit",
		api.EditRequest{StationNumber: strPtr("M036")}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = postJSON(t, srv, "/linesight/api/node/save", struct{}{}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFlagConflictRejected(t *testing.T) {
	srv, _ := setup(t)

	resp := postJSON(t, srv, "/linesight/api/node/select", map[string]int64{"id": 34}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 34 is a bypass station; enabling not-allowed as well must fail.
	resp = postJSON(t, srv, "/linesight/api/node/edit",
		api.EditRequest{NotAllowed: boolPtr(true)}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPreview(t *testing.T) {
	srv, _ := setup(t)

	var p api.NodePreview
	resp := getJSON(t, srv, "/linesight/api/node/preview?id=35", &p)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Drill", p.Name)
	assert.Equal(t, []int64{34}, p.InputStations)

	resp = getJSON(t, srv, "/linesight/api/node/preview?id=999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScatter(t *testing.T) {
	srv, l := setup(t)

	resp := getJSON(t, srv, "/linesight/api/scatter", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	waitLoaded(t, l)

	var chart scene.Chart
	resp = getJSON(t, srv, "/linesight/api/scatter", &chart)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "seq_a", chart.Sequence)
	require.Len(t, chart.Series, 4)
	points := make(map[scene.SeriesClass]int)
	for _, s := range chart.Series {
		points[s.Class] = len(s.Points)
	}
	assert.Equal(t, 1, points[scene.SeriesNormal])
	assert.Equal(t, 1, points[scene.SeriesAnomaly])
	assert.NotEmpty(t, chart.Threshold)
}

func TestCompare(t *testing.T) {
	srv, l := setup(t)
	waitLoaded(t, l)

	var cmp scene.Comparison
	resp := getJSON(t, srv, "/linesight/api/compare?cycle=1714557600", &cmp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.True(t, cmp.Available)
	assert.Equal(t, "spindle_1_load", cmp.Signal)
	assert.Equal(t, "e1", cmp.EntryID)
	require.Len(t, cmp.Points, 3)
	assert.Equal(t, 1.0, cmp.Points[0].Actual)
	assert.Equal(t, 1.0, cmp.Points[0].Ideal)

	resp = getJSON(t, srv, "/linesight/api/compare?cycle=nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusAndFilters(t *testing.T) {
	srv, l := setup(t)
	waitLoaded(t, l)

	var status api.GetStatusResponse
	resp := getJSON(t, srv, "/linesight/api/status", &status)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "press_7", status.Filters.Machine)
	assert.Equal(t, []string{"seq_a"}, status.Sequences)

	resp = postJSON(t, srv, "/linesight/api/filters", api.SetFiltersRequest{
		Filters: api.Filters{Machine: "press_7", Tool: "seq_b"},
	}, &status)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "seq_b", status.Filters.Tool)
}

func strPtr(s string) *string { return &s }
