package linesight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
	)
}

func TestPrediction(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/prediction", r.URL.Path)
		assert.Equal(t, "press_7", r.URL.Query().Get("machine"))
		assert.Equal(t, "2024-05-01T00:00:00Z", r.URL.Query().Get("from_time"))
		_, _ = w.Write([]byte(`{
			"Status": true,
			"Result": {
				"machine_id": "press_7",
				"cycles": {
					"1714557600": {
						"id": "c1",
						"cycle_log_id": 9,
						"start_time": "2024-05-01T10:00:00Z",
						"anomaly_processed": true,
						"data": {"seq_a": {"anomaly": false, "distance": 0.4}}
					}
				}
			}
		}`))
	})

	p, err := c.Prediction(context.Background(), "press_7", "2024-05-01T00:00:00Z", "2024-05-02T00:00:00Z")
	jtest.RequireNil(t, err)

	assert.Equal(t, "press_7", p.Result.MachineID)
	require.Contains(t, p.Result.Cycles, "1714557600")
	cycle := p.Result.Cycles["1714557600"]
	assert.Equal(t, int64(9), cycle.CycleLogID)
	require.Contains(t, cycle.Sequences, "seq_a")
	require.NotNil(t, cycle.Sequences["seq_a"].Anomaly)
	assert.False(t, *cycle.Sequences["seq_a"].Anomaly)
}

func TestPredictionRejectsBadPayloads(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "status false", body: `{"Status": false}`},
		{name: "not json", body: `<html>offline</html>`},
		{
			name: "bad cycle timestamp",
			body: `{"Status": true, "Result": {"cycles": {"x": {"start_time": "yesterday"}}}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.Prediction(context.Background(), "press_7", "", "")
			jtest.Require(t, ErrFetchFailure, err)
		})
	}
}

func TestFetchFailureOnStatusCode(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	_, err := c.Topology(context.Background())
	jtest.Require(t, ErrFetchFailure, err)
}

func TestChangeLog(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/change_log", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"Status": true,
			"Result": [{
				"id": "e1",
				"start_time": "2024-05-01T00:00:00Z",
				"config_parameters": {"tool_sequence_map": {"seq_a": 1}},
				"learned_parameters": {"seq_a": {"threshold": 1.5, "average_list": [0.1, 0.2]}}
			}]
		}`))
	})

	cl, err := c.ChangeLog(context.Background(), "press_7")
	jtest.RequireNil(t, err)

	assert.Equal(t, []string{"seq_a"}, cl.Sequences())
	require.Len(t, cl.Result, 1)
	assert.Equal(t, 1.5, cl.Result[0].Learned["seq_a"].Threshold)
}

func TestTopologyRequiresMachines(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"prod_machine_map": []}`))
	})
	_, err := c.Topology(context.Background())
	jtest.Require(t, ErrFetchFailure, err)
}

func TestTimeSeries(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/time_series", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"Status": true,
			"Result": {"data": {"9": {"cycle_data": {"spindle_1_load": {"0": 1.25}}}}}
		}`))
	})

	ts, err := c.TimeSeries(context.Background(), "press_7", "", "")
	jtest.RequireNil(t, err)
	assert.Equal(t, 1.25, ts.Result.Data["9"].CycleData["spindle_1_load"]["0"])
}
