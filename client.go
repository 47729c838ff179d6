// Package linesight provides the HTTP client for the upstream data service
// that owns predictions, change logs, time series and line topologies.
package linesight

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/linesight/linesight/api"
)

// ErrFetchFailure wraps any transport, decode or validation failure on an
// upstream payload. Handlers surface it as a bad gateway.
var ErrFetchFailure = errors.New("upstream fetch failed", j.C("ERR_1a7f03c6d58e942b"))

var errRetryable = errors.New("", j.C("ERR_8c25e1f07a94d36b"))

type Client struct {
	baseURL    string
	cli        *http.Client
	reqTimeout time.Duration
}

type ClientOption func(*Client)

func WithBaseURL(url string) ClientOption {
	return func(client *Client) {
		client.baseURL = url
	}
}

func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.cli = c
	}
}

func WithRequestTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.reqTimeout = d
	}
}

func NewClient(opts ...ClientOption) *Client {
	ret := &Client{
		cli:        http.DefaultClient,
		reqTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.cli == nil {
		panic("no http client specified")
	}
	return ret
}

// Prediction fetches the per-cycle anomaly document for a machine over a
// time range.
func (c *Client) Prediction(ctx context.Context, machine, fromTime, toTime string) (api.PredictionPayload, error) {
	var p api.PredictionPayload
	err := c.getJSON(ctx, "/api/v1/prediction", url.Values{
		"machine":   {machine},
		"from_time": {fromTime},
		"to_time":   {toTime},
	}, &p)
	if err != nil {
		return api.PredictionPayload{}, err
	}
	if !p.Status {
		return api.PredictionPayload{}, fetchFailure("prediction", "upstream status false")
	}
	for key, cycle := range p.Result.Cycles {
		if _, err := cycle.Start(); err != nil {
			return api.PredictionPayload{}, errors.Wrap(ErrFetchFailure,
				"bad cycle start time", j.MKV{"kind": "prediction", "cycle": key})
		}
	}
	return p, nil
}

// ChangeLog fetches the learned-parameter log for a machine.
func (c *Client) ChangeLog(ctx context.Context, machine string) (api.ChangeLogPayload, error) {
	var p api.ChangeLogPayload
	err := c.getJSON(ctx, "/api/v1/change_log", url.Values{
		"machine": {machine},
	}, &p)
	if err != nil {
		return api.ChangeLogPayload{}, err
	}
	if !p.Status {
		return api.ChangeLogPayload{}, fetchFailure("change_log", "upstream status false")
	}
	for _, e := range p.Result {
		if _, err := e.Start(); err != nil {
			return api.ChangeLogPayload{}, errors.Wrap(ErrFetchFailure,
				"bad entry start time", j.MKV{"kind": "change_log", "entry": e.ID})
		}
	}
	return p, nil
}

// TimeSeries fetches the raw signal traces for a machine over a time range.
func (c *Client) TimeSeries(ctx context.Context, machine, fromTime, toTime string) (api.TimeSeriesPayload, error) {
	var p api.TimeSeriesPayload
	err := c.getJSON(ctx, "/api/v1/time_series", url.Values{
		"machine":   {machine},
		"from_time": {fromTime},
		"to_time":   {toTime},
	}, &p)
	if err != nil {
		return api.TimeSeriesPayload{}, err
	}
	if !p.Status {
		return api.TimeSeriesPayload{}, fetchFailure("time_series", "upstream status false")
	}
	return p, nil
}

// Topology fetches the production line layout.
func (c *Client) Topology(ctx context.Context) (api.TopologyPayload, error) {
	var p api.TopologyPayload
	err := c.getJSON(ctx, "/api/v1/topology", nil, &p)
	if err != nil {
		return api.TopologyPayload{}, err
	}
	if len(p.Machines) == 0 {
		return api.TopologyPayload{}, fetchFailure("topology", "no machines")
	}
	return p, nil
}

func fetchFailure(kind, msg string) error {
	return errors.Wrap(ErrFetchFailure, msg, j.KV("kind", kind))
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	b, err := c.doRetry(ctx, path)
	if err != nil {
		return errors.Wrap(ErrFetchFailure, err.Error())
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errors.Wrap(ErrFetchFailure, "decoding payload", j.KV("path", path))
	}
	return nil
}

func wrapHTTPError(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*url.Error); ok {
		if e.Timeout() || e.Temporary() {
			return errors.Wrap(errRetryable, err.Error())
		}
	}
	return err
}

func (c *Client) doRetry(ctx context.Context, path string) ([]byte, error) {
	retries := 4
	wait := time.Second
	for {
		resp, err := c.do(ctx, path)
		if err == nil {
			return resp, nil
		}
		if !errors.IsAny(err, context.DeadlineExceeded, errRetryable) || retries <= 0 {
			return nil, err
		}
		select {
		case <-time.After(wait):
			wait *= 2
			retries--
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		log.Info(ctx, "retrying request", j.MKV{"path": path})
	}
}

func (c *Client) do(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, wrapHTTPError(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode == http.StatusOK {
		return b, nil
	}
	s := strings.TrimSpace(string(b))
	return nil, errors.New("unexpected response", j.MKV{"status": resp.StatusCode, "response": s})
}
