package ops

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/robfig/cron/v3"

	"github.com/linesight/linesight/api"
	"github.com/linesight/linesight/server/db"
)

// Source fetches the upstream payloads the dashboard renders.
type Source interface {
	Prediction(ctx context.Context, machine, fromTime, toTime string) (api.PredictionPayload, error)
	ChangeLog(ctx context.Context, machine string) (api.ChangeLogPayload, error)
	TimeSeries(ctx context.Context, machine, fromTime, toTime string) (api.TimeSeriesPayload, error)
	Topology(ctx context.Context) (api.TopologyPayload, error)
}

// slot is a fetch target with last-resolved-wins semantics. A new fetch bumps
// the generation so a stale response resolving late is discarded.
type slot[T any] struct {
	mu      sync.RWMutex
	gen     uint64
	loading bool
	val     T
	ok      bool
	err     error
}

func (s *slot[T]) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.loading = true
	return s.gen
}

func (s *slot[T]) resolve(gen uint64, v T, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.loading = false
	s.err = err
	if err != nil {
		return false
	}
	s.val = v
	s.ok = true
	return true
}

func (s *slot[T]) get() (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.val, s.ok, s.err
}

func (s *slot[T]) isLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Loader owns the four upstream payload slots and the active filters. Data
// filter changes (machine or time range) trigger re-fetches, a tool-only
// change reselects the sequence within the already fetched data.
type Loader struct {
	// ctx scopes background fetches to the process, not to the request that
	// triggered them.
	ctx   context.Context
	src   Source
	store Store

	fMu      sync.RWMutex
	filters  api.Filters
	sequence string

	prediction slot[api.PredictionPayload]
	changeLog  slot[api.ChangeLogPayload]
	timeSeries slot[api.TimeSeriesPayload]
	topology   slot[api.TopologyPayload]
}

func NewLoader(ctx context.Context, src Source, store Store, defaults api.Filters) *Loader {
	return &Loader{ctx: ctx, src: src, store: store, filters: defaults, sequence: defaults.Tool}
}

func (l *Loader) Filters() api.Filters {
	l.fMu.RLock()
	defer l.fMu.RUnlock()
	return l.filters
}

// Sequence returns the active tool sequence after fallback resolution.
func (l *Loader) Sequence() string {
	l.fMu.RLock()
	defer l.fMu.RUnlock()
	return l.sequence
}

func (l *Loader) Prediction() (api.PredictionPayload, bool, error) {
	return l.prediction.get()
}

func (l *Loader) ChangeLog() (api.ChangeLogPayload, bool, error) {
	return l.changeLog.get()
}

func (l *Loader) TimeSeries() (api.TimeSeriesPayload, bool, error) {
	return l.timeSeries.get()
}

func (l *Loader) Topology() (api.TopologyPayload, bool, error) {
	return l.topology.get()
}

func (l *Loader) Status() api.LoadStatus {
	return api.LoadStatus{
		Prediction: l.prediction.isLoading(),
		ChangeLog:  l.changeLog.isLoading(),
		TimeSeries: l.timeSeries.isLoading(),
		Topology:   l.topology.isLoading(),
	}
}

// SetFilters applies f and kicks off whatever work the change requires.
func (l *Loader) SetFilters(f api.Filters) {
	l.fMu.Lock()
	old := l.filters
	l.filters = f
	l.fMu.Unlock()

	if old.DataChanged(f) {
		l.RefreshData()
		return
	}
	l.reselect()
}

// RefreshData re-fetches the three filter-dependent payloads concurrently.
func (l *Loader) RefreshData() {
	f := l.Filters()
	go l.fetchPrediction(l.ctx, f)
	go l.fetchChangeLog(l.ctx, f)
	go l.fetchTimeSeries(l.ctx, f)
}

func (l *Loader) RefreshTopology(ctx context.Context) {
	gen := l.topology.begin()
	v, err := fetchCached(ctx, l.store,
		db.PayloadKey{Kind: KindTopology},
		func(ctx context.Context) (api.TopologyPayload, error) {
			return l.src.Topology(ctx)
		},
	)
	countFetch(KindTopology, err)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "fetching topology"))
	}
	l.topology.resolve(gen, v, err)
}

func (l *Loader) fetchPrediction(ctx context.Context, f api.Filters) {
	gen := l.prediction.begin()
	v, err := fetchCached(ctx, l.store,
		db.PayloadKey{Kind: KindPrediction, Machine: f.Machine, From: f.FromTime, To: f.ToTime},
		func(ctx context.Context) (api.PredictionPayload, error) {
			return l.src.Prediction(ctx, f.Machine, f.FromTime, f.ToTime)
		},
	)
	countFetch(KindPrediction, err)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "fetching prediction", j.KV("machine", f.Machine)))
	}
	l.prediction.resolve(gen, v, err)
}

func (l *Loader) fetchChangeLog(ctx context.Context, f api.Filters) {
	gen := l.changeLog.begin()
	v, err := fetchCached(ctx, l.store,
		db.PayloadKey{Kind: KindChangeLog, Machine: f.Machine},
		func(ctx context.Context) (api.ChangeLogPayload, error) {
			return l.src.ChangeLog(ctx, f.Machine)
		},
	)
	countFetch(KindChangeLog, err)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "fetching change log", j.KV("machine", f.Machine)))
	}
	if l.changeLog.resolve(gen, v, err) {
		l.reselect()
	}
}

func (l *Loader) fetchTimeSeries(ctx context.Context, f api.Filters) {
	gen := l.timeSeries.begin()
	v, err := fetchCached(ctx, l.store,
		db.PayloadKey{Kind: KindTimeSeries, Machine: f.Machine, From: f.FromTime, To: f.ToTime},
		func(ctx context.Context) (api.TimeSeriesPayload, error) {
			return l.src.TimeSeries(ctx, f.Machine, f.FromTime, f.ToTime)
		},
	)
	countFetch(KindTimeSeries, err)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "fetching time series", j.KV("machine", f.Machine)))
	}
	l.timeSeries.resolve(gen, v, err)
}

// reselect resolves the active sequence against the change log's tool map,
// falling back to the first sequence when the requested tool is absent.
func (l *Loader) reselect() {
	cl, ok, _ := l.changeLog.get()
	if !ok {
		return
	}
	seqs := cl.Sequences()

	l.fMu.Lock()
	defer l.fMu.Unlock()
	want := l.filters.Tool
	for _, s := range seqs {
		if s == want {
			l.sequence = want
			return
		}
	}
	if len(seqs) > 0 {
		l.sequence = seqs[0]
		return
	}
	l.sequence = want
}

// Sequences lists the tool sequences of the current change log.
func (l *Loader) Sequences() []string {
	cl, ok, _ := l.changeLog.get()
	if !ok {
		return nil
	}
	return cl.Sequences()
}

func fetchCached[T any](ctx context.Context, store Store, key db.PayloadKey,
	fetch func(context.Context) (T, error),
) (T, error) {
	var v T
	b, err := store.GetPayload(ctx, key)
	if err == nil {
		if uerr := json.Unmarshal(b, &v); uerr == nil {
			return v, nil
		}
		// Unreadable cache entries fall through to a fresh fetch.
	} else if !errors.Is(err, db.ErrPayloadNotFound) {
		log.Error(ctx, errors.Wrap(err, "payload cache read", j.KV("kind", key.Kind)))
	}

	v, err = fetch(ctx)
	if err != nil {
		return v, err
	}
	if b, merr := json.Marshal(v); merr == nil {
		if serr := store.StorePayload(ctx, key, b, db.DefaultPayloadTTL); serr != nil {
			log.Error(ctx, errors.Wrap(serr, "payload cache write", j.KV("kind", key.Kind)))
		}
	}
	return v, nil
}

// cronParser accepts standard 5-field cron expressions.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

const fallbackRefresh = 5 * time.Minute

func nextRefresh(expr string, now time.Time) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return fallbackRefresh
	}
	d := sched.Next(now).Sub(now)
	if d <= 0 {
		return fallbackRefresh
	}
	return d
}

// Run fetches everything once and then re-fetches on the cron schedule until
// the loader's context is cancelled.
func (l *Loader) Run(schedule string) {
	ctx := l.ctx
	l.RefreshTopology(ctx)
	l.RefreshData()

	for {
		select {
		case <-time.After(nextRefresh(schedule, time.Now())):
		case <-ctx.Done():
			return
		}
		log.Info(ctx, "refreshing upstream payloads", j.KV("schedule", schedule))
		l.RefreshTopology(ctx)
		l.RefreshData()
	}
}
