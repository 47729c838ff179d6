package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/log"

	"github.com/linesight/linesight/api"
	"github.com/linesight/linesight/server/ops"
	"github.com/linesight/linesight/server/ops/config"
)

func payloadStatus(w http.ResponseWriter, r *http.Request, kind string, err error) {
	if err != nil {
		log.Error(r.Context(), errors.Wrap(err, "payload unavailable"))
		http.Error(w, "Upstream Error", http.StatusBadGateway)
		return
	}
	http.Error(w, "Loading "+kind, http.StatusServiceUnavailable)
}

// ScatterHandler serves the classified scatter series and threshold line
// for the active filters.
func ScatterHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		l := d.State().Loader
		pred, ok, err := l.Prediction()
		if !ok {
			payloadStatus(w, r, "prediction", err)
			return
		}
		cl, ok, err := l.ChangeLog()
		if !ok {
			payloadStatus(w, r, "change log", err)
			return
		}
		respondJSON(w, r, ops.CompileChart(pred, cl, l.Sequence()))
	}
}

// CompareHandler serves the aligned ideal-vs-actual series for one cycle,
// selected by its prediction key (?cycle=<epoch seconds>). The signal
// defaults from config and can be overridden with ?signal=.
func CompareHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		l := d.State().Loader
		pred, ok, err := l.Prediction()
		if !ok {
			payloadStatus(w, r, "prediction", err)
			return
		}
		cl, ok, err := l.ChangeLog()
		if !ok {
			payloadStatus(w, r, "change log", err)
			return
		}
		ts, ok, err := l.TimeSeries()
		if !ok {
			payloadStatus(w, r, "time series", err)
			return
		}

		cycle, ok := pred.Result.Cycles[r.URL.Query().Get("cycle")]
		if !ok {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		signal := r.URL.Query().Get("signal")
		if signal == "" {
			signal = config.GetConfig().Defaults.Signal
		}

		cmp, err := ops.CompileComparison(cycle, cl, ts, l.Sequence(), signal)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, r, cmp)
	}
}

// SetFiltersHandler applies new dashboard filters.
func SetFiltersHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req api.SetFiltersRequest
		if !decodeBody(w, r, &req) {
			return
		}
		l := d.State().Loader
		l.SetFilters(req.Filters)
		respondJSON(w, r, statusResponse(l))
	}
}

// GetStatusHandler reports the per-slot loading state, the active filters
// and the selectable sequences.
func GetStatusHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		respondJSON(w, r, statusResponse(d.State().Loader))
	}
}

func statusResponse(l *ops.Loader) api.GetStatusResponse {
	return api.GetStatusResponse{
		Loading:   l.Status(),
		Filters:   l.Filters(),
		Sequences: l.Sequences(),
	}
}
