package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/log"

	"github.com/linesight/linesight"
	"github.com/linesight/linesight/server/ops"
)

func respondJSON(w http.ResponseWriter, r *http.Request, v any) {
	ctx := r.Context()
	b, err := json.Marshal(v)
	if err != nil {
		log.Error(ctx, err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(b)
	if err != nil {
		log.Error(ctx, err)
	}
}

// writeError maps domain errors to status codes. Validation failures carry
// their message so the dashboard can surface them next to the edit form.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.IsAny(err, ops.ErrFlagConflict, ops.ErrDuplicateStation,
		ops.ErrBadStation, ops.ErrNotSelected):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ops.ErrUnknownNode):
		http.Error(w, "Not Found", http.StatusNotFound)
	case errors.Is(err, ops.ErrTopologyPending):
		http.Error(w, "Loading", http.StatusServiceUnavailable)
	case errors.Is(err, linesight.ErrFetchFailure):
		log.Error(ctx, err)
		http.Error(w, "Upstream Error", http.StatusBadGateway)
	default:
		log.Error(ctx, err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
	}
}
