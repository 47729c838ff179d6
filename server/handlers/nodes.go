package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/log"

	"github.com/linesight/linesight/api"
)

type nodeRequest struct {
	ID int64 `json:"id"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

// SelectNodeHandler puts a node in edit mode and returns the session token
// for the edit.
func SelectNodeHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req nodeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		e, err := d.State().Editor(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		session, err := e.Select(req.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, r, api.SelectResponse{Session: session})
	}
}

// EditNodeHandler buffers edits against the selected node.
func EditNodeHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req api.EditRequest
		if !decodeBody(w, r, &req) {
			return
		}
		e, err := d.State().Editor(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := e.Edit(req); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SaveNodeHandler commits the edit buffer and persists the result.
func SaveNodeHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		e, err := d.State().Editor(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		attrs, err := e.Save()
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := d.State().PersistNode(ctx, attrs); err != nil {
			// The commit stands; persistence is retried on the next save.
			log.Error(ctx, errors.Wrap(err, "persisting node edit"))
		}
		respondJSON(w, r, attrs)
	}
}

// CancelEditHandler discards the edit buffer.
func CancelEditHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		e, err := d.State().Editor(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		e.Cancel()
		w.WriteHeader(http.StatusNoContent)
	}
}

// FrontNodeHandler raises a node to the top of the paint order.
func FrontNodeHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req nodeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		e, err := d.State().Editor(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := e.BringToFront(req.ID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PreviewNodeHandler serves the hover summary for ?id=<machine id>.
func PreviewNodeHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		e, err := d.State().Editor(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		preview, err := e.Preview(id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, r, preview)
	}
}
