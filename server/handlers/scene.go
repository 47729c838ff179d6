package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/linesight/linesight/api/scene"
	"github.com/linesight/linesight/server/ops"
	"github.com/linesight/linesight/server/ops/config"
)

// TreeSceneHandler serves the laid-out topology scene for the tree view.
func TreeSceneHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		e, err := d.State().Editor(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		nodes, selected, hasSelection := e.Snapshot()

		c := config.GetConfig().Layout
		g := ops.CompileScene(nodes, selected, hasSelection,
			scene.Direction(c.Direction), scene.EdgeType(c.EdgeType))
		respondJSON(w, r, g)
	}
}
