package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router interface {
	GET(path string, handle httprouter.Handle)
	POST(path string, handle httprouter.Handle)
}

type subRouter struct {
	r    Router
	base string
}

func SubRouter(r Router, basePath string) Router {
	return subRouter{r: r, base: basePath}
}

func (r subRouter) GET(path string, handle httprouter.Handle) {
	p := r.base + path
	r.r.GET(p, wrap(p, handle))
}

func (r subRouter) POST(path string, handle httprouter.Handle) {
	p := r.base + path
	r.r.POST(p, wrap(p, handle))
}

func wrap(path string, handle httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		t0 := time.Now()
		handle(w, r, p)
		httpHandle.WithLabelValues(path).Observe(time.Since(t0).Seconds())
	}
}

func CreateRouter(d Deps) *httprouter.Router {
	r := httprouter.New()
	line := SubRouter(r, "/linesight")

	line.GET("/api/tree/scene", TreeSceneHandler(d))

	line.POST("/api/node/select", SelectNodeHandler(d))
	line.POST("/api/node/edit", EditNodeHandler(d))
	line.POST("/api/node/save", SaveNodeHandler(d))
	line.POST("/api/node/cancel", CancelEditHandler(d))
	line.POST("/api/node/front", FrontNodeHandler(d))
	line.GET("/api/node/preview", PreviewNodeHandler(d))

	line.GET("/api/scatter", ScatterHandler(d))
	line.GET("/api/compare", CompareHandler(d))

	line.POST("/api/filters", SetFiltersHandler(d))
	line.GET("/api/status", GetStatusHandler(d))

	createWebApp(r)

	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/linesight/api/") {
			http.NotFound(w, r)
		} else if strings.HasPrefix(r.URL.Path, "/linesight/") {
			serveIndex(w, r, nil)
		} else {
			http.Redirect(w, r, "/linesight", http.StatusTemporaryRedirect)
		}
	})
	return r
}

func CreateDebugRouter() *httprouter.Router {
	r := httprouter.New()
	r.Handler(http.MethodGet, "/debug/metrics", promhttp.Handler())
	r.HandlerFunc(http.MethodGet, "/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
