package ops

import "github.com/prometheus/client_golang/prometheus"

var fetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "linesight",
	Subsystem: "loader",
	Name:      "fetch_total",
	Help:      "Upstream payload fetches by kind and outcome",
}, []string{"kind", "outcome"})

func init() {
	prometheus.MustRegister(fetchTotal)
}

func countFetch(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	fetchTotal.WithLabelValues(kind, outcome).Inc()
}
