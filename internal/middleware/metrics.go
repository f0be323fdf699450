// metrics.go

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of requests currently being served.",
		}),
	}
}

func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		route := normalizeRoute(r.URL.Path)
		m.requestsTotal.WithLabelValues(
			r.Method, route, strconv.Itoa(rec.status),
		).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).
			Observe(time.Since(start).Seconds())
	})
}

// normalizeRoute collapses numeric path segments so metrics do not
// explode in cardinality across entity ids.
func normalizeRoute(path string) string {
	out := make([]byte, 0, len(path))
	seg := make([]byte, 0, 16)

	flush := func() {
		if len(seg) > 0 && isDigits(seg) {
			out = append(out, "{id}"...)
		} else {
			out = append(out, seg...)
		}
		seg = seg[:0]
	}

	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			flush()
			out = append(out, '/')
			continue
		}
		seg = append(seg, path[i])
	}
	flush()

	return string(out)
}

func isDigits(s []byte) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
