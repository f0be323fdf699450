// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name    string
	checker Checker
}

type Handler struct {
	deps     []dependency
	shutdown atomic.Bool
}

func NewHandler(db, redis Checker) *Handler {
	return &Handler{
		deps: []dependency{
			{name: "database", checker: db},
			{name: "redis", checker: redis},
		},
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

// SetShutdown flips both probes to failing so load balancers stop
// routing before connections drain.
func (h *Handler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if h.shutdown.Load() {
		writeStatus(w, http.StatusServiceUnavailable, statusResponse{
			Status: "shutting_down",
		})
		return
	}

	writeStatus(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.shutdown.Load() {
		writeStatus(w, http.StatusServiceUnavailable, readinessResponse{
			Status: "shutting_down",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	checks := h.check(ctx)

	status := "ok"
	statusCode := http.StatusOK
	for _, c := range checks {
		if !c.Healthy {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
			break
		}
	}

	writeStatus(w, statusCode, readinessResponse{
		Status: status,
		Checks: checks,
	})
}

func (h *Handler) check(ctx context.Context) []checkResult {
	results := make([]checkResult, len(h.deps))

	var wg sync.WaitGroup
	for i, dep := range h.deps {
		wg.Add(1)
		go func(i int, dep dependency) {
			defer wg.Done()

			result := checkResult{Name: dep.name, Healthy: true}
			start := time.Now()
			if err := dep.checker.Ping(ctx); err != nil {
				result.Healthy = false
				result.Message = "ping failed"
			}
			result.Latency = time.Since(start).String()
			results[i] = result
		}(i, dep)
	}
	wg.Wait()

	return results
}

func writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(data)
}

type statusResponse struct {
	Status string `json:"status"`
}

type readinessResponse struct {
	Status string        `json:"status"`
	Checks []checkResult `json:"checks,omitempty"`
}

type checkResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}
