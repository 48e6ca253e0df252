package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// Probe checks a single dependency.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Probes []Probe
}

var draining atomic.Bool

// SetReady toggles readiness. The server flips it off before shutting down so
// load balancers stop routing new sessions to it.
func SetReady(ready bool) { draining.Store(!ready) }

// IsReady reports whether the process accepts traffic.
func IsReady() bool { return !draining.Load() }

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes. Every probe runs even
// when an earlier one fails.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]string, len(h.Probes)+1)
	healthy := IsReady()
	if !healthy {
		status["server"] = "draining"
	}
	for _, p := range h.Probes {
		result := "ok"
		if err := runProbe(r.Context(), p); err != nil {
			result = err.Error()
			healthy = false
		}
		status[p.Name] = result
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// Names lists the configured probe names in sorted order.
func (h Handler) Names() []string {
	names := make([]string, 0, len(h.Probes))
	for _, p := range h.Probes {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func runProbe(ctx context.Context, p Probe) error {
	if p.Check == nil {
		return nil
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Check(ctx)
}
