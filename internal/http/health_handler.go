package http

import (
	"context"
	"net/http"
	"sort"
	"time"
)

type HealthHandler struct {
	required map[string]func(context.Context) error
	optional map[string]func(context.Context) error
	timeout  time.Duration
}

// NewHealthHandler fails with 503 when a required check fails. A failing
// optional check only marks the response degraded.
func NewHealthHandler(required, optional map[string]func(context.Context) error, timeout time.Duration) *HealthHandler {
	return &HealthHandler{required: required, optional: optional, timeout: timeout}
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.required)+len(h.optional))}
	status := http.StatusOK

	if failed := runChecks(ctx, h.optional, resp.Checks); failed {
		resp.Status = "degraded"
	}
	if failed := runChecks(ctx, h.required, resp.Checks); failed {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, resp)
}

func runChecks(ctx context.Context, checks map[string]func(context.Context) error, out map[string]string) bool {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := false
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			out[name] = err.Error()
			failed = true
			continue
		}
		out[name] = "ok"
	}
	return failed
}
