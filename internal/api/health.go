package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// HealthStatus is the overall verdict
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck is one component's state.
type HealthCheck struct {
	Status   HealthStatus `json:"status"`
	Message  string       `json:"message,omitempty"`
	Duration string       `json:"duration,omitempty"`
}

// SystemInfo describes the running process.
type SystemInfo struct {
	GoVersion     string `json:"goVersion"`
	NumGoroutines int    `json:"numGoroutines"`
	NumCPU        int    `json:"numCpu"`
	MemoryAlloc   uint64 `json:"memoryAllocBytes"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   VersionInfo            `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks"`
	System    SystemInfo             `json:"system"`
	RequestID string                 `json:"requestId,omitempty"`
}

// GET /health. History down is unhealthy; metadata disabled is only degraded
// because play continues without records.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]HealthCheck{
		"history":  s.checkHistory(r.Context()),
		"metadata": s.checkMetadata(),
	}
	status := HealthStatusHealthy
	for _, c := range checks {
		switch {
		case c.Status == HealthStatusUnhealthy:
			status = HealthStatusUnhealthy
		case c.Status == HealthStatusDegraded && status == HealthStatusHealthy:
			status = HealthStatusDegraded
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   versionInfo(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Checks:    checks,
		System: SystemInfo{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			NumCPU:        runtime.NumCPU(),
			MemoryAlloc:   m.Alloc,
		},
		RequestID: middleware.GetReqID(r.Context()),
	}

	code := http.StatusOK
	if status == HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) checkHistory(ctx context.Context) HealthCheck {
	if s.history == nil {
		return HealthCheck{Status: HealthStatusDegraded, Message: "history disabled"}
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := s.history.Count(ctx)
	if err != nil {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: err.Error(), Duration: time.Since(start).String()}
	}
	return HealthCheck{
		Status:   HealthStatusHealthy,
		Message:  fmt.Sprintf("%d captures stored", n),
		Duration: time.Since(start).String(),
	}
}

func (s *Server) checkMetadata() HealthCheck {
	if s.metadata == nil {
		return HealthCheck{Status: HealthStatusDegraded, Message: "metadata lookups disabled"}
	}
	return HealthCheck{Status: HealthStatusHealthy}
}
