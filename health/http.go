package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// StatusReporter is the read side of a monitor. *Monitor satisfies it.
type StatusReporter interface {
	Name() string
	Status() Status
	LastCheck() (Result, bool)
}

// LivenessHandler returns an HTTP handler for liveness probes.
// This is a simple check that the process is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler returns an HTTP handler that reports 200 only when
// every monitor is healthy. Monitors still in the unknown state count as
// not ready.
func ReadinessHandler(monitors ...StatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")

		for _, m := range monitors {
			if m.Status() != StatusHealthy {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("UNHEALTHY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// MonitorResponse is the JSON response for a single monitor.
type MonitorResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message,omitempty"`
	Duration  string            `json:"duration,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// StatusResponse is the JSON response for the detailed status endpoint.
type StatusResponse struct {
	Status    string                     `json:"status"`
	Timestamp string                     `json:"timestamp"`
	Monitors  map[string]MonitorResponse `json:"monitors,omitempty"`
}

// StatusHandler returns an HTTP handler exposing the last recorded probe
// result of each monitor as JSON. It never runs probes itself; it reads
// the monitors' snapshots.
func StatusHandler(monitors ...StatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overall := StatusHealthy
		response := StatusResponse{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Monitors:  make(map[string]MonitorResponse, len(monitors)),
		}

		for _, m := range monitors {
			status := m.Status()
			if status != StatusHealthy {
				overall = StatusUnhealthy
			}

			entry := MonitorResponse{Status: status.String()}
			if result, ok := m.LastCheck(); ok {
				entry.Message = result.Message
				entry.Duration = result.Duration.String()
				entry.Timestamp = result.Timestamp.UTC().Format(time.RFC3339)
				entry.Details = result.Details
				if result.Err != nil {
					entry.Error = result.Err.Error()
				}
			}
			response.Monitors[m.Name()] = entry
		}

		response.Status = overall.String()

		w.Header().Set("Content-Type", "application/json")
		if overall == StatusHealthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}

// RegisterHandlers registers the health handlers on the given mux.
func RegisterHandlers(mux *http.ServeMux, monitors ...StatusReporter) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(monitors...))
	mux.HandleFunc("/health", StatusHandler(monitors...))
}
