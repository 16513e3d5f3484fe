package cachemgr

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aperturestack/cachecore/health"
)

// healthResponse is the wire shape for HealthHandler, mirroring
// health.HealthResponse but carrying the manager's extra fields.
type healthResponse struct {
	Status            string                   `json:"status"`
	Timestamp         time.Time                `json:"timestamp"`
	Checks            map[string]checkResponse `json:"checks"`
	CircuitState      string                   `json:"circuit_state"`
	HitRate           float64                  `json:"hit_rate"`
	AvgResponseTimeMs float64                  `json:"avg_response_time_ms"`
	ErrorRate         float64                  `json:"error_rate"`
}

type checkResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration time.Duration  `json:"duration"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// HealthHandler serializes GetHealthStatus as JSON, returning 200 when
// the aggregate status is healthy or degraded and 503 when unhealthy.
func (m *Manager) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := m.GetHealthStatus(r.Context())

		resp := healthResponse{
			Status:            status.Overall.String(),
			Timestamp:         time.Now(),
			Checks:            make(map[string]checkResponse, len(status.Checks)),
			CircuitState:      status.CircuitState.String(),
			HitRate:           status.HitRate,
			AvgResponseTimeMs: status.AvgResponseTimeMs,
			ErrorRate:         status.ErrorRate,
		}
		for name, res := range status.Checks {
			cr := checkResponse{
				Status:   res.Status.String(),
				Message:  res.Message,
				Duration: res.Duration,
				Details:  res.Details,
			}
			if res.Error != nil {
				cr.Error = res.Error.Error()
			}
			resp.Checks[name] = cr
		}

		w.Header().Set("Content-Type", "application/json")
		switch status.Overall {
		case health.StatusUnhealthy:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
}
