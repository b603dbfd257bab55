package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

const dbPingTimeout = 2 * time.Second

type componentCheck struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type healthResponse struct {
	Status     string                    `json:"status"`
	CheckedAt  time.Time                 `json:"checked_at"`
	Components map[string]componentCheck `json:"components"`
}

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// pingHandler answers as long as the process is running.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// healthCheckHandler reports readiness: the service is only ready when
// the database answers a ping within the timeout.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dbPingTimeout)
	defer cancel()

	start := time.Now()
	pingErr := h.db.PingContext(ctx)

	check := componentCheck{
		Status:     "healthy",
		DurationMs: time.Since(start).Milliseconds(),
	}
	statusCode := http.StatusOK
	if pingErr != nil {
		check.Status = "unhealthy"
		check.Error = pingErr.Error()
		statusCode = http.StatusServiceUnavailable
	}

	resp := healthResponse{
		Status:     check.Status,
		CheckedAt:  time.Now(),
		Components: map[string]componentCheck{"postgres": check},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
