package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus   `json:"status"`
	Message    string         `json:"message,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CheckedAt  time.Time      `json:"checked_at"`
	DurationMs int64          `json:"duration_ms"`
}

// HealthOptions describes what readiness reports besides the database.
type HealthOptions struct {
	// MigrationsTable is the goose version table; empty skips the schema check.
	MigrationsTable string
	// Notifier names the active notification sender, e.g. "slack" or "log".
	Notifier string
}

type HealthHandler struct {
	db   *sqlx.DB
	opts HealthOptions
}

func NewHealthHandler(db *sqlx.DB, opts HealthOptions) *HealthHandler {
	return &HealthHandler{db: db, opts: opts}
}

// Ping reports liveness only.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// Health reports readiness. The database must answer within two seconds and
// carry at least one applied migration.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]CheckEntry{
		"postgres": h.check(ctx, h.checkDatabase),
	}
	if h.opts.MigrationsTable != "" {
		components["migrations"] = h.check(ctx, h.checkSchema)
	}
	if h.opts.Notifier != "" {
		components["notifications"] = CheckEntry{
			Status:    HealthHealthy,
			Details:   map[string]any{"sender": h.opts.Notifier},
			CheckedAt: time.Now(),
		}
	}

	resp := HealthResponse{
		Status:     HealthHealthy,
		CheckedAt:  time.Now(),
		Components: components,
	}
	for _, c := range components {
		if c.Status == HealthUnhealthy {
			resp.Status = HealthUnhealthy
		}
	}

	statusCode := http.StatusOK
	if resp.Status == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *HealthHandler) check(ctx context.Context, fn func(context.Context) (map[string]any, error)) CheckEntry {
	start := time.Now()
	details, err := fn(ctx)
	entry := CheckEntry{
		Status:     HealthHealthy,
		Details:    details,
		CheckedAt:  time.Now(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Status = HealthUnhealthy
		entry.Message = err.Error()
	}
	return entry
}

func (h *HealthHandler) checkDatabase(ctx context.Context) (map[string]any, error) {
	if err := h.db.PingContext(ctx); err != nil {
		return nil, err
	}
	stats := h.db.Stats()
	return map[string]any{
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
	}, nil
}

func (h *HealthHandler) checkSchema(ctx context.Context) (map[string]any, error) {
	var version int64
	query := "SELECT COALESCE(MAX(version_id), 0) FROM " + h.opts.MigrationsTable + " WHERE is_applied"
	if err := h.db.GetContext(ctx, &version, query); err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, errors.New("no migrations applied")
	}
	return map[string]any{"version": version}, nil
}
