package handler

import (
	"net/http"
	"time"

	"evote-api/internal/container"
	"evote-api/pkg/database"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
	db        *database.PostgresDB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container, db *database.PostgresDB) *HealthHandler {
	return &HealthHandler{
		container: container,
		db:        db,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Database  string    `json:"database"`
	Cache     string    `json:"cache"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.container.GetLogger()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   "evote-api",
		Database:  "ok",
		Cache:     "ok",
	}
	status := http.StatusOK

	if err := h.db.Health(ctx); err != nil {
		log.WithError(err).Error("Database health check failed")
		response.Status = "unhealthy"
		response.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	if h.container.HasRedis() {
		if err := h.container.GetRedisClient().Health(ctx); err != nil {
			log.WithError(err).Warn("Redis health check failed")
			response.Cache = "unreachable"
		}
	} else {
		response.Cache = "disabled"
	}

	respondJSON(w, status, response)
}
