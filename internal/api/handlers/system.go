package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rohits-web03/radiologix/internal/utils"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	store Pinger
	now   func() time.Time
	log   *slog.Logger
}

func NewSystemHandler(store Pinger, log *slog.Logger) *SystemHandler {
	return &SystemHandler{store: store, now: time.Now, log: log}
}

type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Root godoc
// @Summary API banner
// @Tags System
// @Produce json
// @Success 200 {object} utils.Payload
// @Router / [get]
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Radiologix API - Advanced Radiology Solutions",
	})
}

// Health godoc
// @Summary Liveness and storage check
// @Tags System
// @Produce json
// @Success 200 {object} utils.Payload{data=HealthStatus}
// @Failure 503 {object} utils.Payload{data=HealthStatus}
// @Router /health [get]
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := HealthStatus{Status: "healthy", Timestamp: h.now().UTC()}
	code := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("health check failed", "err", err)
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	utils.JSONResponse(w, code, utils.Payload{
		Success: code == http.StatusOK,
		Message: status.Status,
		Data:    status,
	})
}
