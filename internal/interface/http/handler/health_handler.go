package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger проверяет доступность хранилища.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	ping    Pinger
	timeout time.Duration
}

func NewHealthHandler(ping Pinger, timeout time.Duration) *HealthHandler {
	return &HealthHandler{ping: ping, timeout: timeout}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Timestamp: time.Now(), Checks: map[string]string{"store": "healthy"}}
	status := http.StatusOK
	if err := h.ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Checks["store"] = "unhealthy: " + err.Error()
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
