package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/internal/services"
)

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports the state of the store and the purge queue.
type HealthHandler struct {
	store Pinger
	queue services.TaskQueue
}

func NewHealthHandler(store Pinger, queue services.TaskQueue) *HealthHandler {
	return &HealthHandler{store: store, queue: queue}
}

// CheckHealth GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	code := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	storeStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		storeStatus = "error: " + err.Error()
		overall = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(code, gin.H{
		"status":  overall,
		"service": "taskpulse",
		"components": gin.H{
			"store":      storeStatus,
			"queue_mode": queueMode,
		},
	})
}
