package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
)

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BalancerStatus reports the state of the reasoning service client.
type BalancerStatus interface {
	IsHealthy() bool
	GetCircuitBreakerState() gobreaker.State
}

type HealthHandler struct {
	db       Pinger
	cache    Pinger
	balancer BalancerStatus
}

func NewHealthHandler(db, cache Pinger, balancer BalancerStatus) *HealthHandler {
	return &HealthHandler{
		db:       db,
		cache:    cache,
		balancer: balancer,
	}
}

// GetHealth always returns 200 while the process is serving. Used for liveness probes.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "picado-teamgen",
	})
}

// GetReady returns 200 only when the database and redis answer. The balancer state is reported
// but does not affect readiness.
func (h *HealthHandler) GetReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		ready = false
	} else {
		checks["database"] = "ok"
	}

	if err := h.cache.Ping(ctx); err != nil {
		checks["redis"] = err.Error()
		ready = false
	} else {
		checks["redis"] = "ok"
	}

	checks["balancer"] = gin.H{
		"healthy":         h.balancer.IsHealthy(),
		"circuit_breaker": h.balancer.GetCircuitBreakerState().String(),
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
	})
}
