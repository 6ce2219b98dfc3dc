package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/marketclient/internal/api/http/types"
)

// Pinger 可探活的依赖（账本节点）
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers 健康检查
type HealthHandlers struct {
	ledger  Pinger
	started time.Time
}

// NewHealthHandlers 创建健康检查处理器；ledger 可为 nil
func NewHealthHandlers(ledger Pinger) *HealthHandlers {
	return &HealthHandlers{ledger: ledger, started: time.Now()}
}

// Health 进程存活且账本节点可达时返回 healthy
// GET /health
func (h *HealthHandlers) Health(c *gin.Context) {
	resp := types.HealthResponse{
		Status:     "healthy",
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: map[string]interface{}{},
	}
	status := http.StatusOK
	if h.ledger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.ledger.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Components["ledger"] = gin.H{"status": "unreachable", "error": err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			resp.Components["ledger"] = gin.H{"status": "ok"}
		}
	}
	c.JSON(status, resp)
}
