package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/marketclient/internal/api/http/types"
	"github.com/weisyn/marketclient/internal/core/store"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
)

// StoreRequest 校验与估算请求体
type StoreRequest struct {
	Alias string                 `json:"alias"`
	Meta  map[string]interface{} `json:"meta"`
}

// StoreHandlers 店铺相关接口
type StoreHandlers struct {
	service *store.Service
	logger  log.Logger
}

// NewStoreHandlers 创建店铺处理器
func NewStoreHandlers(service *store.Service, logger log.Logger) *StoreHandlers {
	return &StoreHandlers{service: service, logger: logger}
}

// RegisterRoutes 注册店铺路由
func (h *StoreHandlers) RegisterRoutes(r *gin.RouterGroup) {
	stores := r.Group("/stores")
	stores.POST("/check", h.Check)
	stores.POST("/estimate", h.Estimate)
	stores.GET("/:ref", h.Show)
}

// Show 读取店铺快照
// GET /api/v1/stores/:ref
func (h *StoreHandlers) Show(c *gin.Context) {
	ctx, cancel := h.readContext(c)
	defer cancel()

	st, err := h.service.Open(ctx, c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := st.Ready(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	// 反查别名失败不影响快照本身
	aliasName, err := st.Alias(ctx)
	if err != nil {
		h.logger.Warnf("反查店铺别名失败: %s: %v", st.Address().Hex(), err)
	}
	respondOK(c, view.Document(aliasName))
}

// Check 静态校验别名与元数据，不产生任何交易
// POST /api/v1/stores/check
func (h *StoreHandlers) Check(c *gin.Context) {
	var req StoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	ctx, cancel := h.readContext(c)
	defer cancel()

	if err := h.service.Check(ctx, req.Alias, req.Meta); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, types.CheckResponse{Valid: true})
}

// Estimate 估算创建店铺所需的 gas
// POST /api/v1/stores/estimate
func (h *StoreHandlers) Estimate(c *gin.Context) {
	var req StoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	ctx, cancel := h.readContext(c)
	defer cancel()

	cost, err := h.service.EstimateCreationCost(ctx, req.Alias, req.Meta)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, types.EstimateResponse{
		Gas:       cost.Total(),
		DeployGas: cost.DeployGas,
		ClaimGas:  cost.ClaimGas,
	})
}

func (h *StoreHandlers) readContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := h.service.Config().RefreshTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}
