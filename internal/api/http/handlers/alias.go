package handlers

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/weisyn/marketclient/internal/api/http/types"
	"github.com/weisyn/marketclient/internal/core/alias"
)

// AliasHandlers 别名查询接口
type AliasHandlers struct {
	registry *alias.Registry
}

// NewAliasHandlers 创建别名处理器
func NewAliasHandlers(registry *alias.Registry) *AliasHandlers {
	return &AliasHandlers{registry: registry}
}

// RegisterRoutes 注册别名路由
func (h *AliasHandlers) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/aliases/:alias", h.Lookup)
}

// Lookup 解析别名，返回地址、是否可认领以及合约种类
// GET /api/v1/aliases/:alias
func (h *AliasHandlers) Lookup(c *gin.Context) {
	name := c.Param("alias")
	ctx := c.Request.Context()

	addr, err := h.registry.Resolve(ctx, name)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := types.AliasResponse{
		Alias:     name,
		Address:   addr.Hex(),
		Available: addr == (common.Address{}),
	}
	if !resp.Available {
		kind, err := h.registry.Classify(ctx, name)
		if err != nil {
			respondError(c, err)
			return
		}
		resp.Kind = string(kind)
	}
	respondOK(c, resp)
}
