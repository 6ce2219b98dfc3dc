package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/weisyn/marketclient/internal/core/txmonitor"
)

// TransactionHandlers 交易监控接口
type TransactionHandlers struct {
	monitor *txmonitor.Monitor
}

// NewTransactionHandlers 创建交易处理器
func NewTransactionHandlers(monitor *txmonitor.Monitor) *TransactionHandlers {
	return &TransactionHandlers{monitor: monitor}
}

// RegisterRoutes 注册交易路由
func (h *TransactionHandlers) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/transactions/pending", h.Pending)
}

// Pending 列出尚未完结的提案
// GET /api/v1/transactions/pending
func (h *TransactionHandlers) Pending(c *gin.Context) {
	records := h.monitor.Pending()
	if records == nil {
		records = []txmonitor.Record{}
	}
	respondOK(c, records)
}
