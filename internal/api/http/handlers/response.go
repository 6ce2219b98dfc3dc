// Package handlers HTTP 接口处理器
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/marketclient/internal/api/http/middleware"
	apitypes "github.com/weisyn/marketclient/internal/api/http/types"
	"github.com/weisyn/marketclient/pkg/types"
)

// StatusFor 领域错误 -> HTTP 状态码
func StatusFor(err error) int {
	switch types.ErrorCode(err) {
	case types.CodeValidation:
		return http.StatusUnprocessableEntity
	case types.CodeNotFound:
		return http.StatusNotFound
	case types.CodeTxTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, apitypes.NewSuccessResponse(data).
		WithRequestID(middleware.GetRequestID(c)).
		WithTimestamp(time.Now().UTC().Format(time.RFC3339)))
}

// respondError 按错误分类写出错误信封
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(StatusFor(err), apitypes.ErrorResponseFor(err).
		WithRequestID(middleware.GetRequestID(c)).
		WithTimestamp(time.Now().UTC().Format(time.RFC3339)))
}

func respondBadRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, apitypes.NewErrorResponse(apitypes.ErrInvalidArgument, err.Error(), nil).
		WithRequestID(middleware.GetRequestID(c)))
}
