package types

import (
	"github.com/weisyn/marketclient/pkg/types"
)

// ErrorResponse 错误信封
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code      string      `json:"code"` // VALIDATION_FAILED / NOT_FOUND / ...
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// ValidationDetails 校验失败时定位到的元素与规则
type ValidationDetails struct {
	Prefix string `json:"prefix,omitempty"`
	Field  string `json:"field"`
	Rule   string `json:"rule"`
}

// ErrInvalidArgument 请求体无法解析（尚未进入领域层）
const ErrInvalidArgument = "INVALID_ARGUMENT"

// NewErrorResponse 创建错误响应
func NewErrorResponse(code, message string, details interface{}) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Details: details}}
}

// ErrorResponseFor 按领域错误分类生成错误响应
func ErrorResponseFor(err error) *ErrorResponse {
	resp := NewErrorResponse(types.ErrorCode(err), err.Error(), nil)
	if ve, ok := types.IsValidationError(err); ok {
		resp.Error.Details = ValidationDetails{Prefix: ve.Prefix, Field: ve.Field, Rule: ve.Rule}
	}
	return resp
}

// WithRequestID 添加请求ID
func (e *ErrorResponse) WithRequestID(requestID string) *ErrorResponse {
	e.Error.RequestID = requestID
	return e
}

// WithTimestamp 添加时间戳
func (e *ErrorResponse) WithTimestamp(timestamp string) *ErrorResponse {
	e.Error.Timestamp = timestamp
	return e
}
