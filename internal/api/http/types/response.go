// Package types HTTP 响应信封
package types

// SuccessResponse 统一成功响应格式
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"requestId,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Data: data,
	}
}

// WithRequestID 添加请求ID
func (r *SuccessResponse) WithRequestID(requestID string) *SuccessResponse {
	r.RequestID = requestID
	return r
}

// WithTimestamp 添加时间戳
func (r *SuccessResponse) WithTimestamp(timestamp string) *SuccessResponse {
	r.Timestamp = timestamp
	return r
}

// CheckResponse 静态校验结果
type CheckResponse struct {
	Valid bool `json:"valid"`
}

// EstimateResponse 创建成本估算
type EstimateResponse struct {
	Gas       uint64 `json:"gas"`
	DeployGas uint64 `json:"deployGas"`
	ClaimGas  uint64 `json:"claimGas"`
}

// AliasResponse 别名查询结果
type AliasResponse struct {
	Alias     string `json:"alias"`
	Address   string `json:"address"`
	Available bool   `json:"available"`
	Kind      string `json:"kind,omitempty"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status     string                 `json:"status"` // healthy, degraded, unhealthy
	Uptime     string                 `json:"uptime"`
	Timestamp  string                 `json:"timestamp"`
	Components map[string]interface{} `json:"components"`
}
