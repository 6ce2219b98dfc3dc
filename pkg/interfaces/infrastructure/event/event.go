// Package event 定义事件总线接口
//
// 事件总线只承载可观测性信息（交易提议、确认、失败），核心逻辑不依赖其结果。
package event

// EventType 事件类型（即总线上的 topic）
type EventType string

const (
	// EventTypeTxProposed 交易已提议（尚未确认）
	EventTypeTxProposed EventType = "tx:proposed"
	// EventTypeTxConfirmed 交易已确认
	EventTypeTxConfirmed EventType = "tx:confirmed"
	// EventTypeTxFailed 交易提交失败、执行失败或确认超时
	EventTypeTxFailed EventType = "tx:failed"
)

// EventBus 事件总线接口
type EventBus interface {
	// Subscribe 订阅事件
	Subscribe(eventType EventType, handler interface{}) error
	// SubscribeAsync 异步订阅事件
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error
	// Publish 发布事件
	Publish(eventType EventType, args ...interface{})
	// Unsubscribe 取消订阅
	Unsubscribe(eventType EventType, handler interface{}) error
	// HasCallback 是否存在订阅者
	HasCallback(eventType EventType) bool
	// WaitAsync 等待所有异步处理完成
	WaitAsync()
}

// TxEvent 交易生命周期事件的载荷
type TxEvent struct {
	ProposalID  string `json:"proposal_id"`
	Description string `json:"description"`
	TxHash      string `json:"tx_hash,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}
