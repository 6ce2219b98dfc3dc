// 基于asaskevich/EventBus的事件总线实现

package event

import (
	evbus "github.com/asaskevich/EventBus"

	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/event"
)

// EventBus 是对 asaskevich/EventBus 的薄封装，按 EventType 作为 topic
//
// 未启用时所有订阅与发布静默成功，调用方无需判断。
type EventBus struct {
	bus     evbus.Bus
	enabled bool
}

var _ event.EventBus = (*EventBus)(nil)

// New 创建事件总线
func New(enabled bool) *EventBus {
	return &EventBus{bus: evbus.New(), enabled: enabled}
}

// Subscribe 实现订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	if !eb.enabled {
		return nil
	}
	return eb.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 实现异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	if !eb.enabled {
		return nil
	}
	return eb.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// Publish 实现发布
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	if !eb.enabled {
		return
	}
	eb.bus.Publish(string(eventType), args...)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	if !eb.enabled {
		return nil
	}
	return eb.bus.Unsubscribe(string(eventType), handler)
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	if !eb.enabled {
		return
	}
	eb.bus.WaitAsync()
}

// HasCallback 检查是否有回调
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	if !eb.enabled {
		return false
	}
	return eb.bus.HasCallback(string(eventType))
}
