package event

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/marketclient/internal/core/txmonitor"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
)

// BusSink 把交易提议转发到事件总线
//
// 提议时发布 tx:proposed，结束时发布 tx:confirmed 或 tx:failed。
type BusSink struct {
	bus    event.EventBus
	logger log.Logger
}

var _ txmonitor.Sink = (*BusSink)(nil)

// NewBusSink 创建总线接收方
func NewBusSink(bus event.EventBus, logger log.Logger) *BusSink {
	return &BusSink{bus: bus, logger: logger}
}

// Notify 实现 txmonitor.Sink
func (s *BusSink) Notify(description string, p *txmonitor.Proposal) {
	s.bus.Publish(event.EventTypeTxProposed, toEvent(description, p))

	go func() {
		<-p.Done()
		ev := toEvent(description, p)
		if p.Status() == txmonitor.StatusConfirmed {
			s.bus.Publish(event.EventTypeTxConfirmed, ev)
			return
		}
		if s.logger != nil {
			s.logger.Debugf("发布交易失败事件: %s status=%s", description, ev.Status)
		}
		s.bus.Publish(event.EventTypeTxFailed, ev)
	}()
}

func toEvent(description string, p *txmonitor.Proposal) event.TxEvent {
	ev := event.TxEvent{
		ProposalID:  p.ID,
		Description: description,
		Status:      string(p.Status()),
	}
	if h := p.TxHash(); h != (common.Hash{}) {
		ev.TxHash = h.Hex()
	}
	if err := p.Err(); err != nil {
		ev.Error = err.Error()
	}
	return ev
}
