package txmonitor

// Sink 观测接收方，用于展示进行中的操作
//
// Notify 在提议创建时同步调用，实现不得阻塞；核心逻辑不依赖其结果。
type Sink interface {
	Notify(description string, p *Proposal)
}

// SinkFunc 函数适配器
type SinkFunc func(description string, p *Proposal)

// Notify 实现 Sink
func (f SinkFunc) Notify(description string, p *Proposal) { f(description, p) }

type nopSink struct{}

func (nopSink) Notify(string, *Proposal) {}
