package ports

// Metrics collects the operational counters of the daemon.
type Metrics interface {
	TxSubmitted(kind TxKind, inputs int, success bool)
	SettlementCompleted(outcome string)
	NotificationProcessed(eventType string, failed bool)
	QueueDepth(depth int)
	WebsocketReconnected()
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) TxSubmitted(TxKind, int, bool)      {}
func (NopMetrics) SettlementCompleted(string)         {}
func (NopMetrics) NotificationProcessed(string, bool) {}
func (NopMetrics) QueueDepth(int)                     {}
func (NopMetrics) WebsocketReconnected()              {}
