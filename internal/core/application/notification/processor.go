package notification

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type SettlementHandler interface {
	MarkMatched(ctx context.Context, orderID string) error
	TakerConfirm(ctx context.Context, orderID string) error
	MakerSwap(ctx context.Context, orderID string) error
	TakerPostSettlement(ctx context.Context, orderID, txHash string) error
}

type OrderHandler interface {
	CancelOrderByNotification(ctx context.Context, orderID string) error
	TriggerOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

type AssetPairHandler interface {
	SyncAssetPair(ctx context.Context, id string) (*domain.AssetPair, error)
}

// Processor is a FIFO queue of booknode messages drained by at most one
// goroutine at a time. A failing message is logged and skipped.
type Processor struct {
	settlement SettlementHandler
	orders     OrderHandler
	assetPairs AssetPairHandler
	metrics    ports.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	lock     *sync.Mutex
	queue    [][]byte
	draining bool
	stopped  bool
	wg       *sync.WaitGroup
}

func NewProcessor(
	settlement SettlementHandler, orders OrderHandler,
	assetPairs AssetPairHandler, metrics ports.Metrics,
) (*Processor, error) {
	if settlement == nil {
		return nil, fmt.Errorf("missing settlement handler")
	}
	if orders == nil {
		return nil, fmt.Errorf("missing order handler")
	}
	if assetPairs == nil {
		return nil, fmt.Errorf("missing asset pair handler")
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		settlement: settlement,
		orders:     orders,
		assetPairs: assetPairs,
		metrics:    metrics,
		ctx:        ctx,
		cancel:     cancel,
		lock:       &sync.Mutex{},
		queue:      make([][]byte, 0),
		wg:         &sync.WaitGroup{},
	}, nil
}

// Enqueue appends the message to the queue and starts draining it if idle.
// It returns false once the processor is stopped.
func (p *Processor) Enqueue(msg []byte) bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.stopped {
		return false
	}
	p.queue = append(p.queue, msg)
	p.metrics.QueueDepth(len(p.queue))

	if !p.draining {
		p.draining = true
		p.wg.Add(1)
		go p.drain()
	}
	return true
}

// Stop rejects new messages and waits for the queued ones to be processed.
// If ctx expires first, the in-flight handler is cancelled.
func (p *Processor) Stop(ctx context.Context) {
	p.lock.Lock()
	p.stopped = true
	p.lock.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("notification processor: stopping before queue is drained")
		p.cancel()
		<-done
	}
	p.cancel()
}

// HandleNotification dispatches the notification to the service in charge.
func (p *Processor) HandleNotification(
	ctx context.Context, n Notification,
) error {
	switch n := n.(type) {
	case OrderMatched:
		return p.settlement.TakerConfirm(ctx, n.OrderID)
	case OrderConfirmed:
		return p.settlement.MakerSwap(ctx, n.OrderID)
	case OrderSettled:
		return p.settlement.TakerPostSettlement(ctx, n.OrderID, n.TxHash)
	case MakerOrderMatched:
		return p.settlement.MarkMatched(ctx, n.OrderID)
	case AssetPairCreated:
		_, err := p.assetPairs.SyncAssetPair(ctx, n.AssetPairID)
		return err
	case OrderCancelled:
		return p.orders.CancelOrderByNotification(ctx, n.OrderID)
	case OrderTriggered:
		_, err := p.orders.TriggerOrder(ctx, n.OrderID)
		return err
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEventType, n)
	}
}

func (p *Processor) drain() {
	defer p.wg.Done()

	for {
		p.lock.Lock()
		if len(p.queue) <= 0 {
			p.draining = false
			p.lock.Unlock()
			return
		}
		msg := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.metrics.QueueDepth(len(p.queue))
		p.lock.Unlock()

		p.process(msg)
	}
}

func (p *Processor) process(msg []byte) {
	eventType := "malformed"
	failed := true
	defer func() {
		if r := recover(); r != nil {
			log.Errorf(
				"notification processor: panic handling %s: %v\n%s",
				msg, r, debug.Stack(),
			)
		}
		p.metrics.NotificationProcessed(eventType, failed)
	}()

	n, err := Decode(msg)
	if err != nil {
		log.WithError(err).Warnf("notification processor: skipping message %s", msg)
		return
	}
	eventType = n.EventType().String()

	log.Debugf("notification processor: handling %s", eventType)
	if err := p.HandleNotification(p.ctx, n); err != nil {
		log.WithError(err).Warnf(
			"notification processor: failed to handle %s %s", eventType, msg,
		)
		return
	}
	failed = false
}
