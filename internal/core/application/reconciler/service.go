package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/chaintx"
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const (
	defaultInterval = time.Minute
	pageSize        = 50
)

// OrderLister ...
type OrderLister interface {
	ListOrders(
		ctx context.Context, status *domain.OrderStatus, page *domain.Page,
	) ([]domain.Order, error)
}

// Settler completes the settlement of a maker order, recovering it from the
// indexer if the swap already landed.
type Settler interface {
	MakerSwap(ctx context.Context, orderID string) error
}

// Service periodically retries the settlement of maker orders left in
// Confirmed status, for example because the daemon stopped while waiting for
// a swap receipt. Settled orders the booknode was not told about are sent
// again too.
type Service struct {
	orders   OrderLister
	settler  Settler
	interval time.Duration
	now      func() time.Time

	lock   sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(
	orders OrderLister, settler Settler, interval time.Duration,
) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("missing order lister")
	}
	if settler == nil {
		return nil, fmt.Errorf("missing settler")
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		orders:   orders,
		settler:  settler,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Start runs a reconciliation round every interval until Stop is called or
// ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Debugln("reconciler started")
		for {
			select {
			case <-ctx.Done():
				log.Debugln("reconciler stopped")
				return
			case <-ticker.C:
				if _, err := s.Reconcile(ctx); err != nil {
					log.WithError(err).Warn("reconciliation round failed")
				}
			}
		}
	}()
}

func (s *Service) Stop() {
	s.lock.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.lock.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Reconcile retries the settlement of every Confirmed order not updated for
// at least one interval, and the notice of every unreported settlement. It
// returns the number of orders reconciled.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	threshold := s.now().Add(-s.interval).Unix()
	stale, err := s.listOrders(
		ctx, domain.OrderStatusConfirmed, func(o domain.Order) bool {
			return o.UpdatedAt <= threshold
		},
	)
	if err != nil {
		return 0, err
	}
	unreported, err := s.listOrders(
		ctx, domain.OrderStatusSettled, func(o domain.Order) bool {
			return o.IsSettlementUnreported()
		},
	)
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, o := range append(stale, unreported...) {
		if err := s.settler.MakerSwap(ctx, o.ID); err != nil {
			logFailure(o, err)
			continue
		}
		log.Infof("reconciled settlement of order %s", o.ID)
		reconciled++
	}
	return reconciled, nil
}

func (s *Service) listOrders(
	ctx context.Context, status domain.OrderStatus,
	filter func(domain.Order) bool,
) ([]domain.Order, error) {
	pending := make([]domain.Order, 0)

	for n := 1; ; n++ {
		page := domain.NewPage(n, pageSize)
		orders, err := s.orders.ListOrders(ctx, &status, &page)
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			if filter(o) {
				pending = append(pending, o)
			}
		}
		if len(orders) < pageSize {
			return pending, nil
		}
	}
}

func logFailure(o domain.Order, err error) {
	entry := log.WithError(err).WithField("order", o.ID)
	switch {
	case errors.Is(err, ports.ErrRateLimited),
		errors.Is(err, chaintx.ErrStaleNote),
		errors.Is(err, chaintx.ErrReceiptTimeout):
		entry.Warn("settlement still pending")
	default:
		entry.Error("failed to reconcile settlement")
	}
}
