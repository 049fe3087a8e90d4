package settlement_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
)

// fakeBooknode pairs orders and relays the taker swap message to the maker
// like the matching service does.
type fakeBooknode struct {
	lock      sync.Mutex
	orders    map[string]domain.Order
	makerOf   map[string]string
	takerOf   map[string]string
	confirmed map[string][]string
	settled   map[string][]string

	failConfirms int
	failSettles  int
}

func newFakeBooknode() *fakeBooknode {
	return &fakeBooknode{
		orders:    make(map[string]domain.Order),
		makerOf:   make(map[string]string),
		takerOf:   make(map[string]string),
		confirmed: make(map[string][]string),
		settled:   make(map[string][]string),
	}
}

func (b *fakeBooknode) match(makerID, takerID string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.makerOf[takerID] = makerID
	b.takerOf[makerID] = takerID
}

// failNext makes the next confirmations and settlement notices fail as if
// the booknode was unreachable.
func (b *fakeBooknode) failNext(confirms, settles int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.failConfirms = confirms
	b.failSettles = settles
}

func (b *fakeBooknode) confirmedMessages(orderID string) []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]string(nil), b.confirmed[orderID]...)
}

func (b *fakeBooknode) confirmCount(orderID string) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.confirmed[orderID])
}

func (b *fakeBooknode) settleCount(orderID string) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.settled[orderID])
}

func (b *fakeBooknode) settledTx(orderID string) string {
	b.lock.Lock()
	defer b.lock.Unlock()
	txs := b.settled[orderID]
	if len(txs) <= 0 {
		return ""
	}
	return txs[len(txs)-1]
}

func (b *fakeBooknode) CreateOrder(_ context.Context, order domain.Order) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.orders[order.ID] = order
	return nil
}

func (b *fakeBooknode) CancelOrder(_ context.Context, order domain.Order) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	delete(b.orders, order.ID)
	return nil
}

func (b *fakeBooknode) UpdateOrderPrice(_ context.Context, order domain.Order) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.orders[order.ID] = order
	return nil
}

func (b *fakeBooknode) ConfirmOrder(
	_ context.Context, order domain.Order, msg string,
) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.failConfirms > 0 {
		b.failConfirms--
		return fmt.Errorf("%w: booknode unavailable", ports.ErrExternalService)
	}
	b.confirmed[order.ID] = append(b.confirmed[order.ID], msg)
	return nil
}

func (b *fakeBooknode) SettleOrder(
	_ context.Context, order domain.Order, txHash string,
) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.failSettles > 0 {
		b.failSettles--
		return fmt.Errorf("%w: booknode unavailable", ports.ErrExternalService)
	}
	b.settled[order.ID] = append(b.settled[order.ID], txHash)
	return nil
}

func (b *fakeBooknode) GetMatchedOrderDetails(
	_ context.Context, matched domain.Order,
) (*ports.MatchedOrderDetails, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	orderID := matched.ID
	order, ok := b.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown order %s", ports.ErrExternalService, orderID)
	}
	details := &ports.MatchedOrderDetails{
		OrderID:     orderID,
		ChainID:     order.ChainID,
		AssetPairID: order.AssetPairID,
		Direction:   order.Direction,
	}

	if takerID, ok := b.takerOf[orderID]; ok {
		taker := b.orders[takerID]
		details.IsMaker = true
		details.MakerAmount = order.AmountOut.Dec()
		details.MakerMatchedAmount = order.AmountOut.Dec()
		details.TakerMatchedAmount = taker.AmountOut.Dec()
		if msgs := b.confirmed[takerID]; len(msgs) > 0 {
			details.TakerSwapMessage = msgs[len(msgs)-1]
		}
		return details, nil
	}
	if makerID, ok := b.makerOf[orderID]; ok {
		maker := b.orders[makerID]
		details.MakerAmount = maker.AmountOut.Dec()
		details.MakerMatchedAmount = maker.AmountOut.Dec()
		details.TakerMatchedAmount = order.AmountOut.Dec()
		return details, nil
	}
	return nil, fmt.Errorf("%w: order %s is not matched", ports.ErrExternalService, orderID)
}

func (b *fakeBooknode) GetAssetPairs(context.Context) ([]domain.AssetPair, error) {
	return nil, nil
}

func (b *fakeBooknode) GetAssetPair(_ context.Context, id string) (*domain.AssetPair, error) {
	return nil, fmt.Errorf("%w: unknown pair %s", ports.ErrExternalService, id)
}
