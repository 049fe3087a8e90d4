package inmemory

import (
	"context"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
)

type orderEventRepositoryImpl struct {
	store *orderEventInmemoryStore
}

// NewOrderEventRepositoryImpl returns a new inmemory OrderEventRepository
// implementation.
func NewOrderEventRepositoryImpl(
	store *orderEventInmemoryStore,
) domain.OrderEventRepository {
	return &orderEventRepositoryImpl{store}
}

func (r *orderEventRepositoryImpl) AddEvent(
	_ context.Context, event domain.OrderEvent,
) (bool, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	key := fmt.Sprintf("%s:%d", event.OrderID, event.Status)
	if _, ok := r.store.eventsByID[key]; ok {
		return false, nil
	}

	event.ID = uint64(len(r.store.events)) + 1
	r.store.events = append(r.store.events, event)
	r.store.eventsByID[key] = struct{}{}
	return true, nil
}

func (r *orderEventRepositoryImpl) GetEventsForOrder(
	_ context.Context, orderID string,
) ([]domain.OrderEvent, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	events := make([]domain.OrderEvent, 0)
	for i := len(r.store.events) - 1; i >= 0; i-- {
		if e := r.store.events[i]; e.OrderID == orderID {
			events = append(events, e)
		}
	}
	return events, nil
}

func (r *orderEventRepositoryImpl) GetEventsAfter(
	_ context.Context, lastID uint64, limit int,
) ([]domain.OrderEvent, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	events := make([]domain.OrderEvent, 0)
	// Ids are the 1-based position in the log.
	for i := int(lastID); i < len(r.store.events); i++ {
		if limit > 0 && len(events) >= limit {
			break
		}
		events = append(events, r.store.events[i])
	}
	return events, nil
}
