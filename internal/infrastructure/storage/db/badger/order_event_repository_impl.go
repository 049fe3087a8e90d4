package dbbadger

import (
	"context"
	"sort"
	"sync"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/dgraph-io/badger/v3"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

var orderEventSequenceKey = []byte("seq_OrderEvent")

type orderEventRepositoryImpl struct {
	store *badgerhold.Store
	seq   *badger.Sequence
	lock  *sync.Mutex
}

func newOrderEventRepositoryImpl(
	store *badgerhold.Store,
) (*orderEventRepositoryImpl, error) {
	seq, err := store.Badger().GetSequence(orderEventSequenceKey, 100)
	if err != nil {
		return nil, err
	}
	return &orderEventRepositoryImpl{store, seq, &sync.Mutex{}}, nil
}

func (r *orderEventRepositoryImpl) AddEvent(
	_ context.Context, event domain.OrderEvent,
) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	query := badgerhold.Where("OrderID").Eq(event.OrderID).
		And("Status").Eq(event.Status)
	count, err := r.store.Count(&domain.OrderEvent{}, query)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	next, err := r.seq.Next()
	if err != nil {
		return false, err
	}
	// Sequences start from 0, ids from 1.
	event.ID = next + 1

	if err := r.store.Insert(event.ID, &event); err != nil {
		return false, err
	}
	return true, nil
}

func (r *orderEventRepositoryImpl) GetEventsForOrder(
	_ context.Context, orderID string,
) ([]domain.OrderEvent, error) {
	var events []domain.OrderEvent
	query := badgerhold.Where("OrderID").Eq(orderID)
	if err := r.store.Find(&events, query); err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ID > events[j].ID
	})
	return events, nil
}

func (r *orderEventRepositoryImpl) GetEventsAfter(
	_ context.Context, lastID uint64, limit int,
) ([]domain.OrderEvent, error) {
	var events []domain.OrderEvent
	query := badgerhold.Where("ID").Gt(lastID).SortBy("ID")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := r.store.Find(&events, query); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *orderEventRepositoryImpl) close() {
	if err := r.seq.Release(); err != nil {
		log.WithError(err).Warn("error while releasing order event sequence")
	}
}
