package inmemory

import (
	"context"
	"sort"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
)

type orderRepositoryImpl struct {
	store *orderInmemoryStore
}

// NewOrderRepositoryImpl returns a new inmemory OrderRepository
// implementation.
func NewOrderRepositoryImpl(store *orderInmemoryStore) domain.OrderRepository {
	return &orderRepositoryImpl{store}
}

func (r *orderRepositoryImpl) AddOrder(
	_ context.Context, order domain.Order,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if _, ok := r.store.orders[order.ID]; ok {
		return domain.ErrDuplicateOrder
	}
	r.store.orders[order.ID] = order
	return nil
}

func (r *orderRepositoryImpl) GetOrder(
	_ context.Context, id string,
) (*domain.Order, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	order, ok := r.store.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &order, nil
}

func (r *orderRepositoryImpl) UpdateOrder(
	_ context.Context, id string,
	updateFn func(o *domain.Order) (*domain.Order, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	order, ok := r.store.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}

	updatedOrder, err := updateFn(&order)
	if err != nil {
		return err
	}

	r.store.orders[id] = *updatedOrder
	return nil
}

func (r *orderRepositoryImpl) GetAllOrders(
	_ context.Context, page *domain.Page,
) ([]domain.Order, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	return r.findOrders(func(domain.Order) bool { return true }, page), nil
}

func (r *orderRepositoryImpl) GetOrdersByStatus(
	_ context.Context, status domain.OrderStatus, page *domain.Page,
) ([]domain.Order, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	return r.findOrders(func(o domain.Order) bool {
		return o.Status == status
	}, page), nil
}

func (r *orderRepositoryImpl) findOrders(
	filter func(domain.Order) bool, page *domain.Page,
) []domain.Order {
	orders := make([]domain.Order, 0)
	for _, o := range r.store.orders {
		if filter(o) {
			orders = append(orders, o)
		}
	}

	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt == orders[j].CreatedAt {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt > orders[j].CreatedAt
	})
	if page == nil {
		return orders
	}
	start, end := page.Bounds(len(orders))
	return orders[start:end]
}
