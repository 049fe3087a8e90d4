package dbbadger

import (
	"context"
	"sort"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type orderRepositoryImpl struct {
	store *badgerhold.Store
}

func newOrderRepositoryImpl(store *badgerhold.Store) domain.OrderRepository {
	return &orderRepositoryImpl{store}
}

func (r *orderRepositoryImpl) AddOrder(
	_ context.Context, order domain.Order,
) error {
	if err := r.store.Insert(order.ID, &order); err != nil {
		if err == badgerhold.ErrKeyExists {
			return domain.ErrDuplicateOrder
		}
		return err
	}
	return nil
}

func (r *orderRepositoryImpl) GetOrder(
	_ context.Context, id string,
) (*domain.Order, error) {
	return r.getOrder(id)
}

func (r *orderRepositoryImpl) UpdateOrder(
	_ context.Context, id string,
	updateFn func(o *domain.Order) (*domain.Order, error),
) error {
	order, err := r.getOrder(id)
	if err != nil {
		return err
	}

	updatedOrder, err := updateFn(order)
	if err != nil {
		return err
	}

	return r.store.Update(id, updatedOrder)
}

func (r *orderRepositoryImpl) GetAllOrders(
	_ context.Context, page *domain.Page,
) ([]domain.Order, error) {
	return r.findOrders(nil, page)
}

func (r *orderRepositoryImpl) GetOrdersByStatus(
	_ context.Context, status domain.OrderStatus, page *domain.Page,
) ([]domain.Order, error) {
	return r.findOrders(badgerhold.Where("Status").Eq(status), page)
}

func (r *orderRepositoryImpl) getOrder(id string) (*domain.Order, error) {
	var order domain.Order
	if err := r.store.Get(id, &order); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepositoryImpl) findOrders(
	query *badgerhold.Query, page *domain.Page,
) ([]domain.Order, error) {
	var orders []domain.Order
	if err := r.store.Find(&orders, query); err != nil {
		return nil, err
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt > orders[j].CreatedAt
	})
	if page == nil {
		return orders, nil
	}
	start, end := page.Bounds(len(orders))
	return orders[start:end], nil
}
