package order_test

import (
	"context"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

type mockBooknode struct {
	mock.Mock
}

func (m *mockBooknode) CreateOrder(ctx context.Context, order domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockBooknode) CancelOrder(ctx context.Context, order domain.Order) error {
	return m.Called(ctx, order.ID).Error(0)
}

func (m *mockBooknode) UpdateOrderPrice(ctx context.Context, order domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockBooknode) ConfirmOrder(
	ctx context.Context, order domain.Order, swapMessage string,
) error {
	return m.Called(ctx, order.ID, swapMessage).Error(0)
}

func (m *mockBooknode) SettleOrder(
	ctx context.Context, order domain.Order, txHash string,
) error {
	return m.Called(ctx, order.ID, txHash).Error(0)
}

func (m *mockBooknode) GetMatchedOrderDetails(
	ctx context.Context, order domain.Order,
) (*ports.MatchedOrderDetails, error) {
	args := m.Called(ctx, order.ID)
	var res *ports.MatchedOrderDetails
	if a := args.Get(0); a != nil {
		res = a.(*ports.MatchedOrderDetails)
	}
	return res, args.Error(1)
}

func (m *mockBooknode) GetAssetPairs(ctx context.Context) ([]domain.AssetPair, error) {
	args := m.Called(ctx)
	var res []domain.AssetPair
	if a := args.Get(0); a != nil {
		res = a.([]domain.AssetPair)
	}
	return res, args.Error(1)
}

func (m *mockBooknode) GetAssetPair(
	ctx context.Context, id string,
) (*domain.AssetPair, error) {
	args := m.Called(ctx, id)
	var res *domain.AssetPair
	if a := args.Get(0); a != nil {
		res = a.(*domain.AssetPair)
	}
	return res, args.Error(1)
}
