package ports

import (
	"context"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
)

// MatchedOrderDetails is what the matching service knows about the match of
// one of our orders.
type MatchedOrderDetails struct {
	OrderID            string
	ChainID            uint64
	AssetPairID        string
	Direction          domain.OrderDirection
	IsMaker            bool
	MakerAmount        string
	MakerMatchedAmount string
	TakerMatchedAmount string
	TakerSwapMessage   string
}

// Booknode is the REST surface of the matching service.
type Booknode interface {
	CreateOrder(ctx context.Context, order domain.Order) error
	CancelOrder(ctx context.Context, order domain.Order) error
	UpdateOrderPrice(ctx context.Context, order domain.Order) error
	ConfirmOrder(ctx context.Context, order domain.Order, swapMessage string) error
	SettleOrder(ctx context.Context, order domain.Order, txHash string) error
	GetMatchedOrderDetails(
		ctx context.Context, order domain.Order,
	) (*MatchedOrderDetails, error)
	GetAssetPairs(ctx context.Context) ([]domain.AssetPair, error)
	GetAssetPair(ctx context.Context, id string) (*domain.AssetPair, error)
}
