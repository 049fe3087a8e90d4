package order

import (
	"errors"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidOrder is returned when an order request is malformed.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrChainMismatch is returned when the asset pair of an order belongs to
	// another chain.
	ErrChainMismatch = errors.New("asset pair is not listed on the order chain")
	// ErrOrderNotUpdatable is returned when updating the price of an order
	// that already left the book.
	ErrOrderNotUpdatable = errors.New("order price can not be updated")
)

// OrderSpec is a request to open an order.
type OrderSpec struct {
	// ID is optional, a random one is assigned if empty.
	ID           string
	ChainID      uint64
	AssetPairID  string
	Wallet       string
	PublicKey    string
	Direction    domain.OrderDirection
	Type         domain.OrderType
	TimeInForce  domain.TimeInForce
	StpMode      domain.StpMode
	Price        decimal.Decimal
	TriggerPrice decimal.Decimal
	AmountOut    uint256.Int
	AmountIn     uint256.Int
	FeeRatio     uint64
}

func (s OrderSpec) validate() error {
	if len(s.Wallet) <= 0 {
		return fmt.Errorf("%w: missing wallet", ErrInvalidOrder)
	}
	if s.ChainID == 0 {
		return fmt.Errorf("%w: missing chain id", ErrInvalidOrder)
	}
	if len(s.AssetPairID) <= 0 {
		return fmt.Errorf("%w: missing asset pair", ErrInvalidOrder)
	}
	if s.Direction != domain.OrderDirectionBuy &&
		s.Direction != domain.OrderDirectionSell {
		return fmt.Errorf("%w: unknown direction %d", ErrInvalidOrder, s.Direction)
	}
	if s.Type < domain.OrderTypeMarket || s.Type > domain.OrderTypeLimitMaker {
		return fmt.Errorf("%w: unknown type %d", ErrInvalidOrder, s.Type)
	}
	if !s.TimeInForce.IsValid() {
		return fmt.Errorf("%w: unknown time in force %d", ErrInvalidOrder, s.TimeInForce)
	}
	if s.StpMode < domain.StpModeNone || s.StpMode > domain.StpModeBoth {
		return fmt.Errorf("%w: unknown stp mode %d", ErrInvalidOrder, s.StpMode)
	}
	if s.AmountOut.IsZero() || s.AmountIn.IsZero() {
		return fmt.Errorf("%w: amounts must be greater than zero", ErrInvalidOrder)
	}
	if s.Type != domain.OrderTypeMarket && !s.Price.IsPositive() {
		return fmt.Errorf("%w: price must be greater than zero", ErrInvalidOrder)
	}
	if s.Type.IsConditional() && !s.TriggerPrice.IsPositive() {
		return fmt.Errorf(
			"%w: trigger price must be greater than zero", ErrInvalidOrder,
		)
	}
	return nil
}

// PriceUpdate is a request to move an order in the book.
type PriceUpdate struct {
	Price           decimal.Decimal
	AmountIn        uint256.Int
	PartialAmountIn uint256.Int
}
