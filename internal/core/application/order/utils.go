package order

import (
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
)

const defaultEventsLimit = 100

func newOrderFromSpec(spec OrderSpec, pair domain.AssetPair) *domain.Order {
	order := domain.NewOrder(spec.ID, spec.Type)
	order.ChainID = spec.ChainID
	order.AssetPairID = pair.ID
	order.Wallet = domain.NormalizeAddress(spec.Wallet)
	order.PublicKey = spec.PublicKey
	order.Direction = spec.Direction
	order.TimeInForce = spec.TimeInForce
	order.StpMode = spec.StpMode
	order.Price = spec.Price
	order.TriggerPrice = spec.TriggerPrice
	order.AssetOut, order.AssetIn = pair.AssetsForDirection(spec.Direction)
	order.AmountOut.Set(&spec.AmountOut)
	order.AmountIn.Set(&spec.AmountIn)
	order.FeeRatio = spec.FeeRatio
	return order
}

// AccountOf returns the account owning the collateral of the order.
func AccountOf(order domain.Order) ports.Account {
	return ports.Account{
		ChainID:   order.ChainID,
		Wallet:    order.Wallet,
		PublicKey: order.PublicKey,
	}
}
