package pubsub

import "github.com/darkswap-network/darkswap-daemon/internal/core/domain"

func topicForStatus(status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusSettled:
		return EventOrderSettled
	case domain.OrderStatusCancelled:
		return EventOrderCancelled
	default:
		return EventOrderUpdated
	}
}

func getOrderPayload(order domain.Order) map[string]interface{} {
	return map[string]interface{}{
		"id":            order.ID,
		"chain_id":      order.ChainID,
		"asset_pair_id": order.AssetPairID,
		"wallet":        order.Wallet,
		"direction":     order.Direction.String(),
		"price":         order.Price.String(),
		"asset_out":     order.AssetOut,
		"asset_in":      order.AssetIn,
		"amount_out":    order.AmountOut.Dec(),
		"amount_in":     order.AmountIn.Dec(),
	}
}
