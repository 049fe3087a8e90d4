package booknode

import (
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
)

const successCode = 200

type response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type createOrderRequest struct {
	ChainID           uint64  `json:"chainId"`
	Wallet            string  `json:"wallet"`
	OrderID           string  `json:"orderId"`
	AssetPairID       string  `json:"assetPairId"`
	OrderDirection    int     `json:"orderDirection"`
	OrderType         int     `json:"orderType"`
	TimeInForce       int     `json:"timeInForce"`
	StpMode           int     `json:"stpMode"`
	OrderTriggerPrice float64 `json:"orderTriggerPrice"`
	Price             float64 `json:"price"`
	AmountOut         string  `json:"amountOut"`
	AmountIn          string  `json:"amountIn"`
	PartialAmountIn   string  `json:"partialAmountIn"`
	PublicKey         string  `json:"publicKey"`
	Nullifier         string  `json:"nullifier"`
	TxHashCreated     string  `json:"txHashCreated"`
}

type orderRequest struct {
	ChainID       uint64 `json:"chainId"`
	Wallet        string `json:"wallet"`
	OrderID       string `json:"orderId"`
	Nullifier     string `json:"nullifier,omitempty"`
	TxHashSettled string `json:"txHashSettled,omitempty"`
	SwapMessage   string `json:"swapMessage,omitempty"`
}

type updatePriceRequest struct {
	ChainID         uint64  `json:"chainId"`
	Wallet          string  `json:"wallet"`
	OrderID         string  `json:"orderId"`
	Price           float64 `json:"price"`
	AmountIn        string  `json:"amountIn"`
	PartialAmountIn string  `json:"partialAmountIn"`
}

type matchedOrder struct {
	OrderID            string  `json:"orderId"`
	ChainID            uint64  `json:"chainId"`
	AssetPairID        string  `json:"assetPairId"`
	OrderDirection     int     `json:"orderDirection"`
	IsMaker            bool    `json:"isMaker"`
	MatchedPrice       float64 `json:"matchedPrice"`
	MakerAmount        string  `json:"makerAmount"`
	MakerMatchedAmount string  `json:"makerMatchedAmount"`
	TakerMatchedAmount string  `json:"takerMatchedAmount"`
	MakerPublicKey     string  `json:"makerPublicKey"`
	TakerSwapMessage   string  `json:"takerSwapMessage"`
}

type matchedOrderResponse struct {
	response
	Data *matchedOrder `json:"data"`
}

type assetPair struct {
	ID           string `json:"id"`
	ChainID      uint64 `json:"chainId"`
	BaseAddress  string `json:"baseAddress"`
	BaseSymbol   string `json:"baseSymbol"`
	BaseDecimal  int    `json:"baseDecimal"`
	QuoteAddress string `json:"quoteAddress"`
	QuoteSymbol  string `json:"quoteSymbol"`
	QuoteDecimal int    `json:"quoteDecimal"`
}

type assetPairsResponse struct {
	response
	Data []assetPair `json:"data"`
}

func newCreateOrderRequest(o domain.Order) createOrderRequest {
	req := createOrderRequest{
		ChainID:         o.ChainID,
		Wallet:          o.Wallet,
		OrderID:         o.ID,
		AssetPairID:     o.AssetPairID,
		OrderDirection:  int(o.Direction),
		OrderType:       int(o.Type),
		TimeInForce:     int(o.TimeInForce),
		StpMode:         int(o.StpMode),
		Price:           o.Price.InexactFloat64(),
		AmountOut:       o.AmountOut.Dec(),
		AmountIn:        o.AmountIn.Dec(),
		PartialAmountIn: o.PartialAmountIn.Dec(),
		PublicKey:       o.PublicKey,
		Nullifier:       o.Nullifier,
		TxHashCreated:   o.TxHashCreated,
	}
	if o.Type.IsConditional() {
		req.OrderTriggerPrice = o.TriggerPrice.InexactFloat64()
	}
	return req
}

func newOrderRequest(o domain.Order) orderRequest {
	return orderRequest{
		ChainID: o.ChainID,
		Wallet:  o.Wallet,
		OrderID: o.ID,
	}
}

func (m matchedOrder) toPortable() *ports.MatchedOrderDetails {
	return &ports.MatchedOrderDetails{
		OrderID:            m.OrderID,
		ChainID:            m.ChainID,
		AssetPairID:        m.AssetPairID,
		Direction:          domain.OrderDirection(m.OrderDirection),
		IsMaker:            m.IsMaker,
		MakerAmount:        m.MakerAmount,
		MakerMatchedAmount: m.MakerMatchedAmount,
		TakerMatchedAmount: m.TakerMatchedAmount,
		TakerSwapMessage:   m.TakerSwapMessage,
	}
}

func (p assetPair) toDomain() domain.AssetPair {
	return domain.AssetPair{
		ID:      p.ID,
		ChainID: p.ChainID,
		Base: domain.Asset{
			Address:  p.BaseAddress,
			Symbol:   p.BaseSymbol,
			Decimals: p.BaseDecimal,
		},
		Quote: domain.Asset{
			Address:  p.QuoteAddress,
			Symbol:   p.QuoteSymbol,
			Decimals: p.QuoteDecimal,
		},
	}
}
