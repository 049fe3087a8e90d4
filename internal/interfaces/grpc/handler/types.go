package grpchandler

import (
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/ledger"
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
)

// Amounts travel as base 10 strings and prices as decimal strings.

type Account struct {
	ChainID   uint64 `json:"chainId"`
	Wallet    string `json:"wallet"`
	PublicKey string `json:"publicKey,omitempty"`
}

type CreateOrderRequest struct {
	ID           string `json:"id,omitempty"`
	ChainID      uint64 `json:"chainId"`
	AssetPairID  string `json:"assetPairId"`
	Wallet       string `json:"wallet"`
	PublicKey    string `json:"publicKey"`
	Direction    string `json:"direction"`
	Type         int    `json:"type"`
	TimeInForce  int    `json:"timeInForce"`
	StpMode      int    `json:"stpMode"`
	Price        string `json:"price,omitempty"`
	TriggerPrice string `json:"triggerPrice,omitempty"`
	AmountOut    string `json:"amountOut"`
	AmountIn     string `json:"amountIn"`
	FeeRatio     uint64 `json:"feeRatio"`
}

type OrderRequest struct {
	OrderID string `json:"orderId"`
}

type UpdateOrderPriceRequest struct {
	OrderID         string `json:"orderId"`
	Price           string `json:"price"`
	AmountIn        string `json:"amountIn"`
	PartialAmountIn string `json:"partialAmountIn,omitempty"`
}

type ListOrdersRequest struct {
	// Status is an order status label, all orders are listed if empty.
	Status   string `json:"status,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"pageSize,omitempty"`
}

type IncrementalOrderEventsRequest struct {
	LastID uint64 `json:"lastId"`
	Limit  int    `json:"limit,omitempty"`
}

type DepositRequest struct {
	Account Account `json:"account"`
	Asset   string  `json:"asset"`
	Amount  string  `json:"amount"`
}

type SelectNoteRequest struct {
	Account Account `json:"account"`
	Asset   string  `json:"asset"`
	Amount  string  `json:"amount"`
}

type BalancesRequest struct {
	Wallet  string `json:"wallet"`
	ChainID uint64 `json:"chainId"`
}

type EmptyReply struct{}

type OrderReply struct {
	Order Order `json:"order"`
}

type ListOrdersReply struct {
	Orders []Order `json:"orders"`
}

type OrderEventsReply struct {
	Events []OrderEvent `json:"events"`
}

type NoteReply struct {
	Note Note `json:"note"`
}

type BalancesReply struct {
	Balances []Balance `json:"balances"`
}

type Order struct {
	ID                     string `json:"id"`
	ChainID                uint64 `json:"chainId"`
	AssetPairID            string `json:"assetPairId"`
	Wallet                 string `json:"wallet"`
	Direction              string `json:"direction"`
	Type                   int    `json:"type"`
	TimeInForce            int    `json:"timeInForce"`
	Price                  string `json:"price"`
	TriggerPrice           string `json:"triggerPrice,omitempty"`
	AssetOut               string `json:"assetOut"`
	AssetIn                string `json:"assetIn"`
	AmountOut              string `json:"amountOut"`
	AmountIn               string `json:"amountIn"`
	PartialAmountIn        string `json:"partialAmountIn,omitempty"`
	NoteCommitment         string `json:"noteCommitment"`
	IncomingNoteCommitment string `json:"incomingNoteCommitment,omitempty"`
	TxHashCreated          string `json:"txHashCreated,omitempty"`
	TxHashSettled          string `json:"txHashSettled,omitempty"`
	SettlementReported     bool   `json:"settlementReported,omitempty"`
	Status                 string `json:"status"`
	CreatedAt              int64  `json:"createdAt"`
	UpdatedAt              int64  `json:"updatedAt"`
}

type OrderEvent struct {
	ID        uint64 `json:"id"`
	OrderID   string `json:"orderId"`
	Wallet    string `json:"wallet"`
	ChainID   uint64 `json:"chainId"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
}

type Note struct {
	Commitment    string `json:"commitment"`
	ChainID       uint64 `json:"chainId"`
	Wallet        string `json:"wallet"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	TxHashCreated string `json:"txHashCreated,omitempty"`
}

type Balance struct {
	Asset  string `json:"asset"`
	Active string `json:"active"`
	Locked string `json:"locked"`
}

func newOrder(o domain.Order) Order {
	order := Order{
		ID:                     o.ID,
		ChainID:                o.ChainID,
		AssetPairID:            o.AssetPairID,
		Wallet:                 o.Wallet,
		Direction:              o.Direction.String(),
		Type:                   int(o.Type),
		TimeInForce:            int(o.TimeInForce),
		Price:                  o.Price.String(),
		AssetOut:               o.AssetOut,
		AssetIn:                o.AssetIn,
		AmountOut:              o.AmountOut.Dec(),
		AmountIn:               o.AmountIn.Dec(),
		NoteCommitment:         o.NoteCommitment,
		IncomingNoteCommitment: o.IncomingNoteCommitment,
		TxHashCreated:          o.TxHashCreated,
		TxHashSettled:          o.TxHashSettled,
		SettlementReported:     o.SettlementReported,
		Status:                 o.Status.String(),
		CreatedAt:              o.CreatedAt,
		UpdatedAt:              o.UpdatedAt,
	}
	if !o.TriggerPrice.IsZero() {
		order.TriggerPrice = o.TriggerPrice.String()
	}
	if !o.PartialAmountIn.IsZero() {
		order.PartialAmountIn = o.PartialAmountIn.Dec()
	}
	return order
}

func newOrders(orders []domain.Order) []Order {
	list := make([]Order, 0, len(orders))
	for _, o := range orders {
		list = append(list, newOrder(o))
	}
	return list
}

func newOrderEvents(events []domain.OrderEvent) []OrderEvent {
	list := make([]OrderEvent, 0, len(events))
	for _, e := range events {
		list = append(list, OrderEvent{
			ID:        e.ID,
			OrderID:   e.OrderID,
			Wallet:    e.Wallet,
			ChainID:   e.ChainID,
			Status:    e.Status.String(),
			CreatedAt: e.CreatedAt,
		})
	}
	return list
}

func newNote(n domain.Note) Note {
	return Note{
		Commitment:    n.Commitment,
		ChainID:       n.ChainID,
		Wallet:        n.Wallet,
		Asset:         n.Asset,
		Amount:        n.AmountString(),
		Status:        n.Status.String(),
		TxHashCreated: n.TxHashCreated,
	}
}

func newBalances(balances []ledger.Balance) []Balance {
	list := make([]Balance, 0, len(balances))
	for i := range balances {
		b := balances[i]
		list = append(list, Balance{
			Asset:  b.Asset,
			Active: b.Active.Dec(),
			Locked: b.Locked.Dec(),
		})
	}
	return list
}
