package main

import (
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/ledger"
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
)

type noteView struct {
	Commitment    string `json:"commitment"`
	ChainID       uint64 `json:"chainId"`
	Wallet        string `json:"wallet"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	Type          string `json:"type"`
	TxHashCreated string `json:"txHashCreated,omitempty"`
	CreatedAt     int64  `json:"createdAt"`
	UpdatedAt     int64  `json:"updatedAt"`
}

func newNoteView(n domain.Note) noteView {
	noteType := "BALANCE"
	if n.Type == domain.NoteTypeOrder {
		noteType = "ORDER"
	}
	return noteView{
		Commitment:    n.Commitment,
		ChainID:       n.ChainID,
		Wallet:        n.Wallet,
		Asset:         n.Asset,
		Amount:        n.AmountString(),
		Status:        n.Status.String(),
		Type:          noteType,
		TxHashCreated: n.TxHashCreated,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
}

type balanceView struct {
	ChainID uint64 `json:"chainId"`
	Asset   string `json:"asset"`
	Active  string `json:"active"`
	Locked  string `json:"locked"`
}

func newBalanceViews(chainID uint64, balances []ledger.Balance) []balanceView {
	views := make([]balanceView, 0, len(balances))
	for _, b := range balances {
		views = append(views, balanceView{
			ChainID: chainID,
			Asset:   b.Asset,
			Active:  b.Active.Dec(),
			Locked:  b.Locked.Dec(),
		})
	}
	return views
}

type orderView struct {
	ID                     string `json:"id"`
	ChainID                uint64 `json:"chainId"`
	AssetPairID            string `json:"assetPairId"`
	Wallet                 string `json:"wallet"`
	Direction              string `json:"direction"`
	Price                  string `json:"price"`
	AssetOut               string `json:"assetOut"`
	AssetIn                string `json:"assetIn"`
	AmountOut              string `json:"amountOut"`
	AmountIn               string `json:"amountIn"`
	NoteCommitment         string `json:"noteCommitment"`
	IncomingNoteCommitment string `json:"incomingNoteCommitment,omitempty"`
	TxHashCreated          string `json:"txHashCreated,omitempty"`
	TxHashSettled          string `json:"txHashSettled,omitempty"`
	Status                 string `json:"status"`
	CreatedAt              int64  `json:"createdAt"`
	UpdatedAt              int64  `json:"updatedAt"`
}

func newOrderView(o domain.Order) orderView {
	return orderView{
		ID:                     o.ID,
		ChainID:                o.ChainID,
		AssetPairID:            o.AssetPairID,
		Wallet:                 o.Wallet,
		Direction:              o.Direction.String(),
		Price:                  o.Price.String(),
		AssetOut:               o.AssetOut,
		AssetIn:                o.AssetIn,
		AmountOut:              o.AmountOut.Dec(),
		AmountIn:               o.AmountIn.Dec(),
		NoteCommitment:         o.NoteCommitment,
		IncomingNoteCommitment: o.IncomingNoteCommitment,
		TxHashCreated:          o.TxHashCreated,
		TxHashSettled:          o.TxHashSettled,
		Status:                 o.Status.String(),
		CreatedAt:              o.CreatedAt,
		UpdatedAt:              o.UpdatedAt,
	}
}

type eventView struct {
	ID        uint64 `json:"id"`
	OrderID   string `json:"orderId"`
	Wallet    string `json:"wallet"`
	ChainID   uint64 `json:"chainId"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
}

func newEventViews(events []domain.OrderEvent) []eventView {
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{
			ID:        e.ID,
			OrderID:   e.OrderID,
			Wallet:    e.Wallet,
			ChainID:   e.ChainID,
			Status:    e.Status.String(),
			CreatedAt: e.CreatedAt,
		})
	}
	return views
}
