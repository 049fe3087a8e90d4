package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewOrder returns an order with a fresh id. Its initial status depends on
// the type: conditional orders wait for their trigger.
func NewOrder(id string, orderType OrderType) *Order {
	if len(id) <= 0 {
		id = uuid.New().String()
	}
	status := OrderStatusOpen
	if orderType.IsConditional() {
		status = OrderStatusNotTriggered
	}
	now := time.Now().Unix()
	return &Order{
		ID:        id,
		Type:      orderType,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Trigger brings a conditional order into the book.
func (o *Order) Trigger() (bool, error) {
	if o.Status == OrderStatusOpen {
		return false, nil
	}
	if o.Status != OrderStatusNotTriggered && o.Status != OrderStatusTriggered {
		return false, o.invalidTransition(OrderStatusOpen)
	}
	o.setStatus(OrderStatusOpen)
	return true, nil
}

// Match records that the matching service paired the order with a
// counterparty.
func (o *Order) Match() (bool, error) {
	if o.Status == OrderStatusMatched {
		return false, nil
	}
	if o.Status != OrderStatusOpen {
		return false, o.invalidTransition(OrderStatusMatched)
	}
	o.setStatus(OrderStatusMatched)
	return true, nil
}

// Confirm records that the maker received the taker's swap message.
func (o *Order) Confirm() (bool, error) {
	if o.Status == OrderStatusConfirmed {
		return false, nil
	}
	if o.Status != OrderStatusMatched {
		return false, o.invalidTransition(OrderStatusConfirmed)
	}
	o.setStatus(OrderStatusConfirmed)
	return true, nil
}

// Settle marks the order as settled by the given transaction.
func (o *Order) Settle(txHash string) (bool, error) {
	if o.Status == OrderStatusSettled {
		return false, nil
	}
	if !o.IsMatched() {
		return false, o.invalidTransition(OrderStatusSettled)
	}
	o.TxHashSettled = txHash
	o.setStatus(OrderStatusSettled)
	return true, nil
}

// Cancel withdraws the order. Only orders not yet matched can be cancelled.
func (o *Order) Cancel() (bool, error) {
	if o.Status == OrderStatusCancelled {
		return false, nil
	}
	if !o.IsCancellable() {
		return false, fmt.Errorf(
			"%w: order %s is %s", ErrOrderNotCancellable, o.ID, o.Status,
		)
	}
	o.setStatus(OrderStatusCancelled)
	return true, nil
}

func (o *Order) IsMatched() bool {
	return o.Status == OrderStatusMatched || o.Status == OrderStatusConfirmed
}

// IsSettlementUnreported returns whether the order settled but the booknode
// has not been told yet.
func (o *Order) IsSettlementUnreported() bool {
	return o.Status == OrderStatusSettled && !o.SettlementReported
}

func (o *Order) IsCancellable() bool {
	switch o.Status {
	case OrderStatusOpen, OrderStatusNotTriggered, OrderStatusTriggered:
		return true
	default:
		return false
	}
}

// Event returns the log entry for the current status of the order.
func (o *Order) Event() OrderEvent {
	return NewOrderEvent(*o, o.Status)
}

func NewOrderEvent(o Order, status OrderStatus) OrderEvent {
	return OrderEvent{
		OrderID:   o.ID,
		Wallet:    o.Wallet,
		ChainID:   o.ChainID,
		Status:    status,
		CreatedAt: time.Now().Unix(),
	}
}

func (o *Order) setStatus(status OrderStatus) {
	o.Status = status
	o.UpdatedAt = time.Now().Unix()
}

func (o *Order) invalidTransition(to OrderStatus) error {
	return fmt.Errorf(
		"%w: order %s from %s to %s",
		ErrInvalidOrderTransition, o.ID, o.Status, to,
	)
}
