// Package notification decodes the events pushed by the booknode and
// processes them one at a time, in arrival order.
package notification

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	EventOrderMatched      EventType = 1
	EventOrderConfirmed    EventType = 2
	EventOrderSettled      EventType = 3
	EventAssetPairCreated  EventType = 4
	EventOrderCancelled    EventType = 5
	EventOrderTriggered    EventType = 6
	EventMakerOrderMatched EventType = 7
)

var (
	// ErrMalformedNotification is returned for messages that are not valid
	// JSON or miss the fields required by their event type.
	ErrMalformedNotification = errors.New("malformed notification")
	// ErrUnknownEventType ...
	ErrUnknownEventType = errors.New("unknown event type")
)

var eventTypeLabels = map[EventType]string{
	EventOrderMatched:      "order_matched",
	EventOrderConfirmed:    "order_confirmed",
	EventOrderSettled:      "order_settled",
	EventAssetPairCreated:  "asset_pair_created",
	EventOrderCancelled:    "order_cancelled",
	EventOrderTriggered:    "order_triggered",
	EventMakerOrderMatched: "maker_order_matched",
}

type EventType int

func (t EventType) String() string {
	if label, ok := eventTypeLabels[t]; ok {
		return label
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// Notification is one of the event variants defined in this package.
type Notification interface {
	EventType() EventType
	isNotification()
}

// OrderMatched tells the taker its order was matched and it must confirm
// with its swap message.
type OrderMatched struct {
	OrderID string
}

// OrderConfirmed tells the maker the taker swap message is available.
type OrderConfirmed struct {
	OrderID string
}

// OrderSettled tells the taker the maker executed the swap.
type OrderSettled struct {
	OrderID string
	TxHash  string
}

type AssetPairCreated struct {
	AssetPairID string
	ChainID     uint64
}

// OrderCancelled tells that the booknode removed the order from the book.
type OrderCancelled struct {
	OrderID string
}

type OrderTriggered struct {
	OrderID string
}

// MakerOrderMatched tells the maker its order was matched, before the taker
// confirmed.
type MakerOrderMatched struct {
	OrderID string
}

func (OrderMatched) EventType() EventType      { return EventOrderMatched }
func (OrderConfirmed) EventType() EventType    { return EventOrderConfirmed }
func (OrderSettled) EventType() EventType      { return EventOrderSettled }
func (AssetPairCreated) EventType() EventType  { return EventAssetPairCreated }
func (OrderCancelled) EventType() EventType    { return EventOrderCancelled }
func (OrderTriggered) EventType() EventType    { return EventOrderTriggered }
func (MakerOrderMatched) EventType() EventType { return EventMakerOrderMatched }

func (OrderMatched) isNotification()      {}
func (OrderConfirmed) isNotification()    {}
func (OrderSettled) isNotification()      {}
func (AssetPairCreated) isNotification()  {}
func (OrderCancelled) isNotification()    {}
func (OrderTriggered) isNotification()    {}
func (MakerOrderMatched) isNotification() {}

type rawNotification struct {
	EventType   EventType `json:"eventType"`
	OrderID     string    `json:"orderId"`
	AssetPairID string    `json:"assetPairId"`
	ChainID     uint64    `json:"chainId"`
	TxHash      string    `json:"txHash"`
}

// Decode parses a booknode message into its notification variant.
func Decode(raw []byte) (Notification, error) {
	var msg rawNotification
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedNotification, err)
	}

	if msg.EventType == EventAssetPairCreated {
		if len(msg.AssetPairID) <= 0 {
			return nil, fmt.Errorf("%w: missing asset pair id", ErrMalformedNotification)
		}
		return AssetPairCreated{msg.AssetPairID, msg.ChainID}, nil
	}

	if _, ok := eventTypeLabels[msg.EventType]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEventType, msg.EventType)
	}
	if len(msg.OrderID) <= 0 {
		return nil, fmt.Errorf(
			"%w: missing order id for %s", ErrMalformedNotification, msg.EventType,
		)
	}

	switch msg.EventType {
	case EventOrderMatched:
		return OrderMatched{msg.OrderID}, nil
	case EventOrderConfirmed:
		return OrderConfirmed{msg.OrderID}, nil
	case EventOrderSettled:
		return OrderSettled{msg.OrderID, msg.TxHash}, nil
	case EventOrderCancelled:
		return OrderCancelled{msg.OrderID}, nil
	case EventOrderTriggered:
		return OrderTriggered{msg.OrderID}, nil
	default:
		return MakerOrderMatched{msg.OrderID}, nil
	}
}
