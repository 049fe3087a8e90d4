package domain

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Order status codes are shared with the matching service and must not be
// renumbered.
const (
	OrderStatusOpen OrderStatus = iota
	OrderStatusMatched
	OrderStatusConfirmed
	OrderStatusSettled
	OrderStatusCancelled
	OrderStatusNotTriggered
	OrderStatusTriggered
)

const (
	OrderDirectionBuy OrderDirection = iota
	OrderDirectionSell
)

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeStopLoss
	OrderTypeStopLossLimit
	OrderTypeTakeProfit
	OrderTypeTakeProfitLimit
	OrderTypeLimitMaker
)

const (
	TimeInForceGTC    TimeInForce = 0
	TimeInForceGTD    TimeInForce = 1
	TimeInForceIOC    TimeInForce = 2
	TimeInForceFOK    TimeInForce = 4
	TimeInForceAONGTC TimeInForce = 8
	TimeInForceAONGTD TimeInForce = 9
)

const (
	StpModeNone StpMode = iota
	StpModeExpireMaker
	StpModeExpireTaker
	StpModeBoth
)

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusOpen:         "OPEN",
	OrderStatusMatched:      "MATCHED",
	OrderStatusConfirmed:    "CONFIRMED",
	OrderStatusSettled:      "SETTLED",
	OrderStatusCancelled:    "CANCELLED",
	OrderStatusNotTriggered: "NOT_TRIGGERED",
	OrderStatusTriggered:    "TRIGGERED",
}

type OrderStatus int

func (s OrderStatus) String() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// IsFinal returns whether no further transition is possible.
func (s OrderStatus) IsFinal() bool {
	return s == OrderStatusSettled || s == OrderStatusCancelled
}

// OrderStatusFromString parses a status label, case sensitive.
func OrderStatusFromString(label string) (OrderStatus, bool) {
	for status, l := range orderStatusLabels {
		if l == label {
			return status, true
		}
	}
	return 0, false
}

type OrderDirection int

func (d OrderDirection) String() string {
	if d == OrderDirectionSell {
		return "SELL"
	}
	return "BUY"
}

type OrderType int

// IsConditional returns whether orders of this type wait for a trigger
// price before entering the book.
func (t OrderType) IsConditional() bool {
	return t >= OrderTypeStopLoss && t <= OrderTypeTakeProfitLimit
}

type TimeInForce int

func (t TimeInForce) IsValid() bool {
	switch t {
	case TimeInForceGTC, TimeInForceGTD, TimeInForceIOC, TimeInForceFOK,
		TimeInForceAONGTC, TimeInForceAONGTD:
		return true
	default:
		return false
	}
}

type StpMode int

// Order is a trading intent backed by exactly one collateral note.
type Order struct {
	ID                     string
	ChainID                uint64
	AssetPairID            string
	Wallet                 string
	PublicKey              string
	Direction              OrderDirection
	Type                   OrderType
	TimeInForce            TimeInForce
	StpMode                StpMode
	Price                  decimal.Decimal
	TriggerPrice           decimal.Decimal
	AssetOut               string
	AssetIn                string
	AmountOut              uint256.Int
	AmountIn               uint256.Int
	PartialAmountIn        uint256.Int
	FeeRatio               uint64
	NoteCommitment         string
	Nullifier              string
	IncomingNoteCommitment string
	// SwapMessage is the taker swap message, kept until the booknode
	// acknowledges it so that a retry sends the very same message.
	SwapMessage          string
	SwapMessageDelivered bool
	// SettlementReported is set once the booknode knows about the
	// settlement. Takers learn it from the booknode, so their orders are
	// reported as soon as they settle.
	SettlementReported bool
	TxHashCreated      string
	TxHashSettled      string
	Status             OrderStatus
	CreatedAt          int64
	UpdatedAt          int64
}

// OrderEvent is an entry of the append-only log of order status changes.
// The pair (OrderID, Status) is unique.
type OrderEvent struct {
	ID        uint64
	OrderID   string
	Wallet    string
	ChainID   uint64
	Status    OrderStatus
	CreatedAt int64
}

// AssetPair is a tradable pair as defined by the matching service.
type AssetPair struct {
	ID      string
	ChainID uint64
	Base    Asset
	Quote   Asset
}

type Asset struct {
	Address  string
	Symbol   string
	Decimals int
}

// AssetsForDirection returns the asset spent and the asset received by an
// order with the given direction on this pair.
func (p AssetPair) AssetsForDirection(d OrderDirection) (out, in string) {
	if d == OrderDirectionBuy {
		return p.Quote.Address, p.Base.Address
	}
	return p.Base.Address, p.Quote.Address
}
