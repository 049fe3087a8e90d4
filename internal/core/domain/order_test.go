package domain_test

import (
	"testing"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	order := domain.NewOrder("", domain.OrderTypeLimit)
	require.NotEmpty(t, order.ID)
	require.Equal(t, domain.OrderStatusOpen, order.Status)

	order = domain.NewOrder("id", domain.OrderTypeStopLossLimit)
	require.Equal(t, "id", order.ID)
	require.Equal(t, domain.OrderStatusNotTriggered, order.Status)
}

func TestOrderTransitions(t *testing.T) {
	type transition func(o *domain.Order) (bool, error)
	match := func(o *domain.Order) (bool, error) { return o.Match() }
	confirm := func(o *domain.Order) (bool, error) { return o.Confirm() }
	settle := func(o *domain.Order) (bool, error) { return o.Settle("0xtx") }
	cancel := func(o *domain.Order) (bool, error) { return o.Cancel() }
	trigger := func(o *domain.Order) (bool, error) { return o.Trigger() }

	tests := []struct {
		name    string
		from    domain.OrderStatus
		apply   transition
		to      domain.OrderStatus
		changed bool
	}{
		{"trigger_not_triggered", domain.OrderStatusNotTriggered, trigger, domain.OrderStatusOpen, true},
		{"trigger_triggered", domain.OrderStatusTriggered, trigger, domain.OrderStatusOpen, true},
		{"trigger_open", domain.OrderStatusOpen, trigger, domain.OrderStatusOpen, false},
		{"match_open", domain.OrderStatusOpen, match, domain.OrderStatusMatched, true},
		{"match_matched", domain.OrderStatusMatched, match, domain.OrderStatusMatched, false},
		{"confirm_matched", domain.OrderStatusMatched, confirm, domain.OrderStatusConfirmed, true},
		{"settle_matched", domain.OrderStatusMatched, settle, domain.OrderStatusSettled, true},
		{"settle_confirmed", domain.OrderStatusConfirmed, settle, domain.OrderStatusSettled, true},
		{"settle_settled", domain.OrderStatusSettled, settle, domain.OrderStatusSettled, false},
		{"cancel_open", domain.OrderStatusOpen, cancel, domain.OrderStatusCancelled, true},
		{"cancel_not_triggered", domain.OrderStatusNotTriggered, cancel, domain.OrderStatusCancelled, true},
		{"cancel_cancelled", domain.OrderStatusCancelled, cancel, domain.OrderStatusCancelled, false},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			order := newOrder(tt.from)
			changed, err := tt.apply(order)
			require.NoError(t, err)
			require.Equal(t, tt.changed, changed)
			require.Equal(t, tt.to, order.Status)
		})
	}
}

func TestFailingOrderTransitions(t *testing.T) {
	tests := []struct {
		name        string
		from        domain.OrderStatus
		apply       func(o *domain.Order) (bool, error)
		expectedErr error
	}{
		{
			name:        "match_settled",
			from:        domain.OrderStatusSettled,
			apply:       func(o *domain.Order) (bool, error) { return o.Match() },
			expectedErr: domain.ErrInvalidOrderTransition,
		},
		{
			name:        "match_cancelled",
			from:        domain.OrderStatusCancelled,
			apply:       func(o *domain.Order) (bool, error) { return o.Match() },
			expectedErr: domain.ErrInvalidOrderTransition,
		},
		{
			name:        "settle_open",
			from:        domain.OrderStatusOpen,
			apply:       func(o *domain.Order) (bool, error) { return o.Settle("0xtx") },
			expectedErr: domain.ErrInvalidOrderTransition,
		},
		{
			name:        "settle_cancelled",
			from:        domain.OrderStatusCancelled,
			apply:       func(o *domain.Order) (bool, error) { return o.Settle("0xtx") },
			expectedErr: domain.ErrInvalidOrderTransition,
		},
		{
			name:        "confirm_open",
			from:        domain.OrderStatusOpen,
			apply:       func(o *domain.Order) (bool, error) { return o.Confirm() },
			expectedErr: domain.ErrInvalidOrderTransition,
		},
		{
			name:        "cancel_matched",
			from:        domain.OrderStatusMatched,
			apply:       func(o *domain.Order) (bool, error) { return o.Cancel() },
			expectedErr: domain.ErrOrderNotCancellable,
		},
		{
			name:        "cancel_settled",
			from:        domain.OrderStatusSettled,
			apply:       func(o *domain.Order) (bool, error) { return o.Cancel() },
			expectedErr: domain.ErrOrderNotCancellable,
		},
		{
			name:        "trigger_matched",
			from:        domain.OrderStatusMatched,
			apply:       func(o *domain.Order) (bool, error) { return o.Trigger() },
			expectedErr: domain.ErrInvalidOrderTransition,
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			order := newOrder(tt.from)
			changed, err := tt.apply(order)
			require.ErrorIs(t, err, tt.expectedErr)
			require.False(t, changed)
			require.Equal(t, tt.from, order.Status)
		})
	}
}

func TestOrderSettleSetsTxHash(t *testing.T) {
	order := newOrder(domain.OrderStatusConfirmed)
	_, err := order.Settle("0xsettle")
	require.NoError(t, err)
	require.Equal(t, "0xsettle", order.TxHashSettled)
	require.True(t, order.Status.IsFinal())
}

func TestAssetsForDirection(t *testing.T) {
	pair := domain.AssetPair{
		Base:  domain.Asset{Address: "0xbase"},
		Quote: domain.Asset{Address: "0xquote"},
	}

	out, in := pair.AssetsForDirection(domain.OrderDirectionBuy)
	require.Equal(t, "0xquote", out)
	require.Equal(t, "0xbase", in)

	out, in = pair.AssetsForDirection(domain.OrderDirectionSell)
	require.Equal(t, "0xbase", out)
	require.Equal(t, "0xquote", in)
}

func newOrder(status domain.OrderStatus) *domain.Order {
	order := domain.NewOrder("", domain.OrderTypeLimit)
	order.Status = status
	return order
}
