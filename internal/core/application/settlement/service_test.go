package settlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/assetpair"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/chaintx"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/ledger"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/order"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/pubsub"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/selection"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/settlement"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/walletmutex"
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	simchain "github.com/darkswap-network/darkswap-daemon/internal/infrastructure/chain/sim"
	"github.com/darkswap-network/darkswap-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	chainID    = uint64(31337)
	pairID     = "pair-1"
	baseAsset  = "0xbase"
	quoteAsset = "0xquote"
	makerID    = "maker-order"
	takerID    = "taker-order"
)

var (
	maker = ports.Account{ChainID: chainID, Wallet: "0xmaker", PublicKey: "pk-maker"}
	taker = ports.Account{ChainID: chainID, Wallet: "0xtaker", PublicKey: "pk-taker"}
)

type testEnv struct {
	chain       *simchain.Chain
	repoManager ports.RepoManager
	ledger      *ledger.Service
	booknode    *fakeBooknode
	orders      *order.Service
	svc         *settlement.Service
}

func TestSettlement(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Second)
	env.openMatchedOrders(t)

	require.NoError(t, env.svc.MarkMatched(ctx, makerID))
	env.requireOrderStatus(t, makerID, domain.OrderStatusMatched)

	require.NoError(t, env.svc.TakerConfirm(ctx, takerID))
	takerOrder := env.requireOrderStatus(t, takerID, domain.OrderStatusMatched)
	require.NotEmpty(t, takerOrder.IncomingNoteCommitment)
	incoming, err := env.ledger.GetByCommitment(ctx, takerOrder.IncomingNoteCommitment)
	require.NoError(t, err)
	require.Equal(t, domain.NoteStatusCreated, incoming.Status)
	require.Equal(t, "10", incoming.AmountString())

	// A duplicate confirmation does not produce another swap message.
	require.NoError(t, env.svc.TakerConfirm(ctx, takerID))
	require.Equal(t, 1, env.booknode.confirmCount(takerID))

	require.NoError(t, env.svc.MakerSwap(ctx, makerID))
	makerOrder := env.requireOrderStatus(t, makerID, domain.OrderStatusSettled)
	require.NotEmpty(t, makerOrder.TxHashSettled)
	require.Equal(t, makerOrder.TxHashSettled, env.booknode.settledTx(makerID))
	require.Equal(t, 1, env.chain.TxCount(ports.TxKindMakerSwap))

	makerCollateral, err := env.ledger.GetByCommitment(ctx, makerOrder.NoteCommitment)
	require.NoError(t, err)
	require.Equal(t, domain.NoteStatusSpent, makerCollateral.Status)
	require.Equal(t, []string{"200"}, env.activeAmounts(t, maker, quoteAsset))

	events, err := env.orders.GetOrderEvents(ctx, makerID)
	require.NoError(t, err)
	require.Equal(t, []domain.OrderStatus{
		domain.OrderStatusSettled,
		domain.OrderStatusConfirmed,
		domain.OrderStatusMatched,
		domain.OrderStatusOpen,
	}, statusesOf(events))

	require.NoError(t, env.svc.TakerPostSettlement(
		ctx, takerID, makerOrder.TxHashSettled,
	))
	takerOrder = env.requireOrderStatus(t, takerID, domain.OrderStatusSettled)
	require.Equal(t, makerOrder.TxHashSettled, takerOrder.TxHashSettled)
	require.Equal(t, []string{"10"}, env.activeAmounts(t, taker, baseAsset))
	require.Equal(t, []string{"50"}, env.activeAmounts(t, taker, quoteAsset))

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, env.svc.MakerSwap(ctx, makerID))
		require.NoError(t, env.svc.TakerPostSettlement(ctx, takerID, ""))
		require.NoError(t, env.svc.MarkMatched(ctx, makerID))
		require.Equal(t, 1, env.chain.TxCount(ports.TxKindMakerSwap))
		require.Equal(t, 1, env.booknode.settleCount(makerID))
	})
}

func TestMakerSwapRecovery(t *testing.T) {
	ctx := context.Background()

	t.Run("receipt_timeout", func(t *testing.T) {
		env := newTestEnv(t, 50*time.Millisecond)
		env.openMatchedOrders(t)
		require.NoError(t, env.svc.TakerConfirm(ctx, takerID))

		env.chain.SetStuckReceipts(true)
		require.NoError(t, env.svc.MakerSwap(ctx, makerID))
		env.chain.SetStuckReceipts(false)

		makerOrder := env.requireOrderStatus(t, makerID, domain.OrderStatusSettled)
		require.NotEmpty(t, makerOrder.TxHashSettled)
		require.Equal(t, 1, env.chain.TxCount(ports.TxKindMakerSwap))
		require.Equal(t, []string{"200"}, env.activeAmounts(t, maker, quoteAsset))

		require.NoError(t, env.svc.MakerSwap(ctx, makerID))
		require.Equal(t, 1, env.chain.TxCount(ports.TxKindMakerSwap))
	})

	t.Run("swap_landed_before_crash", func(t *testing.T) {
		env := newTestEnv(t, time.Second)
		env.openMatchedOrders(t)
		require.NoError(t, env.svc.TakerConfirm(ctx, takerID))

		// The swap went through but the process died before booking it.
		txHash := env.executeMakerSwap(t)

		require.NoError(t, env.svc.MakerSwap(ctx, makerID))
		makerOrder := env.requireOrderStatus(t, makerID, domain.OrderStatusSettled)
		require.Equal(t, txHash, makerOrder.TxHashSettled)
		require.Equal(t, txHash, env.booknode.settledTx(makerID))
		require.Equal(t, 1, env.chain.TxCount(ports.TxKindMakerSwap))

		collateral, err := env.ledger.GetByCommitment(ctx, makerOrder.NoteCommitment)
		require.NoError(t, err)
		require.Equal(t, domain.NoteStatusSpent, collateral.Status)
	})

	t.Run("no_swap_found", func(t *testing.T) {
		env := newTestEnv(t, time.Second)
		env.openMatchedOrders(t)
		require.NoError(t, env.svc.TakerConfirm(ctx, takerID))

		makerOrder := env.requireOrderStatus(t, makerID, domain.OrderStatusOpen)
		err := env.chain.SetNoteStatus(
			makerOrder.NoteCommitment, ports.NoteOnChainStatusSpent,
		)
		require.NoError(t, err)

		err = env.svc.MakerSwap(ctx, makerID)
		require.ErrorIs(t, err, chaintx.ErrStaleNote)
		env.requireOrderStatus(t, makerID, domain.OrderStatusConfirmed)
		require.Zero(t, env.chain.TxCount(ports.TxKindMakerSwap))
	})
}

func TestMakerSwapFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("counterparty_not_locked", func(t *testing.T) {
		env := newTestEnv(t, time.Second)
		env.openMatchedOrders(t)
		require.NoError(t, env.svc.TakerConfirm(ctx, takerID))

		takerOrder := env.requireOrderStatus(t, takerID, domain.OrderStatusMatched)
		err := env.chain.SetNoteStatus(
			takerOrder.NoteCommitment, ports.NoteOnChainStatusActive,
		)
		require.NoError(t, err)

		err = env.svc.MakerSwap(ctx, makerID)
		require.ErrorIs(t, err, settlement.ErrCounterpartyNotLocked)
		require.Zero(t, env.chain.TxCount(ports.TxKindMakerSwap))
	})

	t.Run("reverted", func(t *testing.T) {
		env := newTestEnv(t, time.Second)
		env.openMatchedOrders(t)
		require.NoError(t, env.svc.TakerConfirm(ctx, takerID))
		env.chain.FailNext(ports.TxKindMakerSwap, 1)

		err := env.svc.MakerSwap(ctx, makerID)
		require.ErrorIs(t, err, chaintx.ErrTransactionFailed)
		makerOrder := env.requireOrderStatus(t, makerID, domain.OrderStatusConfirmed)
		collateral, err := env.ledger.GetByCommitment(ctx, makerOrder.NoteCommitment)
		require.NoError(t, err)
		require.Equal(t, domain.NoteStatusLocked, collateral.Status)

		// The next attempt goes through.
		require.NoError(t, env.svc.MakerSwap(ctx, makerID))
		env.requireOrderStatus(t, makerID, domain.OrderStatusSettled)
	})

	t.Run("cancelled_order", func(t *testing.T) {
		env := newTestEnv(t, time.Second)
		env.openMatchedOrders(t)
		require.NoError(t, env.orders.CancelOrderByNotification(ctx, makerID))

		err := env.svc.MakerSwap(ctx, makerID)
		require.ErrorIs(t, err, domain.ErrInvalidOrderTransition)
	})
}

func TestBooknodeUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("settlement_notice", func(t *testing.T) {
		env := newTestEnv(t, time.Second)
		env.openMatchedOrders(t)
		require.NoError(t, env.svc.TakerConfirm(ctx, takerID))
		env.booknode.failNext(0, 1)

		err := env.svc.MakerSwap(ctx, makerID)
		require.ErrorIs(t, err, ports.ErrExternalService)
		makerOrder := env.requireOrderStatus(t, makerID, domain.OrderStatusSettled)
		require.True(t, makerOrder.IsSettlementUnreported())
		require.Zero(t, env.booknode.settleCount(makerID))

		require.NoError(t, env.svc.MakerSwap(ctx, makerID))
		makerOrder = env.requireOrderStatus(t, makerID, domain.OrderStatusSettled)
		require.False(t, makerOrder.IsSettlementUnreported())
		require.Equal(t, 1, env.booknode.settleCount(makerID))
		require.Equal(t, makerOrder.TxHashSettled, env.booknode.settledTx(makerID))
		require.Equal(t, 1, env.chain.TxCount(ports.TxKindMakerSwap))

		require.NoError(t, env.svc.MakerSwap(ctx, makerID))
		require.Equal(t, 1, env.booknode.settleCount(makerID))
	})

	t.Run("taker_settlement_is_not_reported", func(t *testing.T) {
		env := newTestEnv(t, time.Second)
		env.openMatchedOrders(t)
		require.NoError(t, env.svc.TakerConfirm(ctx, takerID))
		require.NoError(t, env.svc.MakerSwap(ctx, makerID))
		require.NoError(t, env.svc.TakerPostSettlement(ctx, takerID, ""))

		takerOrder := env.requireOrderStatus(t, takerID, domain.OrderStatusSettled)
		require.False(t, takerOrder.IsSettlementUnreported())
		require.Zero(t, env.booknode.settleCount(takerID))
	})

	t.Run("swap_message", func(t *testing.T) {
		env := newTestEnv(t, time.Second)
		env.openMatchedOrders(t)
		env.booknode.failNext(1, 0)

		err := env.svc.TakerConfirm(ctx, takerID)
		require.ErrorIs(t, err, ports.ErrExternalService)
		takerOrder := env.requireOrderStatus(t, takerID, domain.OrderStatusMatched)
		require.NotEmpty(t, takerOrder.IncomingNoteCommitment)
		require.NotEmpty(t, takerOrder.SwapMessage)
		require.False(t, takerOrder.SwapMessageDelivered)
		incoming, err := env.ledger.GetByCommitment(ctx, takerOrder.IncomingNoteCommitment)
		require.NoError(t, err)
		require.Equal(t, domain.NoteStatusCreated, incoming.Status)

		require.NoError(t, env.svc.TakerConfirm(ctx, takerID))
		require.Equal(t, []string{takerOrder.SwapMessage}, env.booknode.confirmedMessages(takerID))
		confirmed := env.requireOrderStatus(t, takerID, domain.OrderStatusMatched)
		require.True(t, confirmed.SwapMessageDelivered)
		require.Equal(t, takerOrder.IncomingNoteCommitment, confirmed.IncomingNoteCommitment)

		require.NoError(t, env.svc.TakerConfirm(ctx, takerID))
		require.Equal(t, 1, env.booknode.confirmCount(takerID))

		require.NoError(t, env.svc.MakerSwap(ctx, makerID))
		env.requireOrderStatus(t, makerID, domain.OrderStatusSettled)
	})
}

func TestTakerPostSettlementWithoutHash(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Second)
	env.openMatchedOrders(t)
	require.NoError(t, env.svc.TakerConfirm(ctx, takerID))

	err := env.svc.TakerPostSettlement(ctx, takerID, "")
	require.ErrorIs(t, err, chaintx.ErrStaleNote)

	require.NoError(t, env.svc.MakerSwap(ctx, makerID))
	require.NoError(t, env.svc.TakerPostSettlement(ctx, takerID, ""))
	env.requireOrderStatus(t, takerID, domain.OrderStatusSettled)
	require.Equal(t, []string{"10"}, env.activeAmounts(t, taker, baseAsset))
}

func newTestEnv(t *testing.T, receiptTimeout time.Duration) *testEnv {
	repoManager := inmemory.NewRepoManager()
	_, err := repoManager.AssetPairRepository().AddAssetPair(
		context.Background(), domain.AssetPair{
			ID:      pairID,
			ChainID: chainID,
			Base:    domain.Asset{Address: baseAsset, Symbol: "WETH", Decimals: 18},
			Quote:   domain.Asset{Address: quoteAsset, Symbol: "USDC", Decimals: 6},
		},
	)
	require.NoError(t, err)

	chain := simchain.NewChain(0)
	booknode := newFakeBooknode()
	locks := walletmutex.NewRegistry()
	ledgerSvc, err := ledger.NewService(repoManager)
	require.NoError(t, err)
	txSvc, err := chaintx.NewService(chain, ledgerSvc, nil, receiptTimeout)
	require.NoError(t, err)
	selectionSvc, err := selection.NewService(ledgerSvc, txSvc)
	require.NoError(t, err)
	assetPairSvc, err := assetpair.NewService(repoManager, booknode)
	require.NoError(t, err)
	orderSvc, err := order.NewService(
		locks, repoManager, ledgerSvc, selectionSvc, txSvc, assetPairSvc,
		booknode, pubsub.NewService(),
	)
	require.NoError(t, err)
	svc, err := settlement.NewService(
		locks, repoManager, ledgerSvc, txSvc, chain, booknode, orderSvc, nil,
	)
	require.NoError(t, err)

	return &testEnv{chain, repoManager, ledgerSvc, booknode, orderSvc, svc}
}

// openMatchedOrders opens a maker order selling 10 base for 200 quote and
// the taker order on the other side, and pairs them on the booknode.
func (e *testEnv) openMatchedOrders(t *testing.T) {
	ctx := context.Background()
	e.deposit(t, maker, baseAsset, 10)
	e.deposit(t, taker, quoteAsset, 250)

	makerSpec := spec(makerID, maker, domain.OrderDirectionSell, 10, 200)
	_, err := e.orders.CreateOrder(ctx, makerSpec)
	require.NoError(t, err)

	takerSpec := spec(takerID, taker, domain.OrderDirectionBuy, 200, 10)
	_, err = e.orders.CreateOrder(ctx, takerSpec)
	require.NoError(t, err)

	e.booknode.match(makerID, takerID)
}

func (e *testEnv) executeMakerSwap(t *testing.T) string {
	ctx := context.Background()
	makerOrder, err := e.orders.GetOrder(ctx, makerID)
	require.NoError(t, err)
	collateral, err := e.ledger.GetByCommitment(ctx, makerOrder.NoteCommitment)
	require.NoError(t, err)
	details, err := e.booknode.GetMatchedOrderDetails(ctx, *makerOrder)
	require.NoError(t, err)

	tx, err := e.chain.Prepare(ctx, ports.PrepareRequest{
		Kind:        ports.TxKindMakerSwap,
		Account:     maker,
		Inputs:      []domain.Note{*collateral},
		Order:       makerOrder,
		SwapMessage: details.TakerSwapMessage,
	})
	require.NoError(t, err)
	proof, err := e.chain.GenerateProof(ctx, tx)
	require.NoError(t, err)
	txHash, err := e.chain.Execute(ctx, tx, proof)
	require.NoError(t, err)
	return txHash
}

func (e *testEnv) deposit(
	t *testing.T, account ports.Account, asset string, amounts ...uint64,
) {
	for _, amount := range amounts {
		note := e.chain.Deposit(account, asset, uint256.NewInt(amount))
		_, err := e.ledger.RecordNote(
			context.Background(), note, domain.NoteStatusActive,
		)
		require.NoError(t, err)
	}
}

func (e *testEnv) activeAmounts(
	t *testing.T, account ports.Account, asset string,
) []string {
	notes, err := e.ledger.ListSpendable(
		context.Background(), account.Wallet, account.ChainID, asset,
	)
	require.NoError(t, err)
	amounts := make([]string, 0, len(notes))
	for _, n := range notes {
		amounts = append(amounts, n.AmountString())
	}
	return amounts
}

func (e *testEnv) requireOrderStatus(
	t *testing.T, orderID string, expected domain.OrderStatus,
) *domain.Order {
	o, err := e.orders.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.Equal(t, expected, o.Status)
	return o
}

func spec(
	id string, account ports.Account, direction domain.OrderDirection,
	amountOut, amountIn uint64,
) order.OrderSpec {
	s := order.OrderSpec{
		ID:          id,
		ChainID:     account.ChainID,
		AssetPairID: pairID,
		Wallet:      account.Wallet,
		PublicKey:   account.PublicKey,
		Direction:   direction,
		Type:        domain.OrderTypeLimit,
		TimeInForce: domain.TimeInForceGTC,
		Price:       decimal.NewFromInt(20),
	}
	s.AmountOut.SetUint64(amountOut)
	s.AmountIn.SetUint64(amountIn)
	return s
}

func statusesOf(events []domain.OrderEvent) []domain.OrderStatus {
	statuses := make([]domain.OrderStatus, 0, len(events))
	for _, e := range events {
		statuses = append(statuses, e.Status)
	}
	return statuses
}
