package deposit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/chaintx"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/deposit"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/ledger"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/walletmutex"
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	simchain "github.com/darkswap-network/darkswap-daemon/internal/infrastructure/chain/sim"
	"github.com/darkswap-network/darkswap-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const asset = "0xasset"

var account = ports.Account{
	ChainID: 31337, Wallet: "0xwallet", PublicKey: "pk",
}

func TestNewService(t *testing.T) {
	locks := walletmutex.NewRegistry()
	ledgerSvc, err := ledger.NewService(inmemory.NewRepoManager())
	require.NoError(t, err)
	txSvc, err := chaintx.NewService(simchain.NewChain(0), ledgerSvc, nil, time.Second)
	require.NoError(t, err)

	tests := []struct {
		name   string
		locks  *walletmutex.Registry
		ledger *ledger.Service
		txs    *chaintx.Service
	}{
		{"missing_locks", nil, ledgerSvc, txSvc},
		{"missing_ledger", locks, nil, txSvc},
		{"missing_chain_tx", locks, ledgerSvc, nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc, err := deposit.NewService(tt.locks, tt.ledger, tt.txs)
			require.Error(t, err)
			require.Nil(t, svc)
		})
	}
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed", func(t *testing.T) {
		chain, ledgerSvc, svc := newFixture(t, 0)

		note, err := svc.Deposit(ctx, account, asset, uint256.NewInt(120))
		require.NoError(t, err)
		require.Equal(t, domain.NoteStatusActive, note.Status)
		require.Equal(t, "120", note.AmountString())
		require.Equal(t, 1, chain.TxCount(ports.TxKindDeposit))

		status, err := chain.NoteStatus(ctx, account, *note)
		require.NoError(t, err)
		require.Equal(t, ports.NoteOnChainStatusActive, status)

		spendable, err := ledgerSvc.ListSpendable(ctx, account.Wallet, account.ChainID, asset)
		require.NoError(t, err)
		require.Len(t, spendable, 1)
		require.Equal(t, note.Commitment, spendable[0].Commitment)
	})

	t.Run("reverted", func(t *testing.T) {
		chain, ledgerSvc, svc := newFixture(t, 0)
		chain.FailNext(ports.TxKindDeposit, 1)

		note, err := svc.Deposit(ctx, account, asset, uint256.NewInt(120))
		require.ErrorIs(t, err, chaintx.ErrTransactionFailed)
		require.Nil(t, note)

		spendable, err := ledgerSvc.ListSpendable(ctx, account.Wallet, account.ChainID, asset)
		require.NoError(t, err)
		require.Empty(t, spendable)
	})

	t.Run("landed_without_receipt", func(t *testing.T) {
		chain, _, svc := newFixture(t, 0)
		chain.SetStuckReceipts(true)

		note, err := svc.Deposit(ctx, account, asset, uint256.NewInt(7))
		require.NoError(t, err)
		require.Equal(t, domain.NoteStatusActive, note.Status)
	})

	t.Run("invalid_request", func(t *testing.T) {
		chain, _, svc := newFixture(t, 0)

		_, err := svc.Deposit(ctx, account, asset, uint256.NewInt(0))
		require.ErrorIs(t, err, domain.ErrNoteInvalidAmount)
		_, err = svc.Deposit(ctx, account, asset, nil)
		require.ErrorIs(t, err, domain.ErrNoteInvalidAmount)
		_, err = svc.Deposit(ctx, account, "", uint256.NewInt(1))
		require.ErrorIs(t, err, deposit.ErrMissingAsset)
		require.Zero(t, chain.TotalTxCount())
	})
}

func TestDepositConcurrently(t *testing.T) {
	ctx := context.Background()
	chain, ledgerSvc, svc := newFixture(t, 5*time.Millisecond)

	const deposits = 8
	var wg sync.WaitGroup
	errs := make(chan error, deposits)
	for i := 1; i <= deposits; i++ {
		wg.Add(1)
		go func(amount uint64) {
			defer wg.Done()
			_, err := svc.Deposit(ctx, account, asset, uint256.NewInt(amount))
			errs <- err
		}(uint64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, deposits, chain.TxCount(ports.TxKindDeposit))
	balances, err := ledgerSvc.Balances(ctx, account.Wallet, account.ChainID)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	require.Equal(t, "36", balances[0].Active.Dec())
}

func newFixture(
	t *testing.T, latency time.Duration,
) (*simchain.Chain, *ledger.Service, *deposit.Service) {
	t.Helper()

	chain := simchain.NewChain(latency)
	ledgerSvc, err := ledger.NewService(inmemory.NewRepoManager())
	require.NoError(t, err)
	txSvc, err := chaintx.NewService(chain, ledgerSvc, nil, 50*time.Millisecond)
	require.NoError(t, err)
	svc, err := deposit.NewService(walletmutex.NewRegistry(), ledgerSvc, txSvc)
	require.NoError(t, err)
	return chain, ledgerSvc, svc
}
