package evmchain_test

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	evmchain "github.com/darkswap-network/darkswap-daemon/internal/infrastructure/chain/evm"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

const (
	chainID = 31337
	txHash  = "0x8f3c4a1d6e2b5c7a9d0e1f2a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e"
)

type fakeClient struct {
	lock       sync.Mutex
	receiptErr []error
	receipt    *types.Receipt
	heads      []uint64
	calls      int
}

func (f *fakeClient) TransactionReceipt(
	_ context.Context, hash common.Hash,
) (*types.Receipt, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.calls++
	if len(f.receiptErr) > 0 {
		err := f.receiptErr[0]
		f.receiptErr = f.receiptErr[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.receipt == nil {
		return nil, ethereum.NotFound
	}
	r := *f.receipt
	r.TxHash = hash
	return &r, nil
}

func (f *fakeClient) BlockNumber(context.Context) (uint64, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	head := f.heads[0]
	if len(f.heads) > 1 {
		f.heads = f.heads[1:]
	}
	return head, nil
}

func (f *fakeClient) callCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls
}

func TestWaitForReceipt(t *testing.T) {
	tests := []struct {
		name            string
		client          *fakeClient
		expectedSuccess bool
	}{
		{
			name: "confirmed",
			client: &fakeClient{
				receiptErr: []error{ethereum.NotFound, ethereum.NotFound},
				receipt:    receiptAt(10, types.ReceiptStatusSuccessful),
				heads:      []uint64{10, 11, 12},
			},
			expectedSuccess: true,
		},
		{
			name: "reverted",
			client: &fakeClient{
				receipt: receiptAt(10, types.ReceiptStatusFailed),
				heads:   []uint64{20},
			},
			expectedSuccess: false,
		},
		{
			name: "rate_limited_then_confirmed",
			client: &fakeClient{
				receiptErr: []error{
					rpc.HTTPError{StatusCode: http.StatusTooManyRequests},
					errors.New("daily request count exceeded, request rate limited"),
				},
				receipt: receiptAt(10, types.ReceiptStatusSuccessful),
				heads:   []uint64{12},
			},
			expectedSuccess: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			waiter := newWaiter(tt.client, 3)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			receipt, err := waiter.WaitForReceipt(ctx, chainID, txHash)
			require.NoError(t, err)
			require.NotNil(t, receipt)
			require.Equal(t, tt.expectedSuccess, receipt.Success)
			require.Equal(t, txHash, receipt.TxHash)
			require.Equal(t, uint64(10), receipt.BlockNumber)
		})
	}
}

func TestWaitForReceiptFailures(t *testing.T) {
	t.Run("rate_limit_retries_exhausted", func(t *testing.T) {
		errs := make([]error, 10)
		for i := range errs {
			errs[i] = rpc.HTTPError{StatusCode: http.StatusTooManyRequests}
		}
		client := &fakeClient{receiptErr: errs, heads: []uint64{0}}
		waiter := newWaiter(client, 1)

		_, err := waiter.WaitForReceipt(context.Background(), chainID, txHash)
		require.ErrorIs(t, err, ports.ErrRateLimited)
		require.Equal(t, 2, client.callCount())
	})

	t.Run("rpc_error_not_retried", func(t *testing.T) {
		client := &fakeClient{
			receiptErr: []error{errors.New("connection refused")},
			heads:      []uint64{0},
		}
		waiter := newWaiter(client, 3)

		_, err := waiter.WaitForReceipt(context.Background(), chainID, txHash)
		require.EqualError(t, err, "connection refused")
		require.Equal(t, 1, client.callCount())
	})

	t.Run("not_mined_before_deadline", func(t *testing.T) {
		client := &fakeClient{heads: []uint64{0}}
		waiter := newWaiter(client, 3)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := waiter.WaitForReceipt(ctx, chainID, txHash)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("invalid_hash", func(t *testing.T) {
		waiter := newWaiter(&fakeClient{heads: []uint64{0}}, 3)
		for _, hash := range []string{"", "0x1234", "not-a-hash"} {
			_, err := waiter.WaitForReceipt(context.Background(), chainID, hash)
			require.ErrorIs(t, err, evmchain.ErrInvalidTxHash)
		}
	})

	t.Run("unknown_chain", func(t *testing.T) {
		waiter := newWaiter(&fakeClient{heads: []uint64{0}}, 3)
		_, err := waiter.WaitForReceipt(context.Background(), 1, txHash)
		require.ErrorIs(t, err, evmchain.ErrUnknownChain)
	})
}

func TestConfirmations(t *testing.T) {
	expected := map[uint64]uint64{
		1: 12, 42161: 12, 8453: 6, 11155111: 3, 31337: 3, 10: 6,
	}
	for chain, confirmations := range expected {
		require.Equal(t, confirmations, evmchain.Confirmations(chain))
	}
}

func TestNewReceiptWaiter(t *testing.T) {
	_, err := evmchain.NewReceiptWaiter(nil, evmchain.Opts{})
	require.Error(t, err)
}

func newWaiter(client *fakeClient, maxRetries uint64) *evmchain.ReceiptWaiter {
	return evmchain.NewReceiptWaiterWithClients(
		map[uint64]evmchain.Client{chainID: client},
		evmchain.Opts{
			RequestsPerSecond: 1000,
			MaxRetries:        maxRetries,
			PollInterval:      time.Millisecond,
		},
	)
}

func receiptAt(block int64, status uint64) *types.Receipt {
	return &types.Receipt{
		Status:      status,
		BlockNumber: big.NewInt(block),
	}
}
