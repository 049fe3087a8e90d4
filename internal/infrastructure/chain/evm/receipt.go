// Package evmchain follows transactions on EVM chains through their JSON-RPC
// endpoints.
package evmchain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

const (
	defaultRequestsPerSecond = 10
	defaultMaxRetries        = 5
	defaultPollInterval      = 2 * time.Second
	defaultConfirmations     = 6

	// JSON-RPC error code used by most providers for exceeded quotas.
	limitExceededCode = -32005
)

var (
	// ErrUnknownChain is returned for chains without a configured endpoint.
	ErrUnknownChain = errors.New("no rpc endpoint for chain")
	// ErrInvalidTxHash ...
	ErrInvalidTxHash = errors.New("invalid transaction hash")

	confirmationsByChain = map[uint64]uint64{
		1:        12,
		42161:    12,
		8453:     6,
		11155111: 3,
		31337:    3,
	}
)

// Client is the subset of the go-ethereum client needed to follow receipts.
type Client interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

type Opts struct {
	RequestsPerSecond int
	MaxRetries        uint64
	PollInterval      time.Duration
}

func (o Opts) withDefaults() Opts {
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = defaultRequestsPerSecond
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	return o
}

type endpoint struct {
	client  Client
	limiter ratelimit.Limiter
}

// ReceiptWaiter polls receipts until they reach the number of confirmations
// required by their chain.
type ReceiptWaiter struct {
	endpoints map[uint64]endpoint
	opts      Opts
	closers   []func()
}

// NewReceiptWaiter dials every given rpc endpoint, indexed by chain id.
func NewReceiptWaiter(
	rpcURLs map[uint64]string, opts Opts,
) (*ReceiptWaiter, error) {
	if len(rpcURLs) <= 0 {
		return nil, fmt.Errorf("missing chain rpc urls")
	}

	clients := make(map[uint64]Client, len(rpcURLs))
	closers := make([]func(), 0, len(rpcURLs))
	for chainID, url := range rpcURLs {
		c, err := ethclient.Dial(url)
		if err != nil {
			for _, closeFn := range closers {
				closeFn()
			}
			return nil, fmt.Errorf("dialing rpc of chain %d: %w", chainID, err)
		}
		clients[chainID] = c
		closers = append(closers, c.Close)
	}

	w := NewReceiptWaiterWithClients(clients, opts)
	w.closers = closers
	return w, nil
}

// NewReceiptWaiterWithClients is NewReceiptWaiter for already connected
// clients.
func NewReceiptWaiterWithClients(
	clients map[uint64]Client, opts Opts,
) *ReceiptWaiter {
	opts = opts.withDefaults()
	endpoints := make(map[uint64]endpoint, len(clients))
	for chainID, c := range clients {
		endpoints[chainID] = endpoint{
			client:  c,
			limiter: ratelimit.New(opts.RequestsPerSecond),
		}
	}
	return &ReceiptWaiter{endpoints: endpoints, opts: opts}
}

// Confirmations returns the number of blocks a transaction must be buried
// under before it is considered final on the given chain.
func Confirmations(chainID uint64) uint64 {
	if n, ok := confirmationsByChain[chainID]; ok {
		return n
	}
	return defaultConfirmations
}

func (w *ReceiptWaiter) WaitForReceipt(
	ctx context.Context, chainID uint64, txHash string,
) (*ports.Receipt, error) {
	hash, err := parseTxHash(txHash)
	if err != nil {
		return nil, err
	}
	ep, ok := w.endpoints[chainID]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrUnknownChain, chainID)
	}
	required := Confirmations(chainID)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.receipt(ctx, ep, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			head, err := w.blockNumber(ctx, ep)
			if err != nil {
				return nil, err
			}
			blockNumber := receipt.BlockNumber.Uint64()
			if head >= blockNumber && head-blockNumber+1 >= required {
				return &ports.Receipt{
					TxHash:      txHash,
					Success:     receipt.Status == types.ReceiptStatusSuccessful,
					BlockNumber: blockNumber,
				}, nil
			}
			log.Debugf(
				"tx %s mined in block %d, waiting for %d confirmations",
				txHash, blockNumber, required,
			)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ReceiptWaiter) Close() {
	for _, closeFn := range w.closers {
		closeFn()
	}
}

// receipt returns nil if the transaction is not mined yet.
func (w *ReceiptWaiter) receipt(
	ctx context.Context, ep endpoint, hash common.Hash,
) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := w.call(ctx, ep, func() error {
		r, err := ep.client.TransactionReceipt(ctx, hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				return nil
			}
			return err
		}
		receipt = r
		return nil
	})
	return receipt, err
}

func (w *ReceiptWaiter) blockNumber(
	ctx context.Context, ep endpoint,
) (uint64, error) {
	var head uint64
	err := w.call(ctx, ep, func() error {
		n, err := ep.client.BlockNumber(ctx)
		if err != nil {
			return err
		}
		head = n
		return nil
	})
	return head, err
}

// call runs fn under the endpoint's rate limiter. Rate limited calls are
// retried with exponential backoff, any other error is returned as is.
func (w *ReceiptWaiter) call(
	ctx context.Context, ep endpoint, fn func() error,
) error {
	op := func() error {
		ep.limiter.Take()
		err := fn()
		if err == nil {
			return nil
		}
		if isRateLimited(err) {
			log.WithError(err).Debug("chain rpc rate limited, backing off")
			return fmt.Errorf("%w: %s", ports.ErrRateLimited, err)
		}
		return backoff.Permanent(err)
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), w.opts.MaxRetries),
		ctx,
	)
	return backoff.Retry(op, bo)
}

func isRateLimited(err error) bool {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) &&
		httpErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == limitExceededCode {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

func parseTxHash(txHash string) (common.Hash, error) {
	buf, err := hexutil.Decode(txHash)
	if err != nil || len(buf) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrInvalidTxHash, txHash)
	}
	return common.BytesToHash(buf), nil
}
