package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/holiman/uint256"
)

const (
	TxKindSplit TxKind = iota
	TxKindJoin
	TxKindBatchJoinSplit
	TxKindCreateOrder
	TxKindCancelOrder
	TxKindMakerSwap
	TxKindDeposit
)

const (
	NoteOnChainStatusUnknown NoteOnChainStatus = iota
	NoteOnChainStatusActive
	NoteOnChainStatusLocked
	NoteOnChainStatusSpent
)

var (
	// ErrRateLimited is returned by a chain RPC endpoint refusing requests
	// because of rate limiting.
	ErrRateLimited = errors.New("chain rpc rate limited")
	// ErrExternalService wraps failures of booknode, indexer and prover.
	ErrExternalService = errors.New("external service failure")
)

var txKindLabels = map[TxKind]string{
	TxKindSplit:          "split",
	TxKindJoin:           "join",
	TxKindBatchJoinSplit: "batch_join_split",
	TxKindCreateOrder:    "create_order",
	TxKindCancelOrder:    "cancel_order",
	TxKindMakerSwap:      "maker_swap",
	TxKindDeposit:        "deposit",
}

// TxKind is the kind of note operation submitted on chain.
type TxKind int

func (k TxKind) String() string {
	if label, ok := txKindLabels[k]; ok {
		return label
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// NoteOnChainStatus is the status of a note as reported by the chain.
type NoteOnChainStatus int

func (s NoteOnChainStatus) String() string {
	switch s {
	case NoteOnChainStatusActive:
		return "ACTIVE"
	case NoteOnChainStatusLocked:
		return "LOCKED"
	case NoteOnChainStatusSpent:
		return "SPENT"
	default:
		return "UNKNOWN"
	}
}

// Account identifies the owner of notes on a chain.
type Account struct {
	ChainID   uint64
	Wallet    string
	PublicKey string
}

// PrepareRequest describes a note operation to be built by the chain
// execution service.
type PrepareRequest struct {
	Kind    TxKind
	Account Account
	Asset   string
	Inputs  []domain.Note
	// Amount is the target amount of split and batch join-split operations.
	Amount uint256.Int
	// Order is set for create, cancel and swap operations.
	Order *domain.Order
	// SwapMessage is the serialized counterparty message of a maker swap.
	SwapMessage string
}

// PreparedTx is a built, not yet proven, note operation. The first output is
// the target note (split, batch join-split), the aggregate (join) or the
// incoming note (maker swap); the others are change.
type PreparedTx struct {
	ID        string
	Kind      TxKind
	ChainID   uint64
	Inputs    []domain.Note
	Outputs   []domain.Note
	Nullifier string
	Payload   []byte
}

type Proof struct {
	Payload []byte
}

type Receipt struct {
	TxHash      string
	Success     bool
	BlockNumber uint64
}

// SwapMessageRequest is what the taker needs to build its signed swap
// message for a matched order.
type SwapMessageRequest struct {
	Account    Account
	Order      domain.Order
	Collateral domain.Note
	Details    MatchedOrderDetails
}

// SwapMessage is the taker half of a swap: the note it will receive and the
// serialized message to hand to the maker.
type SwapMessage struct {
	IncomingNote domain.Note
	Message      string
}

// CounterpartySwap is the decoded content of a taker swap message.
type CounterpartySwap struct {
	NoteCommitment         string
	PublicKey              string
	Nullifier              string
	IncomingNoteCommitment string
}

// ChainService builds, proves and submits note operations and answers
// questions about on-chain note state.
type ChainService interface {
	Prepare(ctx context.Context, req PrepareRequest) (*PreparedTx, error)
	GenerateProof(ctx context.Context, tx *PreparedTx) (*Proof, error)
	// Execute broadcasts the proven operation and returns its tx hash.
	Execute(ctx context.Context, tx *PreparedTx, proof *Proof) (string, error)
	// WaitForReceipt blocks until the transaction is final or ctx is done.
	WaitForReceipt(
		ctx context.Context, chainID uint64, txHash string,
	) (*Receipt, error)
	NoteStatus(
		ctx context.Context, account Account, note domain.Note,
	) (NoteOnChainStatus, error)
	CounterpartyNoteStatus(
		ctx context.Context, chainID uint64, swap CounterpartySwap,
	) (NoteOnChainStatus, error)
	SwapMessage(ctx context.Context, req SwapMessageRequest) (*SwapMessage, error)
	DecodeSwapMessage(message string) (*CounterpartySwap, error)
}

// SwapRecord is a settled swap as seen by the chain indexer.
type SwapRecord struct {
	TxHash      string
	AliceInNote string
	BobInNote   string
}

// ChainIndexer queries historical chain data.
type ChainIndexer interface {
	// FindSwapByNullifiers returns the swap that consumed both nullifiers, or
	// nil if there is none.
	FindSwapByNullifiers(
		ctx context.Context, chainID uint64, aliceNullifier, bobNullifier string,
	) (*SwapRecord, error)
}
