package proverchain

import (
	"encoding/json"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/holiman/uint256"
)

type account struct {
	ChainID   uint64 `json:"chainId"`
	Wallet    string `json:"wallet"`
	PublicKey string `json:"publicKey"`
}

type note struct {
	Commitment string `json:"commitment"`
	ChainID    uint64 `json:"chainId"`
	Wallet     string `json:"wallet"`
	PublicKey  string `json:"publicKey"`
	Type       int    `json:"noteType"`
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	Rho        string `json:"rho"`
	FeeRatio   uint64 `json:"feeRatio"`
}

type order struct {
	ID             string `json:"orderId"`
	ChainID        uint64 `json:"chainId"`
	Wallet         string `json:"wallet"`
	PublicKey      string `json:"publicKey"`
	Direction      int    `json:"orderDirection"`
	AssetOut       string `json:"assetOut"`
	AssetIn        string `json:"assetIn"`
	AmountOut      string `json:"amountOut"`
	AmountIn       string `json:"amountIn"`
	FeeRatio       uint64 `json:"feeRatio"`
	NoteCommitment string `json:"noteCommitment,omitempty"`
	Nullifier      string `json:"nullifier,omitempty"`
}

type prepareRequest struct {
	Kind        string  `json:"kind"`
	Account     account `json:"account"`
	Asset       string  `json:"asset,omitempty"`
	Inputs      []note  `json:"inputs"`
	Amount      string  `json:"amount,omitempty"`
	Order       *order  `json:"order,omitempty"`
	SwapMessage string  `json:"swapMessage,omitempty"`
}

type preparedTx struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	ChainID   uint64 `json:"chainId"`
	Inputs    []note `json:"inputs"`
	Outputs   []note `json:"outputs"`
	Nullifier string `json:"nullifier"`
	Payload   []byte `json:"payload"`
}

type proveRequest struct {
	Tx preparedTx `json:"tx"`
}

type proof struct {
	Proof []byte `json:"proof"`
}

type executeRequest struct {
	Tx    preparedTx `json:"tx"`
	Proof []byte     `json:"proof"`
}

type executeResponse struct {
	TxHash string `json:"txHash"`
}

type noteStatusRequest struct {
	Account    account `json:"account"`
	Commitment string  `json:"commitment"`
}

type counterpartyStatusRequest struct {
	ChainID uint64       `json:"chainId"`
	Swap    swapEnvelope `json:"swap"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type swapMessageRequest struct {
	Account            account `json:"account"`
	Order              order   `json:"order"`
	Collateral         note    `json:"collateral"`
	MakerAmount        string  `json:"makerAmount"`
	MakerMatchedAmount string  `json:"makerMatchedAmount"`
	TakerMatchedAmount string  `json:"takerMatchedAmount"`
}

type swapMessageResponse struct {
	IncomingNote note   `json:"incomingNote"`
	Message      string `json:"message"`
}

// swapEnvelope is the serialized form of the taker half of a swap, as
// produced by the sidecar and relayed through the booknode.
type swapEnvelope struct {
	ChainID                uint64 `json:"chainId"`
	NoteCommitment         string `json:"noteCommitment"`
	PublicKey              string `json:"publicKey"`
	Nullifier              string `json:"nullifier"`
	IncomingNoteCommitment string `json:"incomingNoteCommitment"`
}

func decodeSwapEnvelope(message string) (*swapEnvelope, error) {
	msg := &swapEnvelope{}
	if err := json.Unmarshal([]byte(message), msg); err != nil {
		return nil, fmt.Errorf("invalid swap message: %s", err)
	}
	if len(msg.NoteCommitment) <= 0 || len(msg.Nullifier) <= 0 {
		return nil, fmt.Errorf("invalid swap message: missing note")
	}
	return msg, nil
}

func newAccount(a ports.Account) account {
	return account{ChainID: a.ChainID, Wallet: a.Wallet, PublicKey: a.PublicKey}
}

func newNote(n domain.Note) note {
	return note{
		Commitment: n.Commitment,
		ChainID:    n.ChainID,
		Wallet:     n.Wallet,
		PublicKey:  n.PublicKey,
		Type:       int(n.Type),
		Asset:      n.Asset,
		Amount:     n.Amount.Dec(),
		Rho:        n.Rho,
		FeeRatio:   n.FeeRatio,
	}
}

func newNotes(notes []domain.Note) []note {
	list := make([]note, 0, len(notes))
	for _, n := range notes {
		list = append(list, newNote(n))
	}
	return list
}

func newOrder(o domain.Order) order {
	return order{
		ID:             o.ID,
		ChainID:        o.ChainID,
		Wallet:         o.Wallet,
		PublicKey:      o.PublicKey,
		Direction:      int(o.Direction),
		AssetOut:       o.AssetOut,
		AssetIn:        o.AssetIn,
		AmountOut:      o.AmountOut.Dec(),
		AmountIn:       o.AmountIn.Dec(),
		FeeRatio:       o.FeeRatio,
		NoteCommitment: o.NoteCommitment,
		Nullifier:      o.Nullifier,
	}
}

func newPrepareRequest(req ports.PrepareRequest) prepareRequest {
	r := prepareRequest{
		Kind:        req.Kind.String(),
		Account:     newAccount(req.Account),
		Asset:       req.Asset,
		Inputs:      newNotes(req.Inputs),
		SwapMessage: req.SwapMessage,
	}
	if !req.Amount.IsZero() {
		r.Amount = req.Amount.Dec()
	}
	if req.Order != nil {
		o := newOrder(*req.Order)
		r.Order = &o
	}
	return r
}

func newPreparedTx(tx ports.PreparedTx) preparedTx {
	return preparedTx{
		ID:        tx.ID,
		Kind:      tx.Kind.String(),
		ChainID:   tx.ChainID,
		Inputs:    newNotes(tx.Inputs),
		Outputs:   newNotes(tx.Outputs),
		Nullifier: tx.Nullifier,
		Payload:   tx.Payload,
	}
}

func (n note) toDomain() (domain.Note, error) {
	amount, err := uint256.FromDecimal(n.Amount)
	if err != nil {
		return domain.Note{}, fmt.Errorf("invalid amount %q of note %s", n.Amount, n.Commitment)
	}
	return domain.Note{
		Commitment: n.Commitment,
		ChainID:    n.ChainID,
		Wallet:     domain.NormalizeAddress(n.Wallet),
		PublicKey:  n.PublicKey,
		Type:       domain.NoteType(n.Type),
		Asset:      n.Asset,
		Amount:     *amount,
		Rho:        n.Rho,
		FeeRatio:   n.FeeRatio,
	}, nil
}

func toDomainNotes(notes []note) ([]domain.Note, error) {
	list := make([]domain.Note, 0, len(notes))
	for _, n := range notes {
		dn, err := n.toDomain()
		if err != nil {
			return nil, err
		}
		list = append(list, dn)
	}
	return list, nil
}

// toPortable converts the prepared tx, labeling it with the requested kind.
func (tx preparedTx) toPortable(kind ports.TxKind) (*ports.PreparedTx, error) {
	inputs, err := toDomainNotes(tx.Inputs)
	if err != nil {
		return nil, err
	}
	outputs, err := toDomainNotes(tx.Outputs)
	if err != nil {
		return nil, err
	}
	return &ports.PreparedTx{
		ID:        tx.ID,
		Kind:      kind,
		ChainID:   tx.ChainID,
		Inputs:    inputs,
		Outputs:   outputs,
		Nullifier: tx.Nullifier,
		Payload:   tx.Payload,
	}, nil
}

func toNoteStatus(status string) ports.NoteOnChainStatus {
	switch status {
	case "ACTIVE":
		return ports.NoteOnChainStatusActive
	case "LOCKED":
		return ports.NoteOnChainStatusLocked
	case "SPENT":
		return ports.NoteOnChainStatusSpent
	default:
		return ports.NoteOnChainStatusUnknown
	}
}
