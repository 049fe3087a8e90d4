// Package simchain is an in-process chain, prover and indexer for the note
// operations of the daemon. It keeps on-chain note statuses, applies
// operations atomically on execution and records swaps for the indexer.
package simchain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

const maxInputs = 5

type onchainNote struct {
	commitment string
	chainID    uint64
	wallet     string
	asset      string
	amount     uint256.Int
	nullifier  string
	status     ports.NoteOnChainStatus
}

type swapRecord struct {
	chainID        uint64
	aliceNullifier string
	bobNullifier   string
	record         ports.SwapRecord
}

type swapMessage struct {
	ChainID                uint64 `json:"chainId"`
	NoteCommitment         string `json:"noteCommitment"`
	PublicKey              string `json:"publicKey"`
	Nullifier              string `json:"nullifier"`
	IncomingNoteCommitment string `json:"incomingNoteCommitment"`
}

// Chain implements ports.ChainService and ports.ChainIndexer.
type Chain struct {
	lock    *sync.Mutex
	latency time.Duration

	notes    map[string]*onchainNote
	incoming map[string]*onchainNote
	prepared map[string]ports.PreparedTx
	receipts map[string]ports.Receipt
	swaps    []swapRecord
	nonce    uint64

	failNext     map[ports.TxKind]int
	stuck        bool
	txCount      map[ports.TxKind]int
	maxInputs    int
	doubleSpends int
}

// NewChain returns an empty chain. Execution and receipt waits are delayed
// by latency.
func NewChain(latency time.Duration) *Chain {
	return &Chain{
		lock:     &sync.Mutex{},
		latency:  latency,
		notes:    make(map[string]*onchainNote),
		incoming: make(map[string]*onchainNote),
		prepared: make(map[string]ports.PreparedTx),
		receipts: make(map[string]ports.Receipt),
		failNext: make(map[ports.TxKind]int),
		txCount:  make(map[ports.TxKind]int),
	}
}

// Deposit creates an Active note for the account on chain and returns it.
func (c *Chain) Deposit(
	account ports.Account, asset string, amount *uint256.Int,
) domain.Note {
	c.lock.Lock()
	defer c.lock.Unlock()

	note := c.newNote(account, asset, amount)
	c.notes[note.Commitment].status = ports.NoteOnChainStatusActive
	note.Status = domain.NoteStatusActive
	return note
}

func (c *Chain) Prepare(
	_ context.Context, req ports.PrepareRequest,
) (*ports.PreparedTx, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if len(req.Inputs) <= 0 && req.Kind != ports.TxKindDeposit {
		return nil, fmt.Errorf("%s: missing inputs", req.Kind)
	}
	if len(req.Inputs) > maxInputs {
		return nil, fmt.Errorf(
			"%s: %d inputs exceed the maximum of %d",
			req.Kind, len(req.Inputs), maxInputs,
		)
	}

	inputs := make([]*onchainNote, 0, len(req.Inputs))
	sum := new(uint256.Int)
	for _, in := range req.Inputs {
		n, ok := c.notes[in.Commitment]
		if !ok {
			return nil, fmt.Errorf("unknown note %s", in.Commitment)
		}
		inputs = append(inputs, n)
		sum.Add(sum, &n.amount)
	}

	tx := ports.PreparedTx{
		ID:      uuid.New().String(),
		Kind:    req.Kind,
		ChainID: req.Account.ChainID,
		Inputs:  req.Inputs,
		Outputs: make([]domain.Note, 0),
	}

	switch req.Kind {
	case ports.TxKindSplit, ports.TxKindBatchJoinSplit:
		if req.Kind == ports.TxKindSplit && len(inputs) != 1 {
			return nil, fmt.Errorf("split takes exactly one input")
		}
		if req.Amount.IsZero() || sum.Cmp(&req.Amount) < 0 {
			return nil, fmt.Errorf("inputs do not cover amount %s", req.Amount.Dec())
		}
		tx.Outputs = append(tx.Outputs, c.newNote(req.Account, req.Asset, &req.Amount))
		change := new(uint256.Int).Sub(sum, &req.Amount)
		if !change.IsZero() {
			tx.Outputs = append(tx.Outputs, c.newNote(req.Account, req.Asset, change))
		}
	case ports.TxKindJoin:
		if len(inputs) < 2 {
			return nil, fmt.Errorf("join takes at least two inputs")
		}
		tx.Outputs = append(tx.Outputs, c.newNote(req.Account, req.Asset, sum))
	case ports.TxKindCreateOrder, ports.TxKindCancelOrder:
		if req.Order == nil || len(inputs) != 1 {
			return nil, fmt.Errorf("%s takes an order and one input", req.Kind)
		}
		tx.Nullifier = inputs[0].nullifier
	case ports.TxKindMakerSwap:
		if req.Order == nil || len(inputs) != 1 {
			return nil, fmt.Errorf("maker swap takes an order and one input")
		}
		msg, err := decodeSwapMessage(req.SwapMessage)
		if err != nil {
			return nil, err
		}
		if _, ok := c.notes[msg.NoteCommitment]; !ok {
			return nil, fmt.Errorf("unknown counterparty note %s", msg.NoteCommitment)
		}
		tx.Nullifier = inputs[0].nullifier
		tx.Outputs = append(tx.Outputs, c.newNote(
			req.Account, req.Order.AssetIn, &req.Order.AmountIn,
		))
		tx.Payload = []byte(req.SwapMessage)
	case ports.TxKindDeposit:
		if len(inputs) > 0 {
			return nil, fmt.Errorf("deposit takes no inputs")
		}
		if req.Amount.IsZero() {
			return nil, fmt.Errorf("deposit amount must be positive")
		}
		tx.Outputs = append(tx.Outputs, c.newNote(req.Account, req.Asset, &req.Amount))
	default:
		return nil, fmt.Errorf("unsupported operation %s", req.Kind)
	}

	c.prepared[tx.ID] = tx
	return &tx, nil
}

func (c *Chain) GenerateProof(
	_ context.Context, tx *ports.PreparedTx,
) (*ports.Proof, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.prepared[tx.ID]; !ok {
		return nil, fmt.Errorf("unknown prepared operation %s", tx.ID)
	}
	return &ports.Proof{Payload: []byte(mimcHash([]byte(tx.ID)))}, nil
}

func (c *Chain) Execute(
	ctx context.Context, tx *ports.PreparedTx, proof *ports.Proof,
) (string, error) {
	if err := c.sleep(ctx); err != nil {
		return "", err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	prepared, ok := c.prepared[tx.ID]
	if !ok {
		return "", fmt.Errorf("unknown prepared operation %s", tx.ID)
	}
	if proof == nil || string(proof.Payload) != mimcHash([]byte(tx.ID)) {
		return "", fmt.Errorf("invalid proof for operation %s", tx.ID)
	}
	delete(c.prepared, tx.ID)

	c.nonce++
	hash := txHash(prepared.ChainID, c.nonce)
	success := c.apply(prepared, hash)

	c.txCount[prepared.Kind]++
	if len(prepared.Inputs) > c.maxInputs {
		c.maxInputs = len(prepared.Inputs)
	}
	c.receipts[hash] = ports.Receipt{
		TxHash: hash, Success: success, BlockNumber: c.nonce,
	}
	return hash, nil
}

func (c *Chain) WaitForReceipt(
	ctx context.Context, _ uint64, txHash string,
) (*ports.Receipt, error) {
	c.lock.Lock()
	stuck := c.stuck
	c.lock.Unlock()

	if stuck {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := c.sleep(ctx); err != nil {
		return nil, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	receipt, ok := c.receipts[txHash]
	if !ok {
		return nil, fmt.Errorf("unknown transaction %s", txHash)
	}
	return &receipt, nil
}

func (c *Chain) NoteStatus(
	_ context.Context, _ ports.Account, note domain.Note,
) (ports.NoteOnChainStatus, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	n, ok := c.notes[note.Commitment]
	if !ok {
		return ports.NoteOnChainStatusUnknown, nil
	}
	return n.status, nil
}

func (c *Chain) CounterpartyNoteStatus(
	_ context.Context, _ uint64, swap ports.CounterpartySwap,
) (ports.NoteOnChainStatus, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	n, ok := c.notes[swap.NoteCommitment]
	if !ok {
		return ports.NoteOnChainStatusUnknown, nil
	}
	return n.status, nil
}

func (c *Chain) SwapMessage(
	_ context.Context, req ports.SwapMessageRequest,
) (*ports.SwapMessage, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	collateral, ok := c.notes[req.Collateral.Commitment]
	if !ok {
		return nil, fmt.Errorf("unknown note %s", req.Collateral.Commitment)
	}

	incoming := c.newPendingNote(req.Account, req.Order.AssetIn, &req.Order.AmountIn)
	msg := swapMessage{
		ChainID:                req.Account.ChainID,
		NoteCommitment:         collateral.commitment,
		PublicKey:              req.Account.PublicKey,
		Nullifier:              collateral.nullifier,
		IncomingNoteCommitment: incoming.Commitment,
	}
	buf, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &ports.SwapMessage{IncomingNote: incoming, Message: string(buf)}, nil
}

func (c *Chain) DecodeSwapMessage(message string) (*ports.CounterpartySwap, error) {
	msg, err := decodeSwapMessage(message)
	if err != nil {
		return nil, err
	}
	return &ports.CounterpartySwap{
		NoteCommitment:         msg.NoteCommitment,
		PublicKey:              msg.PublicKey,
		Nullifier:              msg.Nullifier,
		IncomingNoteCommitment: msg.IncomingNoteCommitment,
	}, nil
}

// FindSwapByNullifiers implements ports.ChainIndexer.
func (c *Chain) FindSwapByNullifiers(
	_ context.Context, chainID uint64, aliceNullifier, bobNullifier string,
) (*ports.SwapRecord, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, s := range c.swaps {
		if s.chainID == chainID && s.aliceNullifier == aliceNullifier &&
			s.bobNullifier == bobNullifier {
			record := s.record
			return &record, nil
		}
	}
	return nil, nil
}

// apply executes the operation against the note set. Nothing changes if any
// precondition fails, in which case the operation reverts.
func (c *Chain) apply(tx ports.PreparedTx, hash string) bool {
	expected := ports.NoteOnChainStatusActive
	if tx.Kind == ports.TxKindCancelOrder || tx.Kind == ports.TxKindMakerSwap {
		expected = ports.NoteOnChainStatusLocked
	}

	inputs := make([]*onchainNote, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		n := c.notes[in.Commitment]
		if n.status != expected {
			if n.status == ports.NoteOnChainStatusSpent {
				c.doubleSpends++
			}
			log.Debugf("sim: %s reverted, note %s is %s", tx.Kind, n.commitment, n.status)
			return false
		}
		inputs = append(inputs, n)
	}

	var counterparty swapMessage
	if tx.Kind == ports.TxKindMakerSwap {
		counterparty, _ = decodeSwapMessage(string(tx.Payload))
		taker := c.notes[counterparty.NoteCommitment]
		if taker.status != ports.NoteOnChainStatusLocked {
			log.Debugf("sim: maker swap reverted, taker note is %s", taker.status)
			return false
		}
	}

	if c.failNext[tx.Kind] > 0 {
		c.failNext[tx.Kind]--
		return false
	}

	switch tx.Kind {
	case ports.TxKindCreateOrder:
		inputs[0].status = ports.NoteOnChainStatusLocked
	case ports.TxKindCancelOrder:
		inputs[0].status = ports.NoteOnChainStatusActive
	case ports.TxKindMakerSwap:
		taker := c.notes[counterparty.NoteCommitment]
		taker.status = ports.NoteOnChainStatusSpent
		inputs[0].status = ports.NoteOnChainStatusSpent
		if n, ok := c.incoming[counterparty.IncomingNoteCommitment]; ok {
			n.status = ports.NoteOnChainStatusActive
			c.notes[n.commitment] = n
			delete(c.incoming, n.commitment)
		}
		c.swaps = append(c.swaps, swapRecord{
			chainID:        tx.ChainID,
			aliceNullifier: inputs[0].nullifier,
			bobNullifier:   taker.nullifier,
			record: ports.SwapRecord{
				TxHash:      hash,
				AliceInNote: tx.Outputs[0].Commitment,
				BobInNote:   counterparty.IncomingNoteCommitment,
			},
		})
	default:
		for _, n := range inputs {
			n.status = ports.NoteOnChainStatusSpent
		}
	}

	for _, out := range tx.Outputs {
		if n, ok := c.notes[out.Commitment]; ok {
			n.status = ports.NoteOnChainStatusActive
		}
	}
	return true
}

// newNote registers a note that will be activated by a successful
// operation. The caller must hold the lock.
func (c *Chain) newNote(
	account ports.Account, asset string, amount *uint256.Int,
) domain.Note {
	note := c.buildNote(account, asset, amount)
	c.notes[note.Commitment] = c.toOnchain(note)
	return note
}

func (c *Chain) newPendingNote(
	account ports.Account, asset string, amount *uint256.Int,
) domain.Note {
	note := c.buildNote(account, asset, amount)
	c.incoming[note.Commitment] = c.toOnchain(note)
	return note
}

func (c *Chain) buildNote(
	account ports.Account, asset string, amount *uint256.Int,
) domain.Note {
	rho := randomRho()
	wallet := domain.NormalizeAddress(account.Wallet)
	asset = domain.NormalizeAddress(asset)
	commitment := noteCommitment(account.ChainID, wallet, asset, amount, rho)
	note, _ := domain.NewNote(
		commitment, account.ChainID, wallet, account.PublicKey, asset, amount, rho,
	)
	return *note
}

func (c *Chain) toOnchain(note domain.Note) *onchainNote {
	n := &onchainNote{
		commitment: note.Commitment,
		chainID:    note.ChainID,
		wallet:     note.Wallet,
		asset:      note.Asset,
		nullifier:  noteNullifier(note.Commitment, note.Rho),
		status:     ports.NoteOnChainStatusUnknown,
	}
	n.amount.Set(&note.Amount)
	return n
}

func (c *Chain) sleep(ctx context.Context) error {
	if c.latency <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.latency):
		return nil
	}
}

func decodeSwapMessage(message string) (swapMessage, error) {
	var msg swapMessage
	if err := json.Unmarshal([]byte(message), &msg); err != nil {
		return swapMessage{}, fmt.Errorf("invalid swap message: %w", err)
	}
	if len(msg.NoteCommitment) <= 0 || len(msg.Nullifier) <= 0 {
		return swapMessage{}, fmt.Errorf("invalid swap message: missing note")
	}
	return msg, nil
}
