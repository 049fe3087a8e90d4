// Package chaintx drives a note operation through the chain execution
// service: prepare, journal the outputs, prove, broadcast and wait for the
// receipt.
package chaintx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/ledger"
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrTransactionFailed is returned when the receipt of a submitted
	// transaction reports a revert.
	ErrTransactionFailed = errors.New("transaction failed on chain")
	// ErrReceiptTimeout is returned when the receipt did not show up within
	// the configured timeout. The transaction may still land.
	ErrReceiptTimeout = errors.New("timed out waiting for transaction receipt")
	// ErrStaleNote is returned when the chain does not agree with the ledger
	// about the status of a note.
	ErrStaleNote = errors.New("note is stale")
)

// Result is the outcome of a submitted operation. On ErrReceiptTimeout the
// result is returned along with the error and Receipt is nil.
type Result struct {
	Tx      *ports.PreparedTx
	TxHash  string
	Receipt *ports.Receipt
}

type Service struct {
	chain          ports.ChainService
	ledger         *ledger.Service
	metrics        ports.Metrics
	receiptTimeout time.Duration
}

func NewService(
	chainSvc ports.ChainService, ledgerSvc *ledger.Service,
	metrics ports.Metrics, receiptTimeout time.Duration,
) (*Service, error) {
	if chainSvc == nil {
		return nil, fmt.Errorf("missing chain service")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("missing ledger service")
	}
	if receiptTimeout <= 0 {
		return nil, fmt.Errorf("receipt timeout must be positive")
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Service{chainSvc, ledgerSvc, metrics, receiptTimeout}, nil
}

func (s *Service) Chain() ports.ChainService {
	return s.chain
}

// Submit builds, proves and broadcasts the operation and waits for its
// receipt. Outputs are recorded as Created before broadcasting so that a
// crash between broadcast and bookkeeping can be recovered. Ledger statuses
// are otherwise left untouched.
func (s *Service) Submit(
	ctx context.Context, req ports.PrepareRequest,
) (*Result, error) {
	tx, err := s.chain.Prepare(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("preparing %s: %w", req.Kind, err)
	}

	for i := range tx.Outputs {
		out := tx.Outputs[i]
		out.ChainID = req.Account.ChainID
		out.Wallet = req.Account.Wallet
		out.PublicKey = req.Account.PublicKey
		if _, err := s.ledger.RecordNote(ctx, out, domain.NoteStatusCreated); err != nil {
			return nil, fmt.Errorf("journaling output %s: %w", out.Commitment, err)
		}
		tx.Outputs[i] = out
	}

	proof, err := s.chain.GenerateProof(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("proving %s: %w", req.Kind, err)
	}

	txHash, err := s.chain.Execute(ctx, tx, proof)
	if err != nil {
		return nil, fmt.Errorf("executing %s: %w", req.Kind, err)
	}
	log.WithField("tx", txHash).Debugf(
		"submitted %s with %d inputs and %d outputs",
		req.Kind, len(tx.Inputs), len(tx.Outputs),
	)

	result := &Result{Tx: tx, TxHash: txHash}
	receipt, err := s.WaitForReceipt(ctx, req.Account.ChainID, txHash)
	if err != nil {
		if errors.Is(err, ErrReceiptTimeout) {
			return result, err
		}
		return nil, err
	}
	result.Receipt = receipt

	s.metrics.TxSubmitted(req.Kind, len(tx.Inputs), receipt.Success)
	if !receipt.Success {
		return nil, fmt.Errorf("%w: %s %s", ErrTransactionFailed, req.Kind, txHash)
	}
	return result, nil
}

// SubmitExpecting is Submit for operations whose effect on the inputs is
// observable. If the receipt does not show up in time, the operation is
// considered landed when the chain reports every input with the expected
// status.
func (s *Service) SubmitExpecting(
	ctx context.Context, req ports.PrepareRequest,
	expected ports.NoteOnChainStatus,
) (*Result, error) {
	result, err := s.Submit(ctx, req)
	if err == nil || !errors.Is(err, ErrReceiptTimeout) {
		return result, err
	}

	landed, cerr := s.AllInStatus(ctx, req.Account, req.Inputs, expected)
	if cerr != nil || !landed {
		return nil, err
	}
	log.WithField("tx", result.TxHash).Warnf(
		"receipt of %s not received in time but inputs are %s on chain",
		req.Kind, expected,
	)
	return result, nil
}

// ValidateActive checks that the chain agrees every input is Active. If the
// chain reports a note as Spent, the ledger copy is reconciled first.
func (s *Service) ValidateActive(
	ctx context.Context, account ports.Account, notes []domain.Note,
) error {
	for _, note := range notes {
		status, err := s.chain.NoteStatus(ctx, account, note)
		if err != nil {
			return fmt.Errorf("checking note %s: %w", note.Commitment, err)
		}
		if status == ports.NoteOnChainStatusActive {
			continue
		}

		if status == ports.NoteOnChainStatusSpent {
			if err := s.ledger.Transition(
				ctx, note.Commitment, account.Wallet, account.ChainID,
				domain.NoteStatusSpent,
			); err != nil {
				log.WithError(err).Warnf(
					"failed to reconcile spent note %s", note.Commitment,
				)
			}
		}
		return fmt.Errorf(
			"%w: note %s is %s on chain", ErrStaleNote, note.Commitment, status,
		)
	}
	return nil
}

// AllSpent returns whether the chain reports every note as Spent.
func (s *Service) AllSpent(
	ctx context.Context, account ports.Account, notes []domain.Note,
) (bool, error) {
	return s.AllInStatus(ctx, account, notes, ports.NoteOnChainStatusSpent)
}

// AllInStatus returns whether the chain reports every note with the given
// status. It tells whether an operation whose receipt was not received
// landed anyway.
func (s *Service) AllInStatus(
	ctx context.Context, account ports.Account, notes []domain.Note,
	expected ports.NoteOnChainStatus,
) (bool, error) {
	for _, note := range notes {
		status, err := s.chain.NoteStatus(ctx, account, note)
		if err != nil {
			return false, err
		}
		if status != expected {
			return false, nil
		}
	}
	return true, nil
}

// WaitForReceipt waits for the receipt of the transaction for at most the
// configured timeout, returning ErrReceiptTimeout when it expires.
func (s *Service) WaitForReceipt(
	ctx context.Context, chainID uint64, txHash string,
) (*ports.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.receiptTimeout)
	defer cancel()

	receipt, err := s.chain.WaitForReceipt(waitCtx, chainID, txHash)
	if err != nil {
		if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrReceiptTimeout, txHash)
		}
		return nil, fmt.Errorf("waiting for receipt of %s: %w", txHash, err)
	}
	return receipt, nil
}
