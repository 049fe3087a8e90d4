// Package selection produces a note of an exact amount out of the notes a
// wallet holds, combining them on chain when no single note matches.
package selection

import (
	"context"
	"errors"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/chaintx"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/ledger"
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

// MaxJoinInputs is the maximum number of notes consumed by one combine
// transaction.
const MaxJoinInputs = 5

var (
	// ErrInsufficientFunds is returned when the Active notes of the wallet do
	// not cover the requested amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount ...
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

type Service struct {
	ledger *ledger.Service
	txs    *chaintx.Service
}

func NewService(ledgerSvc *ledger.Service, txSvc *chaintx.Service) (*Service, error) {
	if ledgerSvc == nil {
		return nil, fmt.Errorf("missing ledger service")
	}
	if txSvc == nil {
		return nil, fmt.Errorf("missing chain tx service")
	}
	return &Service{ledgerSvc, txSvc}, nil
}

// SelectNoteForAmount returns an Active note of exactly target amount of the
// asset, combining the largest notes of the account on chain if needed.
// The caller must hold the wallet lock of the account.
func (s *Service) SelectNoteForAmount(
	ctx context.Context, account ports.Account, asset string,
	target *uint256.Int,
) (*domain.Note, error) {
	if target == nil || target.IsZero() {
		return nil, ErrInvalidAmount
	}

	notes, err := s.ledger.ListSpendable(
		ctx, account.Wallet, account.ChainID, asset,
	)
	if err != nil {
		return nil, err
	}
	sortByAmountDesc(notes)

	for {
		if note := findExactMatch(notes, target); note != nil {
			return note, nil
		}
		if len(notes) <= 0 {
			return nil, ErrInsufficientFunds
		}

		if notes[0].Amount.Cmp(target) > 0 {
			// Smaller notes adding up to exactly target are joined without
			// change, leaving the larger notes intact.
			if exact, ok := exactSumPrefix(notes, target); ok {
				outputs, err := s.combine(
					ctx, ports.TxKindBatchJoinSplit, account, asset, exact, target,
				)
				if err != nil {
					return nil, err
				}
				return &outputs[0], nil
			}

			outputs, err := s.combine(
				ctx, ports.TxKindSplit, account, asset, notes[:1], target,
			)
			if err != nil {
				return nil, err
			}
			return &outputs[0], nil
		}

		prefix, ok := coveringPrefix(notes, target)
		if !ok {
			return nil, ErrInsufficientFunds
		}

		if len(prefix) <= MaxJoinInputs {
			outputs, err := s.combine(
				ctx, ports.TxKindBatchJoinSplit, account, asset, prefix, target,
			)
			if err != nil {
				return nil, err
			}
			return &outputs[0], nil
		}

		outputs, err := s.combine(
			ctx, ports.TxKindJoin, account, asset, notes[:MaxJoinInputs], nil,
		)
		if err != nil {
			return nil, err
		}
		// The aggregate is larger than any remaining note, so the new list is
		// still sorted.
		next := make([]domain.Note, 0, len(notes)-MaxJoinInputs+1)
		next = append(next, outputs[0])
		next = append(next, notes[MaxJoinInputs:]...)
		notes = next
	}
}

// combine consumes the inputs in a single transaction and returns the
// outputs, the first being the target (or aggregate) note.
func (s *Service) combine(
	ctx context.Context, kind ports.TxKind, account ports.Account,
	asset string, inputs []domain.Note, amount *uint256.Int,
) ([]domain.Note, error) {
	if err := s.txs.ValidateActive(ctx, account, inputs); err != nil {
		return nil, err
	}

	req := ports.PrepareRequest{
		Kind:    kind,
		Account: account,
		Asset:   asset,
		Inputs:  inputs,
	}
	if amount != nil {
		req.Amount.Set(amount)
	}

	result, err := s.txs.SubmitExpecting(ctx, req, ports.NoteOnChainStatusSpent)
	if err != nil {
		return nil, err
	}
	if len(result.Tx.Outputs) <= 0 {
		return nil, fmt.Errorf("%s produced no outputs", kind)
	}

	if err := s.ledger.SpendNotes(ctx, inputs); err != nil {
		return nil, err
	}
	if err := s.ledger.ActivateNotes(ctx, result.Tx.Outputs, result.TxHash); err != nil {
		return nil, err
	}

	outputs := make([]domain.Note, 0, len(result.Tx.Outputs))
	for _, out := range result.Tx.Outputs {
		out.Status = domain.NoteStatusActive
		out.TxHashCreated = result.TxHash
		outputs = append(outputs, out)
	}
	log.WithField("tx", result.TxHash).Infof(
		"%s of %d %s notes into %s", kind, len(inputs), asset,
		outputs[0].AmountString(),
	)
	return outputs, nil
}
