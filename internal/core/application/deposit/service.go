// Package deposit brings funds of a wallet into the note ledger. The deposit
// operation mints one note for the account on chain, and the note becomes
// spendable once the receipt shows up.
package deposit

import (
	"context"
	"errors"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/chaintx"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/ledger"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/walletmutex"
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrMissingAsset ...
	ErrMissingAsset = errors.New("deposit asset must not be empty")
)

type Service struct {
	locks  *walletmutex.Registry
	ledger *ledger.Service
	txs    *chaintx.Service
}

func NewService(
	locks *walletmutex.Registry, ledgerSvc *ledger.Service,
	txSvc *chaintx.Service,
) (*Service, error) {
	if locks == nil {
		return nil, fmt.Errorf("missing wallet lock registry")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("missing ledger service")
	}
	if txSvc == nil {
		return nil, fmt.Errorf("missing chain tx service")
	}
	return &Service{locks, ledgerSvc, txSvc}, nil
}

// Deposit mints a note of the given amount for the account while holding the
// wallet lock. The note is journaled as Created before broadcasting and
// activated after the receipt. If the receipt did not show up in time the
// note is activated anyway when the chain already reports it Active,
// otherwise it stays Created and ErrReceiptTimeout is returned.
func (s *Service) Deposit(
	ctx context.Context, account ports.Account, asset string,
	amount *uint256.Int,
) (*domain.Note, error) {
	if len(asset) <= 0 {
		return nil, ErrMissingAsset
	}
	if amount == nil || amount.IsZero() {
		return nil, domain.ErrNoteInvalidAmount
	}

	var deposited *domain.Note
	if err := s.locks.WithLock(
		ctx, account.ChainID, account.Wallet, func(ctx context.Context) error {
			note, err := s.deposit(ctx, account, asset, amount)
			if err != nil {
				return err
			}
			deposited = note
			return nil
		},
	); err != nil {
		return nil, err
	}
	return deposited, nil
}

func (s *Service) deposit(
	ctx context.Context, account ports.Account, asset string,
	amount *uint256.Int,
) (*domain.Note, error) {
	req := ports.PrepareRequest{
		Kind:    ports.TxKindDeposit,
		Account: account,
		Asset:   asset,
	}
	req.Amount.Set(amount)

	result, err := s.txs.Submit(ctx, req)
	if err != nil {
		if !errors.Is(err, chaintx.ErrReceiptTimeout) || result == nil {
			return nil, err
		}
		landed, cerr := s.txs.AllInStatus(
			ctx, account, result.Tx.Outputs, ports.NoteOnChainStatusActive,
		)
		if cerr != nil || !landed {
			return nil, err
		}
		log.WithField("tx", result.TxHash).Warn(
			"deposit receipt not received in time but the note is active on chain",
		)
	}
	if len(result.Tx.Outputs) != 1 {
		return nil, fmt.Errorf(
			"deposit %s produced %d notes, expected one",
			result.TxHash, len(result.Tx.Outputs),
		)
	}

	if err := s.ledger.ActivateNotes(
		ctx, result.Tx.Outputs, result.TxHash,
	); err != nil {
		return nil, err
	}
	note, err := s.ledger.GetByCommitment(ctx, result.Tx.Outputs[0].Commitment)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"wallet": account.Wallet,
		"chain":  account.ChainID,
		"asset":  asset,
		"amount": amount.Dec(),
		"tx":     result.TxHash,
	}).Info("deposit confirmed")
	return note, nil
}
