package ledger

import (
	"context"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

// Balance is the Active and Locked total of an asset.
type Balance struct {
	Asset  string
	Active uint256.Int
	Locked uint256.Int
}

// Service is the persistent record of the notes owned by the wallets of the
// daemon. It never talks to the chain.
type Service struct {
	repoManager ports.RepoManager
}

func NewService(repoManager ports.RepoManager) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	return &Service{repoManager}, nil
}

// RecordNote stores the note with the given initial status. Recording an
// already known commitment is a no-op that returns false.
func (s *Service) RecordNote(
	ctx context.Context, note domain.Note, status domain.NoteStatus,
) (bool, error) {
	note.Wallet = domain.NormalizeAddress(note.Wallet)
	note.Asset = domain.NormalizeAddress(note.Asset)
	note.Status = status

	added, err := s.repoManager.NoteRepository().AddNote(ctx, note)
	if err != nil {
		return false, err
	}
	if added {
		log.Debugf(
			"recorded note %s of %s %s as %s",
			note.Commitment, note.AmountString(), note.Asset, status,
		)
	}
	return added, nil
}

// Transition moves the note to the given status if the lifecycle allows it.
func (s *Service) Transition(
	ctx context.Context, commitment, wallet string, chainID uint64,
	status domain.NoteStatus,
) error {
	return s.repoManager.NoteRepository().UpdateNote(
		ctx, commitment, func(n *domain.Note) (*domain.Note, error) {
			if !n.BelongsTo(wallet, chainID) {
				return nil, fmt.Errorf(
					"%w: note %s", domain.ErrNoteOwnerMismatch, commitment,
				)
			}
			if _, err := n.TransitionTo(status); err != nil {
				return nil, err
			}
			return n, nil
		},
	)
}

// ActivateNotes brings the given Created notes to Active, tagging them with
// the hash of the transaction that produced them. The batch is not atomic.
func (s *Service) ActivateNotes(
	ctx context.Context, notes []domain.Note, txHash string,
) error {
	for _, note := range notes {
		if err := s.repoManager.NoteRepository().UpdateNote(
			ctx, note.Commitment, func(n *domain.Note) (*domain.Note, error) {
				if _, err := n.Activate(txHash); err != nil {
					return nil, err
				}
				return n, nil
			},
		); err != nil {
			return fmt.Errorf("activating note %s: %w", note.Commitment, err)
		}
	}
	return nil
}

// SpendNotes marks the given notes as Spent. The batch is not atomic.
func (s *Service) SpendNotes(ctx context.Context, notes []domain.Note) error {
	for _, note := range notes {
		if err := s.Transition(
			ctx, note.Commitment, note.Wallet, note.ChainID, domain.NoteStatusSpent,
		); err != nil {
			return fmt.Errorf("spending note %s: %w", note.Commitment, err)
		}
	}
	return nil
}

// ListSpendable returns the balance notes of the wallet for the asset with
// any of the given statuses, Active if none is given. Callers sort.
func (s *Service) ListSpendable(
	ctx context.Context, wallet string, chainID uint64, asset string,
	statuses ...domain.NoteStatus,
) ([]domain.Note, error) {
	if len(statuses) <= 0 {
		statuses = []domain.NoteStatus{domain.NoteStatusActive}
	}
	notes, err := s.repoManager.NoteRepository().GetNotesByAsset(
		ctx, wallet, chainID, asset, statuses...,
	)
	if err != nil {
		return nil, err
	}

	spendable := make([]domain.Note, 0, len(notes))
	for _, n := range notes {
		if n.Type == domain.NoteTypeBalance {
			spendable = append(spendable, n)
		}
	}
	return spendable, nil
}

func (s *Service) GetByCommitment(
	ctx context.Context, commitment string,
) (*domain.Note, error) {
	return s.repoManager.NoteRepository().GetNote(ctx, commitment)
}

// Balances returns the Active and Locked totals per asset of the wallet on
// the chain.
func (s *Service) Balances(
	ctx context.Context, wallet string, chainID uint64,
) ([]Balance, error) {
	notes, err := s.repoManager.NoteRepository().GetNotesForAccount(
		ctx, wallet, chainID,
	)
	if err != nil {
		return nil, err
	}
	return aggregateBalances(notes), nil
}

// AllBalances returns the balances of the wallet grouped by chain.
func (s *Service) AllBalances(
	ctx context.Context, wallet string,
) (map[uint64][]Balance, error) {
	notes, err := s.repoManager.NoteRepository().GetNotesForWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}

	notesByChain := make(map[uint64][]domain.Note)
	for _, n := range notes {
		notesByChain[n.ChainID] = append(notesByChain[n.ChainID], n)
	}

	balances := make(map[uint64][]Balance, len(notesByChain))
	for chainID, notes := range notesByChain {
		balances[chainID] = aggregateBalances(notes)
	}
	return balances, nil
}
