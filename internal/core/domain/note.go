package domain

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
)

// NewNote returns a note in Created status, the state of every note produced
// by a chain operation that has not been confirmed yet.
func NewNote(
	commitment string, chainID uint64, wallet, publicKey, asset string,
	amount *uint256.Int, rho string,
) (*Note, error) {
	if len(commitment) <= 0 {
		return nil, ErrNoteMissingCommitment
	}
	if amount == nil || amount.IsZero() {
		return nil, ErrNoteInvalidAmount
	}
	now := time.Now().Unix()
	n := &Note{
		Commitment: commitment,
		ChainID:    chainID,
		Wallet:     NormalizeAddress(wallet),
		PublicKey:  publicKey,
		Type:       NoteTypeBalance,
		Asset:      NormalizeAddress(asset),
		Rho:        rho,
		Status:     NoteStatusCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	n.Amount.Set(amount)
	return n, nil
}

// Activate brings a Created note to Active once the transaction that
// produced it has been confirmed. A Locked note is brought back to Active
// instead, see Unlock.
func (n *Note) Activate(txHash string) (bool, error) {
	if n.Status == NoteStatusActive {
		return false, nil
	}
	if n.Status == NoteStatusLocked {
		return n.Unlock()
	}
	if n.Status != NoteStatusCreated {
		return false, n.invalidTransition(NoteStatusActive)
	}
	if len(txHash) > 0 {
		n.TxHashCreated = txHash
	}
	n.setStatus(NoteStatusActive)
	return true, nil
}

// Lock pledges an Active note as collateral of an order.
func (n *Note) Lock() (bool, error) {
	if n.Status == NoteStatusLocked {
		return false, nil
	}
	if n.Status != NoteStatusActive {
		return false, n.invalidTransition(NoteStatusLocked)
	}
	n.setStatus(NoteStatusLocked)
	return true, nil
}

// Unlock releases a Locked note, making it spendable again.
func (n *Note) Unlock() (bool, error) {
	if n.Status == NoteStatusActive {
		return false, nil
	}
	if n.Status != NoteStatusLocked {
		return false, n.invalidTransition(NoteStatusActive)
	}
	n.setStatus(NoteStatusActive)
	return true, nil
}

// Spend marks the note as consumed. Spent is terminal.
func (n *Note) Spend() (bool, error) {
	if n.Status == NoteStatusSpent {
		return false, nil
	}
	if n.Status != NoteStatusActive && n.Status != NoteStatusLocked {
		return false, n.invalidTransition(NoteStatusSpent)
	}
	n.setStatus(NoteStatusSpent)
	return true, nil
}

// TransitionTo applies the transition towards the given status, if allowed.
func (n *Note) TransitionTo(status NoteStatus) (bool, error) {
	switch status {
	case NoteStatusActive:
		return n.Activate("")
	case NoteStatusLocked:
		return n.Lock()
	case NoteStatusSpent:
		return n.Spend()
	case NoteStatusCreated:
		if n.Status == NoteStatusCreated {
			return false, nil
		}
	}
	return false, n.invalidTransition(status)
}

func (n *Note) setStatus(status NoteStatus) {
	n.Status = status
	n.UpdatedAt = time.Now().Unix()
}

func (n *Note) invalidTransition(to NoteStatus) error {
	return fmt.Errorf(
		"%w: note %s from %s to %s",
		ErrInvalidNoteTransition, n.Commitment, n.Status, to,
	)
}
