package inmemory

import (
	"context"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
)

type noteRepositoryImpl struct {
	store *noteInmemoryStore
}

// NewNoteRepositoryImpl returns a new inmemory NoteRepository implementation.
func NewNoteRepositoryImpl(store *noteInmemoryStore) domain.NoteRepository {
	return &noteRepositoryImpl{store}
}

func (r *noteRepositoryImpl) AddNote(
	_ context.Context, note domain.Note,
) (bool, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if _, ok := r.store.notes[note.Commitment]; ok {
		return false, nil
	}

	r.store.notes[note.Commitment] = note
	key := accountKey(note.Wallet, note.ChainID)
	r.store.notesByAccount[key] = append(
		r.store.notesByAccount[key], note.Commitment,
	)
	return true, nil
}

func (r *noteRepositoryImpl) GetNote(
	_ context.Context, commitment string,
) (*domain.Note, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	note, ok := r.store.notes[commitment]
	if !ok {
		return nil, domain.ErrNoteNotFound
	}
	return &note, nil
}

func (r *noteRepositoryImpl) UpdateNote(
	_ context.Context, commitment string,
	updateFn func(n *domain.Note) (*domain.Note, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	note, ok := r.store.notes[commitment]
	if !ok {
		return domain.ErrNoteNotFound
	}

	updatedNote, err := updateFn(&note)
	if err != nil {
		return err
	}

	r.store.notes[commitment] = *updatedNote
	return nil
}

func (r *noteRepositoryImpl) GetNotesForAccount(
	_ context.Context, wallet string, chainID uint64,
) ([]domain.Note, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	return r.getNotesForAccount(wallet, chainID, nil), nil
}

func (r *noteRepositoryImpl) GetNotesForWallet(
	_ context.Context, wallet string,
) ([]domain.Note, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	wallet = domain.NormalizeAddress(wallet)
	notes := make([]domain.Note, 0)
	for _, n := range r.store.notes {
		if n.Wallet == wallet {
			notes = append(notes, n)
		}
	}
	return notes, nil
}

func (r *noteRepositoryImpl) GetNotesByAsset(
	_ context.Context, wallet string, chainID uint64, asset string,
	statuses ...domain.NoteStatus,
) ([]domain.Note, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	asset = domain.NormalizeAddress(asset)
	return r.getNotesForAccount(wallet, chainID, func(n domain.Note) bool {
		if n.Asset != asset {
			return false
		}
		if len(statuses) <= 0 {
			return true
		}
		for _, s := range statuses {
			if n.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (r *noteRepositoryImpl) getNotesForAccount(
	wallet string, chainID uint64, filter func(domain.Note) bool,
) []domain.Note {
	commitments := r.store.notesByAccount[accountKey(wallet, chainID)]
	notes := make([]domain.Note, 0, len(commitments))
	for _, c := range commitments {
		n := r.store.notes[c]
		if filter == nil || filter(n) {
			notes = append(notes, n)
		}
	}
	return notes
}

func accountKey(wallet string, chainID uint64) string {
	return fmt.Sprintf("%d:%s", chainID, domain.NormalizeAddress(wallet))
}
