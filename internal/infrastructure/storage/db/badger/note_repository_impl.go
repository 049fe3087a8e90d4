package dbbadger

import (
	"context"
	"sort"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type noteRepositoryImpl struct {
	store *badgerhold.Store
}

func newNoteRepositoryImpl(store *badgerhold.Store) domain.NoteRepository {
	return &noteRepositoryImpl{store}
}

func (r *noteRepositoryImpl) AddNote(
	_ context.Context, note domain.Note,
) (bool, error) {
	if err := r.store.Insert(note.Commitment, &note); err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *noteRepositoryImpl) GetNote(
	_ context.Context, commitment string,
) (*domain.Note, error) {
	return r.getNote(commitment)
}

func (r *noteRepositoryImpl) UpdateNote(
	_ context.Context, commitment string,
	updateFn func(n *domain.Note) (*domain.Note, error),
) error {
	note, err := r.getNote(commitment)
	if err != nil {
		return err
	}

	updatedNote, err := updateFn(note)
	if err != nil {
		return err
	}

	return r.store.Update(commitment, updatedNote)
}

func (r *noteRepositoryImpl) GetNotesForAccount(
	_ context.Context, wallet string, chainID uint64,
) ([]domain.Note, error) {
	query := badgerhold.Where("Wallet").Eq(domain.NormalizeAddress(wallet)).
		And("ChainID").Eq(chainID)
	return r.findNotes(query)
}

func (r *noteRepositoryImpl) GetNotesForWallet(
	_ context.Context, wallet string,
) ([]domain.Note, error) {
	query := badgerhold.Where("Wallet").Eq(domain.NormalizeAddress(wallet))
	return r.findNotes(query)
}

func (r *noteRepositoryImpl) GetNotesByAsset(
	_ context.Context, wallet string, chainID uint64, asset string,
	statuses ...domain.NoteStatus,
) ([]domain.Note, error) {
	query := badgerhold.Where("Wallet").Eq(domain.NormalizeAddress(wallet)).
		And("ChainID").Eq(chainID).
		And("Asset").Eq(domain.NormalizeAddress(asset))
	if len(statuses) > 0 {
		values := make([]interface{}, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, s)
		}
		query = query.And("Status").In(values...)
	}
	return r.findNotes(query)
}

func (r *noteRepositoryImpl) getNote(commitment string) (*domain.Note, error) {
	var note domain.Note
	if err := r.store.Get(commitment, &note); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrNoteNotFound
		}
		return nil, err
	}
	return &note, nil
}

func (r *noteRepositoryImpl) findNotes(
	query *badgerhold.Query,
) ([]domain.Note, error) {
	var notes []domain.Note
	if err := r.store.Find(&notes, query); err != nil {
		return nil, err
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt < notes[j].CreatedAt
	})
	return notes, nil
}
