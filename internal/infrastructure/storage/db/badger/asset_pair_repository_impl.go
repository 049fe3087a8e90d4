package dbbadger

import (
	"context"
	"sort"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type assetPairRepositoryImpl struct {
	store *badgerhold.Store
}

func newAssetPairRepositoryImpl(
	store *badgerhold.Store,
) domain.AssetPairRepository {
	return &assetPairRepositoryImpl{store}
}

func (r *assetPairRepositoryImpl) AddAssetPair(
	_ context.Context, pair domain.AssetPair,
) (bool, error) {
	if err := r.store.Insert(pair.ID, &pair); err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *assetPairRepositoryImpl) GetAssetPair(
	_ context.Context, id string,
) (*domain.AssetPair, error) {
	var pair domain.AssetPair
	if err := r.store.Get(id, &pair); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrAssetPairNotFound
		}
		return nil, err
	}
	return &pair, nil
}

func (r *assetPairRepositoryImpl) GetAllAssetPairs(
	_ context.Context,
) ([]domain.AssetPair, error) {
	var pairs []domain.AssetPair
	if err := r.store.Find(&pairs, nil); err != nil {
		return nil, err
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ID < pairs[j].ID })
	return pairs, nil
}
