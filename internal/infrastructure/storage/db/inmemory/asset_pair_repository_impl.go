package inmemory

import (
	"context"
	"sort"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
)

type assetPairRepositoryImpl struct {
	store *assetPairInmemoryStore
}

// NewAssetPairRepositoryImpl returns a new inmemory AssetPairRepository
// implementation.
func NewAssetPairRepositoryImpl(
	store *assetPairInmemoryStore,
) domain.AssetPairRepository {
	return &assetPairRepositoryImpl{store}
}

func (r *assetPairRepositoryImpl) AddAssetPair(
	_ context.Context, pair domain.AssetPair,
) (bool, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if _, ok := r.store.pairs[pair.ID]; ok {
		return false, nil
	}
	r.store.pairs[pair.ID] = pair
	return true, nil
}

func (r *assetPairRepositoryImpl) GetAssetPair(
	_ context.Context, id string,
) (*domain.AssetPair, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	pair, ok := r.store.pairs[id]
	if !ok {
		return nil, domain.ErrAssetPairNotFound
	}
	return &pair, nil
}

func (r *assetPairRepositoryImpl) GetAllAssetPairs(
	_ context.Context,
) ([]domain.AssetPair, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	pairs := make([]domain.AssetPair, 0, len(r.store.pairs))
	for _, p := range r.store.pairs {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ID < pairs[j].ID })
	return pairs, nil
}
