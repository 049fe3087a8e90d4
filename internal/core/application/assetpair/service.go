// Package assetpair mirrors the tradable pairs of the matching service in
// the local store.
package assetpair

import (
	"context"
	"errors"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type Service struct {
	repoManager ports.RepoManager
	booknode    ports.Booknode
}

func NewService(
	repoManager ports.RepoManager, booknode ports.Booknode,
) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if booknode == nil {
		return nil, fmt.Errorf("missing booknode client")
	}
	return &Service{repoManager, booknode}, nil
}

// SyncAssetPairs stores every pair listed by the booknode that is not known
// yet and returns how many were added.
func (s *Service) SyncAssetPairs(ctx context.Context) (int, error) {
	pairs, err := s.booknode.GetAssetPairs(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, pair := range pairs {
		added, err := s.add(ctx, pair)
		if err != nil {
			return count, err
		}
		if added {
			count++
		}
	}
	if count > 0 {
		log.Infof("synced %d new asset pairs", count)
	}
	return count, nil
}

// SyncAssetPair fetches a single pair from the booknode and stores it if
// absent. Stored pairs are never updated.
func (s *Service) SyncAssetPair(
	ctx context.Context, id string,
) (*domain.AssetPair, error) {
	pair, err := s.booknode.GetAssetPair(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.add(ctx, *pair); err != nil {
		return nil, err
	}
	return s.repoManager.AssetPairRepository().GetAssetPair(ctx, id)
}

// GetAssetPair returns the stored pair, fetching it from the booknode on a
// miss.
func (s *Service) GetAssetPair(
	ctx context.Context, id string,
) (*domain.AssetPair, error) {
	pair, err := s.repoManager.AssetPairRepository().GetAssetPair(ctx, id)
	if err == nil {
		return pair, nil
	}
	if !errors.Is(err, domain.ErrAssetPairNotFound) {
		return nil, err
	}
	return s.SyncAssetPair(ctx, id)
}

func (s *Service) ListAssetPairs(ctx context.Context) ([]domain.AssetPair, error) {
	return s.repoManager.AssetPairRepository().GetAllAssetPairs(ctx)
}

func (s *Service) add(ctx context.Context, pair domain.AssetPair) (bool, error) {
	if len(pair.ID) <= 0 {
		return false, fmt.Errorf("asset pair is missing id")
	}
	pair.Base.Address = domain.NormalizeAddress(pair.Base.Address)
	pair.Quote.Address = domain.NormalizeAddress(pair.Quote.Address)
	return s.repoManager.AssetPairRepository().AddAssetPair(ctx, pair)
}
