package ports

import "github.com/darkswap-network/darkswap-daemon/internal/core/domain"

// RepoManager gives access to all repositories of the daemon.
type RepoManager interface {
	NoteRepository() domain.NoteRepository
	OrderRepository() domain.OrderRepository
	OrderEventRepository() domain.OrderEventRepository
	AssetPairRepository() domain.AssetPairRepository
	Close()
}
