package inmemory

import (
	"sync"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
)

type noteInmemoryStore struct {
	notes          map[string]domain.Note
	notesByAccount map[string][]string
	locker         *sync.Mutex
}

type orderInmemoryStore struct {
	orders map[string]domain.Order
	locker *sync.Mutex
}

type orderEventInmemoryStore struct {
	events     []domain.OrderEvent
	eventsByID map[string]struct{}
	locker     *sync.Mutex
}

type assetPairInmemoryStore struct {
	pairs  map[string]domain.AssetPair
	locker *sync.RWMutex
}

type RepoManager struct {
	noteRepository       domain.NoteRepository
	orderRepository      domain.OrderRepository
	orderEventRepository domain.OrderEventRepository
	assetPairRepository  domain.AssetPairRepository
}

func NewRepoManager() ports.RepoManager {
	noteStore := &noteInmemoryStore{
		notes:          map[string]domain.Note{},
		notesByAccount: map[string][]string{},
		locker:         &sync.Mutex{},
	}
	orderStore := &orderInmemoryStore{
		orders: map[string]domain.Order{},
		locker: &sync.Mutex{},
	}
	eventStore := &orderEventInmemoryStore{
		events:     make([]domain.OrderEvent, 0),
		eventsByID: map[string]struct{}{},
		locker:     &sync.Mutex{},
	}
	assetPairStore := &assetPairInmemoryStore{
		pairs:  map[string]domain.AssetPair{},
		locker: &sync.RWMutex{},
	}

	return &RepoManager{
		noteRepository:       NewNoteRepositoryImpl(noteStore),
		orderRepository:      NewOrderRepositoryImpl(orderStore),
		orderEventRepository: NewOrderEventRepositoryImpl(eventStore),
		assetPairRepository:  NewAssetPairRepositoryImpl(assetPairStore),
	}
}

func (d *RepoManager) NoteRepository() domain.NoteRepository {
	return d.noteRepository
}

func (d *RepoManager) OrderRepository() domain.OrderRepository {
	return d.orderRepository
}

func (d *RepoManager) OrderEventRepository() domain.OrderEventRepository {
	return d.orderEventRepository
}

func (d *RepoManager) AssetPairRepository() domain.AssetPairRepository {
	return d.assetPairRepository
}

func (d *RepoManager) Close() {}
