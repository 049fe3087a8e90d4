package domain

import "context"

// NoteRepository is the abstraction for the persistence of notes. Writes are
// atomic per note only.
type NoteRepository interface {
	// AddNote inserts the note if no other note with the same commitment
	// exists. It returns whether the note was added.
	AddNote(ctx context.Context, note Note) (bool, error)
	// GetNote returns the note with the given commitment or ErrNoteNotFound.
	GetNote(ctx context.Context, commitment string) (*Note, error)
	// UpdateNote applies updateFn to the stored note and persists the result.
	UpdateNote(
		ctx context.Context, commitment string,
		updateFn func(n *Note) (*Note, error),
	) error
	// GetNotesForAccount returns all notes of a wallet on a chain.
	GetNotesForAccount(
		ctx context.Context, wallet string, chainID uint64,
	) ([]Note, error)
	// GetNotesForWallet returns all notes of a wallet on any chain.
	GetNotesForWallet(ctx context.Context, wallet string) ([]Note, error)
	// GetNotesByAsset returns the notes of a wallet for an asset having any of
	// the given statuses.
	GetNotesByAsset(
		ctx context.Context, wallet string, chainID uint64, asset string,
		statuses ...NoteStatus,
	) ([]Note, error)
}

// OrderRepository is the abstraction for the persistence of orders.
type OrderRepository interface {
	// AddOrder inserts a new order or returns ErrDuplicateOrder.
	AddOrder(ctx context.Context, order Order) error
	// GetOrder returns the order with the given id or ErrOrderNotFound.
	GetOrder(ctx context.Context, id string) (*Order, error)
	// UpdateOrder applies updateFn to the stored order and persists the result.
	UpdateOrder(
		ctx context.Context, id string,
		updateFn func(o *Order) (*Order, error),
	) error
	// GetAllOrders returns all orders, paginated if page is not nil.
	GetAllOrders(ctx context.Context, page *Page) ([]Order, error)
	// GetOrdersByStatus returns the orders with the given status, paginated
	// if page is not nil.
	GetOrdersByStatus(
		ctx context.Context, status OrderStatus, page *Page,
	) ([]Order, error)
}

// OrderEventRepository is the abstraction for the append-only log of order
// status changes.
type OrderEventRepository interface {
	// AddEvent appends the event, assigning it the next id, unless an event
	// for the same order and status already exists. It returns whether the
	// event was added.
	AddEvent(ctx context.Context, event OrderEvent) (bool, error)
	// GetEventsForOrder returns the events of an order, newest first.
	GetEventsForOrder(ctx context.Context, orderID string) ([]OrderEvent, error)
	// GetEventsAfter returns at most limit events with id greater than
	// lastID, in ascending id order.
	GetEventsAfter(
		ctx context.Context, lastID uint64, limit int,
	) ([]OrderEvent, error)
}

// AssetPairRepository is the abstraction for the persistence of asset pairs.
type AssetPairRepository interface {
	// AddAssetPair inserts the pair if absent. It returns whether the pair
	// was added.
	AddAssetPair(ctx context.Context, pair AssetPair) (bool, error)
	// GetAssetPair returns the pair with the given id or ErrAssetPairNotFound.
	GetAssetPair(ctx context.Context, id string) (*AssetPair, error)
	GetAllAssetPairs(ctx context.Context) ([]AssetPair, error)
}
