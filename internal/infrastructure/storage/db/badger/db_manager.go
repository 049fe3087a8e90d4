package dbbadger

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	notesDir       = "notes"
	ordersDir      = "orders"
	eventsDir      = "events"
	assetPairsDir  = "assetpairs"
	valueLogGCTick = 30 * time.Minute
)

type repoManager struct {
	stores []*badgerhold.Store

	noteRepository       domain.NoteRepository
	orderRepository      domain.OrderRepository
	orderEventRepository *orderEventRepositoryImpl
	assetPairRepository  domain.AssetPairRepository
}

// NewRepoManager opens (or creates if not exists) the badger stores on disk.
// Every repository gets a dedicated store under baseDbDir. If baseDbDir is
// empty, the stores are kept in memory.
func NewRepoManager(
	baseDbDir string, logger badger.Logger,
) (ports.RepoManager, error) {
	var notesDbDir, ordersDbDir, eventsDbDir, assetPairsDbDir string
	if len(baseDbDir) > 0 {
		notesDbDir = filepath.Join(baseDbDir, notesDir)
		ordersDbDir = filepath.Join(baseDbDir, ordersDir)
		eventsDbDir = filepath.Join(baseDbDir, eventsDir)
		assetPairsDbDir = filepath.Join(baseDbDir, assetPairsDir)
	}

	noteDb, err := createDb(notesDbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening notes db: %w", err)
	}

	orderDb, err := createDb(ordersDbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening orders db: %w", err)
	}

	eventDb, err := createDb(eventsDbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening order events db: %w", err)
	}

	assetPairDb, err := createDb(assetPairsDbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening asset pairs db: %w", err)
	}

	eventRepo, err := newOrderEventRepositoryImpl(eventDb)
	if err != nil {
		return nil, fmt.Errorf("opening order events sequence: %w", err)
	}

	return &repoManager{
		stores:               []*badgerhold.Store{noteDb, orderDb, eventDb, assetPairDb},
		noteRepository:       newNoteRepositoryImpl(noteDb),
		orderRepository:      newOrderRepositoryImpl(orderDb),
		orderEventRepository: eventRepo,
		assetPairRepository:  newAssetPairRepositoryImpl(assetPairDb),
	}, nil
}

func (d *repoManager) NoteRepository() domain.NoteRepository {
	return d.noteRepository
}

func (d *repoManager) OrderRepository() domain.OrderRepository {
	return d.orderRepository
}

func (d *repoManager) OrderEventRepository() domain.OrderEventRepository {
	return d.orderEventRepository
}

func (d *repoManager) AssetPairRepository() domain.AssetPairRepository {
	return d.assetPairRepository
}

func (d *repoManager) Close() {
	d.orderEventRepository.close()
	for _, store := range d.stores {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("error while closing store")
		}
	}
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(valueLogGCTick)

		go func() {
			for range ticker.C {
				if db.Badger().IsClosed() {
					ticker.Stop()
					return
				}
				if err := db.Badger().RunValueLogGC(0.5); err != nil &&
					err != badger.ErrNoRewrite {
					log.Error(err)
				}
			}
		}()
	}

	return db, nil
}
