package application

import (
	"fmt"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/assetpair"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/chaintx"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/deposit"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/ledger"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/notification"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/order"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/pubsub"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/reconciler"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/selection"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/settlement"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/walletmutex"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	dbbadger "github.com/darkswap-network/darkswap-daemon/internal/infrastructure/storage/db/badger"
	"github.com/darkswap-network/darkswap-daemon/internal/infrastructure/storage/db/inmemory"
	log "github.com/sirupsen/logrus"
)

const (
	DBBadger   = "badger"
	DBInMemory = "inmemory"
)

var (
	SupportedDBType = map[string]struct{}{
		DBBadger:   {},
		DBInMemory: {},
	}
)

// Config holds the external collaborators of the daemon and lazily builds
// the application services on top of them.
type Config struct {
	DBType   string
	DBConfig interface{}

	ChainService      ports.ChainService
	ChainIndexer      ports.ChainIndexer
	Booknode          ports.Booknode
	Publishers        []ports.Publisher
	Metrics           ports.Metrics
	ReceiptTimeout    time.Duration
	ReconcileInterval time.Duration
	// Wallets are the addresses, by chain id, whose locks are created
	// upfront.
	Wallets map[uint64][]string

	repo       ports.RepoManager
	locks      *walletmutex.Registry
	ledger     *ledger.Service
	chaintx    *chaintx.Service
	selection  *selection.Service
	deposit    *deposit.Service
	assetPair  *assetpair.Service
	pubsub     *pubsub.Service
	order      *order.Service
	settlement *settlement.Service
	processor  *notification.Processor
	reconciler *reconciler.Service
}

func (c *Config) Validate() error {
	if _, ok := SupportedDBType[c.DBType]; !ok {
		return fmt.Errorf("unsupported db type %s", c.DBType)
	}
	if c.ChainService == nil {
		return fmt.Errorf("missing chain service")
	}
	if c.ChainIndexer == nil {
		return fmt.Errorf("missing chain indexer")
	}
	if c.Booknode == nil {
		return fmt.Errorf("missing booknode client")
	}
	if c.ReceiptTimeout <= 0 {
		return fmt.Errorf("receipt timeout must be positive")
	}
	if c.Metrics == nil {
		c.Metrics = ports.NopMetrics{}
	}

	if _, err := c.repoManager(); err != nil {
		return err
	}
	if _, err := c.notificationProcessor(); err != nil {
		return err
	}
	if _, err := c.reconcilerService(); err != nil {
		return err
	}
	if _, err := c.depositService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RepoManager() ports.RepoManager {
	svc, _ := c.repoManager()
	return svc
}

func (c *Config) WalletLocks() *walletmutex.Registry {
	return c.walletLocks()
}

func (c *Config) LedgerService() *ledger.Service {
	svc, _ := c.ledgerService()
	return svc
}

func (c *Config) SelectionService() *selection.Service {
	svc, _ := c.selectionService()
	return svc
}

func (c *Config) DepositService() *deposit.Service {
	svc, _ := c.depositService()
	return svc
}

func (c *Config) AssetPairService() *assetpair.Service {
	svc, _ := c.assetPairService()
	return svc
}

func (c *Config) OrderService() *order.Service {
	svc, _ := c.orderService()
	return svc
}

func (c *Config) SettlementService() *settlement.Service {
	svc, _ := c.settlementService()
	return svc
}

func (c *Config) NotificationProcessor() *notification.Processor {
	svc, _ := c.notificationProcessor()
	return svc
}

func (c *Config) ReconcilerService() *reconciler.Service {
	svc, _ := c.reconcilerService()
	return svc
}

func (c *Config) repoManager() (ports.RepoManager, error) {
	if c.repo == nil {
		switch c.DBType {
		case DBBadger:
			datadir, _ := c.DBConfig.(string)
			repoManager, err := dbbadger.NewRepoManager(datadir, log.New())
			if err != nil {
				return nil, err
			}
			c.repo = repoManager
		case DBInMemory:
			c.repo = inmemory.NewRepoManager()
		default:
			return nil, fmt.Errorf("unsupported db type %s", c.DBType)
		}
	}
	return c.repo, nil
}

func (c *Config) walletLocks() *walletmutex.Registry {
	if c.locks == nil {
		c.locks = walletmutex.NewRegistry()
		for chainID, wallets := range c.Wallets {
			c.locks.Warm(chainID, wallets)
		}
	}
	return c.locks
}

func (c *Config) ledgerService() (*ledger.Service, error) {
	if c.ledger == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		svc, err := ledger.NewService(repo)
		if err != nil {
			return nil, err
		}
		c.ledger = svc
	}
	return c.ledger, nil
}

func (c *Config) chainTxService() (*chaintx.Service, error) {
	if c.chaintx == nil {
		ledgerSvc, err := c.ledgerService()
		if err != nil {
			return nil, err
		}
		svc, err := chaintx.NewService(
			c.ChainService, ledgerSvc, c.Metrics, c.ReceiptTimeout,
		)
		if err != nil {
			return nil, err
		}
		c.chaintx = svc
	}
	return c.chaintx, nil
}

func (c *Config) selectionService() (*selection.Service, error) {
	if c.selection == nil {
		ledgerSvc, err := c.ledgerService()
		if err != nil {
			return nil, err
		}
		txSvc, err := c.chainTxService()
		if err != nil {
			return nil, err
		}
		svc, err := selection.NewService(ledgerSvc, txSvc)
		if err != nil {
			return nil, err
		}
		c.selection = svc
	}
	return c.selection, nil
}

func (c *Config) depositService() (*deposit.Service, error) {
	if c.deposit == nil {
		ledgerSvc, err := c.ledgerService()
		if err != nil {
			return nil, err
		}
		txSvc, err := c.chainTxService()
		if err != nil {
			return nil, err
		}
		svc, err := deposit.NewService(c.walletLocks(), ledgerSvc, txSvc)
		if err != nil {
			return nil, err
		}
		c.deposit = svc
	}
	return c.deposit, nil
}

func (c *Config) assetPairService() (*assetpair.Service, error) {
	if c.assetPair == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		svc, err := assetpair.NewService(repo, c.Booknode)
		if err != nil {
			return nil, err
		}
		c.assetPair = svc
	}
	return c.assetPair, nil
}

func (c *Config) pubsubService() *pubsub.Service {
	if c.pubsub == nil {
		c.pubsub = pubsub.NewService(c.Publishers...)
	}
	return c.pubsub
}

func (c *Config) orderService() (*order.Service, error) {
	if c.order == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		ledgerSvc, err := c.ledgerService()
		if err != nil {
			return nil, err
		}
		selectionSvc, err := c.selectionService()
		if err != nil {
			return nil, err
		}
		txSvc, err := c.chainTxService()
		if err != nil {
			return nil, err
		}
		assetPairSvc, err := c.assetPairService()
		if err != nil {
			return nil, err
		}
		svc, err := order.NewService(
			c.walletLocks(), repo, ledgerSvc, selectionSvc, txSvc, assetPairSvc,
			c.Booknode, c.pubsubService(),
		)
		if err != nil {
			return nil, err
		}
		c.order = svc
	}
	return c.order, nil
}

func (c *Config) settlementService() (*settlement.Service, error) {
	if c.settlement == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		ledgerSvc, err := c.ledgerService()
		if err != nil {
			return nil, err
		}
		txSvc, err := c.chainTxService()
		if err != nil {
			return nil, err
		}
		orderSvc, err := c.orderService()
		if err != nil {
			return nil, err
		}
		svc, err := settlement.NewService(
			c.walletLocks(), repo, ledgerSvc, txSvc, c.ChainIndexer, c.Booknode,
			orderSvc, c.Metrics,
		)
		if err != nil {
			return nil, err
		}
		c.settlement = svc
	}
	return c.settlement, nil
}

func (c *Config) notificationProcessor() (*notification.Processor, error) {
	if c.processor == nil {
		settlementSvc, err := c.settlementService()
		if err != nil {
			return nil, err
		}
		orderSvc, err := c.orderService()
		if err != nil {
			return nil, err
		}
		assetPairSvc, err := c.assetPairService()
		if err != nil {
			return nil, err
		}
		processor, err := notification.NewProcessor(
			settlementSvc, orderSvc, assetPairSvc, c.Metrics,
		)
		if err != nil {
			return nil, err
		}
		c.processor = processor
	}
	return c.processor, nil
}

func (c *Config) reconcilerService() (*reconciler.Service, error) {
	if c.reconciler == nil {
		orderSvc, err := c.orderService()
		if err != nil {
			return nil, err
		}
		settlementSvc, err := c.settlementService()
		if err != nil {
			return nil, err
		}
		svc, err := reconciler.NewService(
			orderSvc, settlementSvc, c.ReconcileInterval,
		)
		if err != nil {
			return nil, err
		}
		c.reconciler = svc
	}
	return c.reconciler, nil
}
