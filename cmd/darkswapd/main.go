package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/darkswap-network/darkswap-daemon/config"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/darkswap-network/darkswap-daemon/internal/infrastructure/booknode"
	prometheusmetrics "github.com/darkswap-network/darkswap-daemon/internal/infrastructure/metrics/prometheus"
	grpcinterface "github.com/darkswap-network/darkswap-daemon/internal/interfaces/grpc"
	grpchandler "github.com/darkswap-network/darkswap-daemon/internal/interfaces/grpc/handler"
	"github.com/darkswap-network/darkswap-daemon/pkg/stats"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))
	if err := config.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	if err := run(ctx); err != nil {
		log.WithError(err).Error("daemon stopped with error")
		os.Exit(1)
	}
	log.Info("exiting")
}

func run(ctx context.Context) error {
	metricsSvc, err := prometheusmetrics.NewService()
	if err != nil {
		return err
	}

	booknodeClient, err := booknode.NewClient(
		config.GetString(config.BooknodeAPIURLKey),
		config.GetString(config.BooknodeAPIKeyKey),
		config.GetDuration(config.BooknodeRequestTimeoutKey),
	)
	if err != nil {
		return err
	}

	chain, err := newChain()
	if err != nil {
		return err
	}
	defer chain.close()

	publishers, err := newPublishers()
	if err != nil {
		return err
	}
	defer closePublishers(publishers)

	wallets, err := config.GetWallets()
	if err != nil {
		return err
	}

	appConfig := &application.Config{
		DBType:            config.GetString(config.DbTypeKey),
		DBConfig:          config.GetDbDir(),
		ChainService:      chain.service,
		ChainIndexer:      chain.indexer,
		Booknode:          booknodeClient,
		Publishers:        publishers,
		Metrics:           metricsSvc,
		ReceiptTimeout:    config.GetDuration(config.ReceiptTimeoutKey),
		ReconcileInterval: config.GetDuration(config.ReconcileIntervalKey),
		Wallets:           wallets,
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}
	defer appConfig.RepoManager().Close()

	processor := appConfig.NotificationProcessor()
	listener, err := booknode.NewListener(booknode.ListenerOpts{
		URL:               config.GetString(config.BooknodeWSURLKey),
		APIKey:            config.GetString(config.BooknodeAPIKeyKey),
		HeartbeatInterval: config.GetDuration(config.HeartbeatIntervalKey),
		ReconnectDelay:    config.GetDuration(config.ReconnectDelayKey),
	}, processor, metricsSvc)
	if err != nil {
		return err
	}

	if count, err := appConfig.AssetPairService().SyncAssetPairs(ctx); err != nil {
		log.WithError(err).Warn("failed to sync asset pairs with booknode")
	} else {
		log.Infof("synced %d new asset pairs", count)
	}

	if interval := config.GetDuration(config.StatsIntervalKey); interval > 0 {
		stats.EnableMemoryStatistics(
			ctx, interval, metricsSvc.Gatherer(),
			filepath.Join(config.GetDatadir(), "stats"),
		)
	}

	var operatorSvc *grpcinterface.Service
	if port := config.GetInt(config.OperatorPortKey); port > 0 {
		operatorSvc, err = grpcinterface.NewService(grpcinterface.ServiceOpts{
			Port: port,
			Operator: grpchandler.OperatorOpts{
				Orders:    appConfig.OrderService(),
				Deposits:  appConfig.DepositService(),
				Selection: appConfig.SelectionService(),
				Ledger:    appConfig.LedgerService(),
				Locks:     appConfig.WalletLocks(),
			},
		})
		if err != nil {
			return err
		}
	}

	reconcilerSvc := appConfig.ReconcilerService()
	reconcilerSvc.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listener.Start(gctx)
	})
	if port := config.GetInt(config.MetricsPortKey); port > 0 {
		g.Go(func() error {
			return metricsSvc.Serve(gctx, port)
		})
	}
	if operatorSvc != nil {
		g.Go(func() error {
			return operatorSvc.Serve(gctx)
		})
	}

	log.Info("darkswap daemon started")
	err = g.Wait()

	log.Info("shutting down")
	reconcilerSvc.Stop()
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	processor.Stop(stopCtx)

	return err
}

func closePublishers(publishers []ports.Publisher) {
	for _, p := range publishers {
		if err := p.Close(); err != nil {
			log.WithError(err).Warn("failed to close publisher")
		}
	}
}
