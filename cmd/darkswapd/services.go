package main

import (
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/config"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	evmchain "github.com/darkswap-network/darkswap-daemon/internal/infrastructure/chain/evm"
	proverchain "github.com/darkswap-network/darkswap-daemon/internal/infrastructure/chain/prover"
	simchain "github.com/darkswap-network/darkswap-daemon/internal/infrastructure/chain/sim"
	"github.com/darkswap-network/darkswap-daemon/internal/infrastructure/indexer/subgraph"
	kafkapubsub "github.com/darkswap-network/darkswap-daemon/internal/infrastructure/pubsub/kafka"
	webhookpubsub "github.com/darkswap-network/darkswap-daemon/internal/infrastructure/pubsub/webhook"
	log "github.com/sirupsen/logrus"
)

type chainServices struct {
	service ports.ChainService
	indexer ports.ChainIndexer
	close   func()
}

func newChain() (*chainServices, error) {
	if config.GetString(config.ChainModeKey) == config.ChainModeSim {
		log.Warn("running against the simulated chain, no transaction is broadcasted")
		chain := simchain.NewChain(0)
		return &chainServices{chain, chain, func() {}}, nil
	}

	rpcURLs, err := config.GetChainURLs(config.ChainRPCURLsKey)
	if err != nil {
		return nil, err
	}
	subgraphURLs, err := config.GetChainURLs(config.SubgraphURLsKey)
	if err != nil {
		return nil, err
	}

	receipts, err := evmchain.NewReceiptWaiter(rpcURLs, evmchain.Opts{
		RequestsPerSecond: config.GetInt(config.RPCRequestsPerSecondKey),
		MaxRetries:        uint64(config.GetInt(config.RPCMaxRetriesKey)),
		PollInterval:      config.GetDuration(config.ReceiptPollIntervalKey),
	})
	if err != nil {
		return nil, err
	}

	chainSvc, err := proverchain.NewService(
		config.GetString(config.ProverURLKey),
		config.GetDuration(config.ProverRequestTimeoutKey),
		receipts,
	)
	if err != nil {
		receipts.Close()
		return nil, err
	}

	indexer, err := subgraph.NewIndexer(subgraphURLs, 0)
	if err != nil {
		receipts.Close()
		return nil, err
	}

	return &chainServices{chainSvc, indexer, receipts.Close}, nil
}

func newPublishers() ([]ports.Publisher, error) {
	publishers := make([]ports.Publisher, 0, 2)

	if endpoints := config.GetList(config.WebhookEndpointsKey); len(endpoints) > 0 {
		webhooks := webhookpubsub.NewService(0)
		secret := config.GetString(config.WebhookSecretKey)
		for _, endpoint := range endpoints {
			if _, err := webhooks.Subscribe(ports.AnyTopic, endpoint, secret); err != nil {
				return nil, fmt.Errorf("invalid webhook %s: %w", endpoint, err)
			}
		}
		publishers = append(publishers, webhooks)
	}

	if brokers := config.GetList(config.KafkaBrokersKey); len(brokers) > 0 {
		kafkaPublisher, err := kafkapubsub.NewService(
			brokers, config.GetString(config.KafkaTopicKey), 0,
		)
		if err != nil {
			closePublishers(publishers)
			return nil, err
		}
		publishers = append(publishers, kafkaPublisher)
	}

	return publishers, nil
}
