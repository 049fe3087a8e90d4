package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DbTypeKey is the storage backend, either "badger" or "inmemory"
	DbTypeKey = "DB_TYPE"
	// BooknodeAPIURLKey is the base url of the booknode REST api
	BooknodeAPIURLKey = "BOOKNODE_API_URL"
	// BooknodeWSURLKey is the url of the booknode notification websocket
	BooknodeWSURLKey = "BOOKNODE_WS_URL"
	// BooknodeAPIKeyKey is the api key used both for REST and websocket auth
	BooknodeAPIKeyKey = "BOOKNODE_API_KEY"
	// BooknodeRequestTimeoutKey is the timeout of booknode REST requests
	BooknodeRequestTimeoutKey = "BOOKNODE_REQUEST_TIMEOUT"
	// ChainModeKey selects the chain execution service, either "prover" or "sim"
	ChainModeKey = "CHAIN_MODE"
	// ProverURLKey is the base url of the proof/relayer sidecar
	ProverURLKey = "PROVER_URL"
	// ProverRequestTimeoutKey is the timeout of sidecar requests, proofs
	// included
	ProverRequestTimeoutKey = "PROVER_REQUEST_TIMEOUT"
	// ChainRPCURLsKey is the comma separated list of chainID=url rpc endpoints
	ChainRPCURLsKey = "CHAIN_RPC_URLS"
	// SubgraphURLsKey is the comma separated list of chainID=url subgraphs
	SubgraphURLsKey = "SUBGRAPH_URLS"
	// WalletsKey is the comma separated list of chainID:address wallets whose
	// locks are created at startup
	WalletsKey = "WALLETS"
	// RPCRequestsPerSecondKey is the max number of requests per second made to
	// every chain rpc endpoint
	RPCRequestsPerSecondKey = "RPC_REQUESTS_PER_SECOND"
	// RPCMaxRetriesKey is the number of retries of rate limited rpc requests
	RPCMaxRetriesKey = "RPC_MAX_RETRIES"
	// ReceiptTimeoutKey is the max time to wait for a transaction receipt
	ReceiptTimeoutKey = "RECEIPT_TIMEOUT"
	// ReceiptPollIntervalKey is the interval between receipt polls
	ReceiptPollIntervalKey = "RECEIPT_POLL_INTERVAL"
	HeartbeatIntervalKey   = "HEARTBEAT_INTERVAL"
	ReconnectDelayKey      = "RECONNECT_DELAY"
	// ReconcileIntervalKey is the interval between retries of pending
	// settlements
	ReconcileIntervalKey = "RECONCILE_INTERVAL"
	// WebhookEndpointsKey is the comma separated list of endpoints notified of
	// every order event
	WebhookEndpointsKey = "WEBHOOK_ENDPOINTS"
	// WebhookSecretKey is the optional secret used to sign webhook requests
	WebhookSecretKey = "WEBHOOK_SECRET"
	// KafkaBrokersKey is the comma separated list of kafka brokers. Kafka
	// publishing is disabled if empty
	KafkaBrokersKey = "KAFKA_BROKERS"
	KafkaTopicKey   = "KAFKA_TOPIC"
	// MetricsPortKey is the port of the prometheus endpoint. 0 disables it
	MetricsPortKey = "METRICS_PORT"
	// OperatorPortKey is the port of the operator grpc interface. 0 disables it
	OperatorPortKey = "OPERATOR_PORT"
	// StatsIntervalKey defines interval for printing basic memory statistics.
	// 0 disables it
	StatsIntervalKey = "STATS_INTERVAL"

	DbLocation = "db"

	DbTypeBadger   = "badger"
	DbTypeInMemory = "inmemory"

	ChainModeProver = "prover"
	ChainModeSim    = "sim"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("darkswap-daemon", false)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("DARKSWAP")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DbTypeKey, DbTypeBadger)
	vip.SetDefault(BooknodeAPIURLKey, "http://localhost:3000")
	vip.SetDefault(BooknodeWSURLKey, "ws://localhost:3000/ws")
	vip.SetDefault(BooknodeRequestTimeoutKey, 10*time.Second)
	vip.SetDefault(ChainModeKey, ChainModeProver)
	vip.SetDefault(ProverURLKey, "http://localhost:7070")
	vip.SetDefault(ProverRequestTimeoutKey, 2*time.Minute)
	vip.SetDefault(RPCRequestsPerSecondKey, 10)
	vip.SetDefault(RPCMaxRetriesKey, 5)
	vip.SetDefault(ReceiptTimeoutKey, 2*time.Minute)
	vip.SetDefault(ReceiptPollIntervalKey, 2*time.Second)
	vip.SetDefault(HeartbeatIntervalKey, 30*time.Second)
	vip.SetDefault(ReconnectDelayKey, 10*time.Second)
	vip.SetDefault(ReconcileIntervalKey, time.Minute)
	vip.SetDefault(KafkaTopicKey, "darkswap.order-events")
	vip.SetDefault(MetricsPortKey, 9090)
	vip.SetDefault(OperatorPortKey, 9945)
	vip.SetDefault(StatsIntervalKey, 0)
}

// GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

// GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

// GetDuration ...
func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

// GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

// GetList returns the comma separated values of the given key, skipping the
// empty ones.
func GetList(key string) []string {
	return splitList(vip.GetString(key))
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetDbDir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

// GetChainURLs parses the chainID=url list of the given key.
func GetChainURLs(key string) (map[uint64]string, error) {
	return parseChainURLs(vip.GetString(key))
}

// GetWallets parses the wallets list, grouping addresses by chain id.
func GetWallets() (map[uint64][]string, error) {
	return parseWallets(vip.GetString(WalletsKey))
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// IsSet returns whether the give key is set
func IsSet(key string) bool {
	return vip.IsSet(key)
}

// Validate checks the current configuration and creates the datadir if
// missing.
func Validate() error {
	if err := validate(); err != nil {
		return err
	}
	return initDatadir()
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	dbType := GetString(DbTypeKey)
	if dbType != DbTypeBadger && dbType != DbTypeInMemory {
		return fmt.Errorf(
			"db type must be either '%s' or '%s'", DbTypeBadger, DbTypeInMemory,
		)
	}

	if err := validateURL(BooknodeAPIURLKey, "http", "https"); err != nil {
		return err
	}
	if err := validateURL(BooknodeWSURLKey, "ws", "wss"); err != nil {
		return err
	}
	if len(GetString(BooknodeAPIKeyKey)) <= 0 {
		return fmt.Errorf("booknode api key must not be null")
	}

	chainMode := GetString(ChainModeKey)
	switch chainMode {
	case ChainModeSim:
	case ChainModeProver:
		if err := validateURL(ProverURLKey, "http", "https"); err != nil {
			return err
		}
		rpcURLs, err := GetChainURLs(ChainRPCURLsKey)
		if err != nil {
			return fmt.Errorf("invalid chain rpc urls: %s", err)
		}
		if len(rpcURLs) <= 0 {
			return fmt.Errorf("chain rpc urls must not be null in prover mode")
		}
		subgraphURLs, err := GetChainURLs(SubgraphURLsKey)
		if err != nil {
			return fmt.Errorf("invalid subgraph urls: %s", err)
		}
		for chainID := range rpcURLs {
			if _, ok := subgraphURLs[chainID]; !ok {
				return fmt.Errorf("missing subgraph url for chain %d", chainID)
			}
		}
	default:
		return fmt.Errorf(
			"chain mode must be either '%s' or '%s'", ChainModeProver, ChainModeSim,
		)
	}

	if _, err := GetWallets(); err != nil {
		return fmt.Errorf("invalid wallets: %s", err)
	}

	if GetInt(RPCRequestsPerSecondKey) <= 0 {
		return fmt.Errorf("rpc requests per second must be a positive number")
	}
	if GetInt(RPCMaxRetriesKey) < 0 {
		return fmt.Errorf("rpc max retries must not be a negative number")
	}

	for _, key := range []string{
		BooknodeRequestTimeoutKey, ProverRequestTimeoutKey, ReceiptTimeoutKey,
		ReceiptPollIntervalKey, HeartbeatIntervalKey, ReconnectDelayKey,
		ReconcileIntervalKey,
	} {
		if GetDuration(key) <= 0 {
			return fmt.Errorf("%s must be a positive duration", key)
		}
	}

	for _, endpoint := range GetList(WebhookEndpointsKey) {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("webhook endpoint is not a valid url: %s", err)
		}
	}
	if len(GetList(KafkaBrokersKey)) > 0 && len(GetString(KafkaTopicKey)) <= 0 {
		return fmt.Errorf("kafka topic must not be null if brokers are set")
	}

	if port := GetInt(MetricsPortKey); port < 0 || port > 65535 {
		return fmt.Errorf("metrics port must be in range [0, 65535]")
	}
	return nil
}

func validateURL(key string, schemes ...string) error {
	u, err := url.ParseRequestURI(GetString(key))
	if err != nil {
		return fmt.Errorf("%s is not a valid url: %s", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf(
		"%s scheme must be one of %s", key, strings.Join(schemes, ", "),
	)
}

func initDatadir() error {
	if GetString(DbTypeKey) != DbTypeBadger {
		return nil
	}
	return makeDirectoryIfNotExists(GetDbDir())
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Debugf("creating directory %s", path)
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func splitList(value string) []string {
	list := make([]string, 0)
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); len(v) > 0 {
			list = append(list, v)
		}
	}
	return list
}

func parseChainURLs(value string) (map[uint64]string, error) {
	urls := make(map[uint64]string)
	for _, entry := range splitList(value) {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("entry %q must be in the form chainID=url", entry)
		}
		chainID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id in entry %q", entry)
		}
		u := strings.TrimSpace(parts[1])
		if _, err := url.ParseRequestURI(u); err != nil {
			return nil, fmt.Errorf("invalid url in entry %q: %s", entry, err)
		}
		if _, ok := urls[chainID]; ok {
			return nil, fmt.Errorf("duplicate chain id %d", chainID)
		}
		urls[chainID] = u
	}
	return urls, nil
}

func parseWallets(value string) (map[uint64][]string, error) {
	wallets := make(map[uint64][]string)
	for _, entry := range splitList(value) {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || len(strings.TrimSpace(parts[1])) <= 0 {
			return nil, fmt.Errorf("entry %q must be in the form chainID:address", entry)
		}
		chainID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id in entry %q", entry)
		}
		wallets[chainID] = append(wallets[chainID], strings.TrimSpace(parts[1]))
	}
	return wallets, nil
}
