package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseChainURLs(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected map[uint64]string
		wantErr  bool
	}{
		{
			name:     "empty",
			value:    "",
			expected: map[uint64]string{},
		},
		{
			name:  "valid",
			value: "1=https://eth.example.com, 8453=https://base.example.com/rpc,",
			expected: map[uint64]string{
				1:    "https://eth.example.com",
				8453: "https://base.example.com/rpc",
			},
		},
		{
			name:    "missing_separator",
			value:   "https://eth.example.com",
			wantErr: true,
		},
		{
			name:    "invalid_chain_id",
			value:   "mainnet=https://eth.example.com",
			wantErr: true,
		},
		{
			name:    "duplicate_chain",
			value:   "1=https://a.example.com,1=https://b.example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			urls, err := parseChainURLs(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, urls)
		})
	}
}

func TestParseWallets(t *testing.T) {
	wallets, err := parseWallets("8453:0xAbc, 8453:0xdef,1:0x123")
	require.NoError(t, err)
	require.Equal(t, map[uint64][]string{
		8453: {"0xAbc", "0xdef"},
		1:    {"0x123"},
	}, wallets)

	for _, invalid := range []string{"0xabc", "base:0xabc", "8453:"} {
		_, err := parseWallets(invalid)
		require.Error(t, err, invalid)
	}
}

func TestValidate(t *testing.T) {
	datadir := t.TempDir()

	tests := []struct {
		name    string
		values  map[string]interface{}
		wantErr bool
	}{
		{
			name: "sim_mode",
			values: map[string]interface{}{
				ChainModeKey: ChainModeSim,
			},
		},
		{
			name: "prover_mode",
			values: map[string]interface{}{
				ChainRPCURLsKey: "8453=https://base.example.com",
				SubgraphURLsKey: "8453=https://subgraph.example.com/base",
			},
		},
		{
			name: "prover_mode_without_subgraph",
			values: map[string]interface{}{
				ChainRPCURLsKey: "8453=https://base.example.com",
			},
			wantErr: true,
		},
		{
			name: "prover_mode_without_rpc",
			values: map[string]interface{}{
				SubgraphURLsKey: "8453=https://subgraph.example.com/base",
			},
			wantErr: true,
		},
		{
			name: "missing_api_key",
			values: map[string]interface{}{
				ChainModeKey:      ChainModeSim,
				BooknodeAPIKeyKey: "",
			},
			wantErr: true,
		},
		{
			name: "http_websocket_url",
			values: map[string]interface{}{
				ChainModeKey:     ChainModeSim,
				BooknodeWSURLKey: "http://localhost:3000/ws",
			},
			wantErr: true,
		},
		{
			name: "unknown_db_type",
			values: map[string]interface{}{
				ChainModeKey: ChainModeSim,
				DbTypeKey:    "postgres",
			},
			wantErr: true,
		},
		{
			name: "unknown_chain_mode",
			values: map[string]interface{}{
				ChainModeKey: "mainnet",
			},
			wantErr: true,
		},
		{
			name: "invalid_wallets",
			values: map[string]interface{}{
				ChainModeKey: ChainModeSim,
				WalletsKey:   "0xabc",
			},
			wantErr: true,
		},
		{
			name: "zero_receipt_timeout",
			values: map[string]interface{}{
				ChainModeKey:      ChainModeSim,
				ReceiptTimeoutKey: time.Duration(0),
			},
			wantErr: true,
		},
		{
			name: "kafka_without_topic",
			values: map[string]interface{}{
				ChainModeKey:    ChainModeSim,
				KafkaBrokersKey: "localhost:9092",
				KafkaTopicKey:   "",
			},
			wantErr: true,
		},
		{
			name: "invalid_metrics_port",
			values: map[string]interface{}{
				ChainModeKey:   ChainModeSim,
				MetricsPortKey: 70000,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			restore := override(t, map[string]interface{}{
				DatadirKey:        datadir,
				BooknodeAPIKeyKey: "secret",
			})
			defer restore()
			restoreCase := override(t, tt.values)
			defer restoreCase()

			err := Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}

	_, err := os.Stat(filepath.Join(datadir, DbLocation))
	require.NoError(t, err)
}

// override sets the given values and returns a func restoring the previous
// ones.
func override(t *testing.T, values map[string]interface{}) func() {
	t.Helper()
	previous := make(map[string]interface{}, len(values))
	for key, value := range values {
		previous[key] = vip.Get(key)
		vip.Set(key, value)
	}
	return func() {
		for key, value := range previous {
			vip.Set(key, value)
		}
	}
}
