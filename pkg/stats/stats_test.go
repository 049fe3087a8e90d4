package stats_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/darkswap-network/darkswap-daemon/pkg/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestDumpMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_dumped_total",
		Help: "test counter",
	})
	registry.MustRegister(counter)
	counter.Add(3)

	path := filepath.Join(t.TempDir(), "stats")
	ctx, cancel := context.WithCancel(context.Background())
	stats.EnableMemoryStatistics(ctx, time.Millisecond, registry, path)
	time.Sleep(5 * time.Millisecond)
	cancel()

	require.Eventually(t, func() bool {
		buf, err := os.ReadFile(path)
		return err == nil && len(buf) > 0
	}, time.Second, 10*time.Millisecond)

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(buf), "test_dumped_total")
}
