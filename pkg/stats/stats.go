package stats

import (
	"bufio"
	"context"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	BYTE = 1 << (10 * iota)
	KILOBYTE
	MEGABYTE
	GIGABYTE
)

// EnableMemoryStatistics enables go routine that periodically logs memory
// usage of the go process. When ctx is done the metrics of the gatherer, if
// any, are dumped to the file at dumpPath.
func EnableMemoryStatistics(
	ctx context.Context, interval time.Duration,
	gatherer prometheus.Gatherer, dumpPath string,
) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				PrintMemoryStatistics()
				PrintNumOfRoutines()
			case <-ctx.Done():
				if gatherer == nil || len(dumpPath) <= 0 {
					return
				}
				if err := DumpMetrics(gatherer, dumpPath); err != nil {
					log.WithError(err).Warn("failed to dump metrics")
				}
				return
			}
		}
	}()
}

// toMegabytes returns given memory in bytes to megabytes.
func toMegabytes(bytes uint64) float64 {
	return float64(bytes) / MEGABYTE
}

// PrintMemoryStatistics prints memory statistics using go runtime library.
func PrintMemoryStatistics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	log.Infof(
		"Total allocated: %.3fMB, Heap allocated: %.3fMB, "+
			"Allocated objects count: %v, Freed objects count: %v",
		toMegabytes(memStats.TotalAlloc),
		toMegabytes(memStats.HeapAlloc),
		memStats.Mallocs,
		memStats.Frees,
	)
}

// DumpMetrics appends the metrics of the gatherer to the given file.
func DumpMetrics(gatherer prometheus.Gatherer, path string) error {
	metricFamilies, err := gatherer.Gather()
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, mf := range metricFamilies {
		if _, err := writer.WriteString(mf.String() + "\n"); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// PrintNumOfRoutines prints number of go routines currently running
func PrintNumOfRoutines() {
	log.Infof("Num of go routines: %v", runtime.NumGoroutine())
}
