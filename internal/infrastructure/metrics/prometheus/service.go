// Package prometheusmetrics exposes the operational counters of the daemon
// to Prometheus.
package prometheusmetrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const namespace = "darkswap"

type service struct {
	registry      *prometheus.Registry
	txs           *prometheus.CounterVec
	txInputs      prometheus.Histogram
	settlements   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	queueDepth    prometheus.Gauge
	reconnects    prometheus.Counter
}

// Service is a ports.Metrics that can also serve its own registry over
// HTTP.
type Service interface {
	ports.Metrics
	Gatherer() prometheus.Gatherer
	Handler() http.Handler
	Serve(ctx context.Context, port int) error
}

func NewService() (Service, error) {
	svc := &service{
		registry: prometheus.NewRegistry(),
		txs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "transactions_total",
			Help:      "Note operations submitted on chain by kind and outcome.",
		}, []string{"kind", "success"}),
		txInputs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "transaction_inputs",
			Help:      "Number of input notes per submitted operation.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "completed_total",
			Help:      "Settlement attempts by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "processed_total",
			Help:      "Booknode notifications processed by event type.",
		}, []string{"event_type", "failed"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "queue_depth",
			Help:      "Notifications waiting to be processed.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booknode",
			Name:      "websocket_reconnects_total",
			Help:      "Reconnections of the booknode notification stream.",
		}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		svc.txs,
		svc.txInputs,
		svc.settlements,
		svc.notifications,
		svc.queueDepth,
		svc.reconnects,
	} {
		if err := svc.registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}
	return svc, nil
}

func (s *service) TxSubmitted(kind ports.TxKind, inputs int, success bool) {
	s.txs.WithLabelValues(kind.String(), strconv.FormatBool(success)).Inc()
	s.txInputs.Observe(float64(inputs))
}

func (s *service) SettlementCompleted(outcome string) {
	s.settlements.WithLabelValues(outcome).Inc()
}

func (s *service) NotificationProcessed(eventType string, failed bool) {
	s.notifications.WithLabelValues(eventType, strconv.FormatBool(failed)).Inc()
}

func (s *service) QueueDepth(depth int) {
	s.queueDepth.Set(float64(depth))
}

func (s *service) WebsocketReconnected() {
	s.reconnects.Inc()
}

func (s *service) Gatherer() prometheus.Gatherer {
	return s.registry
}

func (s *service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		Registry: s.registry,
	})
}

// Serve exposes /metrics on the given port until ctx is done.
func (s *service) Serve(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("metrics listening on %s", server.Addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
