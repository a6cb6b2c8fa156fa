// Package metrics exposes prometheus instrumentation for the
// reconciliation sync.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config scopes metric const labels to one deployment.
type Config struct {
	ServiceName string
	Environment string
}

type SyncMetrics struct {
	salesProcessed *prometheus.CounterVec
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	lastRunUnix    prometheus.Gauge
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "tally"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	salesProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "tally_sync_sales_processed_total",
			Help:        "Total POS sales observed by the reconciliation sync.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // applied | skipped | revoked | failed
	)

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "tally_sync_runs_total",
			Help:        "Total reconciliation sync runs.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // ok | rate_limited | failed
	)

	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "tally_sync_run_duration_seconds",
			Help:        "Wall time of one reconciliation sync run.",
			Buckets:     []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			ConstLabels: constLabels,
		},
	)

	lastRunUnix := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "tally_sync_last_run_timestamp_seconds",
			Help:        "Unix time of the last completed sync run.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(salesProcessed, runsTotal, runDuration, lastRunUnix)

	return &SyncMetrics{
		salesProcessed: salesProcessed,
		runsTotal:      runsTotal,
		runDuration:    runDuration,
		lastRunUnix:    lastRunUnix,
	}
}

func (m *SyncMetrics) IncSaleProcessed(result string) {
	if m == nil {
		return
	}
	m.salesProcessed.WithLabelValues(result).Inc()
}

func (m *SyncMetrics) ObserveRun(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(duration.Seconds())
	m.lastRunUnix.SetToCurrentTime()
}
