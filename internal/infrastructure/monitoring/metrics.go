package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type LifecycleMetrics struct {
	TransitionsTotal *prometheus.CounterVec
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type EscrowMetrics struct {
	ExpiredActiveLoans prometheus.Gauge
}

var (
	Lifecycle = LifecycleMetrics{
		TransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_loan_transitions_total",
				Help: "Total number of loan lifecycle operations by outcome.",
			},
			[]string{"operation", "status"},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lending_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Escrow = EscrowMetrics{
		ExpiredActiveLoans: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lending_engine_expired_active_loans",
				Help: "Number of active loans past expiry awaiting liquidation.",
			},
		),
	}
)

func RecordLoanTransition(operation, status string) {
	Lifecycle.TransitionsTotal.WithLabelValues(operation, status).Inc()
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func SetExpiredActiveLoans(count int) {
	Escrow.ExpiredActiveLoans.Set(float64(count))
}
