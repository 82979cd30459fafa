package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bondtrader_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "path", "status"},
	)

	// Feed metrics
	RecordsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bondtrader_feed_records_total",
			Help: "Feed records parsed and handed to a service",
		},
		[]string{"feed"},
	)

	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bondtrader_feed_records_skipped_total",
			Help: "Malformed feed records that were logged and skipped",
		},
		[]string{"feed"},
	)

	// Trading metrics
	ExecutionsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bondtrader_executions_total",
			Help: "Executions sent to a venue",
		},
		[]string{"venue", "side"},
	)

	TradesBooked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bondtrader_trades_booked_total",
			Help: "Trades booked by book",
		},
		[]string{"book"},
	)

	InquiriesByState = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bondtrader_inquiry_transitions_total",
			Help: "Inquiry state transitions by target state",
		},
		[]string{"state"},
	)

	PositionAggregate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bondtrader_position_aggregate",
			Help: "Net position across books",
		},
		[]string{"product"},
	)

	// Persistence metrics
	HistoricalWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bondtrader_historical_writes_total",
			Help: "Historical records written per category and sink",
		},
		[]string{"category", "sink"},
	)

	HistoricalFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bondtrader_historical_failures_total",
			Help: "Historical writes that were skipped after an error",
		},
		[]string{"category", "sink"},
	)

	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bondtrader_ws_clients",
			Help: "Connected websocket clients",
		},
	)
)
