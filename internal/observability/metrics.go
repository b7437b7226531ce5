package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a fix is dropped by the ingest pipeline.
const (
	ReasonIncomplete = "incomplete"
	ReasonQuality    = "quality"
	ReasonOutlier    = "outlier"
)

var (
	SentencesParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "antrak_sentences_parsed_total",
		Help: "NMEA sentences decoded",
	})
	ParseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "antrak_parse_errors_total",
		Help: "Ingest calls aborted by a sentence which could not be decoded",
	})
	FixesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "antrak_fixes_dropped_total",
		Help: "Fixes dropped by the ingest pipeline",
	}, []string{"reason"})
	PositionsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "antrak_positions_saved_total",
		Help: "Positions written to the store",
	})
	ConnectionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "antrak_db_connections_opened_total",
		Help: "Database connections established by the transaction manager",
	})
	ConnectionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "antrak_db_connections_closed_total",
		Help: "Database connections released by the transaction manager",
	})
	TxDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "antrak_db_tx_depth",
		Help: "Current nesting depth of persistence calls",
	})
	RenderLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "antrak_render_latency_seconds",
		Help:    "Latency of rendering one track map",
		Buckets: prometheus.DefBuckets,
	})
)
