// Package metrics exports dashboard health to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadingsReceived counts readings by outcome: stored, rejected, failed.
	ReadingsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esm_readings_received_total",
			Help: "Total number of meter readings received",
		},
		[]string{"outcome"},
	)

	// SamplesRejected counts readings dropped by the validator, per reason.
	SamplesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esm_samples_rejected_total",
			Help: "Meter readings rejected by validation",
		},
		[]string{"reason"},
	)

	TotalsCapped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esm_daily_totals_capped_total",
			Help: "Daily totals clamped to the sanity ceiling",
		},
		[]string{"field"},
	)

	CounterResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "esm_counter_resets_total",
			Help: "Aggregation windows discarded because a cumulative counter went backwards",
		},
	)

	// ViewsComputed counts engine runs per mode.
	ViewsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esm_views_computed_total",
			Help: "Flow views computed",
		},
		[]string{"mode"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "esm_websocket_clients",
			Help: "Connected dashboard websocket clients",
		},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "esm_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"route"},
	)
)
