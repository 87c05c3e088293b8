package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchesTotal counts settled batches by source and outcome ("ok", "empty", "error")
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infiniscroll_batches_total",
			Help: "Total number of settled batch fetches",
		},
		[]string{"source", "outcome"},
	)

	// ItemsAppended counts items added to the collection
	ItemsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infiniscroll_items_appended_total",
			Help: "Total number of items appended to the list",
		},
		[]string{"source"},
	)

	// TriggersIgnored counts visibility events dropped by the loading guard
	TriggersIgnored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infiniscroll_triggers_ignored_total",
			Help: "Sentinel visibility events ignored while a batch was loading",
		},
		[]string{"source"},
	)

	// FetchDuration tracks how long each batch took to settle
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "infiniscroll_fetch_duration_seconds",
			Help:    "Batch fetch duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 1.5, 2.5, 5, 10},
		},
		[]string{"source"},
	)
)
