// Package metrics defines the Prometheus collectors for navigation,
// path resolution and content assembly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal counts committed status transitions by target status.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "learnfast",
		Name:      "transitions_total",
		Help:      "Committed concept status transitions by target status",
	}, []string{"to"})

	// UnlocksTotal counts dependents newly made available by completions.
	UnlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "learnfast",
		Name:      "unlocks_total",
		Help:      "Concepts newly unlocked by a completion cascade",
	})

	// PlanResolveSeconds observes path resolution latency by strategy.
	PlanResolveSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "learnfast",
		Name:      "plan_resolve_seconds",
		Help:      "Time spent resolving a learning plan",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"strategy"})

	// PlanConcepts observes the number of concepts in resolved plans.
	PlanConcepts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "learnfast",
		Name:      "plan_concepts",
		Help:      "Number of concepts in a resolved plan",
		Buckets:   prometheus.LinearBuckets(0, 5, 10),
	})

	// BundleTruncatedTotal counts plan concepts assembled with partial content.
	BundleTruncatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "learnfast",
		Name:      "bundle_truncated_concepts_total",
		Help:      "Plan concepts whose chunk set did not fully fit the budget",
	})

	// BundleMinutes observes the total minutes packed into lesson bundles.
	BundleMinutes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "learnfast",
		Name:      "bundle_minutes",
		Help:      "Minutes of content selected per lesson bundle",
		Buckets:   prometheus.LinearBuckets(0, 15, 12),
	})
)

// WriteTextfile writes the default registry in the node_exporter textfile
// format. A blank path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
