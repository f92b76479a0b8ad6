// Package metrics exposes Prometheus instrumentation for the event pipeline
// and the persistence gateway. Label cardinality stays bounded: stages and
// outcomes are closed sets, no per-chat or per-user labels.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal counts inbound events handed to the pipeline.
	EventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "pipeline",
		Name:      "events_total",
		Help:      "Inbound events processed by the pipeline.",
	})

	// DroppedTotal counts events terminated by a gating stage.
	DroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "pipeline",
		Name:      "dropped_total",
		Help:      "Events dropped, partitioned by the stage that dropped them.",
	}, []string{"stage"})

	// FailOpenTotal counts gate decisions that proceeded because the store
	// was unreachable.
	FailOpenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "pipeline",
		Name:      "fail_open_total",
		Help:      "Authorization-gate fail-open decisions while the store was unreachable.",
	})

	// ShieldDeletionsTotal counts messages removed by the content shield
	// and the document moderator, partitioned by security-log kind.
	ShieldDeletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "shield",
		Name:      "deletions_total",
		Help:      "Messages deleted at the transport boundary, by kind.",
	}, []string{"kind"})

	// StoreFailuresTotal counts persistence calls that failed, partitioned
	// by operation.
	StoreFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "store",
		Name:      "failures_total",
		Help:      "Failed persistence operations, by operation.",
	}, []string{"op"})

	// AuthCacheSize tracks the current authorized-group cache membership.
	AuthCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "authcache",
		Name:      "size",
		Help:      "Authorized groups currently held in the in-memory cache.",
	})

	// PrunedUsersTotal counts activity records removed by the pruning job.
	PrunedUsersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "scheduler",
		Name:      "pruned_users_total",
		Help:      "Inactive participant records pruned by the background job.",
	})
)
