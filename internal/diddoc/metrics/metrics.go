package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the identity document module.
// Tracks creation and mutation counts, CAS contention, and resolution
// traffic split by source.
//
// All recorder methods are safe on a nil receiver so tests can construct
// services without touching the default Prometheus registry.
type Metrics struct {
	IdentityCreates    prometheus.Counter
	DocumentMutations  *prometheus.CounterVec
	MutationConflicts  prometheus.Counter
	MutationRetries    prometheus.Counter
	Resolutions        *prometheus.CounterVec
	ResolveCacheEvents *prometheus.CounterVec
	AuditEventsDropped prometheus.Counter
}

// New creates a new Metrics instance with all identity document metrics registered.
func New() *Metrics {
	return &Metrics{
		IdentityCreates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sapphire_identity_creates_total",
			Help: "Total number of identities created",
		}),
		DocumentMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sapphire_document_mutations_total",
			Help: "Total number of committed document mutations by action",
		}, []string{"action"}),
		MutationConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sapphire_mutation_conflicts_total",
			Help: "Total number of lost compare-and-set races during mutation",
		}),
		MutationRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sapphire_mutation_retries_total",
			Help: "Total number of automatic retries after a lost compare-and-set race",
		}),
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sapphire_resolutions_total",
			Help: "Total number of document resolutions by source and outcome",
		}, []string{"source", "outcome"}),
		ResolveCacheEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sapphire_resolve_cache_events_total",
			Help: "Read cache activity on the local resolve path",
		}, []string{"event"}),
		AuditEventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sapphire_audit_events_dropped_total",
			Help: "Audit events dropped because the async buffer was full",
		}),
	}
}

// IncrementIdentityCreates records a successful identity creation.
func (m *Metrics) IncrementIdentityCreates() {
	if m != nil {
		m.IdentityCreates.Inc()
	}
}

// IncrementDocumentMutations records a committed mutation for the given action.
func (m *Metrics) IncrementDocumentMutations(action string) {
	if m != nil {
		m.DocumentMutations.WithLabelValues(action).Inc()
	}
}

// IncrementMutationConflicts records a lost compare-and-set race.
func (m *Metrics) IncrementMutationConflicts() {
	if m != nil {
		m.MutationConflicts.Inc()
	}
}

// IncrementMutationRetries records an automatic retry after a lost race.
func (m *Metrics) IncrementMutationRetries() {
	if m != nil {
		m.MutationRetries.Inc()
	}
}

// IncrementResolutions records a resolution attempt and its outcome.
func (m *Metrics) IncrementResolutions(source, outcome string) {
	if m != nil {
		m.Resolutions.WithLabelValues(source, outcome).Inc()
	}
}

// IncrementResolveCacheEvents records read cache activity.
func (m *Metrics) IncrementResolveCacheEvents(event string) {
	if m != nil {
		m.ResolveCacheEvents.WithLabelValues(event).Inc()
	}
}
