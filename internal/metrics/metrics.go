// Package metrics exposes the follower replica's Prometheus
// instrumentation (SPEC_FULL.md §11.1). Grounded on AKJUS-bsc-erigon's
// go.mod dependency on github.com/prometheus/client_golang; counters are
// registered against a caller-supplied prometheus.Registerer rather than
// the global default registry so that multiple replicas sharing one
// process (as in cmd/demo's in-memory cluster) don't collide on metric
// names.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set is a replica's metric collection.
type Set struct {
	MessagesTotal     *prometheus.CounterVec
	RollbacksTotal    prometheus.Counter
	StorageFatalTotal prometheus.Counter
	VirtualLogLen     prometheus.Gauge
	CompactedIdx      prometheus.Gauge
	DecidedIdx        prometheus.Gauge
}

// New registers a fresh Set of metrics against reg, labeling every series
// with the owning replica's pid so a scrape across many replicas in one
// process (or behind one exporter) can still be split out per node.
func New(reg prometheus.Registerer, pid uint64) *Set {
	constLabels := prometheus.Labels{"pid": itoa(pid)}

	s := &Set{
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "paxos",
			Subsystem:   "follower",
			Name:        "messages_total",
			Help:        "Inbound Sequence Paxos messages handled by this follower, by kind and gate result.",
			ConstLabels: constLabels,
		}, []string{"kind", "result"}),
		RollbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "paxos",
			Subsystem:   "follower",
			Name:        "rollbacks_total",
			Help:        "Non-empty storage rollback sequences replayed by this follower.",
			ConstLabels: constLabels,
		}),
		StorageFatalTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "paxos",
			Subsystem:   "follower",
			Name:        "storage_fatal_total",
			Help:        "Fatal storage errors observed immediately before this follower aborted.",
			ConstLabels: constLabels,
		}),
		VirtualLogLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "paxos",
			Subsystem:   "follower",
			Name:        "virtual_log_len",
			Help:        "Current virtual log length (compacted_idx + real_log_len).",
			ConstLabels: constLabels,
		}),
		CompactedIdx: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "paxos",
			Subsystem:   "follower",
			Name:        "compacted_idx",
			Help:        "Current compacted (trimmed or snapshotted) index.",
			ConstLabels: constLabels,
		}),
		DecidedIdx: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "paxos",
			Subsystem:   "follower",
			Name:        "decided_idx",
			Help:        "Current decided index.",
			ConstLabels: constLabels,
		}),
	}

	if reg != nil {
		reg.MustRegister(s.MessagesTotal, s.RollbacksTotal, s.StorageFatalTotal,
			s.VirtualLogLen, s.CompactedIdx, s.DecidedIdx)
	}
	return s
}

// ObserveMessage records one handled inbound message of the given kind,
// tagged with whether its protocol gate accepted ("accepted") or dropped
// ("dropped") it.
func (s *Set) ObserveMessage(kind, result string) {
	if s == nil {
		return
	}
	s.MessagesTotal.WithLabelValues(kind, result).Inc()
}

// ObserveRollback records a non-empty rollback replay.
func (s *Set) ObserveRollback() {
	if s == nil {
		return
	}
	s.RollbacksTotal.Inc()
}

// ObserveStorageFatal records a fatal storage error immediately before abort.
func (s *Set) ObserveStorageFatal() {
	if s == nil {
		return
	}
	s.StorageFatalTotal.Inc()
}

// SetLogState refreshes the three log-position gauges after a successful
// storage mutation.
func (s *Set) SetLogState(virtualLogLen, compactedIdx, decidedIdx uint64) {
	if s == nil {
		return
	}
	s.VirtualLogLen.Set(float64(virtualLogLen))
	s.CompactedIdx.Set(float64(compactedIdx))
	s.DecidedIdx.Set(float64(decidedIdx))
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
