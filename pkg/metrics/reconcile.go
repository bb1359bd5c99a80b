package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcileMetrics counts the repairs made by the chat index sweep.
type ReconcileMetrics struct {
	indexed prometheus.Counter
	pruned  prometheus.Counter
}

func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return nil
	}
	indexed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chat_index",
		Name:      "indexed_total",
		Help:      "Transcripts added to their owner's index by the reconcile sweep.",
	})
	pruned := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chat_index",
		Name:      "pruned_total",
		Help:      "Index entries removed because their transcript is missing or owned by someone else.",
	})
	reg.MustRegister(indexed, pruned)
	return &ReconcileMetrics{indexed: indexed, pruned: pruned}
}

func (m *ReconcileMetrics) AddIndexed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.indexed.Add(float64(n))
}

func (m *ReconcileMetrics) AddPruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.pruned.Add(float64(n))
}
