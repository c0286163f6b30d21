// Package metrics exports ledger activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luca-patrignani/finney/ledger"
)

const namespace = "finney"

// Recorder implements ledger.Recorder.
type Recorder struct {
	accepted      prom.Counter
	rejected      *prom.CounterVec
	blocks        *prom.CounterVec
	committed     prom.Counter
	dropped       prom.Counter
	attempts      prom.Histogram
	height        prom.Gauge
	verifications *prom.CounterVec
}

var _ ledger.Recorder = (*Recorder)(nil)

// New creates the collectors and registers them with reg.
func New(reg prom.Registerer) *Recorder {
	r := &Recorder{
		accepted: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace, Name: "transactions_accepted_total",
			Help: "Transactions admitted to the pending pool",
		}),
		rejected: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace, Name: "transactions_rejected_total",
			Help: "Transactions refused at submission",
		}, []string{"reason"}),
		blocks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace, Name: "blocks_appended_total",
			Help: "Blocks appended to the chain",
		}, []string{"kind"}),
		committed: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace, Name: "transactions_committed_total",
			Help: "Transactions included in an appended block",
		}),
		dropped: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace, Name: "transactions_dropped_total",
			Help: "Pending transactions left out of a mined block for lack of funds",
		}),
		attempts: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace, Name: "mining_attempts",
			Help:    "Hashes evaluated to mine a block",
			Buckets: prom.ExponentialBuckets(1, 4, 12),
		}),
		height: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace, Name: "chain_height",
			Help: "Number of blocks in the chain, genesis included",
		}),
		verifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace, Name: "chain_verifications_total",
			Help: "Chain validations by result",
		}, []string{"valid"}),
	}
	reg.MustRegister(r.accepted, r.rejected, r.blocks, r.committed, r.dropped, r.attempts, r.height, r.verifications)
	r.height.Set(1)
	return r
}

// TransactionAccepted counts a queued transaction.
func (r *Recorder) TransactionAccepted() {
	r.accepted.Inc()
}

// TransactionRejected counts a refused transaction by reason.
func (r *Recorder) TransactionRejected(reason string) {
	r.rejected.WithLabelValues(reason).Inc()
}

// BlockAppended records a new block and moves the height gauge.
func (r *Recorder) BlockAppended(kind string, included, dropped int, attempts uint64, height int) {
	r.blocks.WithLabelValues(kind).Inc()
	r.committed.Add(float64(included))
	r.dropped.Add(float64(dropped))
	if kind == ledger.KindMined {
		r.attempts.Observe(float64(attempts))
	}
	r.height.Set(float64(height))
}

// ChainVerified counts a validation run by result.
func (r *Recorder) ChainVerified(valid bool) {
	r.verifications.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prom.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
