package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "useropindexer"

// Metrics tracks ingestion progress. A nil *Metrics is a no-op, so callers
// can run without a registry wired in.
type Metrics struct {
	eventsDecoded   prometheus.Counter
	decodeFailures  prometheus.Counter
	eventsInserted  prometheus.Counter
	duplicateSkips  prometheus.Counter
	persistFailures prometheus.Counter
	lastBlock       prometheus.Gauge
}

// New creates a Metrics instance and registers everything with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		eventsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_decoded_total",
			Help:      "Logs successfully decoded into UserOperationEvent records",
		}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decode_failures_total",
			Help:      "Logs dropped because they failed to decode",
		}),
		eventsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_inserted_total",
			Help:      "Events durably inserted into storage",
		}),
		duplicateSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "duplicate_skips_total",
			Help:      "Persist attempts absorbed by the (user_op_hash, nonce) key",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "persist_failures_total",
			Help:      "Storage write failures (fatal to the running phase)",
		}),
		lastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_block",
			Help:      "Block height of the most recently processed log",
		}),
	}

	var errs []error
	for _, c := range []prometheus.Collector{
		m.eventsDecoded,
		m.decodeFailures,
		m.eventsInserted,
		m.duplicateSkips,
		m.persistFailures,
		m.lastBlock,
	} {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return m, nil
}

func (m *Metrics) EventDecoded() {
	if m != nil {
		m.eventsDecoded.Inc()
	}
}

func (m *Metrics) DecodeFailed() {
	if m != nil {
		m.decodeFailures.Inc()
	}
}

func (m *Metrics) EventInserted() {
	if m != nil {
		m.eventsInserted.Inc()
	}
}

func (m *Metrics) DuplicateSkipped() {
	if m != nil {
		m.duplicateSkips.Inc()
	}
}

func (m *Metrics) PersistFailed() {
	if m != nil {
		m.persistFailures.Inc()
	}
}

func (m *Metrics) SetLastBlock(height uint64) {
	if m != nil {
		m.lastBlock.Set(float64(height))
	}
}
