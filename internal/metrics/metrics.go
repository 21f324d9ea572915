package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for command processing.
type Metrics struct {
	// Command outcomes by command kind and result code
	CommandOutcome *prometheus.CounterVec

	// Latency of applying one command, storage commit included
	ApplyLatency *prometheus.HistogramVec

	// Events delivered to sinks by sink and event kind
	EventsDelivered *prometheus.CounterVec

	// Current journal head
	JournalHead prometheus.Gauge

	// Inbound streams by protocol kind
	StreamsAccepted *prometheus.CounterVec
}

// New creates a new Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CommandOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "remitchain_command_outcomes_total",
			Help: "Total command outcomes by command and result code",
		}, []string{"command", "code"}),

		ApplyLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remitchain_command_apply_duration_seconds",
			Help:    "Duration of command application including the storage commit",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"command"}),

		EventsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "remitchain_events_delivered_total",
			Help: "Total events handed to notification sinks",
		}, []string{"sink", "event"}),

		JournalHead: factory.NewGauge(prometheus.GaugeOpts{
			Name: "remitchain_journal_head",
			Help: "Sequence number of the next journal entry",
		}),

		StreamsAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "remitchain_network_streams_total",
			Help: "Total inbound streams by protocol kind",
		}, []string{"kind"}),
	}
}

// IncrementOutcome records a command outcome.
func (m *Metrics) IncrementOutcome(command, code string) {
	if m != nil {
		m.CommandOutcome.WithLabelValues(command, code).Inc()
	}
}

// ObserveApplyLatency records how long a command took to apply.
func (m *Metrics) ObserveApplyLatency(command string, d time.Duration) {
	if m != nil {
		m.ApplyLatency.WithLabelValues(command).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementDelivered(sink, event string) {
	if m != nil {
		m.EventsDelivered.WithLabelValues(sink, event).Inc()
	}
}

func (m *Metrics) SetJournalHead(head uint64) {
	if m != nil {
		m.JournalHead.Set(float64(head))
	}
}

func (m *Metrics) IncrementStreams(kind string) {
	if m != nil {
		m.StreamsAccepted.WithLabelValues(kind).Inc()
	}
}
