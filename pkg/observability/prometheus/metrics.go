package prometheus

import (
	"time"

	"github.com/fluxorio/handlebars/pkg/dispatch"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the dispatch collectors. One Metrics value serves any
// number of domains; each domain gets its own Observer.
type Metrics struct {
	connected    *prometheus.CounterVec
	disconnected *prometheus.CounterVec
	chainLength  *prometheus.GaugeVec
	pushed       *prometheus.CounterVec
	dispatched   *prometheus.CounterVec
	purged       *prometheus.CounterVec
	queueDepth   *prometheus.GaugeVec
	duration     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	labels := []string{"domain", "signal"}
	m := &Metrics{
		connected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_connected_total",
			Help:      "Slots connected to a signal chain.",
		}, labels),
		disconnected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_disconnected_total",
			Help:      "Slots removed from a signal chain.",
		}, labels),
		chainLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slot_chain_length",
			Help:      "Slots currently connected to a signal.",
		}, labels),
		pushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_pushed_total",
			Help:      "Events appended to the queue.",
		}, labels),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dispatched_total",
			Help:      "Events taken off the queue by respond.",
		}, labels),
		purged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_purged_total",
			Help:      "Queued events dropped by purge.",
		}, labels),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_queue_depth",
			Help:      "Events waiting in the queue.",
		}, []string{"domain"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent running the slot chain of one event.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, labels),
	}

	for _, c := range []prometheus.Collector{
		m.connected, m.disconnected, m.chainLength, m.pushed,
		m.dispatched, m.purged, m.queueDepth, m.duration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observer returns a dispatch.Observer recording under the given domain
// label.
func (m *Metrics) Observer(domain string) dispatch.Observer {
	return &observer{m: m, domain: domain}
}

type observer struct {
	m      *Metrics
	domain string
}

func (o *observer) SlotConnected(signal string, chainLen int) {
	o.m.connected.WithLabelValues(o.domain, signal).Inc()
	o.m.chainLength.WithLabelValues(o.domain, signal).Set(float64(chainLen))
}

func (o *observer) SlotDisconnected(signal string, chainLen int) {
	o.m.disconnected.WithLabelValues(o.domain, signal).Inc()
	o.m.chainLength.WithLabelValues(o.domain, signal).Set(float64(chainLen))
}

func (o *observer) EventPushed(signal string, queueLen int) {
	o.m.pushed.WithLabelValues(o.domain, signal).Inc()
	o.m.queueDepth.WithLabelValues(o.domain).Set(float64(queueLen))
}

func (o *observer) EventDispatched(signal string, slots, queueLen int, elapsed time.Duration) {
	o.m.dispatched.WithLabelValues(o.domain, signal).Inc()
	o.m.queueDepth.WithLabelValues(o.domain).Set(float64(queueLen))
	o.m.duration.WithLabelValues(o.domain, signal).Observe(elapsed.Seconds())
}

func (o *observer) EventsPurged(signal string, removed, queueLen int) {
	o.m.purged.WithLabelValues(o.domain, signal).Add(float64(removed))
	o.m.queueDepth.WithLabelValues(o.domain).Set(float64(queueLen))
}
