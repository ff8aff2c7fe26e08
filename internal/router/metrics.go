package router

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "lorarouter"

// Metrics are the client's Prometheus collectors.
type Metrics struct {
	PacketsQueued      prometheus.Counter
	PacketsDropped     prometheus.Counter
	PacketsSent        prometheus.Counter
	OffersSent         prometheus.Counter
	Purchases          prometheus.Counter
	Rejects            prometheus.Counter
	Banners            prometheus.Counter
	DownlinksDelivered prometheus.Counter
	DownlinksDropped   prometheus.Counter
	ChannelsAppended   prometheus.Counter
	HandlerErrors      *prometheus.CounterVec
	TrustedChannels    prometheus.Gauge
	QueueLength        prometheus.Gauge
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "router",
		Name:      name,
		Help:      help,
	})
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "router",
		Name:      name,
		Help:      help,
	})
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PacketsQueued:      counter("packets_queued_total", "Uplink packets added to the queue."),
		PacketsDropped:     counter("packets_dropped_total", "Queued packets dropped on overflow."),
		PacketsSent:        counter("packets_sent_total", "Packet messages sent to the router."),
		OffersSent:         counter("offers_sent_total", "Offers sent to the router."),
		Purchases:          counter("purchases_total", "Purchases accepted."),
		Rejects:            counter("rejects_total", "Offers rejected by the router."),
		Banners:            counter("banners_total", "Banners accepted."),
		DownlinksDelivered: counter("downlinks_delivered_total", "Downlinks handed to the sink."),
		DownlinksDropped:   counter("downlinks_dropped_total", "Downlinks the sink refused."),
		ChannelsAppended:   counter("channels_appended_total", "State channels recorded as invalid."),
		HandlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "router",
			Name:      "handler_errors_total",
			Help:      "Errors returned by event handlers, by kind.",
		}, []string{"kind"}),
		TrustedChannels: gauge("trusted_channels", "Trusted state channels in the store."),
		QueueLength:     gauge("queue_length", "Packets waiting in the queue."),
	}
	if reg != nil {
		reg.MustRegister(
			m.PacketsQueued, m.PacketsDropped, m.PacketsSent, m.OffersSent,
			m.Purchases, m.Rejects, m.Banners, m.DownlinksDelivered,
			m.DownlinksDropped, m.ChannelsAppended, m.HandlerErrors,
			m.TrustedChannels, m.QueueLength,
		)
	}
	return m
}
