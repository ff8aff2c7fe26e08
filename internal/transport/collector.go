package transport

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	trafficBytesDesc = prometheus.NewDesc(
		"lorarouter_transport_bytes_total",
		"Bytes exchanged with the router by message type and direction.",
		[]string{"type", "direction"}, nil,
	)
	trafficMessagesDesc = prometheus.NewDesc(
		"lorarouter_transport_messages_total",
		"Messages exchanged with the router by message type and direction.",
		[]string{"type", "direction"}, nil,
	)
)

// TrafficCollector exports a TrafficCounter to Prometheus.
type TrafficCollector struct {
	traffic *TrafficCounter
}

// NewTrafficCollector creates a collector reading tc.
func NewTrafficCollector(tc *TrafficCounter) *TrafficCollector {
	return &TrafficCollector{traffic: tc}
}

// Describe implements prometheus.Collector.
func (c *TrafficCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- trafficBytesDesc
	ch <- trafficMessagesDesc
}

// Collect implements prometheus.Collector.
func (c *TrafficCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.traffic.All() {
		ch <- prometheus.MustNewConstMetric(trafficBytesDesc, prometheus.CounterValue, float64(s.BytesIn), s.Name, "in")
		ch <- prometheus.MustNewConstMetric(trafficBytesDesc, prometheus.CounterValue, float64(s.BytesOut), s.Name, "out")
		ch <- prometheus.MustNewConstMetric(trafficMessagesDesc, prometheus.CounterValue, float64(s.MessagesIn), s.Name, "in")
		ch <- prometheus.MustNewConstMetric(trafficMessagesDesc, prometheus.CounterValue, float64(s.MessagesOut), s.Name, "out")
	}
}
