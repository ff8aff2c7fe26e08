package transport

import (
	"sync"
	"sync/atomic"

	"github.com/LeJamon/goLoRaRouter/internal/protocol/message"
)

// TrafficStats holds traffic statistics for one message type.
type TrafficStats struct {
	Name        string
	BytesIn     uint64
	BytesOut    uint64
	MessagesIn  uint64
	MessagesOut uint64
}

type atomicStats struct {
	bytesIn     atomic.Uint64
	bytesOut    atomic.Uint64
	messagesIn  atomic.Uint64
	messagesOut atomic.Uint64
}

func (s *atomicStats) snapshot(name string) TrafficStats {
	return TrafficStats{
		Name:        name,
		BytesIn:     s.bytesIn.Load(),
		BytesOut:    s.bytesOut.Load(),
		MessagesIn:  s.messagesIn.Load(),
		MessagesOut: s.messagesOut.Load(),
	}
}

// TrafficCounter tracks ingress and egress traffic by message type.
type TrafficCounter struct {
	mu     sync.RWMutex
	counts map[message.MessageType]*atomicStats
	total  atomicStats
}

// NewTrafficCounter creates a new TrafficCounter.
func NewTrafficCounter() *TrafficCounter {
	tc := &TrafficCounter{counts: make(map[message.MessageType]*atomicStats)}
	tc.counts[message.TypeNone] = &atomicStats{}
	for _, t := range message.AllTypes {
		tc.counts[t] = &atomicStats{}
	}
	return tc
}

// Add records one message of the given type and size.
func (tc *TrafficCounter) Add(t message.MessageType, inbound bool, bytes int) {
	tc.mu.RLock()
	stats, ok := tc.counts[t]
	tc.mu.RUnlock()
	if !ok {
		tc.mu.Lock()
		if stats, ok = tc.counts[t]; !ok {
			stats = &atomicStats{}
			tc.counts[t] = stats
		}
		tc.mu.Unlock()
	}

	for _, s := range []*atomicStats{stats, &tc.total} {
		if inbound {
			s.bytesIn.Add(uint64(bytes))
			s.messagesIn.Add(1)
		} else {
			s.bytesOut.Add(uint64(bytes))
			s.messagesOut.Add(1)
		}
	}
}

// Stats returns the statistics for one message type.
func (tc *TrafficCounter) Stats(t message.MessageType) TrafficStats {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if s, ok := tc.counts[t]; ok {
		return s.snapshot(t.String())
	}
	return TrafficStats{Name: t.String()}
}

// Total returns the statistics across all message types.
func (tc *TrafficCounter) Total() TrafficStats {
	return tc.total.snapshot("total")
}

// All returns the statistics of every type that has seen traffic.
func (tc *TrafficCounter) All() []TrafficStats {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	var out []TrafficStats
	for t, s := range tc.counts {
		snap := s.snapshot(t.String())
		if snap.MessagesIn+snap.MessagesOut > 0 {
			out = append(out, snap)
		}
	}
	return out
}
