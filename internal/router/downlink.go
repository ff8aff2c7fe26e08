package router

import (
	"sync"

	"github.com/LeJamon/goLoRaRouter/internal/packet"
)

// DownlinkSink receives packets to transmit back to devices.
type DownlinkSink interface {
	// Deliver hands a packet over without blocking. It returns ErrSinkFull
	// or ErrSinkClosed when the packet could not be accepted.
	Deliver(p *packet.Packet) error
}

// DownlinkQueue is a bounded DownlinkSink read through Downlinks.
type DownlinkQueue struct {
	mu     sync.Mutex
	ch     chan *packet.Packet
	closed bool
}

// NewDownlinkQueue creates a queue holding up to size packets.
func NewDownlinkQueue(size int) *DownlinkQueue {
	if size < 0 {
		size = 0
	}
	return &DownlinkQueue{ch: make(chan *packet.Packet, size)}
}

// Deliver implements DownlinkSink.
func (q *DownlinkQueue) Deliver(p *packet.Packet) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrSinkClosed
	}
	select {
	case q.ch <- p:
		return nil
	default:
		return ErrSinkFull
	}
}

// Downlinks returns the consumer side. It is closed by Close.
func (q *DownlinkQueue) Downlinks() <-chan *packet.Packet {
	return q.ch
}

// Close stops accepting packets. Packets already queued remain readable.
func (q *DownlinkQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
