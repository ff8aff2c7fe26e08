package router

import (
	"time"

	"github.com/LeJamon/goLoRaRouter/internal/packet"
)

// QueuedPacket is an uplink waiting for an offer/purchase cycle.
type QueuedPacket struct {
	Packet   *packet.Packet
	Received time.Time
}

// HoldTime returns how long the packet has waited as of now.
func (q *QueuedPacket) HoldTime(now time.Time) time.Duration {
	if now.Before(q.Received) {
		return 0
	}
	return now.Sub(q.Received)
}

// Queue is the client's FIFO of waiting packets. The oldest Offered()
// packets have had an offer sent; the rest are pending. A packet leaves the
// queue only through Dequeue or by being dropped on overflow.
//
// Queue is owned by the client event loop and is not safe for concurrent
// use.
type Queue struct {
	items   []*QueuedPacket
	offered int
	maxLen  int
}

// NewQueue returns an empty queue. maxLen <= 0 means unbounded.
func NewQueue(maxLen int) *Queue {
	return &Queue{maxLen: maxLen}
}

// Push appends a packet. When the queue is full the oldest packet is
// removed and returned.
func (q *Queue) Push(p *QueuedPacket) (dropped *QueuedPacket) {
	if q.maxLen > 0 && len(q.items) >= q.maxLen {
		dropped = q.Dequeue()
	}
	q.items = append(q.items, p)
	return dropped
}

// Dequeue removes and returns the oldest packet, offered or not. It returns
// nil on an empty queue.
func (q *Queue) Dequeue() *QueuedPacket {
	if len(q.items) == 0 {
		return nil
	}
	head := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if q.offered > 0 {
		q.offered--
	}
	return head
}

// PeekPending returns the oldest packet that has not been offered yet.
func (q *Queue) PeekPending() *QueuedPacket {
	if q.offered >= len(q.items) {
		return nil
	}
	return q.items[q.offered]
}

// MarkOffered records that the oldest pending packet has been offered. The
// packet stays queued until purchased or rejected.
func (q *Queue) MarkOffered() {
	if q.offered < len(q.items) {
		q.offered++
	}
}

// Len returns the number of queued packets.
func (q *Queue) Len() int { return len(q.items) }

// Pending returns the number of packets not yet offered.
func (q *Queue) Pending() int { return len(q.items) - q.offered }

// Offered returns the number of packets awaiting a purchase or reject.
func (q *Queue) Offered() int { return q.offered }
