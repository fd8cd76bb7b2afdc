package queue

import (
	"errors"
	"sync/atomic"
)

// ErrFull is returned by ChannelQueue.Enqueue when the buffered channel is
// saturated; the point is dropped, not retried.
var ErrFull = errors.New("queue: full, point dropped")

// ChannelQueue is the default Queue: a bounded buffered channel that a
// consumer goroutine drains (e.g. to forward onward to Graphite/Carbon).
// Enqueue never blocks.
type ChannelQueue struct {
	points  chan Point
	dropped atomic.Uint64
}

// NewChannelQueue creates a ChannelQueue with the given buffer depth.
func NewChannelQueue(capacity int) *ChannelQueue {
	return &ChannelQueue{points: make(chan Point, capacity)}
}

// Enqueue implements Queue. On a full queue it drops the point and
// increments the Dropped counter rather than blocking the flush tick.
func (q *ChannelQueue) Enqueue(p Point) error {
	select {
	case q.points <- p:
		return nil
	default:
		q.dropped.Add(1)
		return ErrFull
	}
}

// Points returns the receive side of the queue for a consumer to drain.
func (q *ChannelQueue) Points() <-chan Point {
	return q.points
}

// Dropped reports the number of points dropped for back-pressure so far.
func (q *ChannelQueue) Dropped() uint64 {
	return q.dropped.Load()
}
