package pipeline

import "sync"

// DefaultBuffer is the capacity of a Link when none is configured.
const DefaultBuffer = 16

// Link is a single-producer, single-consumer queue between two machines.
//
// The producer closes its end when it halts, after which the consumer
// drains what is buffered and then sees exhaustion. The consumer marks the
// link gone when it halts, after which sends are discarded instead of
// blocking forever.
type Link struct {
	ch   chan int64
	gone chan struct{}

	sendOnce sync.Once
	recvOnce sync.Once
}

// NewLink creates a link with the given buffer capacity.
func NewLink(capacity int) *Link {
	if capacity <= 0 {
		capacity = DefaultBuffer
	}
	return &Link{
		ch:   make(chan int64, capacity),
		gone: make(chan struct{}),
	}
}

// Send delivers v, blocking while the buffer is full. It returns false if
// the receiver has gone; the value is then discarded. A receiver that goes
// away while Send is blocked also unblocks it.
func (l *Link) Send(v int64) bool {
	select {
	case <-l.gone:
		return false
	default:
	}
	select {
	case l.ch <- v:
		return true
	case <-l.gone:
		return false
	}
}

// Recv returns the next value, blocking until one arrives. ok is false once
// the producer has closed and the buffer is empty.
func (l *Link) Recv() (v int64, ok bool) {
	v, ok = <-l.ch
	return v, ok
}

// CloseSend is called by the producer when it will send no more.
func (l *Link) CloseSend() {
	l.sendOnce.Do(func() { close(l.ch) })
}

// CloseRecv is called by the consumer when it will receive no more.
func (l *Link) CloseRecv() {
	l.recvOnce.Do(func() { close(l.gone) })
}

// Gone reports whether the consumer has closed its end.
func (l *Link) Gone() bool {
	select {
	case <-l.gone:
		return true
	default:
		return false
	}
}
