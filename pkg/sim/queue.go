package sim

import "sync"

// commEvent is a user key event addressed to a screen communicator.
type commEvent struct {
	index  int32
	turnOn bool
}

const eventQueueCap = 64

// eventQueue is a bounded multi-producer single-consumer ring. Producers
// never block: when the ring is full the oldest unconsumed event is
// dropped, keeping the queue biased towards recent input.
type eventQueue struct {
	mu    sync.Mutex
	buf   []commEvent
	head  int
	count int
}

func newEventQueue(capacity int) *eventQueue {
	return &eventQueue{buf: make([]commEvent, capacity)}
}

func (q *eventQueue) push(ev commEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.buf) {
		q.head = (q.head + 1) % len(q.buf)
		q.count--
	}
	q.buf[(q.head+q.count)%len(q.buf)] = ev
	q.count++
}

func (q *eventQueue) pop() (commEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return commEvent{}, false
	}
	ev := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return ev, true
}
