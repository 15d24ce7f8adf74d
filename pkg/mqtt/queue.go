package mqtt

import (
	"sync"
	"sync/atomic"
)

type queuedMessage struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// publishQueue is the bounded FIFO holding publishes attempted while the
// broker link is down. When full, the oldest message is evicted so the
// most recent data wins after a reconnect.
type publishQueue struct {
	mu       sync.Mutex
	messages []queuedMessage
	capacity int
	dropped  atomic.Uint64
}

func newPublishQueue(capacity int) *publishQueue {
	return &publishQueue{capacity: capacity}
}

// add appends the message, evicting the oldest entry when at capacity.
// Returns true if an eviction happened.
func (q *publishQueue) add(msg queuedMessage) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	evicted := false
	if len(q.messages) >= q.capacity {
		q.messages = q.messages[1:]
		q.dropped.Add(1)
		evicted = true
	}
	q.messages = append(q.messages, msg)
	return evicted
}

// drain returns all queued messages in arrival order and empties the
// queue.
func (q *publishQueue) drain() []queuedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.messages
	q.messages = nil
	return out
}

func (q *publishQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

func (q *publishQueue) droppedCount() uint64 {
	return q.dropped.Load()
}
