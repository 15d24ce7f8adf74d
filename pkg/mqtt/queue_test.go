package mqtt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPublishQueue_DropsOldestWhenFull verifies the bounded queue evicts
// the oldest message so the most recent data survives.
func TestPublishQueue_DropsOldestWhenFull(t *testing.T) {
	q := newPublishQueue(3)

	for i := 0; i < 3; i++ {
		evicted := q.add(queuedMessage{topic: fmt.Sprintf("t/%d", i)})
		assert.False(t, evicted)
	}
	assert.Equal(t, 3, q.len())

	evicted := q.add(queuedMessage{topic: "t/3"})

	assert.True(t, evicted)
	assert.Equal(t, 3, q.len())
	assert.Equal(t, uint64(1), q.droppedCount())

	msgs := q.drain()
	assert.Len(t, msgs, 3)
	assert.Equal(t, "t/1", msgs[0].topic)
	assert.Equal(t, "t/3", msgs[2].topic)
}

// TestPublishQueue_DrainEmptiesInArrivalOrder verifies drain returns
// messages FIFO and leaves the queue empty.
func TestPublishQueue_DrainEmptiesInArrivalOrder(t *testing.T) {
	q := newPublishQueue(8)
	q.add(queuedMessage{topic: "a"})
	q.add(queuedMessage{topic: "b"})
	q.add(queuedMessage{topic: "c"})

	msgs := q.drain()

	assert.Equal(t, []string{"a", "b", "c"}, []string{msgs[0].topic, msgs[1].topic, msgs[2].topic})
	assert.Equal(t, 0, q.len())
	assert.Empty(t, q.drain())
}
