package xstream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// preloadedConsumer builds a consumer holding rings preloaded with counts[i]
// events; payloads carry the source ring index.
func preloadedConsumer(t *testing.T, counts ...int) *Consumer {
	t.Helper()
	queues := make([]*Ring[Event], 0, len(counts))
	for q, n := range counts {
		r, err := NewRing[Event](64)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			require.True(t, r.Enqueue(Event{Payload: fmt.Sprintf("q%d", q)}))
		}
		queues = append(queues, r)
	}
	return &Consumer{id: "test/0", queues: queues}
}

func bySource(events []Event) map[string]int {
	out := make(map[string]int)
	for _, ev := range events {
		out[ev.Payload]++
	}
	return out
}

func TestPollBatch_FairDivision(t *testing.T) {
	// 3 rings with 10 events each: a budget of 9 takes 3 from each.
	c := preloadedConsumer(t, 10, 10, 10)

	events := c.PollBatch(9)
	require.Len(t, events, 9)
	assert.Equal(t, map[string]int{"q0": 3, "q1": 3, "q2": 3}, bySource(events))
}

func TestPollBatch_RemainderGoesToLeadingQueues(t *testing.T) {
	// Budget 10 over 3 rings: base 3, one bonus slot for the first ring.
	c := preloadedConsumer(t, 10, 10, 10)

	events := c.PollBatch(10)
	require.Len(t, events, 10)
	assert.Equal(t, map[string]int{"q0": 4, "q1": 3, "q2": 3}, bySource(events))
}

func TestPollBatch_EmptyQueueStopsEarly(t *testing.T) {
	// The empty ring contributes nothing; its unused budget is not
	// redistributed within the same call.
	c := preloadedConsumer(t, 0, 10, 10)

	events := c.PollBatch(9)
	require.Len(t, events, 6)
	assert.Equal(t, map[string]int{"q1": 3, "q2": 3}, bySource(events))
}

func TestPollBatch_SingleQueueReducesToDequeue(t *testing.T) {
	c := preloadedConsumer(t, 5)

	events := c.PollBatch(10)
	require.Len(t, events, 5)
	assert.Equal(t, map[string]int{"q0": 5}, bySource(events))
}

func TestPollBatch_ZeroBudget(t *testing.T) {
	c := preloadedConsumer(t, 10)
	assert.Nil(t, c.PollBatch(0))
	assert.Nil(t, c.PollBatch(-1))
}

func TestPollBatch_NoQueues(t *testing.T) {
	c := &Consumer{id: "idle/0"}
	assert.Nil(t, c.PollBatch(100))
}

func TestPollBatch_PreservesPerQueueOrder(t *testing.T) {
	r, err := NewRing[Event](16)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		require.True(t, r.Enqueue(Event{ID: uint64(i)}))
	}
	c := &Consumer{queues: []*Ring[Event]{r}}

	events := c.PollBatch(8)
	require.Len(t, events, 8)
	for i, ev := range events {
		assert.Equal(t, uint64(i), ev.ID)
	}
}

func TestPollBatch_SuccessivePolls(t *testing.T) {
	c := preloadedConsumer(t, 4, 4)

	first := c.PollBatch(4)
	require.Len(t, first, 4)
	assert.Equal(t, map[string]int{"q0": 2, "q1": 2}, bySource(first))

	second := c.PollBatch(8)
	require.Len(t, second, 4)
	assert.Equal(t, map[string]int{"q0": 2, "q1": 2}, bySource(second))

	assert.Empty(t, c.PollBatch(8))
}
