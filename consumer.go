package xstream

// Consumer drains the partition rings assigned to it by its group.
//
// A consumer must be polled by exactly one goroutine at a time: its rings
// are single-consumer on the dequeue side. Any number of goroutines may
// publish concurrently.
type Consumer struct {
	id      string
	queues  []*Ring[Event]
	metrics *busMetrics
}

// ID returns the consumer id in the form "<group>/<index>".
func (c *Consumer) ID() string { return c.id }

// QueueCount returns the number of partition rings assigned to this
// consumer. Zero when the group has more consumers than partitions.
func (c *Consumer) QueueCount() int { return len(c.queues) }

func (c *Consumer) receiveQueues(queues []*Ring[Event]) {
	c.queues = queues
}

// PollBatch drains up to max events across the consumer's rings and
// returns them. Non-blocking; returns an empty slice when nothing is
// buffered, and nil when the consumer holds no rings or max is not positive.
//
// The budget is divided evenly: each ring contributes max/len(queues)
// events, and the remainder grants one extra event to the leading rings.
// Draining per ring keeps memory-ordering work off the per-event path
// while a hot ring still cannot starve a cold one across calls.
func (c *Consumer) PollBatch(max int) []Event {
	if len(c.queues) == 0 || max <= 0 {
		return nil
	}

	events := make([]Event, 0, max)

	perQueue := max / len(c.queues)
	remainder := max % len(c.queues)

	for _, q := range c.queues {
		take := perQueue
		if remainder > 0 {
			take++
			remainder--
		}

		var ev Event
		for taken := 0; taken < take; taken++ {
			if !q.Dequeue(&ev) {
				break
			}
			events = append(events, ev)
		}
	}

	if c.metrics != nil {
		c.metrics.pollBatches.Add(1)
		c.metrics.polled.Add(uint64(len(events)))
	}
	return events
}
