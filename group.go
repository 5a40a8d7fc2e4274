package xstream

import (
	"fmt"
	"sync/atomic"
)

// ConsumerGroup owns one partition ring per topic partition and hands
// disjoint subsets of those rings to its registered consumers. Every event
// published to the group's topic is delivered to the group exactly once
// (drops aside).
//
// Lifecycle: consumers register while the group is building, then
// finalize() allocates the rings, computes assignments and freezes the
// group. No transition back.
type ConsumerGroup struct {
	id             string
	partitionCount int
	queueCapacity  int

	partitionRings []*Ring[Event]
	consumers      []*Consumer
	finalized      atomic.Bool
}

func newConsumerGroup(id string, partitionCount, queueCapacity int) *ConsumerGroup {
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	return &ConsumerGroup{
		id:             id,
		partitionCount: partitionCount,
		queueCapacity:  queueCapacity,
	}
}

// ID returns the group id.
func (g *ConsumerGroup) ID() string { return g.id }

// PartitionCount returns the partition count of the subscribed topic.
func (g *ConsumerGroup) PartitionCount() int { return g.partitionCount }

// register appends a consumer and returns its assigned id "<group>/<index>".
// Legal only before finalization.
func (g *ConsumerGroup) register(c *Consumer) (string, error) {
	if g.finalized.Load() {
		return "", ErrGroupFinalized
	}
	index := len(g.consumers)
	g.consumers = append(g.consumers, c)
	return fmt.Sprintf("%s/%d", g.id, index), nil
}

// finalize allocates the partition rings, assigns ring j to consumer
// j mod K, hands each consumer its ring list, and freezes the group.
// With more consumers than partitions, the excess consumers hold no rings
// and simply poll empty.
func (g *ConsumerGroup) finalize() error {
	if g.finalized.Load() {
		return ErrGroupFinalized
	}
	if len(g.consumers) == 0 {
		return fmt.Errorf("%w: %s", ErrNoConsumers, g.id)
	}

	assignments := make(map[int][]*Ring[Event], len(g.consumers))
	for i := 0; i < g.partitionCount; i++ {
		ring, err := NewRing[Event](g.queueCapacity)
		if err != nil {
			return fmt.Errorf("xstream: group %s partition %d: %w", g.id, i, err)
		}
		g.partitionRings = append(g.partitionRings, ring)
		owner := i % len(g.consumers)
		assignments[owner] = append(assignments[owner], ring)
	}

	for i, c := range g.consumers {
		c.receiveQueues(assignments[i])
	}

	g.finalized.Store(true)
	return nil
}

// deliver forwards an event to the given partition ring through the
// back-pressure handler. Legal only after finalization.
func (g *ConsumerGroup) deliver(ev Event, partition int, bp *backPressureHandler) bool {
	if !g.finalized.Load() {
		return false
	}
	return bp.tryEnqueue(g.partitionRings[partition], ev)
}
