package xstream

import (
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// EventBus is the central Facade: it owns the topics, the consumer groups
// and the consumer handles, and dispatches published events into the
// partition rings of every subscribing group.
//
// The topology is built once from a Config and frozen before New returns;
// after that every map is read-only and the publish path takes no lock.
// Publish may be called from any goroutine. Each consumer handle must be
// polled by one goroutine at a time.
type EventBus struct {
	topics             map[string]*Topic
	groupsByTopicName  map[string][]*ConsumerGroup
	consumersByGroupID map[string][]*Consumer
	topicNameByGroupID map[string]string

	backPressure backPressureHandler
	clock        xclock.Clock
	logger       *xlog.Logger
	observers    []Observer
	metrics      busMetrics
}

// busMetrics uses lock-free atomics so the hot path never takes a lock.
type busMetrics struct {
	published     atomic.Uint64
	enqueued      atomic.Uint64
	dropped       atomic.Uint64
	noSubscribers atomic.Uint64
	pollBatches   atomic.Uint64
	polled        atomic.Uint64
}

// Metrics is a point-in-time snapshot of bus counters.
type Metrics struct {
	// Published counts publish calls that resolved a topic with at least
	// one subscribing group.
	Published uint64
	// Enqueued counts successful per-group enqueues.
	Enqueued uint64
	// Dropped counts per-group enqueues rejected after back-pressure.
	Dropped uint64
	// NoSubscribers counts publishes to topics without groups.
	NoSubscribers uint64
	// PollBatches counts PollBatch calls across all consumers.
	PollBatches uint64
	// Polled counts events returned by PollBatch across all consumers.
	Polled uint64
}

// New builds an EventBus from the config record. Topics are created first,
// then each declared group is created, populated with its consumers and
// finalized. Construction errors are fatal; after New returns the topology
// is immutable and Publish becomes callable.
func New(cfg Config, opts ...Option) (*EventBus, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := &EventBus{
		topics:             make(map[string]*Topic, len(cfg.Topics)),
		groupsByTopicName:  make(map[string][]*ConsumerGroup),
		consumersByGroupID: make(map[string][]*Consumer, len(cfg.ConsumerGroups)),
		topicNameByGroupID: make(map[string]string, len(cfg.ConsumerGroups)),
		clock:              xclock.Default(),
		logger:             xlog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.backPressure = newBackPressureHandler(cfg.BackPressure, b.clock)

	for _, tc := range cfg.Topics {
		if _, exists := b.topics[tc.Name]; exists {
			return nil, ErrDuplicateTopic{topic: tc.Name}
		}
		b.topics[tc.Name] = newTopic(tc.Name, tc.PartitionCount)
	}

	for _, gc := range cfg.ConsumerGroups {
		if err := b.createConsumerGroup(gc); err != nil {
			return nil, err
		}
	}

	b.logger.Debug().
		Int("topics", len(b.topics)).
		Int("consumer_groups", len(b.topicNameByGroupID)).
		Str("back_pressure", b.backPressure.cfg.Strategy.String()).
		Msg("xstream: bus constructed")

	return b, nil
}

func (b *EventBus) createConsumerGroup(gc ConsumerGroupConfig) error {
	topic, ok := b.topics[gc.TopicName]
	if !ok {
		return fmt.Errorf("consumer group %s: %w", gc.GroupID, ErrUnknownTopic{topic: gc.TopicName})
	}
	if bound, exists := b.topicNameByGroupID[gc.GroupID]; exists {
		return ErrDuplicateGroup{group: gc.GroupID, topic: bound}
	}

	group := newConsumerGroup(gc.GroupID, topic.PartitionCount(), gc.QueueCapacity)

	for i := 0; i < gc.ConsumerCount; i++ {
		c := &Consumer{metrics: &b.metrics}
		id, err := group.register(c)
		if err != nil {
			return fmt.Errorf("consumer group %s: %w", gc.GroupID, err)
		}
		c.id = id
		b.consumersByGroupID[gc.GroupID] = append(b.consumersByGroupID[gc.GroupID], c)
	}

	if err := group.finalize(); err != nil {
		return err
	}

	b.groupsByTopicName[gc.TopicName] = append(b.groupsByTopicName[gc.TopicName], group)
	b.topicNameByGroupID[gc.GroupID] = gc.TopicName
	return nil
}

// Publish stamps the event with the topic's next id, picks its partition
// and fans it out to every subscribing group through the configured
// back-pressure policy.
//
// Publishing to an unknown topic is an error. A topic without groups
// returns (false, nil). Otherwise the result is true iff every group
// accepted the event; false means at least one group dropped it.
func (b *EventBus) Publish(ev Event, partitionKey string) (bool, error) {
	topic, ok := b.topics[ev.Topic]
	if !ok {
		return false, ErrUnknownTopic{topic: ev.Topic}
	}

	groups := b.groupsByTopicName[ev.Topic]
	if len(groups) == 0 {
		b.metrics.noSubscribers.Add(1)
		b.notify(BusEvent{Type: BusEventNoSubscribers, Topic: ev.Topic})
		return false, nil
	}

	// One id per publish call; every group sees the same stamped copy.
	ev.ID = topic.nextEventID()
	if ev.ProducedAt.IsZero() {
		ev.ProducedAt = b.clock.Now()
	}

	partition := partitionIndex(ev.ID, topic.PartitionCount(), partitionKey)

	b.metrics.published.Add(1)

	allAccepted := true
	for _, g := range groups {
		if g.deliver(ev, partition, &b.backPressure) {
			b.metrics.enqueued.Add(1)
			continue
		}
		b.metrics.dropped.Add(1)
		b.notify(BusEvent{
			Type:      BusEventDrop,
			Topic:     ev.Topic,
			Group:     g.id,
			Partition: partition,
			EventID:   ev.ID,
		})
		allAccepted = false
	}
	return allAccepted, nil
}

// partitionIndex routes by id when no key is given and by key hash
// otherwise, so all events sharing a key land on one partition.
func partitionIndex(eventID uint64, partitionCount int, partitionKey string) int {
	if partitionKey == "" {
		return int(eventID % uint64(partitionCount))
	}
	return int(xxhash.Sum64String(partitionKey) % uint64(partitionCount))
}

// ConsumersByGroupID returns the consumer handles per group. The handles
// are shared with the bus; the returned map and slices are copies.
func (b *EventBus) ConsumersByGroupID() map[string][]*Consumer {
	out := make(map[string][]*Consumer, len(b.consumersByGroupID))
	for id, consumers := range b.consumersByGroupID {
		cs := make([]*Consumer, len(consumers))
		copy(cs, consumers)
		out[id] = cs
	}
	return out
}

// Metrics returns a snapshot of the bus counters.
func (b *EventBus) Metrics() Metrics {
	return Metrics{
		Published:     b.metrics.published.Load(),
		Enqueued:      b.metrics.enqueued.Load(),
		Dropped:       b.metrics.dropped.Load(),
		NoSubscribers: b.metrics.noSubscribers.Load(),
		PollBatches:   b.metrics.pollBatches.Load(),
		Polled:        b.metrics.polled.Load(),
	}
}

func (b *EventBus) notify(e BusEvent) {
	for _, o := range b.observers {
		o.OnBusEvent(e)
	}
}
