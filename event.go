package xstream

import (
	"time"

	"github.com/trickstertwo/xclock"
)

// Event is the value traveling the bus. Events are copied into ring slots
// on publish; the caller's copy is never referenced afterwards.
type Event struct {
	// Topic names the logical channel the event is published to.
	Topic string
	// Payload is opaque to the bus and copied by value.
	Payload string
	// ID is assigned by the bus at publish time. Per topic it is strictly
	// increasing across all partitions; any caller-set value is overwritten.
	ID uint64
	// ProducedAt is the production timestamp, used for latency measurement
	// on the consumer side. NewEvent sets it from xclock.Default(); Publish
	// fills a zero value from the bus clock.
	ProducedAt time.Time
}

// NewEvent builds an event stamped with the default clock.
func NewEvent(topic, payload string) Event {
	return Event{
		Topic:      topic,
		Payload:    payload,
		ProducedAt: xclock.Default().Now(),
	}
}
