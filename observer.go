package xstream

import (
	"github.com/trickstertwo/xlog"
)

// BusEventType enumerates publish-path incidents surfaced to observers.
type BusEventType string

const (
	// BusEventDrop fires when a group's partition ring rejected an event
	// after the back-pressure policy resolved.
	BusEventDrop BusEventType = "drop"
	// BusEventNoSubscribers fires when a publish found no consumer groups
	// on the topic.
	BusEventNoSubscribers BusEventType = "no_subscribers"
)

// BusEvent carries telemetry for observers. Success paths never notify;
// only incidents do, so observers stay off the hot path.
type BusEvent struct {
	Type      BusEventType
	Topic     string
	Group     string
	Partition int
	EventID   uint64
}

// Observer receives bus incidents. Implementations should be non-blocking;
// they run on the publishing goroutine.
type Observer interface {
	OnBusEvent(e BusEvent)
}

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(e BusEvent)

func (f ObserverFunc) OnBusEvent(e BusEvent) { f(e) }

// LoggingObserver is an Adapter that emits bus incidents via xlog.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnBusEvent(e BusEvent) {
	if o.Logger == nil {
		return
	}
	o.Logger.Warn().
		Str("type", string(e.Type)).
		Str("topic", e.Topic).
		Str("group", e.Group).
		Int("partition", e.Partition).
		Uint64("event_id", e.EventID).
		Msg("xstream event")
}
