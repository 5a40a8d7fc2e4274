package xstream

import (
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Option configures ambient collaborators of an EventBus. The topology
// itself always comes from the Config record.
type Option func(*EventBus)

// WithLogger sets the logger used for construction and incident logging.
// Defaults to xlog.Default().
func WithLogger(l *xlog.Logger) Option {
	return func(b *EventBus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock injects the clock used for back-pressure deadlines and for
// stamping events published with a zero ProducedAt. Defaults to
// xclock.Default().
func WithClock(c xclock.Clock) Option {
	return func(b *EventBus) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithObserver registers observers for publish-path incidents.
func WithObserver(obs ...Observer) Option {
	return func(b *EventBus) {
		for _, o := range obs {
			if o != nil {
				b.observers = append(b.observers, o)
			}
		}
	}
}
