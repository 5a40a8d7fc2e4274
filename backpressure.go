package xstream

import (
	"fmt"
	"runtime"
	"time"

	"github.com/trickstertwo/xclock"
)

// BackPressureStrategy selects the behavior when a partition ring is full.
type BackPressureStrategy uint8

const (
	// BackPressureDropNewest makes a single enqueue attempt and drops the
	// event when the ring is full. Publish stays O(1).
	BackPressureDropNewest BackPressureStrategy = iota
	// BackPressureBlock retries with a short sleep between attempts until
	// the enqueue succeeds. No timeout; the publisher may block forever.
	BackPressureBlock
	// BackPressureSpin busy-retries until the enqueue succeeds or the
	// configured timeout expires.
	BackPressureSpin
	// BackPressureYieldingSpin busy-retries but yields the processor after
	// every SpinYieldThreshold attempts, bounded by the configured timeout.
	BackPressureYieldingSpin
)

func (s BackPressureStrategy) String() string {
	switch s {
	case BackPressureDropNewest:
		return "drop_newest"
	case BackPressureBlock:
		return "block"
	case BackPressureSpin:
		return "spin"
	case BackPressureYieldingSpin:
		return "yielding_spin"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ParseBackPressureStrategy maps a config string to a strategy.
func ParseBackPressureStrategy(name string) (BackPressureStrategy, error) {
	switch name {
	case "", "drop_newest":
		return BackPressureDropNewest, nil
	case "block":
		return BackPressureBlock, nil
	case "spin":
		return BackPressureSpin, nil
	case "yielding_spin":
		return BackPressureYieldingSpin, nil
	default:
		return 0, fmt.Errorf("xstream: unknown back-pressure strategy %q", name)
	}
}

// BackPressureConfig carries the strategy plus its tuning knobs. The zero
// value selects drop-newest with the default parameters.
type BackPressureConfig struct {
	Strategy BackPressureStrategy

	// SpinYieldThreshold is the number of failed attempts between yields
	// for the yielding-spin strategy.
	SpinYieldThreshold int

	// BlockSleep is the pause between attempts for the block strategy.
	BlockSleep time.Duration

	// Timeout bounds the spin and yielding-spin strategies. Block ignores it.
	Timeout time.Duration
}

const (
	defaultSpinYieldThreshold = 1000
	defaultBlockSleep         = 10 * time.Microsecond
	defaultBackPressureWait   = time.Second
)

func (c BackPressureConfig) withDefaults() BackPressureConfig {
	if c.SpinYieldThreshold <= 0 {
		c.SpinYieldThreshold = defaultSpinYieldThreshold
	}
	if c.BlockSleep <= 0 {
		c.BlockSleep = defaultBlockSleep
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultBackPressureWait
	}
	return c
}

// backPressureHandler holds the configured strategy, with defaults applied
// once at bus construction. tryEnqueue dispatches on the strategy with a
// switch on every call; the publish path makes no interface call.
type backPressureHandler struct {
	cfg   BackPressureConfig
	clock xclock.Clock
}

func newBackPressureHandler(cfg BackPressureConfig, clock xclock.Clock) backPressureHandler {
	return backPressureHandler{cfg: cfg.withDefaults(), clock: clock}
}

func (h *backPressureHandler) tryEnqueue(q *Ring[Event], ev Event) bool {
	switch h.cfg.Strategy {
	case BackPressureBlock:
		return h.enqueueBlocking(q, ev)
	case BackPressureSpin:
		return h.enqueueSpinning(q, ev)
	case BackPressureYieldingSpin:
		return h.enqueueYieldingSpin(q, ev)
	default:
		return q.Enqueue(ev)
	}
}

func (h *backPressureHandler) enqueueBlocking(q *Ring[Event], ev Event) bool {
	for !q.Enqueue(ev) {
		time.Sleep(h.cfg.BlockSleep)
	}
	return true
}

func (h *backPressureHandler) enqueueSpinning(q *Ring[Event], ev Event) bool {
	start := h.clock.Now()
	for !q.Enqueue(ev) {
		if h.clock.Since(start) > h.cfg.Timeout {
			return false
		}
	}
	return true
}

func (h *backPressureHandler) enqueueYieldingSpin(q *Ring[Event], ev Event) bool {
	start := h.clock.Now()
	spins := 0
	for !q.Enqueue(ev) {
		if h.clock.Since(start) > h.cfg.Timeout {
			return false
		}
		spins++
		if spins >= h.cfg.SpinYieldThreshold {
			runtime.Gosched()
			spins = 0
		}
	}
	return true
}
