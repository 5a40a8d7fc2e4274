package xstream

import (
	"sync/atomic"
)

// DefaultQueueCapacity is the per-partition ring capacity used when a
// consumer group does not configure one.
const DefaultQueueCapacity = 8192

// slot holds one item plus the sequence counter encoding its phase.
// The sequence is the only field touched by both sides; the item is
// protected by the acquire/release pairing on the sequence.
type slot[T any] struct {
	item T
	seq  atomic.Uint64
}

// Ring is a bounded lock-free multi-producer single-consumer queue.
//
// Producers claim positions with a CAS on tail; per-slot sequence numbers
// tell each side whether a slot is ready without any shared lock. Cursors
// are free-running and never masked; the mask is applied only when indexing
// the backing array. At rest, slot i carries sequence k*C+i when empty for
// production round k, and k*C+i+1 when filled.
//
// Enqueue is safe from any number of goroutines. Dequeue must only ever be
// called from one goroutine at a time; concurrent dequeues are undefined.
// Neither side blocks or allocates.
type Ring[T any] struct {
	capacity uint64
	mask     uint64
	buf      []slot[T]

	// head and tail live on their own cache lines so producers and the
	// consumer do not invalidate each other's line on every operation.
	_    [64]byte
	head atomic.Uint64
	_    [64]byte
	tail atomic.Uint64
	_    [64]byte
}

// NewRing constructs a ring with at least the requested capacity.
// Capacities that are not a power of two are rounded up to the next one.
func NewRing[T any](capacity int) (*Ring[T], error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity{capacity: capacity}
	}
	c := nextPowerOfTwo(uint64(capacity))

	r := &Ring[T]{
		capacity: c,
		mask:     c - 1,
		buf:      make([]slot[T], c),
	}
	for i := range r.buf {
		r.buf[i].seq.Store(uint64(i))
	}
	return r, nil
}

// Enqueue attempts to append item. Returns false when the ring is full.
func (r *Ring[T]) Enqueue(item T) bool {
	if r.capacity == 1 {
		return r.enqueueSingle(item)
	}

	pos := r.tail.Load()
	for {
		s := &r.buf[pos&r.mask]
		seq := s.seq.Load()
		diff := int64(seq - pos)

		switch {
		case diff == 0:
			// Slot is ready for this position; try to claim it.
			if r.tail.CompareAndSwap(pos, pos+1) {
				s.item = item
				s.seq.Store(pos + 1)
				return true
			}
			// Lost the race; the winner advanced tail.
			pos = r.tail.Load()
		case diff < 0:
			// The consumer has not released this slot yet.
			return false
		default:
			// Another producer got ahead; refresh and retry.
			pos = r.tail.Load()
		}
	}
}

// enqueueSingle serves the one-slot ring, where the sequence domain cannot
// distinguish a full slot from the next round's empty one (k*C+i+1 equals
// (k+1)*C+i when C is 1). Fullness is gated on cursor distance instead;
// the slot sequence still publishes the item to the consumer.
func (r *Ring[T]) enqueueSingle(item T) bool {
	for {
		pos := r.tail.Load()
		if pos-r.head.Load() >= 1 {
			return false
		}
		if r.tail.CompareAndSwap(pos, pos+1) {
			s := &r.buf[0]
			s.item = item
			s.seq.Store(pos + 1)
			return true
		}
	}
}

// Dequeue moves the next item into out. Returns false when the ring is
// empty or the claimed slot has not been published yet.
func (r *Ring[T]) Dequeue(out *T) bool {
	pos := r.head.Load()
	s := &r.buf[pos&r.mask]

	if s.seq.Load() != pos+1 {
		return false
	}

	*out = s.item
	s.seq.Store(pos + r.capacity)
	r.head.Store(pos + 1)
	return true
}

// Len reports the number of buffered items. The value is approximate while
// producers are active; it is exact at quiescence.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the ring capacity after power-of-two rounding.
func (r *Ring[T]) Cap() int { return int(r.capacity) }

func nextPowerOfTwo(v uint64) uint64 {
	c := uint64(1)
	for c < v {
		c <<= 1
	}
	return c
}
