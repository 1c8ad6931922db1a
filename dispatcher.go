// dispatcher.go: Bounded cross-goroutine action queue
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"math/bits"
	"sync/atomic"
)

const (
	defaultQueueCapacity = 1024
	dropWarnInterval     = 100
)

// Dispatcher marshals work from arbitrary goroutines onto the single
// consuming goroutine of the host's update loop. Producers push with
// atomic CAS and never block; the consumer drains a bounded number of
// actions per tick.
//
// When the queue is full new actions are dropped and a rate-limited
// diagnostic is emitted, once per hundred drops. Logging infrastructure
// must never become a backpressure source for the application it
// instruments.
type Dispatcher struct {
	buffer   []atomic.Pointer[func()]
	mask     uint64
	head     atomic.Uint64 // consumer position
	tail     atomic.Uint64 // producer position
	dropped  atomic.Uint64
	executed atomic.Uint64
	diag     DiagnosticFunc
}

// nextPow2 returns the next power of 2 greater than or equal to x.
func nextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	return 1 << (64 - bits.LeadingZeros64(x-1))
}

// NewDispatcher creates a queue with at least the given capacity,
// rounded up to a power of 2 so index wrapping is a bitwise AND.
// Non-positive capacities fall back to the default.
func NewDispatcher(capacity int, diag DiagnosticFunc) *Dispatcher {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	size := nextPow2(uint64(capacity))
	return &Dispatcher{
		buffer: make([]atomic.Pointer[func()], size),
		mask:   size - 1,
		diag:   normalizeDiag(diag),
	}
}

// Enqueue hands an action to the consumer. Callable from any goroutine.
// Returns false when the queue is full and the action was dropped.
func (d *Dispatcher) Enqueue(action func()) bool {
	if action == nil {
		return false
	}

	for {
		tail := d.tail.Load()
		head := d.head.Load()

		if tail-head >= uint64(len(d.buffer)) {
			d.noteDrop()
			return false
		}

		// Reserve the slot first; only the winning producer writes it.
		if d.tail.CompareAndSwap(tail, tail+1) {
			d.buffer[tail&d.mask].Store(&action)
			return true
		}
		// Another producer claimed the slot, retry.
	}
}

// Process drains up to maxPerTick actions. It must only be called from
// the single consuming goroutine, once per host update tick. Each action
// runs isolated: a panicking action is reported and does not stop
// processing of the remaining queue. Returns the number of actions run.
func (d *Dispatcher) Process(maxPerTick int) int {
	if maxPerTick <= 0 {
		maxPerTick = len(d.buffer)
	}

	processed := 0
	for processed < maxPerTick {
		head := d.head.Load()
		if head >= d.tail.Load() {
			break
		}
		if !d.head.CompareAndSwap(head, head+1) {
			continue
		}

		idx := head & d.mask
		actionPtr := d.buffer[idx].Load()
		d.buffer[idx].Store(nil)
		if actionPtr == nil {
			// Producer reserved the slot but has not stored yet; the
			// action is lost to this tick. Should not happen with a
			// well-behaved single consumer, handle gracefully.
			continue
		}

		d.run(*actionPtr)
		processed++
	}
	return processed
}

// Len returns the current queue depth.
func (d *Dispatcher) Len() int {
	head := d.head.Load()
	tail := d.tail.Load()
	if tail <= head {
		return 0
	}
	return int(tail - head)
}

// Cap returns the fixed queue capacity.
func (d *Dispatcher) Cap() int { return len(d.buffer) }

// Dropped returns the total number of actions dropped on overflow.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Executed returns the total number of actions run.
func (d *Dispatcher) Executed() uint64 { return d.executed.Load() }

// run executes one action with panic isolation.
func (d *Dispatcher) run(action func()) {
	defer func() {
		if rec := recover(); rec != nil {
			d.diag("dispatch", fmt.Errorf("queued action panic [%v]", rec))
		}
	}()
	d.executed.Add(1)
	action()
}

// noteDrop counts an overflow drop. Drops are a designed degradation,
// not an error; the diagnostic is emitted on the first drop and then
// once per dropWarnInterval during a sustained overflow.
func (d *Dispatcher) noteDrop() {
	n := d.dropped.Add(1)
	if n%dropWarnInterval == 1 {
		d.diag("queue_overflow", fmt.Errorf("dispatch queue full, %d actions dropped so far", n))
	}
}
