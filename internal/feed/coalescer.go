package feed

import (
	"time"

	"github.com/rs/zerolog"
)

// coalescer buffers live arrivals and folds them into the timeline at most
// once per scheduling tick, so a fast stream costs one list update per tick
// instead of one per note.
//
// The coalescer has no lock of its own: the owning controller passes a run
// callback that executes the scheduled flush under its lock, and calls every
// other method with that lock already held. Exactly one flush is in flight at
// a time; Reset cancels it synchronously via the generation counter even when
// the timer has already fired.
type coalescer struct {
	sched Scheduler
	delay time.Duration
	tl    *timeline
	// atTop reports whether the viewport is at the top of the column.
	atTop func() bool
	// run executes fn under the owner's lock.
	run func(func())
	log zerolog.Logger

	buffer []*Note
	handle Handle
	gen    uint64
}

func newCoalescer(sched Scheduler, delay time.Duration, tl *timeline, atTop func() bool, run func(func()), log zerolog.Logger) *coalescer {
	return &coalescer{
		sched: sched,
		delay: delay,
		tl:    tl,
		atTop: atTop,
		run:   run,
		log:   log,
	}
}

// Enqueue buffers one arrival and schedules a flush if none is in flight.
func (c *coalescer) Enqueue(n *Note) {
	c.buffer = append(c.buffer, n)
	if c.handle != nil {
		return
	}
	gen := c.gen
	c.handle = c.sched.ScheduleOnce(c.delay, func() {
		c.run(func() {
			if c.gen != gen {
				// Reset raced the timer; the buffer it would have flushed is
				// already gone.
				return
			}
			c.handle = nil
			c.Flush()
		})
	})
}

// Flush folds the buffer into the timeline: into active when the viewport is
// at the top, into pending otherwise, leaving active and the dedup index
// untouched in the latter case.
func (c *coalescer) Flush() {
	if len(c.buffer) == 0 {
		return
	}
	batch := c.buffer
	c.buffer = nil

	if c.atTop() {
		n := c.tl.prependActive(batch)
		c.log.Trace().Int("arrived", len(batch)).Int("inserted", n).Msg("flushed to active")
		return
	}
	c.tl.prependPending(batch)
	c.log.Trace().Int("arrived", len(batch)).Int("pending", len(c.tl.pending)).Msg("flushed to pending")
}

// Reset cancels any scheduled flush and drops buffered and pending notes so a
// stale batch from a previous subscription never leaks into a new one.
func (c *coalescer) Reset() {
	c.gen++
	if c.handle != nil {
		c.handle.Cancel()
		c.handle = nil
	}
	c.buffer = nil
	c.tl.pending = nil
}
