package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tbraaten/notefeed/internal/logging"
)

// manualScheduler fires scheduled callbacks only when the test says so.
type manualScheduler struct {
	tasks []*manualTask
}

type manualTask struct {
	fn        func()
	cancelled bool
}

func (t *manualTask) Cancel() { t.cancelled = true }

func (s *manualScheduler) ScheduleOnce(_ time.Duration, fn func()) Handle {
	task := &manualTask{fn: fn}
	s.tasks = append(s.tasks, task)
	return task
}

// Fire runs every scheduled callback that was not cancelled.
func (s *manualScheduler) Fire() {
	tasks := s.tasks
	s.tasks = nil
	for _, task := range tasks {
		if !task.cancelled {
			task.fn()
		}
	}
}

func (s *manualScheduler) scheduledCount() int {
	n := 0
	for _, task := range s.tasks {
		if !task.cancelled {
			n++
		}
	}
	return n
}

type coalescerHarness struct {
	sched *manualScheduler
	tl    *timeline
	co    *coalescer
	atTop bool
}

func newCoalescerHarness(maxItems int) *coalescerHarness {
	h := &coalescerHarness{
		sched: &manualScheduler{},
		tl:    newTimeline(maxItems),
		atTop: true,
	}
	h.co = newCoalescer(h.sched, time.Millisecond, h.tl,
		func() bool { return h.atTop },
		func(fn func()) { fn() },
		logging.Component("test"),
	)
	return h
}

func TestCoalescerSingleFlushPerTick(t *testing.T) {
	h := newCoalescerHarness(500)
	h.co.Enqueue(note("a"))
	h.co.Enqueue(note("b"))
	h.co.Enqueue(note("c"))
	require.Equal(t, 1, h.sched.scheduledCount(), "re-entrant enqueues coalesce into one tick")
	require.Empty(t, h.tl.active, "nothing lands before the tick")

	h.sched.Fire()
	require.Len(t, h.tl.active, 3)
	require.Equal(t, 0, h.sched.scheduledCount())
}

func TestCoalescerFlushPreservesBatchOrder(t *testing.T) {
	h := newCoalescerHarness(500)
	h.co.Enqueue(note("a"))
	h.co.Enqueue(note("b"))
	h.sched.Fire()
	h.co.Enqueue(note("c"))
	h.sched.Fire()

	ids := activeIDs(h.tl)
	require.Equal(t, []string{"c", "a", "b"}, ids, "later batches land above earlier ones, arrival order kept within a batch")
}

func TestCoalescerDedupAgainstActive(t *testing.T) {
	h := newCoalescerHarness(500)
	h.tl.replace([]*Note{note("a")})

	h.co.Enqueue(note("a"))
	h.co.Enqueue(note("b"))
	h.co.Enqueue(note("b"))
	h.sched.Fire()

	require.Equal(t, []string{"b", "a"}, activeIDs(h.tl))
	require.Equal(t, 2, h.tl.index.Len())
}

func TestCoalescerScrolledFlushGoesToPending(t *testing.T) {
	h := newCoalescerHarness(500)
	h.tl.replace([]*Note{note("a")})
	h.atTop = false

	h.co.Enqueue(note("b"))
	h.sched.Fire()

	require.Equal(t, []string{"a"}, activeIDs(h.tl), "active untouched while scrolled")
	require.False(t, h.tl.index.Has("b"), "index untouched while scrolled")
	require.Len(t, h.tl.pending, 1)
}

func TestCoalescerFlushPendingDedups(t *testing.T) {
	h := newCoalescerHarness(500)
	h.tl.replace([]*Note{note("a")})
	h.atTop = false

	// "b" arrives via stream while scrolled, then also lands in active through
	// a differential fetch before the user scrolls back up.
	h.co.Enqueue(note("b"))
	h.co.Enqueue(note("c"))
	h.sched.Fire()
	h.tl.prependActive([]*Note{note("b")})

	moved := h.tl.flushPending()
	require.Equal(t, 1, moved, "only the note not already active moves")
	require.Equal(t, []string{"c", "b", "a"}, activeIDs(h.tl))
	require.Empty(t, h.tl.pending)
}

func TestCoalescerBounded(t *testing.T) {
	h := newCoalescerHarness(5)
	for i := 0; i < 20; i++ {
		h.co.Enqueue(note(fmt.Sprintf("n%02d", i)))
	}
	h.sched.Fire()
	require.Len(t, h.tl.active, 5)

	h.atTop = false
	for i := 20; i < 40; i++ {
		h.co.Enqueue(note(fmt.Sprintf("n%02d", i)))
	}
	h.sched.Fire()
	require.LessOrEqual(t, len(h.tl.pending), 5)
}

func TestCoalescerResetCancelsScheduledFlush(t *testing.T) {
	h := newCoalescerHarness(500)
	h.co.Enqueue(note("a"))
	require.Equal(t, 1, h.sched.scheduledCount())

	h.co.Reset()
	h.sched.Fire()
	require.Empty(t, h.tl.active, "cancelled flush must not resurrect stale notes")

	// Late firing of an already-started callback is also a no-op thanks to the
	// generation check.
	h.co.Enqueue(note("b"))
	task := h.sched.tasks[0]
	h.co.Reset()
	task.cancelled = false
	task.fn()
	require.Empty(t, h.tl.active)
}

func TestCoalescerResetClearsPending(t *testing.T) {
	h := newCoalescerHarness(500)
	h.atTop = false
	h.co.Enqueue(note("a"))
	h.sched.Fire()
	require.Len(t, h.tl.pending, 1)

	h.co.Reset()
	require.Empty(t, h.tl.pending)
}

func activeIDs(tl *timeline) []string {
	ids := make([]string, 0, len(tl.active))
	for _, n := range tl.active {
		ids = append(ids, n.ID)
	}
	return ids
}
