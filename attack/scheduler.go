package attack

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"atomicgo.dev/schedule"
)

type taskScheduler struct{}

// NewScheduler returns a Scheduler backed by wall-clock timers.
func NewScheduler() Scheduler {
	return taskScheduler{}
}

func (taskScheduler) After(d time.Duration, fn func()) Timer {
	t := &scheduledTask{}
	t.task = schedule.After(d, func() {
		if t.claim() {
			fn()
		}
	})
	return t
}

// scheduledTask wraps a schedule.Task. The task closes itself once its
// function returns, so Stop never closes it: it only disarms the function and
// the task lapses at its deadline.
type scheduledTask struct {
	mu      sync.Mutex
	task    *schedule.Task
	claimed bool
}

func (t *scheduledTask) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.claimed {
		return false
	}
	t.claimed = true
	return true
}

func (t *scheduledTask) Stop() bool {
	return t.claim()
}

func (t *scheduledTask) Remaining() time.Duration {
	return max(t.task.ExecutesIn(), 0)
}

// ManualScheduler is a Scheduler driven by Advance instead of the clock.
// Functions run on the goroutine calling Advance.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	s   *ManualScheduler
	due time.Duration
	seq int
	fn  func()
}

// NewManualScheduler returns a scheduler whose clock only moves on Advance.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// After registers fn to run once Advance has moved the clock by d.
func (s *ManualScheduler) After(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTimer{s: s, due: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves virtual time forward by d and runs every call that became
// due, earliest first. It returns how many ran.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	var due []*manualTimer
	s.timers = slices.DeleteFunc(s.timers, func(t *manualTimer) bool {
		if t.due <= s.now {
			due = append(due, t)
			return true
		}
		return false
	})
	s.mu.Unlock()

	slices.SortFunc(due, func(a, b *manualTimer) int {
		if c := cmp.Compare(a.due, b.due); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// Pending returns how many calls are waiting.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Elapsed returns the virtual time advanced so far.
func (s *ManualScheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	n := len(t.s.timers)
	t.s.timers = slices.DeleteFunc(t.s.timers, func(other *manualTimer) bool { return other == t })
	return len(t.s.timers) != n
}

func (t *manualTimer) Remaining() time.Duration {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return max(t.due-t.s.now, 0)
}
