package session

import (
	"sort"
	"sync"
	"time"
)

// Task is a scheduled function that has not necessarily run yet.
type Task interface {
	// Cancel stops the task. It reports false if the task already ran or was cancelled.
	Cancel() bool
}

// Scheduler runs a function after a delay.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Task
}

// TimerScheduler schedules on wall-clock timers.
type TimerScheduler struct{}

type timerTask struct{ t *time.Timer }

func (t timerTask) Cancel() bool { return t.t.Stop() }

func (TimerScheduler) Schedule(delay time.Duration, fn func()) Task {
	return timerTask{t: time.AfterFunc(delay, fn)}
}

// ImmediateScheduler runs every function synchronously, ignoring the delay.
//
// One-shot CLI commands use it since they exit before any timer could fire.
type ImmediateScheduler struct{}

type doneTask struct{}

func (doneTask) Cancel() bool { return false }

func (ImmediateScheduler) Schedule(_ time.Duration, fn func()) Task {
	fn()
	return doneTask{}
}

// ManualScheduler holds tasks until [ManualScheduler.Advance] moves its clock past their deadline.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*manualTask
}

type manualTask struct {
	s        *ManualScheduler
	at       time.Duration
	fn       func()
	done     bool
	canceled bool
}

func NewManualScheduler() *ManualScheduler { return &ManualScheduler{} }

func (s *ManualScheduler) Schedule(delay time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{s: s, at: s.now + delay, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

func (t *manualTask) Cancel() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done || t.canceled {
		return false
	}
	t.canceled = true
	return true
}

// Pending returns the number of tasks that have neither run nor been cancelled.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.done && !t.canceled {
			n++
		}
	}
	return n
}

// NextDelay returns the delay until the earliest pending task, relative to the current clock.
func (s *ManualScheduler) NextDelay() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		best  time.Duration
		found bool
	)
	for _, t := range s.tasks {
		if t.done || t.canceled {
			continue
		}
		if !found || t.at < best {
			best, found = t.at, true
		}
	}
	return best - s.now, found
}

// Advance moves the clock forward by d and runs every due task in deadline order.
//
// Tasks run without the scheduler lock held, so they may schedule more work.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	var due []*manualTask
	for _, t := range s.tasks {
		if !t.done && !t.canceled && t.at <= s.now {
			t.done = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fn()
	}
	return len(due)
}
