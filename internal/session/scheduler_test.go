package session

import (
	"testing"
	"time"
)

func TestManualScheduler(t *testing.T) {
	s := NewManualScheduler()
	var ran []string

	s.Schedule(2*time.Second, func() { ran = append(ran, "b") })
	s.Schedule(time.Second, func() { ran = append(ran, "a") })
	cancelled := s.Schedule(time.Second, func() { ran = append(ran, "x") })

	if !cancelled.Cancel() {
		t.Error("first cancel should succeed")
	}
	if cancelled.Cancel() {
		t.Error("second cancel should report false")
	}
	if s.Pending() != 2 {
		t.Errorf("expected 2 pending, got %d", s.Pending())
	}

	if n := s.Advance(3 * time.Second); n != 2 {
		t.Errorf("expected 2 tasks to run, got %d", n)
	}
	if len(ran) != 2 || ran[0] != "a" || ran[1] != "b" {
		t.Errorf("expected tasks in deadline order, got %v", ran)
	}
	if _, ok := s.NextDelay(); ok {
		t.Error("expected no pending tasks")
	}
}

func TestTimerScheduler(t *testing.T) {
	done := make(chan struct{})
	TimerScheduler{}.Schedule(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer task did not run")
	}

	task := TimerScheduler{}.Schedule(time.Hour, func() { t.Error("cancelled task ran") })
	if !task.Cancel() {
		t.Error("expected cancel to stop the timer")
	}
}

func TestInbox(t *testing.T) {
	i := NewInbox()
	i.Notify(Notification{Level: LevelSuccess, Message: "ok"})
	i.Navigate(RouteHome)

	if n := i.Notifications(); len(n) != 1 || n[0].Message != "ok" {
		t.Errorf("unexpected notifications %v", n)
	}

	notes, routes := i.Drain()
	if len(notes) != 1 || len(routes) != 1 {
		t.Errorf("unexpected drain result %v %v", notes, routes)
	}
	if len(i.Notifications()) != 0 || len(i.Routes()) != 0 {
		t.Error("expected inbox to be empty after drain")
	}
}
