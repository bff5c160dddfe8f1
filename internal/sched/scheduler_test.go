package sched

import (
	"sync"
	"testing"
	"time"
)

func TestScheduler_EveryFiresRepeatedly(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	count := 0
	var mu sync.Mutex

	err := s.Every("tick", 50*time.Millisecond, func() {
		mu.Lock()
		count++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Every failed: %v", err)
	}

	time.Sleep(180 * time.Millisecond)

	mu.Lock()
	got := count
	mu.Unlock()
	if got < 2 {
		t.Errorf("expected at least 2 firings, got %d", got)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	fired := false
	var mu sync.Mutex

	s.Every("tick", 50*time.Millisecond, func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	})

	if !s.Cancel("tick") {
		t.Error("Cancel returned false for a scheduled task")
	}
	if s.Cancel("tick") {
		t.Error("Cancel returned true for a removed task")
	}

	time.Sleep(120 * time.Millisecond)

	mu.Lock()
	if fired {
		t.Error("cancelled task still fired")
	}
	mu.Unlock()
}

func TestScheduler_ReplaceExisting(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	var mu sync.Mutex
	var which string

	s.Every("tick", 40*time.Millisecond, func() {
		mu.Lock()
		which = "first"
		mu.Unlock()
	})
	s.Every("tick", 40*time.Millisecond, func() {
		mu.Lock()
		which = "second"
		mu.Unlock()
	})

	if s.Len() != 1 {
		t.Fatalf("expected 1 task after replacement, got %d", s.Len())
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	if which != "second" {
		t.Errorf("expected replacement task to fire, got %q", which)
	}
	mu.Unlock()
}

func TestScheduler_StoppedRejectsWork(t *testing.T) {
	s := NewScheduler()
	s.Start()
	s.Stop()

	if err := s.Every("tick", time.Second, func() {}); err != ErrStopped {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}
