package host

import (
	"testing"

	"github.com/coldchain/fridgewatch/internal/controller"
)

func TestRegistry_SubscribeAndRender(t *testing.T) {
	r := NewRegistry(10)

	sub, err := r.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 subscriber, got %d", r.Count())
	}

	r.Render(controller.Update{Seq: 1})

	u := <-sub.Ch
	if u.Seq != 1 {
		t.Errorf("expected seq 1, got %d", u.Seq)
	}
}

func TestRegistry_MaxSubscribers(t *testing.T) {
	r := NewRegistry(2)

	r.Subscribe()
	r.Subscribe()

	if _, err := r.Subscribe(); err != ErrMaxSubscribers {
		t.Errorf("expected ErrMaxSubscribers, got %v", err)
	}
}

func TestRegistry_LateJoinerGetsLatest(t *testing.T) {
	r := NewRegistry(10)
	r.Render(controller.Update{Seq: 7})

	sub, err := r.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	u := <-sub.Ch
	if u.Seq != 7 {
		t.Errorf("late joiner should receive the current tuple, got seq %d", u.Seq)
	}
}

func TestRegistry_SlowSubscriberDropsOldest(t *testing.T) {
	r := NewRegistry(10)
	sub, _ := r.Subscribe()

	// Channel capacity is 4; push 6 without draining.
	for seq := uint64(1); seq <= 6; seq++ {
		r.Render(controller.Update{Seq: seq})
	}

	first := <-sub.Ch
	if first.Seq <= 2 {
		t.Errorf("expected oldest updates dropped, got seq %d first", first.Seq)
	}

	if u, ok := r.Latest(); !ok || u.Seq != 6 {
		t.Errorf("Latest should be the newest update, got %v %v", u.Seq, ok)
	}
}

func TestRegistry_Unsubscribe(t *testing.T) {
	r := NewRegistry(10)
	sub, _ := r.Subscribe()

	if err := r.Unsubscribe(sub.ID); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if r.Count() != 0 {
		t.Errorf("expected 0 subscribers, got %d", r.Count())
	}
	if err := r.Unsubscribe(sub.ID); err == nil {
		t.Error("expected error for unknown subscriber")
	}

	// Channel is closed so a pending read returns immediately.
	if _, open := <-sub.Ch; open {
		t.Error("expected closed channel after unsubscribe")
	}
}

func TestRegistry_Stats(t *testing.T) {
	r := NewRegistry(5)
	r.Subscribe()
	r.Subscribe()

	stats := r.Stats()
	if stats.Subscribers != 2 {
		t.Errorf("expected 2 subscribers, got %d", stats.Subscribers)
	}
	if stats.MaxSubscribers != 5 {
		t.Errorf("expected max 5, got %d", stats.MaxSubscribers)
	}
}
