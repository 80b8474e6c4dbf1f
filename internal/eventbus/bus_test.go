package eventbus

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hkaya/cortex-scheduler/internal/view"
)

// TestBasicPublishSubscribe verifies basic functionality.
func TestBasicPublishSubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := make(chan Event, 10)
	if err := bus.Subscribe("test", ch); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	bus.Publish(Event{ViewID: "v1", Slot: "A"})

	select {
	case got := <-ch:
		if got.ViewID != "v1" || got.Sequence != 1 {
			t.Errorf("got %+v, want view v1 with seq 1", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}
}

// TestNonBlockingPublish verifies Publish never blocks and counts drops.
func TestNonBlockingPublish(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := make(chan Event, 1)
	if err := bus.Subscribe("slow", ch); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		bus.Publish(Event{ViewID: "v1"})
		bus.Publish(Event{ViewID: "v2"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Publish blocked (should be non-blocking)")
	}

	stats, err := bus.Stats("slow")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Sent != 1 || stats.Dropped != 1 {
		t.Errorf("stats = %+v, want sent=1 dropped=1", *stats)
	}
	if bus.Published() != 2 {
		t.Errorf("Published() = %d, want 2", bus.Published())
	}
}

func TestSubscribeErrors(t *testing.T) {
	bus := New()

	if err := bus.Subscribe("a", make(chan Event, 1)); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"duplicate", func() error { return bus.Subscribe("a", make(chan Event, 1)) }, ErrSubscriberExists},
		{"duplicate latest", func() error { _, err := bus.SubscribeLatest("a"); return err }, ErrSubscriberExists},
		{"nil channel", func() error { return bus.Subscribe("b", nil) }, ErrNilChannel},
		{"unknown unsubscribe", func() error { return bus.Unsubscribe("zzz") }, ErrSubscriberNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Errorf("err=%v, want %v", err, tt.wantErr)
			}
		})
	}

	bus.Close()
	if err := bus.Subscribe("c", make(chan Event, 1)); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Subscribe after Close err=%v, want ErrBusClosed", err)
	}
}

// TestLatestKeepsNewest verifies DropOld semantics: only the newest event is
// kept and overwritten unread events count as drops.
func TestLatestKeepsNewest(t *testing.T) {
	bus := New()
	defer bus.Close()

	rx, err := bus.SubscribeLatest("display")
	if err != nil {
		t.Fatalf("SubscribeLatest failed: %v", err)
	}

	if _, ok := rx.TryReceive(); ok {
		t.Error("TryReceive before any publish returned an event")
	}

	for _, id := range []string{"v1", "v2", "v3"} {
		bus.Publish(Event{ViewID: id})
	}

	got, ok := rx.Receive()
	if !ok || got.ViewID != "v3" {
		t.Errorf("Receive() = %+v, %v; want v3", got, ok)
	}

	stats, _ := bus.Stats("display")
	if stats.Sent != 3 || stats.Dropped != 2 {
		t.Errorf("stats = %+v, want sent=3 dropped=2", *stats)
	}
}

func TestLatestReceiveUnblocksOnClose(t *testing.T) {
	bus := New()
	rx, err := bus.SubscribeLatest("display")
	if err != nil {
		t.Fatalf("SubscribeLatest failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, ok := rx.Receive(); ok {
			t.Error("Receive after Close returned an event")
		}
	}()

	time.Sleep(10 * time.Millisecond)
	bus.Close()
	wg.Wait()
}

func TestViewEnded(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	v := view.View{ID: "id-1", Kind: view.KindHTML, Slot: "A", Duration: 1500 * time.Millisecond}

	ev := ViewEnded(v, at)
	if ev.ViewID != "id-1" || ev.Slot != "A" || ev.Kind != "html" || ev.DurationMs != 1500 || !ev.EndedAt.Equal(at) {
		t.Errorf("ViewEnded() = %+v", ev)
	}

	replay := view.View{ID: "id-2", OriginID: "id-1", Kind: view.KindHTML, Slot: "A"}
	if ev := ViewEnded(replay, at); ev.ViewID != "id-2" || ev.OriginID != "id-1" {
		t.Errorf("ViewEnded(replay) = %+v, want view id-2 with origin id-1", ev)
	}
}

func TestDropRate(t *testing.T) {
	tests := []struct {
		name  string
		stats SubscriberStats
		want  float64
	}{
		{"empty", SubscriberStats{}, 0},
		{"no drops", SubscriberStats{Sent: 10}, 0},
		{"quarter dropped", SubscriberStats{Sent: 3, Dropped: 1}, 0.25},
		{"all dropped", SubscriberStats{Dropped: 4}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DropRate(tt.stats); got != tt.want {
				t.Errorf("DropRate(%+v) = %v, want %v", tt.stats, got, tt.want)
			}
		})
	}
}
