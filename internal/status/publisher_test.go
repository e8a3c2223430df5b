package status

import (
	"testing"
	"time"

	"github.com/farmsight/herdfeed/internal/connection"
)

func TestPublisher_NotifiesInSubscriptionOrder(t *testing.T) {
	p := NewPublisher(nil)

	var calls []string
	p.Subscribe(func(u Update) { calls = append(calls, "first") })
	p.Subscribe(func(u Update) { calls = append(calls, "second") })
	p.Subscribe(func(u Update) { calls = append(calls, "third") })

	p.Publish(connection.StateConnected, 0)

	want := []string{"first", "second", "third"}
	if len(calls) != len(want) {
		t.Fatalf("got %d calls, want %d", len(calls), len(want))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d: got %s, want %s", i, calls[i], want[i])
		}
	}
}

func TestPublisher_DeliversUpdateValues(t *testing.T) {
	p := NewPublisher(nil)

	var got Update
	p.Subscribe(func(u Update) { got = u })

	p.Publish(connection.StateReconnecting, 3)

	if got.State != connection.StateReconnecting {
		t.Errorf("State = %s, want reconnecting", got.State)
	}
	if got.Attempt != 3 {
		t.Errorf("Attempt = %d, want 3", got.Attempt)
	}
}

func TestPublisher_NoReplayOnSubscribe(t *testing.T) {
	p := NewPublisher(nil)
	p.Publish(connection.StateConnected, 0)

	called := false
	p.Subscribe(func(u Update) { called = true })

	if called {
		t.Error("subscriber must not see states published before subscription")
	}
	if got := p.Current().State; got != connection.StateConnected {
		t.Errorf("Current() = %s, want connected", got)
	}
}

func TestPublisher_Unsubscribe(t *testing.T) {
	p := NewPublisher(nil)

	var first, second int
	unsub := p.Subscribe(func(u Update) { first++ })
	p.Subscribe(func(u Update) { second++ })

	p.Publish(connection.StateConnecting, 0)
	unsub()
	p.Publish(connection.StateConnected, 0)

	if first != 1 {
		t.Errorf("unsubscribed observer called %d times, want 1", first)
	}
	if second != 2 {
		t.Errorf("remaining observer called %d times, want 2", second)
	}
}

func TestPublisher_UnsubscribeIdempotent(t *testing.T) {
	p := NewPublisher(nil)

	calls := 0
	unsub := p.Subscribe(func(u Update) { calls++ })
	p.Subscribe(func(u Update) {})

	unsub()
	unsub()
	unsub()

	p.Publish(connection.StateConnected, 0)
	if calls != 0 {
		t.Errorf("observer called %d times after unsubscribe, want 0", calls)
	}
}

func TestPublisher_InitialState(t *testing.T) {
	p := NewPublisher(nil)
	if got := p.Current(); got.State != connection.StateDisconnected || got.Attempt != 0 {
		t.Errorf("initial Current() = %+v, want disconnected/0", got)
	}
}

func TestPublisher_LivenessBookkeeping(t *testing.T) {
	p := NewPublisher(nil)

	notified := false
	p.Subscribe(func(u Update) { notified = true })

	p.RecordNotice("connected", "welcome to the live feed")
	at := time.Now()
	p.RecordHeartbeat(at)

	if notified {
		t.Error("liveness bookkeeping must not notify subscribers")
	}

	status, message := p.LastNotice()
	if status != "connected" || message != "welcome to the live feed" {
		t.Errorf("LastNotice() = (%q, %q)", status, message)
	}
	if got := p.LastHeartbeat(); !got.Equal(at) {
		t.Errorf("LastHeartbeat() = %v, want %v", got, at)
	}
}

func TestPublisher_LastHeartbeatZeroInitially(t *testing.T) {
	p := NewPublisher(nil)
	if !p.LastHeartbeat().IsZero() {
		t.Error("expected zero heartbeat time before any heartbeat")
	}
}
