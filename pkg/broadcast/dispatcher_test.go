package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wivrn/wivrn-host/pkg/looper"
	"github.com/wivrn/wivrn-host/pkg/native"
)

type recordingReceiver struct {
	mu  sync.Mutex
	got []native.Intent
}

func (r *recordingReceiver) OnReceive(intent native.Intent) {
	r.mu.Lock()
	r.got = append(r.got, intent)
	r.mu.Unlock()
}

func (r *recordingReceiver) received() []native.Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]native.Intent(nil), r.got...)
}

func TestDispatcher_RoutesByAction(t *testing.T) {
	d := NewDispatcher(nil)
	battery := &recordingReceiver{}
	other := &recordingReceiver{}
	d.Register(native.ActionBatteryChanged, battery)
	d.Register("org.example.OTHER", other)

	d.Send(native.Intent{Action: native.ActionBatteryChanged})

	if got := len(battery.received()); got != 1 {
		t.Errorf("battery receiver got %d broadcasts, want 1", got)
	}
	if got := len(other.received()); got != 0 {
		t.Errorf("other receiver got %d broadcasts, want 0", got)
	}
}

func TestDispatcher_Unregister(t *testing.T) {
	d := NewDispatcher(nil)
	r := &recordingReceiver{}
	reg := d.Register(native.ActionBatteryChanged, r)
	if got := d.Receivers(native.ActionBatteryChanged); got != 1 {
		t.Fatalf("Receivers() = %d, want 1", got)
	}

	reg.Unregister()
	reg.Unregister()

	if got := d.Receivers(native.ActionBatteryChanged); got != 0 {
		t.Errorf("Receivers() = %d, want 0", got)
	}
	d.Send(native.Intent{Action: native.ActionBatteryChanged})
	if got := len(r.received()); got != 0 {
		t.Errorf("unregistered receiver got %d broadcasts", got)
	}
}

func TestDispatcher_StickyReplayedOnRegister(t *testing.T) {
	d := NewDispatcher(nil)
	sticky := native.Intent{
		Action: native.ActionBatteryChanged,
		Extras: map[string]any{"level": 42},
	}
	d.SendSticky(sticky)

	r := &recordingReceiver{}
	d.Register(native.ActionBatteryChanged, r)

	got := r.received()
	if len(got) != 1 {
		t.Fatalf("late registrant got %d broadcasts, want 1", len(got))
	}
	if level := got[0].IntExtra("level", -1); level != 42 {
		t.Errorf("sticky level = %d, want 42", level)
	}

	d.Send(native.Intent{Action: native.ActionBatteryChanged, Extras: map[string]any{"level": 1}})
	if s, _ := d.Sticky(native.ActionBatteryChanged); s.IntExtra("level", -1) != 42 {
		t.Errorf("non-sticky Send replaced the sticky broadcast")
	}
}

func TestDispatcher_RegistrationOrder(t *testing.T) {
	d := NewDispatcher(nil)
	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		d.Register("a", ReceiverFunc(func(native.Intent) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	d.Send(native.Intent{Action: "a"})
	for i, v := range order {
		if v != i {
			t.Fatalf("receiver %d ran at position %d", v, i)
		}
	}
}

func TestDispatcher_DeliversOnLooper(t *testing.T) {
	l := looper.New()
	go l.Run(context.Background())
	defer l.Quit()

	// Wait until the looper dispatches.
	for l.Call(func() {}) != nil {
		time.Sleep(time.Millisecond)
	}

	d := NewDispatcher(l)
	delivered := make(chan struct{}, 1)
	d.Register("a", ReceiverFunc(func(native.Intent) { delivered <- struct{}{} }))
	d.Send(native.Intent{Action: "a"})

	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast was not delivered on the looper")
	}
}

func TestDispatcher_ReceiverGetsCopy(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register("a", ReceiverFunc(func(i native.Intent) { i.Extras["k"] = "changed" }))

	in := native.Intent{Action: "a", Extras: map[string]any{"k": "v"}}
	d.Send(in)
	if in.Extras["k"] != "v" {
		t.Errorf("receiver mutated the sender's intent")
	}
}

func TestDispatcher_StickyRacingRegisterDeliversOnce(t *testing.T) {
	for i := 0; i < 2000; i++ {
		d := NewDispatcher(nil)
		r := &recordingReceiver{}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.SendSticky(native.Intent{Action: native.ActionBatteryChanged})
		}()
		go func() {
			defer wg.Done()
			d.Register(native.ActionBatteryChanged, r)
		}()
		wg.Wait()

		if got := len(r.received()); got != 1 {
			t.Fatalf("iteration %d: receiver got %d broadcasts, want 1", i, got)
		}
	}
}
