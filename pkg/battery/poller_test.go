package battery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sysbattery "github.com/distatus/battery"

	"github.com/wivrn/wivrn-host/pkg/native"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []native.Intent
	ch   chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{ch: make(chan struct{}, 16)}
}

func (f *fakeSender) SendSticky(intent native.Intent) {
	f.mu.Lock()
	f.sent = append(f.sent, intent)
	f.mu.Unlock()
	select {
	case f.ch <- struct{}{}:
	default:
	}
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestStatusFromBattery(t *testing.T) {
	tests := []struct {
		name string
		bat  *sysbattery.Battery
		want native.BatteryStatus
	}{
		{
			name: "charging",
			bat:  &sysbattery.Battery{State: sysbattery.Charging, Current: 42, Full: 100},
			want: native.BatteryStatus{Level: 42, Scale: 100, Plugged: PluggedAC, Status: StatusCharging, Present: true, Charging: true},
		},
		{
			name: "discharging",
			bat:  &sysbattery.Battery{State: sysbattery.Discharging, Current: 2500, Full: 5000},
			want: native.BatteryStatus{Level: 50, Scale: 100, Plugged: PluggedNone, Status: StatusDischarging, Present: true},
		},
		{
			name: "full",
			bat:  &sysbattery.Battery{State: sysbattery.Full, Current: 5000, Full: 5000},
			want: native.BatteryStatus{Level: 100, Scale: 100, Plugged: PluggedAC, Status: StatusFull, Present: true, Charging: true},
		},
		{
			name: "unknown capacity",
			bat:  &sysbattery.Battery{State: sysbattery.Unknown},
			want: native.BatteryStatus{Level: -1, Scale: 100, Plugged: PluggedNone, Status: StatusUnknown, Present: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFromBattery(tt.bat); got != tt.want {
				t.Errorf("StatusFromBattery() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPoller_SendsOnlyOnChange(t *testing.T) {
	current := 40.0
	source := func() ([]*sysbattery.Battery, error) {
		return []*sysbattery.Battery{{State: sysbattery.Charging, Current: current, Full: 100}}, nil
	}
	sender := newFakeSender()
	p := NewPoller(source, sender, time.Hour)

	if !p.Poll() {
		t.Errorf("first Poll() = false, want true")
	}
	if p.Poll() {
		t.Errorf("Poll() with an unchanged reading = true, want false")
	}
	current = 41
	if !p.Poll() {
		t.Errorf("Poll() after a change = false, want true")
	}
	if got := sender.count(); got != 2 {
		t.Errorf("sent %d broadcasts, want 2", got)
	}
}

func TestPoller_SourceErrors(t *testing.T) {
	sender := newFakeSender()
	p := NewPoller(func() ([]*sysbattery.Battery, error) {
		return nil, errors.New("no power supply")
	}, sender, time.Hour)
	if p.Poll() {
		t.Errorf("Poll() = true on a source error")
	}

	p = NewPoller(func() ([]*sysbattery.Battery, error) {
		return nil, nil
	}, sender, time.Hour)
	if p.Poll() {
		t.Errorf("Poll() = true without batteries")
	}
	if sender.count() != 0 {
		t.Errorf("sent %d broadcasts, want 0", sender.count())
	}
}

func TestPoller_RunPollsImmediately(t *testing.T) {
	sender := newFakeSender()
	p := NewPoller(func() ([]*sysbattery.Battery, error) {
		return []*sysbattery.Battery{{State: sysbattery.Discharging, Current: 1, Full: 2}}, nil
	}, sender, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-sender.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not poll immediately")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}

func TestPoller_SetInterval(t *testing.T) {
	p := NewPoller(nil, newFakeSender(), time.Second)
	p.SetInterval(5 * time.Second)
	if got := p.Interval(); got != 5*time.Second {
		t.Errorf("Interval() = %v, want 5s", got)
	}
}
