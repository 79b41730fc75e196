package battery

import (
	"context"
	"math"
	"sync"
	"time"

	sysbattery "github.com/distatus/battery"
	"github.com/sirupsen/logrus"

	"github.com/wivrn/wivrn-host/pkg/native"
)

// Source reads the machine's batteries.
type Source func() ([]*sysbattery.Battery, error)

// Sender publishes a sticky broadcast. *broadcast.Dispatcher satisfies it.
type Sender interface {
	SendSticky(intent native.Intent)
}

// Poller reads the machine battery periodically and sends a sticky
// battery-changed broadcast whenever the reading changes.
type Poller struct {
	source Source
	sender Sender

	mu       sync.Mutex
	interval time.Duration
	reset    chan struct{}
	last     *native.BatteryStatus
}

// NewPoller returns a poller reading source every interval. A nil source
// reads the system batteries.
func NewPoller(source Source, sender Sender, interval time.Duration) *Poller {
	if source == nil {
		source = sysbattery.GetAll
	}
	return &Poller{
		source:   source,
		sender:   sender,
		interval: interval,
		reset:    make(chan struct{}, 1),
	}
}

// SetInterval changes the poll interval; the running loop picks it up at
// once.
func (p *Poller) SetInterval(d time.Duration) {
	p.mu.Lock()
	changed := d != p.interval
	p.interval = d
	p.mu.Unlock()
	if !changed {
		return
	}
	select {
	case p.reset <- struct{}{}:
	default:
	}
	logrus.Infof("battery poll interval set to %s", d)
}

// Interval returns the current poll interval.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Run polls until ctx is done. The first reading is taken immediately.
func (p *Poller) Run(ctx context.Context) {
	logrus.Debugln("battery poll loop starts")
	for {
		p.Poll()

		t := time.NewTimer(p.Interval())
		select {
		case <-ctx.Done():
			t.Stop()
			logrus.Debugln("battery poll loop stopped")
			return
		case <-p.reset:
			t.Stop()
		case <-t.C:
		}
	}
}

// Poll takes one reading and sends it if it differs from the previous one.
// It reports whether a broadcast was sent.
func (p *Poller) Poll() bool {
	batteries, err := p.source()
	if err != nil && len(batteries) == 0 {
		logrus.Errorf("failed to read battery: %v", err)
		return false
	}
	if len(batteries) == 0 || batteries[0] == nil {
		logrus.Debug("no batteries found")
		return false
	}

	s := StatusFromBattery(batteries[0])

	p.mu.Lock()
	if p.last != nil && *p.last == s {
		p.mu.Unlock()
		return false
	}
	p.last = &s
	p.mu.Unlock()

	p.sender.SendSticky(Intent(s))
	return true
}

// StatusFromBattery converts a reading from the system battery into the
// broadcast payload, on a 0-100 scale.
func StatusFromBattery(b *sysbattery.Battery) native.BatteryStatus {
	s := native.BatteryStatus{
		Level:   -1,
		Scale:   100,
		Plugged: PluggedNone,
		Status:  StatusUnknown,
		Present: true,
	}
	if b.Full > 0 {
		s.Level = int32(math.Round(b.Current / b.Full * 100))
	}

	switch b.State {
	case sysbattery.Charging:
		s.Status = StatusCharging
		s.Plugged = PluggedAC
	case sysbattery.Full:
		s.Status = StatusFull
		s.Plugged = PluggedAC
	case sysbattery.Discharging:
		s.Status = StatusDischarging
	}
	s.Charging = s.Plugged > 0
	return s
}
