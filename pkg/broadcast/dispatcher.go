// Package broadcast delivers system broadcasts to registered receivers.
package broadcast

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wivrn/wivrn-host/pkg/native"
)

// Receiver handles a delivered broadcast.
type Receiver interface {
	OnReceive(intent native.Intent)
}

// ReceiverFunc adapts a function to a Receiver.
type ReceiverFunc func(intent native.Intent)

func (f ReceiverFunc) OnReceive(intent native.Intent) { f(intent) }

// Poster schedules work on the thread that delivers broadcasts.
// *looper.Looper satisfies it.
type Poster interface {
	Post(fn func()) error
}

// Registrar is the registration half of a Dispatcher.
type Registrar interface {
	Register(action string, r Receiver) *Registration
}

// Registration is the handle returned by Register.
type Registration struct {
	d        *Dispatcher
	action   string
	receiver Receiver
	once     sync.Once
}

// Action returns the action the receiver was registered for.
func (r *Registration) Action() string {
	return r.action
}

// Unregister stops deliveries to the receiver. It is idempotent.
func (r *Registration) Unregister() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		r.d.mu.Lock()
		delete(r.d.receivers[r.action], r)
		if len(r.d.receivers[r.action]) == 0 {
			delete(r.d.receivers, r.action)
		}
		r.d.mu.Unlock()
		logrus.WithField("action", r.action).Debug("receiver unregistered")
	})
}

var _ Registrar = &Dispatcher{}

// Dispatcher routes broadcasts by action. With a Poster, every delivery is
// posted to it; without one, deliveries run on the sender's goroutine.
type Dispatcher struct {
	poster Poster

	mu        sync.Mutex
	seq       uint64
	receivers map[string]map[*Registration]uint64
	sticky    map[string]native.Intent
}

// NewDispatcher returns a dispatcher delivering through poster, which may
// be nil.
func NewDispatcher(poster Poster) *Dispatcher {
	return &Dispatcher{
		poster:    poster,
		receivers: make(map[string]map[*Registration]uint64),
		sticky:    make(map[string]native.Intent),
	}
}

// Register subscribes r to broadcasts with the given action. If a sticky
// broadcast for the action exists, it is delivered to r right away.
func (d *Dispatcher) Register(action string, r Receiver) *Registration {
	reg := &Registration{d: d, action: action, receiver: r}

	d.mu.Lock()
	d.seq++
	if d.receivers[action] == nil {
		d.receivers[action] = make(map[*Registration]uint64)
	}
	d.receivers[action][reg] = d.seq
	sticky, hasSticky := d.sticky[action]
	d.mu.Unlock()

	logrus.WithField("action", action).Debug("receiver registered")

	if hasSticky {
		d.deliver([]*Registration{reg}, sticky)
	}
	return reg
}

// Send delivers intent to the receivers registered for its action.
func (d *Dispatcher) Send(intent native.Intent) {
	d.mu.Lock()
	regs := d.snapshotLocked(intent.Action)
	d.mu.Unlock()
	d.deliver(regs, intent)
}

// SendSticky is Send, and also keeps intent as the sticky broadcast for its
// action so later registrants receive it too. A receiver registering
// concurrently gets the intent either as its sticky replay or from this
// send, never both.
func (d *Dispatcher) SendSticky(intent native.Intent) {
	d.mu.Lock()
	d.sticky[intent.Action] = intent.Clone()
	regs := d.snapshotLocked(intent.Action)
	d.mu.Unlock()
	d.deliver(regs, intent)
}

// Sticky returns the last sticky broadcast for action.
func (d *Dispatcher) Sticky(action string) (native.Intent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.sticky[action]
	return i, ok
}

// Receivers returns the number of receivers registered for action.
func (d *Dispatcher) Receivers(action string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.receivers[action])
}

// snapshotLocked returns the registrations for action in registration
// order. d.mu must be held.
func (d *Dispatcher) snapshotLocked(action string) []*Registration {
	regs := make([]*Registration, 0, len(d.receivers[action]))
	for reg := range d.receivers[action] {
		regs = append(regs, reg)
	}
	order := d.receivers[action]
	sort.Slice(regs, func(i, j int) bool { return order[regs[i]] < order[regs[j]] })
	return regs
}

func (d *Dispatcher) deliver(regs []*Registration, intent native.Intent) {
	if len(regs) == 0 {
		logrus.WithField("action", intent.Action).Trace("broadcast has no receivers")
		return
	}
	for _, reg := range regs {
		reg := reg
		run := func() {
			// Re-check: the receiver may have been unregistered between
			// the send and this delivery.
			if !d.registered(reg) {
				return
			}
			reg.receiver.OnReceive(intent.Clone())
		}
		if d.poster == nil {
			run()
			continue
		}
		if err := d.poster.Post(run); err != nil {
			logrus.WithField("action", intent.Action).Warnf("failed to deliver broadcast: %v", err)
		}
	}
}

func (d *Dispatcher) registered(reg *Registration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.receivers[reg.action][reg]
	return ok
}
