// Package host implements the activity host: it owns the lifecycle of the
// single activity and relays OS callbacks to the native runtime unchanged.
package host

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wivrn/wivrn-host/pkg/battery"
	"github.com/wivrn/wivrn-host/pkg/broadcast"
	"github.com/wivrn/wivrn-host/pkg/native"
)

// Capabilities selects the optional parts of the bridge.
type Capabilities struct {
	// BatteryObserver registers a battery-changed observer during OnCreate.
	BatteryObserver bool
	// MessageSend enables SendMessage.
	MessageSend bool
}

// Activity is the host of the native runtime. Callbacks are expected on
// the main looper but are safe to call from any goroutine.
type Activity struct {
	rt         native.Runtime
	caps       Capabilities
	broadcasts broadcast.Registrar

	mu           sync.Mutex
	state        State
	resumed      bool
	registration *broadcast.Registration
	log          *logrus.Entry
}

// New returns an activity in StateLoaded. rt must be the loaded runtime;
// broadcasts is required when the battery observer capability is on.
func New(rt native.Runtime, broadcasts broadcast.Registrar, caps Capabilities) (*Activity, error) {
	if rt == nil {
		return nil, ErrNoRuntime
	}
	if caps.BatteryObserver && broadcasts == nil {
		logrus.Warn("no broadcast registrar given, battery observer disabled")
		caps.BatteryObserver = false
	}
	return &Activity{
		rt:         rt,
		caps:       caps,
		broadcasts: broadcasts,
		state:      StateLoaded,
		log: logrus.WithFields(logrus.Fields{
			"component":       "activity",
			"batteryObserver": caps.BatteryObserver,
			"messageSend":     caps.MessageSend,
		}),
	}, nil
}

// State returns the lifecycle state.
func (a *Activity) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Resumed reports whether the activity is between OnResume and OnPause.
func (a *Activity) Resumed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resumed
}

// Capabilities returns the capability set the activity was built with.
func (a *Activity) Capabilities() Capabilities {
	return a.caps
}

// ObserverRegistered reports whether the battery observer is registered.
func (a *Activity) ObserverRegistered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registration != nil
}

// OnCreate moves the activity to StateCreated and registers the battery
// observer. savedState is opaque and not interpreted.
func (a *Activity) OnCreate(savedState []byte) error {
	a.mu.Lock()
	if a.state != StateLoaded {
		err := a.stateErrorLocked()
		a.mu.Unlock()
		return a.reject("create", err)
	}
	a.state = StateCreated
	a.mu.Unlock()

	a.log.WithField("savedStateLength", len(savedState)).Info("activity created")

	if !a.caps.BatteryObserver {
		return nil
	}

	// Register outside the lock: a sticky broadcast may be delivered
	// synchronously and relayed through the activity.
	reg := a.broadcasts.Register(native.ActionBatteryChanged, a.batteryReceiver())

	a.mu.Lock()
	if a.state != StateCreated {
		// Destroyed while registering.
		a.mu.Unlock()
		reg.Unregister()
		return nil
	}
	a.registration = reg
	a.mu.Unlock()

	a.log.Debug("battery observer registered")
	return nil
}

// batteryReceiver wraps the observer so deliveries racing with OnDestroy
// are dropped.
func (a *Activity) batteryReceiver() broadcast.Receiver {
	o := battery.NewObserver(a.rt)
	return broadcast.ReceiverFunc(func(intent native.Intent) {
		if a.State() != StateCreated {
			a.log.Debug("dropping battery broadcast delivered outside the created state")
			return
		}
		o.OnReceive(intent)
	})
}

// OnResume records that the activity is in the foreground. The platform
// handles resume itself; nothing is relayed.
func (a *Activity) OnResume() error {
	return a.setResumed(true, "resume")
}

// OnPause records that the activity left the foreground.
func (a *Activity) OnPause() error {
	return a.setResumed(false, "pause")
}

func (a *Activity) setResumed(resumed bool, event string) error {
	a.mu.Lock()
	if a.state != StateCreated {
		err := a.stateErrorLocked()
		a.mu.Unlock()
		return a.reject(event, err)
	}
	a.resumed = resumed
	a.mu.Unlock()
	a.log.Debugf("activity %s", event)
	return nil
}

// OnRequestPermissionsResult relays a permission result.
func (a *Activity) OnRequestPermissionsResult(requestCode int32, permissions []string, grantResults []int32) error {
	if err := a.requireCreated("permissions-result"); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"requestCode": requestCode,
		"permissions": permissions,
	}).Debug("relaying permissions result")
	a.rt.OnRequestPermissionsResult(requestCode, copyStrings(permissions), copyInts(grantResults))
	return nil
}

// OnNewIntent relays a new intent.
func (a *Activity) OnNewIntent(intent native.Intent) error {
	if err := a.requireCreated("new-intent"); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"action": intent.Action,
		"data":   intent.Data,
	}).Debug("relaying new intent")
	a.rt.OnNewIntent(intent.Clone())
	return nil
}

// OnActivityResult relays an activity result. data may be nil.
func (a *Activity) OnActivityResult(requestCode, resultCode int32, data *native.Intent) error {
	if err := a.requireCreated("activity-result"); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"requestCode": requestCode,
		"resultCode":  resultCode,
		"hasData":     data != nil,
	}).Debug("relaying activity result")

	var c *native.Intent
	if data != nil {
		d := data.Clone()
		c = &d
	}
	a.rt.OnActivityResult(requestCode, resultCode, c)
	return nil
}

// SendMessage relays a named single-argument message. It needs the
// MessageSend capability.
func (a *Activity) SendMessage(name, arg string) error {
	if !a.caps.MessageSend {
		return a.reject("send-message", ErrCapabilityDisabled)
	}
	if err := a.requireCreated("send-message"); err != nil {
		return err
	}
	a.log.WithField("name", name).Debug("relaying message")
	a.rt.SendMessage(name, arg)
	return nil
}

// OnDestroy unregisters the battery observer and moves the activity to
// StateTerminated.
func (a *Activity) OnDestroy() error {
	a.mu.Lock()
	if a.state != StateCreated {
		err := a.stateErrorLocked()
		a.mu.Unlock()
		return a.reject("destroy", err)
	}
	a.state = StateTerminated
	a.resumed = false
	reg := a.registration
	a.registration = nil
	a.mu.Unlock()

	if reg != nil {
		reg.Unregister()
		a.log.Debug("battery observer unregistered")
	}
	a.log.Info("activity destroyed")
	return nil
}

func (a *Activity) requireCreated(event string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateCreated {
		return nil
	}
	return a.reject(event, a.stateErrorLocked())
}

func (a *Activity) stateErrorLocked() error {
	switch a.state {
	case StateUnloaded:
		return ErrNoRuntime
	case StateLoaded:
		return ErrNotCreated
	case StateCreated:
		return ErrAlreadyCreated
	default:
		return ErrTerminated
	}
}

func (a *Activity) reject(event string, err error) error {
	l := a.log
	if l == nil {
		l = logrus.WithField("component", "activity")
	}
	l.WithField("event", event).Errorf("rejected lifecycle callback: %v", err)
	return err
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}

func copyInts(s []int32) []int32 {
	if s == nil {
		return nil
	}
	return append(make([]int32, 0, len(s)), s...)
}
