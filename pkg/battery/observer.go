// Package battery observes battery-changed broadcasts and relays them to
// the native runtime, and produces those broadcasts from the machine's
// battery when no platform does.
package battery

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/wivrn/wivrn-host/pkg/native"
)

// Battery-changed extras.
const (
	ExtraLevel   = "level"
	ExtraScale   = "scale"
	ExtraPlugged = "plugged"
	ExtraStatus  = "status"
	ExtraPresent = "present"
)

// Values of the status extra.
const (
	StatusUnknown     int32 = 1
	StatusCharging    int32 = 2
	StatusDischarging int32 = 3
	StatusNotCharging int32 = 4
	StatusFull        int32 = 5
)

// StatusName returns a readable name for a status extra value.
func StatusName(status int32) string {
	switch status {
	case StatusUnknown:
		return "unknown"
	case StatusCharging:
		return "charging"
	case StatusDischarging:
		return "discharging"
	case StatusNotCharging:
		return "not charging"
	case StatusFull:
		return "full"
	case -1:
		return "not reported"
	default:
		return fmt.Sprintf("invalid (%d)", status)
	}
}

// Values of the plugged extra.
const (
	PluggedNone int32 = 0
	PluggedAC   int32 = 1
	PluggedUSB  int32 = 2
)

// StatusFromIntent reads a battery-changed intent. Missing integer extras
// read as -1 and a missing present extra reads as true.
func StatusFromIntent(intent native.Intent) native.BatteryStatus {
	s := native.BatteryStatus{
		Level:   intent.IntExtra(ExtraLevel, -1),
		Scale:   intent.IntExtra(ExtraScale, -1),
		Plugged: intent.IntExtra(ExtraPlugged, -1),
		Status:  intent.IntExtra(ExtraStatus, -1),
		Present: intent.BoolExtra(ExtraPresent, true),
	}
	s.Charging = s.Plugged > 0
	return s
}

// Intent builds the battery-changed intent carrying s.
func Intent(s native.BatteryStatus) native.Intent {
	return native.Intent{
		Action: native.ActionBatteryChanged,
		Extras: map[string]any{
			ExtraLevel:   s.Level,
			ExtraScale:   s.Scale,
			ExtraPlugged: s.Plugged,
			ExtraStatus:  s.Status,
			ExtraPresent: s.Present,
		},
	}
}

// Observer relays each battery-changed broadcast it receives. It keeps no
// state between deliveries.
type Observer struct {
	rt native.Runtime
}

// NewObserver returns an observer relaying to rt.
func NewObserver(rt native.Runtime) *Observer {
	return &Observer{rt: rt}
}

// OnReceive implements broadcast.Receiver.
func (o *Observer) OnReceive(intent native.Intent) {
	if intent.Action != native.ActionBatteryChanged {
		logrus.WithField("action", intent.Action).Warn("battery observer ignoring unrelated broadcast")
		return
	}
	s := StatusFromIntent(intent)
	logrus.WithFields(logrus.Fields{
		"level":    s.Level,
		"scale":    s.Scale,
		"plugged":  s.Plugged,
		"charging": s.Charging,
	}).Debug("received battery-changed broadcast")
	o.rt.OnBatteryChanged(s)
}
