// Package native describes the call surface of the native runtime that the
// activity host forwards OS events into, and loads it once per process.
package native

import (
	"encoding/json"
	"math"
)

// Well-known intent actions.
const (
	ActionView           = "android.intent.action.VIEW"
	ActionBatteryChanged = "android.intent.action.BATTERY_CHANGED"
)

// Intent is a value copy of a platform intent record. It never carries a
// reference to a live platform object.
type Intent struct {
	Action string         `json:"action,omitempty"`
	Data   string         `json:"data,omitempty"`
	Extras map[string]any `json:"extras,omitempty"`
}

// Clone returns a deep copy of the intent.
func (i Intent) Clone() Intent {
	c := Intent{Action: i.Action, Data: i.Data}
	if i.Extras != nil {
		c.Extras = copyValue(i.Extras).(map[string]any)
	}
	return c
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = copyValue(e)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = copyValue(e)
		}
		return s
	case []string:
		return append([]string(nil), x...)
	case []int32:
		return append([]int32(nil), x...)
	case []int:
		return append([]int(nil), x...)
	case []byte:
		return append([]byte(nil), x...)
	default:
		return v
	}
}

// IntExtra returns the integer extra called name, or def when it is absent,
// not a whole number, or outside the int32 range.
func (i Intent) IntExtra(name string, def int32) int32 {
	v, ok := i.Extras[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return int32Or(int64(n), def)
	case int32:
		return n
	case int64:
		return int32Or(n, def)
	case float64:
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return def
		}
		return int32(n)
	case json.Number:
		x, err := n.Int64()
		if err != nil {
			return def
		}
		return int32Or(x, def)
	default:
		return def
	}
}

func int32Or(n int64, def int32) int32 {
	if n < math.MinInt32 || n > math.MaxInt32 {
		return def
	}
	return int32(n)
}

// BoolExtra returns the boolean extra called name, or def.
func (i Intent) BoolExtra(name string, def bool) bool {
	v, ok := i.Extras[name].(bool)
	if !ok {
		return def
	}
	return v
}

// StringExtra returns the string extra called name, or "".
func (i Intent) StringExtra(name string) string {
	v, _ := i.Extras[name].(string)
	return v
}

// BatteryStatus is the payload of a battery-changed broadcast.
type BatteryStatus struct {
	Level    int32 `json:"level"`
	Scale    int32 `json:"scale"`
	Plugged  int32 `json:"plugged"`
	Status   int32 `json:"status"`
	Present  bool  `json:"present"`
	Charging bool  `json:"charging"`
}

// Charge returns level/scale in [0, 1]. ok is false when either value is
// unknown.
func (s BatteryStatus) Charge() (charge float32, ok bool) {
	if s.Level < 0 || s.Scale <= 0 {
		return 0, false
	}
	return float32(s.Level) / float32(s.Scale), true
}

// Runtime is the set of native entry points. Every method is a
// fire-and-forget relay: failures inside the runtime are not reported back.
type Runtime interface {
	OnRequestPermissionsResult(requestCode int32, permissions []string, grantResults []int32)
	OnNewIntent(intent Intent)
	OnActivityResult(requestCode, resultCode int32, data *Intent)
	OnBatteryChanged(status BatteryStatus)
	SendMessage(name, arg string)
}
