package daemon

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wivrn/wivrn-host/pkg/events"
	"github.com/wivrn/wivrn-host/pkg/native"
	"github.com/wivrn/wivrn-host/pkg/types"
)

var _ native.Runtime = &Runtime{}

// Stats keys counting results whose request code was not outstanding.
const (
	IgnoredPermissionsResult = "ignored." + events.PermissionsResult
	IgnoredActivityResult    = "ignored." + events.ActivityResult
)

// Runtime stands in for the native runtime: it logs every relay, keeps the
// last battery status and publishes each call on the event hub.
//
// Like the native client, it answers only results for requests it made:
// RequestPermissions and StartActivityForResult hand out request codes,
// and a result carrying any other code is logged and ignored.
type Runtime struct {
	hub *events.EventHub

	mu      sync.Mutex
	battery *native.BatteryStatus
	stats   map[string]int

	nextPermissionCode int32
	nextActivityCode   int32
	permissionRequests map[int32][]string
	activityRequests   map[int32]native.Intent
}

// NewRuntime returns a runtime publishing on hub, which may be nil.
func NewRuntime(hub *events.EventHub) *Runtime {
	return &Runtime{
		hub:                hub,
		stats:              make(map[string]int),
		permissionRequests: make(map[int32][]string),
		activityRequests:   make(map[int32]native.Intent),
	}
}

// RequestPermissions records a permission request and returns its code.
// Codes start at 1.
func (r *Runtime) RequestPermissions(permissions []string) int32 {
	r.mu.Lock()
	r.nextPermissionCode++
	code := r.nextPermissionCode
	r.permissionRequests[code] = append([]string(nil), permissions...)
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"requestCode": code,
		"permissions": permissions,
	}).Info("requesting permissions")
	return code
}

// StartActivityForResult records an activity started for a result and
// returns its code. Codes start at 0.
func (r *Runtime) StartActivityForResult(intent native.Intent) int32 {
	r.mu.Lock()
	code := r.nextActivityCode
	r.nextActivityCode++
	r.activityRequests[code] = intent.Clone()
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"requestCode": code,
		"action":      intent.Action,
	}).Info("starting activity for result")
	return code
}

// Pending returns the requests still waiting for a result.
func (r *Runtime) Pending() types.PendingRequests {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := types.PendingRequests{
		Permissions: make(map[int32][]string, len(r.permissionRequests)),
		Activities:  make(map[int32]native.Intent, len(r.activityRequests)),
	}
	for code, perms := range r.permissionRequests {
		p.Permissions[code] = append([]string(nil), perms...)
	}
	for code, intent := range r.activityRequests {
		p.Activities[code] = intent.Clone()
	}
	return p
}

// takePermissionRequest removes and returns the outstanding request code.
func (r *Runtime) takePermissionRequest(code int32) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perms, ok := r.permissionRequests[code]
	if !ok {
		r.stats[IgnoredPermissionsResult]++
		return nil, false
	}
	delete(r.permissionRequests, code)
	return perms, true
}

func (r *Runtime) takeActivityRequest(code int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.activityRequests[code]; !ok {
		r.stats[IgnoredActivityResult]++
		return false
	}
	delete(r.activityRequests, code)
	return true
}

func (r *Runtime) count(name string) {
	r.mu.Lock()
	r.stats[name]++
	r.mu.Unlock()
}

// Stats returns the number of calls per entry point, keyed by event name.
func (r *Runtime) Stats() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(events.Names)+2)
	for _, name := range events.Names {
		out[name] = r.stats[name]
	}
	out[IgnoredPermissionsResult] = r.stats[IgnoredPermissionsResult]
	out[IgnoredActivityResult] = r.stats[IgnoredActivityResult]
	return out
}

// Battery returns the last battery status received.
func (r *Runtime) Battery() types.BatteryReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.battery == nil {
		return types.BatteryReport{Charge: -1}
	}
	report := types.BatteryReport{Status: *r.battery, Charge: -1, Known: true}
	if charge, ok := r.battery.Charge(); ok {
		report.Charge = charge
	}
	return report
}

func (r *Runtime) OnRequestPermissionsResult(requestCode int32, permissions []string, grantResults []int32) {
	r.count(events.PermissionsResult)
	r.hub.Publish(events.PermissionsResult, types.PermissionsResult{
		RequestCode:  requestCode,
		Permissions:  permissions,
		GrantResults: grantResults,
	})

	requested, ok := r.takePermissionRequest(requestCode)
	if !ok {
		logrus.WithField("requestCode", requestCode).Info("ignoring unexpected request code")
		return
	}

	n := len(permissions)
	if len(grantResults) < n {
		n = len(grantResults)
	}
	for i := 0; i < n; i++ {
		result := "granted"
		if grantResults[i] != 0 {
			result = "denied"
		}
		logrus.WithFields(logrus.Fields{
			"requestCode": requestCode,
			"requested":   contains(requested, permissions[i]),
		}).Infof("permission %s %s", permissions[i], result)
	}
	if n != len(permissions) || n != len(grantResults) {
		logrus.WithFields(logrus.Fields{
			"permissions":  len(permissions),
			"grantResults": len(grantResults),
		}).Warn("permission and grant result counts differ, extra entries ignored")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *Runtime) OnNewIntent(intent native.Intent) {
	r.count(events.NewIntent)
	logrus.WithFields(logrus.Fields{
		"action": intent.Action,
		"data":   intent.Data,
	}).Info("received new intent")
	r.hub.Publish(events.NewIntent, intent)
}

func (r *Runtime) OnActivityResult(requestCode, resultCode int32, data *native.Intent) {
	r.count(events.ActivityResult)
	r.hub.Publish(events.ActivityResult, types.ActivityResult{
		RequestCode: requestCode,
		ResultCode:  resultCode,
		Data:        data,
	})

	if !r.takeActivityRequest(requestCode) {
		logrus.WithField("requestCode", requestCode).Info("ignoring unexpected request code")
		return
	}
	logrus.WithFields(logrus.Fields{
		"requestCode": requestCode,
		"resultCode":  resultCode,
		"hasData":     data != nil,
	}).Info("received activity result")
}

func (r *Runtime) OnBatteryChanged(status native.BatteryStatus) {
	r.count(events.BatteryChanged)

	r.mu.Lock()
	s := status
	r.battery = &s
	r.mu.Unlock()

	if charge, ok := status.Charge(); ok {
		logrus.Infof("received battery-changed: level %.0f%%, plugged %v", charge*100, status.Charging)
	} else {
		logrus.Infof("received battery-changed: level unknown, plugged %v", status.Charging)
	}
	r.hub.Publish(events.BatteryChanged, status)
}

func (r *Runtime) SendMessage(name, arg string) {
	r.count(events.Message)
	logrus.WithFields(logrus.Fields{
		"name": name,
		"arg":  arg,
	}).Info("received message")
	r.hub.Publish(events.Message, events.MessageEvent{
		Name: name,
		Arg:  arg,
		Ts:   time.Now().Unix(),
	})
}
