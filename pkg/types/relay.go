package types

import "github.com/wivrn/wivrn-host/pkg/native"

// PermissionsResult is the body of a permissions-result relay.
type PermissionsResult struct {
	RequestCode  int32    `json:"requestCode"`
	Permissions  []string `json:"permissions"`
	GrantResults []int32  `json:"grantResults"`
}

// ActivityResult is the body of an activity-result relay.
type ActivityResult struct {
	RequestCode int32          `json:"requestCode"`
	ResultCode  int32          `json:"resultCode"`
	Data        *native.Intent `json:"data"`
}

// Message is the body of a named single-argument message.
type Message struct {
	Name string `json:"name"`
	Arg  string `json:"arg"`
}

// Broadcast is the body of an injected system broadcast.
type Broadcast struct {
	Intent native.Intent `json:"intent"`
	Sticky bool          `json:"sticky,omitempty"`
}

// BatteryReport is the runtime's view of the last battery-changed relay.
type BatteryReport struct {
	Status native.BatteryStatus `json:"status"`
	// Charge is level/scale, or -1 when unknown.
	Charge float32 `json:"charge"`
	// Known is false until the first relay.
	Known bool `json:"known"`
}

// HostState describes a running activity host.
type HostState struct {
	State              string `json:"state"`
	Resumed            bool   `json:"resumed"`
	ObserverRegistered bool   `json:"observerRegistered"`
	BatteryObserver    bool   `json:"batteryObserver"`
	MessageSend        bool   `json:"messageSend"`
}

// PermissionRequest asks the runtime daemon to record a permission request.
type PermissionRequest struct {
	Permissions []string `json:"permissions"`
}

// ActivityRequest asks the runtime daemon to record an activity started
// for a result.
type ActivityRequest struct {
	Intent native.Intent `json:"intent"`
}

// RequestCode is the code a recorded request is answered with.
type RequestCode struct {
	RequestCode int32 `json:"requestCode"`
}

// PendingRequests lists the requests still waiting for a result.
type PendingRequests struct {
	Permissions map[int32][]string      `json:"permissions"`
	Activities  map[int32]native.Intent `json:"activities"`
}
