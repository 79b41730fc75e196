package events

import "encoding/json"

// Event name constants, one per native entry point.
const (
	PermissionsResult = "relay.permissions-result"
	NewIntent         = "relay.new-intent"
	ActivityResult    = "relay.activity-result"
	BatteryChanged    = "relay.battery-changed"
	Message           = "relay.message"
)

// Names lists every event name.
var Names = []string{PermissionsResult, NewIntent, ActivityResult, BatteryChanged, Message}

// Event is a generic SSE event from the runtime daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// MessageEvent is the typed payload for relay.message.
type MessageEvent struct {
	Name string `json:"name"`
	Arg  string `json:"arg"`
	Ts   int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.MessageEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Name, payload.Arg)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
