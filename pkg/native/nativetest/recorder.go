// Package nativetest provides a recording native.Runtime for tests.
package nativetest

import (
	"sync"

	"github.com/wivrn/wivrn-host/pkg/native"
)

// Entry point names recorded in Call.Entry.
const (
	EntryPermissionsResult = "permissions-result"
	EntryNewIntent         = "new-intent"
	EntryActivityResult    = "activity-result"
	EntryBatteryChanged    = "battery-changed"
	EntrySendMessage       = "send-message"
)

// Call is one recorded relay.
type Call struct {
	Entry string

	RequestCode  int32
	ResultCode   int32
	Permissions  []string
	GrantResults []int32
	Intent       *native.Intent
	Battery      native.BatteryStatus
	Name         string
	Arg          string
}

var _ native.Runtime = &Recorder{}

// Recorder records every call it receives.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	// OnCall, if set, is invoked after each call is recorded.
	OnCall func(Call)
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	hook := r.OnCall
	r.mu.Unlock()
	if hook != nil {
		hook(c)
	}
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Len returns the number of recorded calls.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Reset drops the recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *Recorder) OnRequestPermissionsResult(requestCode int32, permissions []string, grantResults []int32) {
	r.record(Call{
		Entry:        EntryPermissionsResult,
		RequestCode:  requestCode,
		Permissions:  permissions,
		GrantResults: grantResults,
	})
}

func (r *Recorder) OnNewIntent(intent native.Intent) {
	r.record(Call{Entry: EntryNewIntent, Intent: &intent})
}

func (r *Recorder) OnActivityResult(requestCode, resultCode int32, data *native.Intent) {
	r.record(Call{
		Entry:       EntryActivityResult,
		RequestCode: requestCode,
		ResultCode:  resultCode,
		Intent:      data,
	})
}

func (r *Recorder) OnBatteryChanged(status native.BatteryStatus) {
	r.record(Call{Entry: EntryBatteryChanged, Battery: status})
}

func (r *Recorder) SendMessage(name, arg string) {
	r.record(Call{Entry: EntrySendMessage, Name: name, Arg: arg})
}
