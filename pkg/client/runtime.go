package client

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/wivrn/wivrn-host/pkg/native"
	"github.com/wivrn/wivrn-host/pkg/types"
)

var _ native.Runtime = &Runtime{}

// Runtime is a native.Runtime served by the runtime daemon. Calls are
// fire-and-forget: transport failures are logged and dropped.
type Runtime struct {
	c *Client
}

// NewRuntime returns a runtime relaying to the daemon behind c.
func NewRuntime(c *Client) *Runtime {
	return &Runtime{c: c}
}

func (r *Runtime) relay(path string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		logrus.WithField("path", path).Warnf("failed to encode relay: %v", err)
		return
	}
	if _, err := r.c.Post(path, string(b)); err != nil {
		logrus.WithField("path", path).Warnf("relay to runtime daemon failed: %v", err)
	}
}

func (r *Runtime) OnRequestPermissionsResult(requestCode int32, permissions []string, grantResults []int32) {
	r.relay("/permissions-result", types.PermissionsResult{
		RequestCode:  requestCode,
		Permissions:  permissions,
		GrantResults: grantResults,
	})
}

func (r *Runtime) OnNewIntent(intent native.Intent) {
	r.relay("/new-intent", intent)
}

func (r *Runtime) OnActivityResult(requestCode, resultCode int32, data *native.Intent) {
	r.relay("/activity-result", types.ActivityResult{
		RequestCode: requestCode,
		ResultCode:  resultCode,
		Data:        data,
	})
}

func (r *Runtime) OnBatteryChanged(status native.BatteryStatus) {
	r.relay("/battery", status)
}

func (r *Runtime) SendMessage(name, arg string) {
	r.relay("/message", types.Message{Name: name, Arg: arg})
}
