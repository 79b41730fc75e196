package client

import (
	"encoding/json"

	pkgerrors "github.com/pkg/errors"

	"github.com/wivrn/wivrn-host/pkg/native"
	"github.com/wivrn/wivrn-host/pkg/types"
)

// ===== Runtime daemon APIs =====

func (c *Client) GetBattery() (*types.BatteryReport, error) {
	ret, err := c.Get("/battery")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get battery status")
	}

	var report types.BatteryReport
	if err := json.Unmarshal([]byte(ret), &report); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal battery status")
	}
	return &report, nil
}

func (c *Client) GetStats() (map[string]int, error) {
	ret, err := c.Get("/stats")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get relay stats")
	}

	stats := map[string]int{}
	if err := json.Unmarshal([]byte(ret), &stats); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal relay stats")
	}
	return stats, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}

func (c *Client) postForCode(path string, payload any, what string) (int32, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to encode %s", what)
	}
	ret, err := c.Post(path, string(b))
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to record %s", what)
	}
	var code types.RequestCode
	if err := json.Unmarshal([]byte(ret), &code); err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to unmarshal request code")
	}
	return code.RequestCode, nil
}

// RequestPermissions records a permission request in the runtime daemon
// and returns the request code its result must carry.
func (c *Client) RequestPermissions(permissions []string) (int32, error) {
	return c.postForCode("/request-permissions", types.PermissionRequest{Permissions: permissions}, "permission request")
}

// StartActivityForResult records an activity started for a result in the
// runtime daemon and returns the request code its result must carry.
func (c *Client) StartActivityForResult(intent native.Intent) (int32, error) {
	return c.postForCode("/start-activity-for-result", types.ActivityRequest{Intent: intent}, "activity request")
}

func (c *Client) GetPendingRequests() (*types.PendingRequests, error) {
	ret, err := c.Get("/requests")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get pending requests")
	}
	var p types.PendingRequests
	if err := json.Unmarshal([]byte(ret), &p); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal pending requests")
	}
	return &p, nil
}

// ===== Activity manager APIs =====

func (c *Client) postJSON(path string, payload any, what string) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode %s", what)
	}
	if _, err := c.Post(path, string(b)); err != nil {
		return pkgerrors.Wrapf(err, "failed to deliver %s", what)
	}
	return nil
}

func (c *Client) StartIntent(intent native.Intent) error {
	return c.postJSON("/intent", intent, "intent")
}

func (c *Client) DeliverPermissionsResult(r types.PermissionsResult) error {
	return c.postJSON("/permissions-result", r, "permissions result")
}

func (c *Client) DeliverActivityResult(r types.ActivityResult) error {
	return c.postJSON("/activity-result", r, "activity result")
}

func (c *Client) SendMessage(name, arg string) error {
	return c.postJSON("/message", types.Message{Name: name, Arg: arg}, "message")
}

func (c *Client) SendBroadcast(b types.Broadcast) error {
	return c.postJSON("/broadcast", b, "broadcast")
}

func (c *Client) GetHostState() (*types.HostState, error) {
	ret, err := c.Get("/state")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get host state")
	}

	var st types.HostState
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal host state")
	}
	return &st, nil
}
