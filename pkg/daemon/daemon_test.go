package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wivrn/wivrn-host/pkg/events"
	"github.com/wivrn/wivrn-host/pkg/native"
	"github.com/wivrn/wivrn-host/pkg/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *Runtime, *events.EventHub) {
	t.Helper()
	hub := events.NewEventHub()
	rt := NewRuntime(hub)
	srv := httptest.NewServer(NewRouter(rt, hub))
	t.Cleanup(srv.Close)
	return srv, rt, hub
}

func post(t *testing.T, url, body string) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestRouter_Relays(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		body  string
		event string
	}{
		{"permissions result", "/permissions-result", `{"requestCode": 1, "permissions": ["android.permission.RECORD_AUDIO"], "grantResults": [0]}`, events.PermissionsResult},
		{"new intent", "/new-intent", `{"action": "android.intent.action.VIEW", "data": "wivrn://10.0.0.2"}`, events.NewIntent},
		{"activity result", "/activity-result", `{"requestCode": 2, "resultCode": -1, "data": null}`, events.ActivityResult},
		{"battery", "/battery", `{"level": 42, "scale": 100, "plugged": 1, "charging": true, "present": true}`, events.BatteryChanged},
		{"message", "/message", `{"name": "connect", "arg": "wivrn://10.0.0.2"}`, events.Message},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, rt, hub := newTestServer(t)
			ch := hub.Subscribe()

			if code := post(t, srv.URL+tt.path, tt.body); code != http.StatusNoContent {
				t.Fatalf("POST %s = %d, want %d", tt.path, code, http.StatusNoContent)
			}

			if got := rt.Stats()[tt.event]; got != 1 {
				t.Errorf("Stats()[%q] = %d, want 1", tt.event, got)
			}
			select {
			case ev := <-ch:
				if ev.Name != tt.event {
					t.Errorf("published %q, want %q", ev.Name, tt.event)
				}
			default:
				t.Errorf("nothing published")
			}
		})
	}
}

func TestRouter_BadBody(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	if code := post(t, srv.URL+"/new-intent", `{`); code != http.StatusBadRequest {
		t.Errorf("POST /new-intent with bad body = %d, want %d", code, http.StatusBadRequest)
	}
	if got := rt.Stats()[events.NewIntent]; got != 0 {
		t.Errorf("bad body was relayed")
	}
}

func TestRouter_Battery(t *testing.T) {
	srv, _, _ := newTestServer(t)

	get := func() types.BatteryReport {
		resp, err := http.Get(srv.URL + "/battery")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var r types.BatteryReport
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			t.Fatal(err)
		}
		return r
	}

	if r := get(); r.Known || r.Charge != -1 {
		t.Errorf("battery before any relay = %+v", r)
	}

	post(t, srv.URL+"/battery", `{"level": 21, "scale": 42, "plugged": 0}`)
	r := get()
	if !r.Known || r.Charge != 0.5 || r.Status.Level != 21 {
		t.Errorf("battery = %+v, want level 21, charge 0.5", r)
	}
}

func TestRouter_EventStream(t *testing.T) {
	srv, _, hub := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	for hub.Subscribers() == 0 {
		time.Sleep(time.Millisecond)
	}
	post(t, srv.URL+"/message", `{"name": "connect", "arg": "x"}`)

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if line := sc.Text(); strings.HasPrefix(line, "event:") {
			if got := strings.TrimSpace(strings.TrimPrefix(line, "event:")); got != events.Message {
				t.Errorf("event = %q, want %q", got, events.Message)
			}
			return
		}
	}
	t.Fatalf("stream ended without an event: %v", sc.Err())
}

func TestRuntime_MismatchedPermissionCounts(t *testing.T) {
	rt := NewRuntime(nil)
	code := rt.RequestPermissions([]string{"a", "b"})
	rt.OnRequestPermissionsResult(code, []string{"a", "b"}, []int32{0})
	if got := rt.Stats()[events.PermissionsResult]; got != 1 {
		t.Errorf("Stats() = %d, want 1", got)
	}
	if got := rt.Stats()[IgnoredPermissionsResult]; got != 0 {
		t.Errorf("Stats()[%q] = %d, want 0", IgnoredPermissionsResult, got)
	}
}

func TestRuntime_RequestCodes(t *testing.T) {
	rt := NewRuntime(nil)

	// Permission codes start at 1, activity codes at 0.
	if got := rt.RequestPermissions([]string{"a"}); got != 1 {
		t.Errorf("RequestPermissions() = %d, want 1", got)
	}
	if got := rt.RequestPermissions([]string{"b"}); got != 2 {
		t.Errorf("RequestPermissions() = %d, want 2", got)
	}
	if got := rt.StartActivityForResult(native.Intent{Action: "x"}); got != 0 {
		t.Errorf("StartActivityForResult() = %d, want 0", got)
	}
	if got := rt.StartActivityForResult(native.Intent{Action: "y"}); got != 1 {
		t.Errorf("StartActivityForResult() = %d, want 1", got)
	}

	p := rt.Pending()
	if len(p.Permissions) != 2 || len(p.Activities) != 2 {
		t.Fatalf("Pending() = %+v, want 2 of each", p)
	}
	if p.Permissions[2][0] != "b" {
		t.Errorf("Pending().Permissions[2] = %v, want [b]", p.Permissions[2])
	}
	if p.Activities[1].Action != "y" {
		t.Errorf("Pending().Activities[1].Action = %q, want %q", p.Activities[1].Action, "y")
	}
}

func TestRuntime_ResultRequestCodes(t *testing.T) {
	tests := []struct {
		name        string
		expected    bool
		deliver     func(rt *Runtime, code int32)
		request     func(rt *Runtime) int32
		event       string
		ignored     string
		pendingLeft func(p types.PendingRequests) int
	}{
		{
			name:     "permissions expected",
			expected: true,
			request:  func(rt *Runtime) int32 { return rt.RequestPermissions([]string{"a"}) },
			deliver: func(rt *Runtime, code int32) {
				rt.OnRequestPermissionsResult(code, []string{"a"}, []int32{0})
			},
			event:       events.PermissionsResult,
			ignored:     IgnoredPermissionsResult,
			pendingLeft: func(p types.PendingRequests) int { return len(p.Permissions) },
		},
		{
			name:     "permissions unexpected",
			expected: false,
			request:  func(rt *Runtime) int32 { return rt.RequestPermissions([]string{"a"}) },
			deliver: func(rt *Runtime, code int32) {
				rt.OnRequestPermissionsResult(code+100, []string{"a"}, []int32{0})
			},
			event:       events.PermissionsResult,
			ignored:     IgnoredPermissionsResult,
			pendingLeft: func(p types.PendingRequests) int { return len(p.Permissions) },
		},
		{
			name:     "activity expected",
			expected: true,
			request:  func(rt *Runtime) int32 { return rt.StartActivityForResult(native.Intent{Action: "x"}) },
			deliver: func(rt *Runtime, code int32) {
				rt.OnActivityResult(code, -1, nil)
			},
			event:       events.ActivityResult,
			ignored:     IgnoredActivityResult,
			pendingLeft: func(p types.PendingRequests) int { return len(p.Activities) },
		},
		{
			name:     "activity unexpected",
			expected: false,
			request:  func(rt *Runtime) int32 { return rt.StartActivityForResult(native.Intent{Action: "x"}) },
			deliver: func(rt *Runtime, code int32) {
				rt.OnActivityResult(code+100, -1, nil)
			},
			event:       events.ActivityResult,
			ignored:     IgnoredActivityResult,
			pendingLeft: func(p types.PendingRequests) int { return len(p.Activities) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := events.NewEventHub()
			ch := hub.Subscribe()
			rt := NewRuntime(hub)

			tt.deliver(rt, tt.request(rt))

			wantIgnored, wantPending := 0, 0
			if !tt.expected {
				wantIgnored, wantPending = 1, 1
			}
			if got := rt.Stats()[tt.event]; got != 1 {
				t.Errorf("Stats()[%q] = %d, want 1", tt.event, got)
			}
			if got := rt.Stats()[tt.ignored]; got != wantIgnored {
				t.Errorf("Stats()[%q] = %d, want %d", tt.ignored, got, wantIgnored)
			}
			if got := tt.pendingLeft(rt.Pending()); got != wantPending {
				t.Errorf("pending requests = %d, want %d", got, wantPending)
			}
			select {
			case ev := <-ch:
				if ev.Name != tt.event {
					t.Errorf("published %q, want %q", ev.Name, tt.event)
				}
			default:
				t.Errorf("nothing published")
			}

			// A second result for the same code is unexpected.
			if tt.expected {
				tt.deliver(rt, 0)
				if got := rt.Stats()[tt.ignored]; got != 1 {
					t.Errorf("Stats()[%q] after a repeat = %d, want 1", tt.ignored, got)
				}
			}
		})
	}
}

func TestRouter_RequestTables(t *testing.T) {
	srv, rt, _ := newTestServer(t)

	if code := post(t, srv.URL+"/request-permissions", `{"permissions": []}`); code != http.StatusBadRequest {
		t.Errorf("POST /request-permissions with no permissions = %d, want %d", code, http.StatusBadRequest)
	}
	if code := post(t, srv.URL+"/request-permissions", `{`); code != http.StatusBadRequest {
		t.Errorf("POST /request-permissions with bad body = %d, want %d", code, http.StatusBadRequest)
	}

	postForCode := func(path, body string) int32 {
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("POST %s = %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
		var rc types.RequestCode
		if err := json.NewDecoder(resp.Body).Decode(&rc); err != nil {
			t.Fatal(err)
		}
		return rc.RequestCode
	}

	pc := postForCode("/request-permissions", `{"permissions": ["android.permission.RECORD_AUDIO"]}`)
	ac := postForCode("/start-activity-for-result", `{"intent": {"action": "android.intent.action.VIEW"}}`)

	resp, err := http.Get(srv.URL + "/requests")
	if err != nil {
		t.Fatal(err)
	}
	var p types.PendingRequests
	err = json.NewDecoder(resp.Body).Decode(&p)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Permissions[pc]; len(got) != 1 || got[0] != "android.permission.RECORD_AUDIO" {
		t.Errorf("GET /requests permissions[%d] = %v", pc, got)
	}
	if got := p.Activities[ac].Action; got != "android.intent.action.VIEW" {
		t.Errorf("GET /requests activities[%d].Action = %q", ac, got)
	}

	body := fmt.Sprintf(`{"requestCode": %d, "permissions": ["android.permission.RECORD_AUDIO"], "grantResults": [0]}`, pc)
	if code := post(t, srv.URL+"/permissions-result", body); code != http.StatusNoContent {
		t.Errorf("POST /permissions-result = %d, want %d", code, http.StatusNoContent)
	}
	if got := len(rt.Pending().Permissions); got != 0 {
		t.Errorf("pending permission requests = %d after the result, want 0", got)
	}
}

func TestRouter_EventStreamInvalidReplay(t *testing.T) {
	srv, _, hub := newTestServer(t)
	resp, err := http.Get(srv.URL + "/events?replay=-1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("GET /events?replay=-1 = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if got := hub.Subscribers(); got != 0 {
		t.Errorf("Subscribers() = %d after a rejected stream", got)
	}
}
