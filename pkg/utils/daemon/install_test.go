package daemon

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	units := Units("/etc/wivrn-host.json")
	host := Render(units[1], "/usr/bin/wivrn-host")

	for _, want := range []string{
		"Description=WiVRn activity host\n",
		"After=wivrn-runtime.service\n",
		"ExecStart=/usr/bin/wivrn-host run --config /etc/wivrn-host.json\n",
		"ExecReload=/bin/kill -HUP $MAINPID\n",
		"WantedBy=default.target\n",
	} {
		if !strings.Contains(host, want) {
			t.Errorf("Render() missing %q in:\n%s", want, host)
		}
	}

	if runtime := Render(units[0], "/usr/bin/wivrn-host"); strings.Contains(runtime, "After=") || strings.Contains(runtime, "ExecReload=") {
		t.Errorf("Render() of the runtime unit has dependencies or a reload:\n%s", runtime)
	}
}

func TestInstallUninstall(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	var calls [][]string
	orig := systemctl
	systemctl = func(args ...string) error {
		calls = append(calls, args)
		return nil
	}
	defer func() { systemctl = orig }()

	units := Units("/etc/wivrn-host.json")
	if err := Install(units); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	for _, u := range units {
		if _, err := os.Stat(filepath.Join(dir, "systemd", "user", u.Name)); err != nil {
			t.Errorf("unit %s not written: %v", u.Name, err)
		}
	}
	want := [][]string{
		{"daemon-reload"},
		{"enable", "--now", RuntimeUnit},
		{"enable", "--now", HostUnit},
	}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("systemctl calls = %v, want %v", calls, want)
	}

	calls = nil
	if err := Uninstall(units); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	for _, u := range units {
		if _, err := os.Stat(filepath.Join(dir, "systemd", "user", u.Name)); !os.IsNotExist(err) {
			t.Errorf("unit %s still present: %v", u.Name, err)
		}
	}
	want = [][]string{
		{"disable", "--now", HostUnit},
		{"disable", "--now", RuntimeUnit},
		{"daemon-reload"},
	}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("systemctl calls = %v, want %v", calls, want)
	}
}
