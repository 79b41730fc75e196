// Package daemon installs the wivrn-host services as systemd user units.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Unit names.
const (
	RuntimeUnit = "wivrn-runtime.service"
	HostUnit    = "wivrn-host.service"
)

const unitTemplate = `[Unit]
Description=@DESCRIPTION@
@AFTER@
[Service]
Type=simple
ExecStart=@EXEC@ @ARGS@
@RELOAD@Restart=on-failure

[Install]
WantedBy=default.target
`

// Unit describes one service to install.
type Unit struct {
	Name        string
	Description string
	Args        []string
	// After lists units this one starts after.
	After []string
	// Reload means the service reloads its config on SIGHUP.
	Reload bool
}

// Units returns the runtime daemon and host units reading configPath.
func Units(configPath string) []Unit {
	return []Unit{
		{
			Name:        RuntimeUnit,
			Description: "WiVRn stand-in native runtime",
			Args:        []string{"daemon", "--config", configPath},
		},
		{
			Name:        HostUnit,
			Description: "WiVRn activity host",
			Args:        []string{"run", "--config", configPath},
			After:       []string{RuntimeUnit},
			Reload:      true,
		},
	}
}

// Render returns the unit file for u running exePath.
func Render(u Unit, exePath string) string {
	after := ""
	if len(u.After) > 0 {
		deps := strings.Join(u.After, " ")
		after = "After=" + deps + "\nWants=" + deps + "\n"
	}
	reload := ""
	if u.Reload {
		reload = "ExecReload=/bin/kill -HUP $MAINPID\n"
	}
	r := strings.NewReplacer(
		"@DESCRIPTION@", u.Description,
		"@AFTER@", after,
		"@EXEC@", exePath,
		"@ARGS@", strings.Join(u.Args, " "),
		"@RELOAD@", reload,
	)
	return r.Replace(unitTemplate)
}

// UnitDir is where user units are written.
func UnitDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "systemd", "user"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get the home directory: %w", err)
	}
	return filepath.Join(home, ".config", "systemd", "user"), nil
}

var systemctl = func(args ...string) error {
	return exec.Command("systemctl", append([]string{"--user"}, args...)...).Run()
}

func Install(units []Unit) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	dir, err := UnitDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	for _, u := range units {
		path := filepath.Join(dir, u.Name)
		if _, err := os.Stat(path); err == nil {
			logrus.Warnf("%s already exists, overwriting", path)
		}
		logrus.Infof("writing %s", path)
		if err := os.WriteFile(path, []byte(Render(u, exePath)), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	if err := systemctl("daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	for _, u := range units {
		logrus.Infof("starting %s", u.Name)
		if err := systemctl("enable", "--now", u.Name); err != nil {
			return fmt.Errorf("failed to enable %s: %w", u.Name, err)
		}
	}

	return nil
}
