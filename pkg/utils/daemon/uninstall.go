package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

func Uninstall(units []Unit) error {
	dir, err := UnitDir()
	if err != nil {
		return err
	}

	// Host first, it depends on the runtime.
	for i := len(units) - 1; i >= 0; i-- {
		u := units[i]
		logrus.Infof("stopping %s", u.Name)
		if err := systemctl("disable", "--now", u.Name); err != nil {
			logrus.WithError(err).Warnf("failed to disable %s", u.Name)
		}

		path := filepath.Join(dir, u.Name)
		// if the file doesn't exist, we don't need to remove it
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	return systemctl("daemon-reload")
}
