package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wivrn/wivrn-host/pkg/config"
	daemonutils "github.com/wivrn/wivrn-host/pkg/utils/daemon"
)

var gInstallation = "Installation:"

func init() {
	commandGroups = append(commandGroups, gInstallation)
}

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install the runtime daemon and host as systemd user services",
		GroupID: gInstallation,
		Long: `Install the runtime daemon and host as systemd user services.

Both units run the current binary with the current --config. The config file
is written with its current values so the services start with them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			abs, err := filepath.Abs(configPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
				return err
			}
			conf, err := config.NewFile(abs)
			if err != nil {
				return err
			}
			if err := conf.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if err := daemonutils.Install(daemonutils.Units(abs)); err != nil {
				return fmt.Errorf("failed to install services: %w", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()
			cmd.Printf("systemd will use the current binary (%s), so do not move it. If it is moved or deleted, run 'wivrn-host install' again.\n", exePath)

			return nil
		},
	}

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Stop and remove the systemd user services",
		GroupID: gInstallation,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := daemonutils.Uninstall(daemonutils.Units(configPath)); err != nil {
				return fmt.Errorf("failed to uninstall services: %w", err)
			}
			logrus.Infof("uninstallation succeeded")
			return nil
		},
	}
}
