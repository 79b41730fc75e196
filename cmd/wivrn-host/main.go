package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wivrn/wivrn-host/pkg/client"
	"github.com/wivrn/wivrn-host/pkg/version"
)

var (
	logLevel   = "info"
	configPath = defaultConfigPath()
)

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "/etc/wivrn-host.json"
	}
	return filepath.Join(dir, "wivrn-host", "config.json")
}

var (
	gHost    = "Host:"
	gRuntime = "Runtime:"
	gAM      = "Activity manager:"

	commandGroups = []string{
		gHost,
		gRuntime,
		gAM,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	}

	return nil
}

func handleCmdError(err error) {
	switch {
	case errors.Is(err, client.ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: nothing is listening on the socket")
		fmt.Fprintln(os.Stderr, "Is the runtime daemon or the host running?")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or start the daemon with '--allow-non-root-access'")
	case errors.Is(err, client.ErrConflict):
		fmt.Fprintln(os.Stderr, "\nError: the host rejected the event in its current state")
		fmt.Fprintln(os.Stderr, "Check it with 'wivrn-host am state'")
	}
}

func main() {
	// The main looper runs on the main goroutine; keep it on the main
	// OS thread.
	runtime.LockOSThread()

	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wivrn-host",
		Short: "wivrn-host hosts the WiVRn native runtime and relays lifecycle events into it",
		Long: `wivrn-host hosts the WiVRn native runtime and relays lifecycle events into it.

It owns the activity lifecycle, loads the native runtime once, forwards
intents, permission and activity results to it, and observes battery
broadcasts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewRunCommand(),
		NewBatteryCommand(),
		NewDaemonCommand(),
		NewEventsCommand(),
		NewAMCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
		NewVersionCommand(),
	)

	return cmd
}

// NewVersionCommand .
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}
