package main

import (
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wivrn/wivrn-host/pkg/client"
	"github.com/wivrn/wivrn-host/pkg/config"
	"github.com/wivrn/wivrn-host/pkg/daemon"
	"github.com/wivrn/wivrn-host/pkg/version"
)

var (
	// allowNonRootAccess indicates whether non-root users may use the runtime daemon socket.
	allowNonRootAccess = false
	runtimeSocketPath  = ""
)

// runtimeSocket returns the --runtime-socket flag, falling back to the config file.
func runtimeSocket() string {
	if runtimeSocketPath != "" {
		return runtimeSocketPath
	}
	conf, err := config.NewFile(configPath)
	if err != nil {
		logrus.WithError(err).Warn("failed to load config, using the default runtime socket")
		return config.NewFileFromConfig(nil, configPath).RuntimeSocket()
	}
	return conf.RuntimeSocket()
}

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Run the stand-in native runtime daemon in the foreground",
		GroupID: gRuntime,
		Long: `Run the stand-in native runtime daemon in the foreground.

The daemon serves the native entry points over a unix socket so that a host
started without --library has a runtime to relay to. Every relay is logged
and published on the event stream (see 'wivrn-host events').`,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("runtime daemon starting")
			return daemon.Run(runtimeSocket(), allowNonRootAccess)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&allowNonRootAccess, "allow-non-root-access", false,
		"Allow non-root users to access the daemon.")
	cmd.PersistentFlags().StringVar(&runtimeSocketPath, "runtime-socket", "", "runtime daemon socket, overrides the config")

	cmd.AddCommand(
		NewStatsCommand(),
		NewRequestPermissionsCommand(),
		NewStartActivityForResultCommand(),
		NewRequestsCommand(),
	)

	return cmd
}

// NewStatsCommand .
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print relay counters of the runtime daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := client.NewClient(runtimeSocket()).GetStats()
			if err != nil {
				return err
			}
			names := make([]string, 0, len(stats))
			for k := range stats {
				names = append(names, k)
			}
			sort.Strings(names)
			for _, k := range names {
				cmd.Printf("  %s: %s\n", k, bold("%d", stats[k]))
			}
			return nil
		},
	}
}

// NewRequestPermissionsCommand .
func NewRequestPermissionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "request-permissions <permission>...",
		Short:   "Make the runtime daemon request permissions",
		Example: `  wivrn-host daemon request-permissions android.permission.RECORD_AUDIO`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := client.NewClient(runtimeSocket()).RequestPermissions(args)
			if err != nil {
				return err
			}
			cmd.Printf("Request code: %s\n", bold("%d", code))
			cmd.Printf("Answer it with 'wivrn-host am permissions-result %d'.\n", code)
			return nil
		},
	}
}

// NewStartActivityForResultCommand .
func NewStartActivityForResultCommand() *cobra.Command {
	var extras []string

	cmd := &cobra.Command{
		Use:   "start-activity <action> [data-uri]",
		Short: "Make the runtime daemon start an activity for a result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := buildIntent(args[0], args[1:], extras)
			if err != nil {
				return err
			}
			code, err := client.NewClient(runtimeSocket()).StartActivityForResult(intent)
			if err != nil {
				return err
			}
			cmd.Printf("Request code: %s\n", bold("%d", code))
			cmd.Printf("Answer it with 'wivrn-host am activity-result %d <result-code>'.\n", code)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&extras, "extra", "e", nil, "intent extra as key=value, repeatable")

	return cmd
}

// NewRequestsCommand .
func NewRequestsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "requests",
		Short: "Print the requests waiting for a result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := client.NewClient(runtimeSocket()).GetPendingRequests()
			if err != nil {
				return err
			}
			cmd.Println("Permission requests:")
			for _, code := range sortedCodes(p.Permissions) {
				cmd.Printf("  %s: %v\n", bold("%d", code), p.Permissions[code])
			}
			cmd.Println("Activity requests:")
			for _, code := range sortedCodes(p.Activities) {
				cmd.Printf("  %s: %s %s\n", bold("%d", code), p.Activities[code].Action, p.Activities[code].Data)
			}
			return nil
		},
	}
}

func sortedCodes[V any](m map[int32]V) []int32 {
	codes := make([]int32, 0, len(m))
	for k := range m {
		codes = append(codes, k)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
