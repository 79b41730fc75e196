package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wivrn/wivrn-host/pkg/client"
	"github.com/wivrn/wivrn-host/pkg/config"
	"github.com/wivrn/wivrn-host/pkg/native"
	"github.com/wivrn/wivrn-host/pkg/types"
)

var controlSocketPath = ""

func newControlClient() *client.Client {
	if controlSocketPath != "" {
		return client.NewClient(controlSocketPath)
	}
	conf, err := config.NewFile(configPath)
	if err != nil {
		logrus.WithError(err).Warn("failed to load config, using the default control socket")
		return client.NewClient(config.NewFileFromConfig(nil, configPath).ControlSocket())
	}
	return client.NewClient(conf.ControlSocket())
}

// NewAMCommand .
func NewAMCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "am",
		Short:   "Deliver OS events to a running host",
		GroupID: gAM,
	}

	cmd.PersistentFlags().StringVar(&controlSocketPath, "control-socket", "", "activity-manager socket, overrides the config")

	cmd.AddCommand(
		NewAMStartCommand(),
		NewAMPermissionsResultCommand(),
		NewAMActivityResultCommand(),
		NewAMMessageCommand(),
		NewAMBroadcastCommand(),
		NewAMStateCommand(),
	)

	return cmd
}

// NewAMStartCommand .
func NewAMStartCommand() *cobra.Command {
	var (
		action string
		extras []string
	)

	cmd := &cobra.Command{
		Use:   "start [data-uri]",
		Short: "Deliver a new intent",
		Example: `  wivrn-host am start wivrn://192.168.1.20
  wivrn-host am start -a android.intent.action.MAIN -e autoconnect=true`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := buildIntent(action, args, extras)
			if err != nil {
				return err
			}
			if err := newControlClient().StartIntent(intent); err != nil {
				return err
			}
			cmd.Println("Intent delivered.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&action, "action", "a", native.ActionView, "intent action")
	cmd.Flags().StringArrayVarP(&extras, "extra", "e", nil, "intent extra as key=value, repeatable")

	return cmd
}

// NewAMPermissionsResultCommand .
func NewAMPermissionsResultCommand() *cobra.Command {
	var (
		permissions []string
		grants      []string
	)

	cmd := &cobra.Command{
		Use:     "permissions-result <request-code>",
		Short:   "Deliver the result of a permission request",
		Example: `  wivrn-host am permissions-result 1 -p android.permission.RECORD_AUDIO -g 0`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseIntArg(args[0], "request code")
			if err != nil {
				return err
			}
			grantResults, err := parseIntArgs(grants, "grant result")
			if err != nil {
				return err
			}
			if err := newControlClient().DeliverPermissionsResult(types.PermissionsResult{
				RequestCode:  code,
				Permissions:  permissions,
				GrantResults: grantResults,
			}); err != nil {
				return err
			}
			cmd.Println("Permissions result delivered.")
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&permissions, "permission", "p", nil, "permission name, repeatable")
	cmd.Flags().StringArrayVarP(&grants, "grant", "g", nil, "grant result (0 granted, -1 denied), repeatable")

	return cmd
}

// NewAMActivityResultCommand .
func NewAMActivityResultCommand() *cobra.Command {
	var (
		action string
		data   string
		extras []string
		noData bool
	)

	cmd := &cobra.Command{
		Use:   "activity-result <request-code> <result-code>",
		Short: "Deliver the result of a started activity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestCode, err := parseIntArg(args[0], "request code")
			if err != nil {
				return err
			}
			resultCode, err := parseIntArg(args[1], "result code")
			if err != nil {
				return err
			}

			r := types.ActivityResult{RequestCode: requestCode, ResultCode: resultCode}
			if !noData {
				var uri []string
				if data != "" {
					uri = []string{data}
				}
				intent, err := buildIntent(action, uri, extras)
				if err != nil {
					return err
				}
				r.Data = &intent
			}

			if err := newControlClient().DeliverActivityResult(r); err != nil {
				return err
			}
			cmd.Println("Activity result delivered.")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&action, "action", "a", "", "result intent action")
	f.StringVarP(&data, "data", "d", "", "result intent data URI")
	f.StringArrayVarP(&extras, "extra", "e", nil, "result intent extra as key=value, repeatable")
	f.BoolVar(&noData, "no-data", false, "deliver the result without an intent")

	return cmd
}

// NewAMMessageCommand .
func NewAMMessageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "message <name> <arg>",
		Short: "Send a named message to the native runtime",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newControlClient().SendMessage(args[0], args[1]); err != nil {
				return err
			}
			cmd.Println("Message sent.")
			return nil
		},
	}
}

// NewAMBroadcastCommand .
func NewAMBroadcastCommand() *cobra.Command {
	var (
		extras []string
		sticky bool
	)

	cmd := &cobra.Command{
		Use:     "broadcast <action>",
		Short:   "Send a system broadcast",
		Example: `  wivrn-host am broadcast android.intent.action.BATTERY_CHANGED -e level=42 -e scale=100 -e plugged=1 --sticky`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := buildIntent(args[0], nil, extras)
			if err != nil {
				return err
			}
			if err := newControlClient().SendBroadcast(types.Broadcast{Intent: intent, Sticky: sticky}); err != nil {
				return err
			}
			cmd.Println("Broadcast sent.")
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&extras, "extra", "e", nil, "broadcast extra as key=value, repeatable")
	cmd.Flags().BoolVar(&sticky, "sticky", false, "keep the broadcast for later receivers")

	return cmd
}

// NewAMStateCommand .
func NewAMStateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the state of the running host",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newControlClient().GetHostState()
			if err != nil {
				return err
			}
			cmd.Printf("State: %s\n", bold("%s", s.State))
			cmd.Printf("  Resumed: %s\n", bool2Text(s.Resumed))
			cmd.Printf("  Battery observer registered: %s\n", bool2Text(s.ObserverRegistered))
			cmd.Println()
			cmd.Println("Capabilities:")
			cmd.Printf("  Battery observer: %s\n", bool2Text(s.BatteryObserver))
			cmd.Printf("  Message send: %s\n", bool2Text(s.MessageSend))
			return nil
		},
	}
}

func buildIntent(action string, data []string, extras []string) (native.Intent, error) {
	if len(data) > 1 {
		return native.Intent{}, fmt.Errorf("expected at most one data URI, got %d", len(data))
	}
	e, err := parseExtras(extras)
	if err != nil {
		return native.Intent{}, err
	}
	intent := native.Intent{Action: action, Extras: e}
	if len(data) == 1 {
		intent.Data = data[0]
	}
	return intent, nil
}
