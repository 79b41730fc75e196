package main

import (
	"fmt"

	sysbattery "github.com/distatus/battery"
	"github.com/spf13/cobra"

	"github.com/wivrn/wivrn-host/pkg/battery"
	"github.com/wivrn/wivrn-host/pkg/client"
	"github.com/wivrn/wivrn-host/pkg/native"
)

// NewBatteryCommand .
func NewBatteryCommand() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:     "battery",
		Short:   "Print the battery status",
		GroupID: gHost,
		Long: `Print the battery status.

By default the machine battery is read the way the host broadcasts it. With
--runtime the last status relayed to the runtime daemon is printed instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if remote {
				report, err := client.NewClient(runtimeSocket()).GetBattery()
				if err != nil {
					return err
				}
				if !report.Known {
					cmd.Println("The runtime has not received a battery status yet.")
					return nil
				}
				printBatteryStatus(cmd, report.Status)
				return nil
			}

			batteries, err := sysbattery.GetAll()
			if err != nil && len(batteries) == 0 {
				return fmt.Errorf("failed to read battery: %w", err)
			}
			if len(batteries) == 0 {
				cmd.Println("No battery found.")
				return nil
			}
			for i, b := range batteries {
				if len(batteries) > 1 {
					cmd.Printf("Battery %d:\n", i)
				}
				printBatteryStatus(cmd, battery.StatusFromBattery(b))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "runtime", false, "print the status last relayed to the runtime daemon")
	cmd.Flags().StringVar(&runtimeSocketPath, "runtime-socket", "", "runtime daemon socket, overrides the config")

	return cmd
}

func printBatteryStatus(cmd *cobra.Command, s native.BatteryStatus) {
	if charge, ok := s.Charge(); ok {
		cmd.Printf("  Charge: %s\n", bold("%.0f%%", charge*100))
	} else {
		cmd.Printf("  Charge: %s\n", bold("unknown"))
	}
	cmd.Printf("  Level: %d/%d\n", s.Level, s.Scale)
	cmd.Printf("  Status: %s\n", bold("%s", battery.StatusName(s.Status)))
	cmd.Printf("  Present: %s\n", bool2Text(s.Present))
	cmd.Printf("  Charging: %s\n", bool2Text(s.Charging))
}
