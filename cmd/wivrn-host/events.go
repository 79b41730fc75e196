package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wivrn/wivrn-host/pkg/client"
	"github.com/wivrn/wivrn-host/pkg/events"
)

var eventColors = map[string]*color.Color{
	events.PermissionsResult: color.New(color.FgYellow),
	events.NewIntent:         color.New(color.FgCyan),
	events.ActivityResult:    color.New(color.FgMagenta),
	events.BatteryChanged:    color.New(color.FgGreen),
	events.Message:           color.New(color.FgBlue),
}

// NewEventsCommand .
func NewEventsCommand() *cobra.Command {
	var (
		raw    bool
		replay int
	)

	cmd := &cobra.Command{
		Use:     "events",
		Short:   "Follow the relays received by the runtime daemon",
		GroupID: gRuntime,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch, err := client.NewClient(runtimeSocket()).SubscribeEvents(ctx, replay)
			if err != nil {
				return err
			}

			for ev := range ch {
				if raw {
					cmd.Printf("%s %s\n", ev.Name, ev.Data)
					continue
				}
				cmd.Println(formatEvent(ev, time.Now()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the raw JSON payloads")
	cmd.Flags().IntVar(&replay, "replay", 0, "print up to this many past relays first")
	cmd.Flags().StringVar(&runtimeSocketPath, "runtime-socket", "", "runtime daemon socket, overrides the config")

	return cmd
}

func formatEvent(ev events.Event, now time.Time) string {
	c, ok := eventColors[ev.Name]
	if !ok {
		c = color.New(color.Reset)
	}
	var compact json.RawMessage = ev.Data
	if b, err := json.Marshal(ev.Data); err == nil {
		compact = b
	}
	return now.Format("15:04:05") + " " + c.Sprintf("%-24s", ev.Name) + " " + string(compact)
}
