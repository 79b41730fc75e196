package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	sysbattery "github.com/distatus/battery"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wivrn/wivrn-host/pkg/am"
	"github.com/wivrn/wivrn-host/pkg/battery"
	"github.com/wivrn/wivrn-host/pkg/broadcast"
	"github.com/wivrn/wivrn-host/pkg/client"
	"github.com/wivrn/wivrn-host/pkg/config"
	"github.com/wivrn/wivrn-host/pkg/host"
	"github.com/wivrn/wivrn-host/pkg/looper"
	"github.com/wivrn/wivrn-host/pkg/native"
	"github.com/wivrn/wivrn-host/pkg/version"
)

type runOptions struct {
	libraryPath     string
	runtimeSocket   string
	controlSocket   string
	batteryObserver bool
	messageSend     bool
	pollBattery     bool
	savedState      string
	launchURI       string
}

// NewRunCommand .
func NewRunCommand() *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run the activity host in the foreground",
		GroupID: gHost,
		Long: `Run the activity host in the foreground.

The native runtime is loaded once, from --library when set, otherwise the
runtime daemon at --runtime-socket is used. The host is then created on
the main looper and serves the activity-manager API on --control-socket
until SIGINT or SIGTERM. SIGHUP reloads the config file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to load config %s", configPath)
			}
			o.applyTo(cmd, conf)
			logrus.WithFields(conf.LogrusFields()).Debug("config loaded")
			return runHost(conf, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.libraryPath, "library", "", "native runtime shared library, overrides the config")
	f.StringVar(&o.runtimeSocket, "runtime-socket", "", "runtime daemon socket, overrides the config")
	f.StringVar(&o.controlSocket, "control-socket", "", "activity-manager socket, overrides the config")
	f.BoolVar(&o.batteryObserver, "battery-observer", true, "observe battery-changed broadcasts, overrides the config")
	f.BoolVar(&o.messageSend, "message-send", false, "enable the named message entry point, overrides the config")
	f.BoolVar(&o.pollBattery, "poll-battery", true, "broadcast the machine battery state")
	f.StringVar(&o.savedState, "saved-state", "", "file holding the saved instance state passed to creation")
	f.StringVar(&o.launchURI, "intent", "", "deliver a VIEW intent with this data URI after creation")

	return cmd
}

// applyTo writes explicitly set flags over the loaded config.
func (o *runOptions) applyTo(cmd *cobra.Command, conf config.Config) {
	f := cmd.Flags()
	if f.Changed("library") {
		conf.SetLibraryPath(o.libraryPath)
	}
	if f.Changed("runtime-socket") {
		conf.SetRuntimeSocket(o.runtimeSocket)
	}
	if f.Changed("control-socket") {
		conf.SetControlSocket(o.controlSocket)
	}
	if f.Changed("battery-observer") {
		conf.SetBatteryObserver(o.batteryObserver)
	}
	if f.Changed("message-send") {
		conf.SetMessageSend(o.messageSend)
	}
}

// loader returns how the process loads its native runtime.
func loader(conf config.Config) native.Loader {
	if path := conf.LibraryPath(); path != "" {
		return func() (native.Runtime, error) {
			l, err := native.OpenLibrary(path, native.LibraryOptions{MessageSend: conf.MessageSend()})
			if err != nil {
				return nil, err
			}
			return l, nil
		}
	}
	socket := conf.RuntimeSocket()
	return func() (native.Runtime, error) {
		c := client.NewClient(socket)
		v, err := c.GetVersion()
		if err != nil {
			return nil, pkgerrors.Wrapf(native.ErrLoad, "runtime daemon at %s: %v", socket, err)
		}
		logrus.WithFields(logrus.Fields{
			"socket":  socket,
			"version": v,
		}).Info("using remote runtime")
		return client.NewRuntime(c), nil
	}
}

func runHost(conf *config.File, o *runOptions) error {
	logrus.WithFields(logrus.Fields{
		"version": version.Version,
		"commit":  version.GitCommit,
	}).Info("wivrn-host starting")

	rt, err := native.Init(loader(conf))
	if err != nil {
		logrus.Fatalf("failed to load native runtime: %v", err)
	}

	var savedState []byte
	if o.savedState != "" {
		savedState, err = os.ReadFile(o.savedState)
		if err != nil {
			return pkgerrors.Wrapf(err, "failed to read saved state")
		}
	}

	caps := host.Capabilities{
		BatteryObserver: conf.BatteryObserver(),
		MessageSend:     conf.MessageSend(),
	}

	mainLooper := looper.New()
	dispatcher := broadcast.NewDispatcher(mainLooper)
	activity, err := host.New(rt, dispatcher, caps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controlSocket := conf.ControlSocket()
	poller := battery.NewPoller(sysbattery.GetAll, dispatcher, conf.BatteryPollInterval())
	amServer := am.NewServer(activity, mainLooper, dispatcher)

	go handleSignals(ctx, conf, poller, func() {
		if err := mainLooper.Call(func() {
			_ = activity.OnPause()
			_ = activity.OnDestroy()
		}); err != nil {
			logrus.WithError(err).Warn("failed to destroy activity")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		if err := amServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("failed to shut down activity manager")
		}
		_ = os.Remove(controlSocket)

		cancel()
	})

	// Blocks until the host shuts down.
	err = hostLoop(ctx, cancel, mainLooper, func() error {
		return createActivity(activity, savedState, o.launchURI)
	}, func() {
		if o.pollBattery {
			go poller.Run(ctx)
		}
		go func() {
			if err := amServer.Serve(controlSocket); err != nil {
				logrus.WithError(err).Error("activity manager stopped")
			}
		}()
	})
	if err != nil {
		return err
	}

	logrus.Info("wivrn-host exited")
	return nil
}

// hostLoop runs l until ctx is done. create is the first work item; when
// it fails the loop is cancelled and its error returned, otherwise started
// is called on the looper.
func hostLoop(ctx context.Context, cancel context.CancelFunc, l *looper.Looper, create func() error, started func()) error {
	// Written on the looper, read after Run returned on this goroutine.
	var createErr error
	if err := l.Post(func() {
		if createErr = create(); createErr != nil {
			cancel()
			return
		}
		started()
	}); err != nil {
		return err
	}

	l.Run(ctx)

	if createErr != nil {
		return pkgerrors.Wrapf(createErr, "failed to create activity")
	}
	return nil
}

func createActivity(activity *host.Activity, savedState []byte, launchURI string) error {
	if err := activity.OnCreate(savedState); err != nil {
		return err
	}
	if err := activity.OnResume(); err != nil {
		return err
	}
	if launchURI != "" {
		return activity.OnNewIntent(native.Intent{Action: native.ActionView, Data: launchURI})
	}
	return nil
}

func handleSignals(ctx context.Context, conf *config.File, poller *battery.Poller, shutdown func()) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigc:
			if sig == syscall.SIGHUP {
				if err := conf.Load(); err != nil {
					logrus.WithError(err).Error("failed to reload config")
					continue
				}
				poller.SetInterval(conf.BatteryPollInterval())
				logrus.WithField("batteryPollInterval", conf.BatteryPollInterval()).Info("config reloaded")
				continue
			}
			logrus.Infof("received signal %s, exiting", sig)
			shutdown()
			return
		}
	}
}
