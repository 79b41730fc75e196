package config

import "time"

type Config interface {
	// LibraryPath is the native runtime shared library. Empty means the
	// runtime is reached over RuntimeSocket instead.
	LibraryPath() string
	RuntimeSocket() string
	ControlSocket() string
	BatteryObserver() bool
	MessageSend() bool
	BatteryPollInterval() time.Duration

	SetLibraryPath(string)
	SetRuntimeSocket(string)
	SetControlSocket(string)
	SetBatteryObserver(bool)
	SetMessageSend(bool)
	SetBatteryPollInterval(time.Duration)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
