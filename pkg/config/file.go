package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wivrn/wivrn-host/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		LibraryPath:        ptr.To(""),
		RuntimeSocket:      ptr.To("/tmp/wivrn-runtime.sock"),
		ControlSocket:      ptr.To("/tmp/wivrn-host.sock"),
		BatteryObserver:    ptr.To(true),
		MessageSend:        ptr.To(false),
		BatteryPollSeconds: ptr.To(30),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	return &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}
}

type RawFileConfig struct {
	LibraryPath        *string `json:"libraryPath,omitempty"`
	RuntimeSocket      *string `json:"runtimeSocket,omitempty"`
	ControlSocket      *string `json:"controlSocket,omitempty"`
	BatteryObserver    *bool   `json:"batteryObserver,omitempty"`
	MessageSend        *bool   `json:"messageSend,omitempty"`
	BatteryPollSeconds *int    `json:"batteryPollSeconds,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	return &RawFileConfig{
		LibraryPath:        ptr.To(c.LibraryPath()),
		RuntimeSocket:      ptr.To(c.RuntimeSocket()),
		ControlSocket:      ptr.To(c.ControlSocket()),
		BatteryObserver:    ptr.To(c.BatteryObserver()),
		MessageSend:        ptr.To(c.MessageSend()),
		BatteryPollSeconds: ptr.To(int(c.BatteryPollInterval() / time.Second)),
	}, nil
}

func (f *File) read() *RawFileConfig {
	if f.c == nil {
		panic("config is nil")
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	c := *f.c
	return &c
}

func (f *File) LibraryPath() string {
	return ptr.Deref(f.read().LibraryPath, *defaultFileConfig.LibraryPath)
}

func (f *File) RuntimeSocket() string {
	return ptr.Deref(f.read().RuntimeSocket, *defaultFileConfig.RuntimeSocket)
}

func (f *File) ControlSocket() string {
	return ptr.Deref(f.read().ControlSocket, *defaultFileConfig.ControlSocket)
}

func (f *File) BatteryObserver() bool {
	return ptr.Deref(f.read().BatteryObserver, *defaultFileConfig.BatteryObserver)
}

func (f *File) MessageSend() bool {
	return ptr.Deref(f.read().MessageSend, *defaultFileConfig.MessageSend)
}

func (f *File) BatteryPollInterval() time.Duration {
	secs := ptr.Deref(f.read().BatteryPollSeconds, *defaultFileConfig.BatteryPollSeconds)
	if secs <= 0 {
		secs = *defaultFileConfig.BatteryPollSeconds
	}
	return time.Duration(secs) * time.Second
}

func (f *File) set(fn func(c *RawFileConfig)) {
	if f.c == nil {
		panic("config is nil")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.c)
}

func (f *File) SetLibraryPath(s string) {
	f.set(func(c *RawFileConfig) { c.LibraryPath = &s })
}

func (f *File) SetRuntimeSocket(s string) {
	f.set(func(c *RawFileConfig) { c.RuntimeSocket = &s })
}

func (f *File) SetControlSocket(s string) {
	f.set(func(c *RawFileConfig) { c.ControlSocket = &s })
}

func (f *File) SetBatteryObserver(b bool) {
	f.set(func(c *RawFileConfig) { c.BatteryObserver = &b })
}

func (f *File) SetMessageSend(b bool) {
	f.set(func(c *RawFileConfig) { c.MessageSend = &b })
}

func (f *File) SetBatteryPollInterval(d time.Duration) {
	if d < time.Second {
		panic("battery poll interval must be at least one second")
	}
	secs := int(d / time.Second)
	f.set(func(c *RawFileConfig) { c.BatteryPollSeconds = &secs })
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"libraryPath":         f.LibraryPath(),
		"runtimeSocket":       f.RuntimeSocket(),
		"controlSocket":       f.ControlSocket(),
		"batteryObserver":     f.BatteryObserver(),
		"messageSend":         f.MessageSend(),
		"batteryPollInterval": f.BatteryPollInterval().String(),
	}
}
