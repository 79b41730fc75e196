//go:build darwin || linux

package native

import (
	"encoding/json"

	"github.com/ebitengine/purego"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Exported symbol names of the native runtime.
const (
	SymOnPermissionsResult = "wivrn_on_permissions_result"
	SymOnNewIntent         = "wivrn_on_new_intent"
	SymOnActivityResult    = "wivrn_on_activity_result"
	SymOnBatteryChanged    = "wivrn_on_battery_changed"
	SymSendMessage         = "wivrn_send_message"
)

// LibraryOptions selects the optional entry points to bind.
type LibraryOptions struct {
	// MessageSend requires the library to export wivrn_send_message.
	MessageSend bool
}

var _ Runtime = &Library{}

// Library is a Runtime backed by a shared library loaded with dlopen.
// Arguments cross the boundary as integers and C strings; structured
// values are JSON-encoded.
type Library struct {
	path   string
	handle uintptr

	onPermissionsResult func(requestCode int32, names, grants string)
	onNewIntent         func(intent string)
	onActivityResult    func(requestCode, resultCode int32, intent string)
	onBatteryChanged    func(level, scale, plugged, status int32, present bool)
	sendMessage         func(name, arg string)
}

// OpenLibrary loads the shared library at path and binds its entry points.
func OpenLibrary(path string, opts LibraryOptions) (*Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, pkgerrors.Wrapf(ErrLoad, "%s: %v", path, err)
	}

	l := &Library{path: path, handle: handle}

	required := []struct {
		name string
		fptr any
	}{
		{SymOnPermissionsResult, &l.onPermissionsResult},
		{SymOnNewIntent, &l.onNewIntent},
		{SymOnActivityResult, &l.onActivityResult},
		{SymOnBatteryChanged, &l.onBatteryChanged},
	}
	if opts.MessageSend {
		required = append(required, struct {
			name string
			fptr any
		}{SymSendMessage, &l.sendMessage})
	}

	for _, r := range required {
		sym, err := purego.Dlsym(handle, r.name)
		if err != nil {
			_ = purego.Dlclose(handle)
			return nil, pkgerrors.Wrapf(ErrMissingSymbol, "%s in %s: %v", r.name, path, err)
		}
		purego.RegisterFunc(r.fptr, sym)
	}

	logrus.WithFields(logrus.Fields{
		"path":        path,
		"messageSend": opts.MessageSend,
	}).Info("native library loaded")

	return l, nil
}

// Path returns the path the library was loaded from.
func (l *Library) Path() string {
	return l.path
}

// OnRequestPermissionsResult forwards both lists as JSON arrays, a nil
// list as null.
func (l *Library) OnRequestPermissionsResult(requestCode int32, permissions []string, grantResults []int32) {
	l.onPermissionsResult(requestCode, mustJSON(permissions), mustJSON(grantResults))
}

func (l *Library) OnNewIntent(intent Intent) {
	l.onNewIntent(mustJSON(intent))
}

func (l *Library) OnActivityResult(requestCode, resultCode int32, data *Intent) {
	l.onActivityResult(requestCode, resultCode, mustJSON(data))
}

func (l *Library) OnBatteryChanged(s BatteryStatus) {
	l.onBatteryChanged(s.Level, s.Scale, s.Plugged, s.Status, s.Present)
}

func (l *Library) SendMessage(name, arg string) {
	if l.sendMessage == nil {
		logrus.WithField("name", name).Warn("library was loaded without the message entry point, dropping message")
		return
	}
	l.sendMessage(name, arg)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		logrus.Warnf("failed to encode native argument: %v", err)
		return "null"
	}
	return string(b)
}
