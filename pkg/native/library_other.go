//go:build !darwin && !linux

package native

// LibraryOptions selects the optional entry points to bind.
type LibraryOptions struct {
	MessageSend bool
}

// Library is unavailable on this platform.
type Library struct{}

// OpenLibrary always fails on this platform.
func OpenLibrary(path string, _ LibraryOptions) (*Library, error) {
	return nil, ErrUnsupported
}

func (l *Library) Path() string { return "" }

func (l *Library) OnRequestPermissionsResult(int32, []string, []int32) {}
func (l *Library) OnNewIntent(Intent)                                  {}
func (l *Library) OnActivityResult(int32, int32, *Intent)              {}
func (l *Library) OnBatteryChanged(BatteryStatus)                      {}
func (l *Library) SendMessage(string, string)                          {}
