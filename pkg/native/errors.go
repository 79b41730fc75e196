package native

import "errors"

var (
	// ErrLoad is returned when the native library cannot be loaded. The
	// process cannot continue without it.
	ErrLoad = errors.New("failed to load native library")

	// ErrMissingSymbol is returned when a required entry point is not
	// exported by the library.
	ErrMissingSymbol = errors.New("missing native entry point")

	// ErrUnsupported is returned on platforms without dynamic loading.
	ErrUnsupported = errors.New("native library loading is not supported on this platform")
)
