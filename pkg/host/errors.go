package host

import "errors"

var (
	// ErrNoRuntime is returned by New when the native runtime is not loaded.
	ErrNoRuntime = errors.New("native runtime is not loaded")

	// ErrNotCreated is returned by callbacks delivered before OnCreate.
	ErrNotCreated = errors.New("activity has not been created")

	// ErrAlreadyCreated is returned by a second OnCreate.
	ErrAlreadyCreated = errors.New("activity has already been created")

	// ErrTerminated is returned by callbacks delivered after OnDestroy.
	ErrTerminated = errors.New("activity has been destroyed")

	// ErrCapabilityDisabled is returned when a callback needs a capability
	// the activity was built without.
	ErrCapabilityDisabled = errors.New("capability is disabled")
)
