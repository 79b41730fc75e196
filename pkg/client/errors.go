package client

import "errors"

var (
	// ErrDaemonNotRunning is returned when nothing listens on the socket
	ErrDaemonNotRunning = errors.New("daemon not running")

	// ErrPermissionDenied is returned when the user does not have permission to use the socket
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when 404 is returned from the daemon
	ErrNotFound = errors.New("404 not found")

	// ErrConflict is returned when the host rejects an event in its current state
	ErrConflict = errors.New("rejected in the current host state")
)
