package sandbox

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform is returned by SystemKernel where jails do not exist
	ErrUnsupportedPlatform = errors.New("jails are only supported on FreeBSD")

	// ErrHandleRetired is returned when a lifecycle's jail was already destroyed
	ErrHandleRetired = errors.New("jail handle already retired")

	// ErrNoCommand is returned when a lifecycle is started without a command
	ErrNoCommand = errors.New("no command specified")
)

// CreationError reports that the kernel rejected a jail creation request.
// Message carries the kernel's errmsg text when it supplied one.
type CreationError struct {
	Message string
	Err     error
}

func (e *CreationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("jail creation failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("jail creation failed: %v", e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// DestructionError reports a failed jail removal. Callers treat it as non-fatal.
type DestructionError struct {
	Handle Handle
	Err    error
}

func (e *DestructionError) Error() string {
	return fmt.Sprintf("jail %d removal failed: %v", e.Handle.ID, e.Err)
}

func (e *DestructionError) Unwrap() error { return e.Err }

// LaunchError reports that the contained command could not be started
type LaunchError struct {
	Command []string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// CommandFailure reports a contained command that ran and exited non-zero
type CommandFailure struct {
	ExitCode int
}

func (e *CommandFailure) Error() string {
	return fmt.Sprintf("command exited with status %d", e.ExitCode)
}
