package tinysa

import (
	"fmt"

	bg "github.com/SSSOCPaulCote/blunderguard"
)

const (
	ErrConnect        = bg.Error("could not open tinySA port")
	ErrIO             = bg.Error("tinySA transport fault")
	ErrValidation     = bg.Error("invalid tinySA command argument")
	ErrNotImplemented = bg.Error("tinySA command not implemented")
	ErrUnknownCommand = bg.Error("unknown tinySA command")
	ErrPromptTimeout  = bg.Error("tinySA prompt not received")
	ErrShortWrite     = bg.Error("short write to tinySA port")
	ErrClosed         = bg.Error("tinySA connection closed")
	ErrUnknownBackend = bg.Error("unknown tinySA transport backend")
)

// ConnectError is returned when the transport could not be opened
type ConnectError struct {
	Port string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrConnect, e.Port, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func (e *ConnectError) Is(target error) bool { return target == ErrConnect }

// IOError is a transport fault during a write or read. The connection should be reopened.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s during %s: %v", ErrIO, e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// ValidationError reports an argument outside the command's domain. No bytes were written.
type ValidationError struct {
	Command  string
	Args     []string
	Accepted string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %q, accepts %s", ErrValidation, e.Command, e.Args, e.Accepted)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotImplementedError is returned for commands without a validated implementation
type NotImplementedError struct {
	Command string
	Usage   string
}

func (e *NotImplementedError) Error() string {
	if e.Usage == "" {
		return fmt.Sprintf("%s: %s", ErrNotImplemented, e.Command)
	}
	return fmt.Sprintf("%s: %s (usage: %s)", ErrNotImplemented, e.Command, e.Usage)
}

func (e *NotImplementedError) Is(target error) bool { return target == ErrNotImplemented }
