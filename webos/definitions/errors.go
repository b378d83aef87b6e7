package definitions

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrToolchainNotFound  = errors.New("ares: toolchain not found")
	ErrCommandExecution   = errors.New("ares: command execution failed")
	ErrCommandTimeout     = errors.New("ares: command timed out")
	ErrEmptyCommand       = errors.New("ares: a command is required")
	ErrUnexpectedOutput   = errors.New("ares: unexpected output")
	ErrNoDeviceFound      = errors.New("ares: could not find a connected LG webOS device")
	ErrDeviceNotConnected = errors.New("ares: device not connected")
	ErrSession            = errors.New("ares: session failed")
	ErrForwardExists      = errors.New("ares: port forward already active")
)

// ToolchainNotFoundError reports a binary the path search could not resolve.
// Message carries the remediation shown to the user.
type ToolchainNotFoundError struct {
	Binary  string
	Message string
	Err     error
}

func (e *ToolchainNotFoundError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("could not find %s", e.Binary)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (original error: %v)", msg, e.Err)
	}
	return msg
}

func (e *ToolchainNotFoundError) Is(target error) bool { return target == ErrToolchainNotFound }
func (e *ToolchainNotFoundError) Unwrap() error        { return e.Err }

// CommandExecutionError is returned once every attempt of a command failed.
type CommandExecutionError struct {
	Command  string
	Stderr   string
	ExitCode int
	Attempts int
	Err      error
}

func (e *CommandExecutionError) Error() string {
	return fmt.Sprintf("error executing %q after %d attempt(s). Original error: '%v'; Stderr: '%s'; Code: '%d'",
		e.Command, e.Attempts, e.Err, strings.TrimSpace(e.Stderr), e.ExitCode)
}

func (e *CommandExecutionError) Is(target error) bool { return target == ErrCommandExecution }
func (e *CommandExecutionError) Unwrap() error        { return e.Err }

// UnexpectedOutputError means a parser did not find its anchor or shape.
type UnexpectedOutputError struct {
	Parser string
	Raw    string
	Err    error
}

func (e *UnexpectedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected output while trying to get %s: %v: %s", e.Parser, e.Err, e.Raw)
	}
	return fmt.Sprintf("unexpected output while trying to get %s: %s", e.Parser, e.Raw)
}

func (e *UnexpectedOutputError) Is(target error) bool { return target == ErrUnexpectedOutput }
func (e *UnexpectedOutputError) Unwrap() error        { return e.Err }

type NoDeviceFoundError struct {
	Attempts int
	Elapsed  time.Duration
	// Err is the failure of the last attempt, nil when it returned an empty list.
	Err error
}

func (e *NoDeviceFoundError) Error() string {
	msg := fmt.Sprintf("%v (%d attempts in %s)", ErrNoDeviceFound, e.Attempts, e.Elapsed.Round(time.Millisecond))
	if e.Err != nil {
		msg += fmt.Sprintf(": last error: %v", e.Err)
	}
	return msg
}

func (e *NoDeviceFoundError) Is(target error) bool { return target == ErrNoDeviceFound }
func (e *NoDeviceFoundError) Unwrap() error        { return e.Err }

// SessionError reports a spawn or stream failure of a long-running session.
type SessionError struct {
	Kind     string
	Key      string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *SessionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "error while opening %s session", e.Kind)
	if e.Key != "" {
		fmt.Fprintf(&b, " %q", e.Key)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, "; Stderr: '%s'", s)
	}
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, "; Code: '%d'", e.ExitCode)
	}
	return b.String()
}

func (e *SessionError) Is(target error) bool { return target == ErrSession }
func (e *SessionError) Unwrap() error        { return e.Err }
