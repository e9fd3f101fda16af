package main

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors

// UnknownKeyError reports a chord token that matches neither the key name
// registry nor a numeric code.
type UnknownKeyError struct {
	Token string
}

func (e UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key name %q (run with -list-keys for supported names)", e.Token)
}

// ErrEmptyChord reports an empty chord spec or an empty element inside a
// '+'-joined chord.
var ErrEmptyChord = errors.New("empty chord")

// Device errors

// DeviceNotFoundError reports an explicitly configured device path that does
// not exist.
type DeviceNotFoundError struct {
	Path string
}

func (e DeviceNotFoundError) Error() string {
	return "input device not found: " + e.Path
}

// DevicePermissionError reports a device node the process may not read.
type DevicePermissionError struct {
	Path string
}

func (e DevicePermissionError) Error() string {
	return "permission denied opening input device: " + e.Path
}

// ErrNoCandidate reports that autodetection found no readable device
// supporting any configured chord.
var ErrNoCandidate = errors.New("no input device supports the configured keys")

// DisconnectedError reports a device session that ended because the device
// went away or reads started failing. It triggers reconnection, never exit.
type DisconnectedError struct {
	Path string
	Err  error
}

func (e DisconnectedError) Error() string {
	return fmt.Sprintf("device %s disconnected: %v", e.Path, e.Err)
}

func (e DisconnectedError) Unwrap() error { return e.Err }

// MicCommandError reports a failed or missing external mic command.
// Non-fatal: the state may be stale until the next chord edge.
type MicCommandError struct {
	Args []string
	Err  error
}

func (e MicCommandError) Error() string {
	return fmt.Sprintf("mic command %q failed: %v", strings.Join(e.Args, " "), e.Err)
}

func (e MicCommandError) Unwrap() error { return e.Err }
