package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// MicCommander applies capture-source state changes.
type MicCommander interface {
	SetVolume(ctx context.Context, level float64) error
	SetMute(ctx context.Context, muted bool) error
}

// WpctlCommander drives PipeWire's wpctl against the default capture source.
// Every call spawns a short-lived process; a timeout keeps a wedged wpctl
// from blocking release handling.
type WpctlCommander struct {
	Binary string
}

// NewWpctlCommander locates wpctl. A missing binary is not fatal to the
// daemon; the caller logs it and every toggle reports MicCommandError.
func NewWpctlCommander() (*WpctlCommander, error) {
	bin, err := findBin("wpctl")
	if err != nil {
		return nil, err
	}
	return &WpctlCommander{Binary: bin}, nil
}

func (w *WpctlCommander) SetVolume(ctx context.Context, level float64) error {
	return w.run(ctx, setVolumeArgs(level))
}

func (w *WpctlCommander) SetMute(ctx context.Context, muted bool) error {
	return w.run(ctx, setMuteArgs(muted))
}

func (w *WpctlCommander) run(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, micCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.Binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return MicCommandError{Args: append([]string{w.Binary}, args...), Err: err}
	}
	return nil
}

func setVolumeArgs(level float64) []string {
	return []string{"set-volume", wpctlDefaultSource, strconv.FormatFloat(level, 'f', -1, 64)}
}

func setMuteArgs(muted bool) []string {
	flag := "0"
	if muted {
		flag = "1"
	}
	return []string{"set-mute", wpctlDefaultSource, flag}
}

// findBin resolves an external helper: PATH first, /usr/bin as fallback for
// minimal service environments.
func findBin(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	path := filepath.Join("/usr/bin", name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%s not found in PATH or /usr/bin", name)
}
