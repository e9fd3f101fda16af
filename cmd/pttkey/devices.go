package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

// DeviceDescriptor describes one enumerated input device. Keys is nil when
// the node could not be opened for capability inspection.
type DeviceDescriptor struct {
	Path string
	Name string
	Keys map[evdev.EvCode]bool
}

// listDevices enumerates input devices in ascending event-index order with
// their key capabilities. Unreadable nodes are kept, with Keys nil, so
// listings still show them. Enumeration never mutates device state.
func listDevices() ([]DeviceDescriptor, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("enumerate input devices: %w", err)
	}
	sortByEventIndex(paths)

	descs := make([]DeviceDescriptor, 0, len(paths))
	for _, p := range paths {
		d := DeviceDescriptor{Path: p.Path, Name: p.Name}
		if unix.Access(p.Path, unix.R_OK) == nil {
			if dev, err := evdev.Open(p.Path); err == nil {
				d.Keys = keyCapabilities(dev)
				dev.Close()
			}
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// selectDevice resolves the device session to use: the explicit path when
// configured, the first suitable candidate otherwise.
func selectDevice(path string, specs []ChordSpec, logger *slog.Logger) (*evdev.InputDevice, string, error) {
	if path != "" {
		return openExplicit(path, specs, logger)
	}
	return autodetectDevice(specs, logger)
}

func openExplicit(path string, specs []ChordSpec, logger *slog.Logger) (*evdev.InputDevice, string, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, "", err
	}
	dev, err := evdev.Open(expanded)
	if err != nil {
		return nil, "", classifyOpenErr(expanded, err)
	}

	keys := keyCapabilities(dev)
	supported := 0
	for _, spec := range specs {
		if chordSupported(keys, spec) {
			supported++
		} else {
			logger.Warn("device does not support chord", "device", expanded, "chord", spec.String())
		}
	}
	if supported == 0 {
		dev.Close()
		return nil, "", fmt.Errorf("device %s: %w", expanded, ErrNoCandidate)
	}
	return dev, expanded, nil
}

// autodetectDevice walks devices in ascending event-index order and opens
// the first readable one that supports every key of at least one chord.
// Our own suppress-mode clones are never candidates.
func autodetectDevice(specs []ChordSpec, logger *slog.Logger) (*evdev.InputDevice, string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, "", fmt.Errorf("enumerate input devices: %w", err)
	}
	sortByEventIndex(paths)

	for _, p := range paths {
		if skipForAutodetect(p.Name) {
			continue
		}
		if err := unix.Access(p.Path, unix.R_OK); err != nil {
			logger.Debug("skipping unreadable device", "device", p.Path)
			continue
		}
		dev, err := evdev.Open(p.Path)
		if err != nil {
			logger.Debug("open failed during autodetect", "device", p.Path, "error", err)
			continue
		}
		if anyChordSupported(keyCapabilities(dev), specs) {
			logger.Debug("autodetect matched", "device", p.Path, "name", p.Name)
			return dev, p.Path, nil
		}
		dev.Close()
	}
	return nil, "", ErrNoCandidate
}

func classifyOpenErr(path string, err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return DeviceNotFoundError{Path: path}
	case errors.Is(err, os.ErrPermission):
		return DevicePermissionError{Path: path}
	default:
		return fmt.Errorf("open %s: %w", path, err)
	}
}

func keyCapabilities(dev *evdev.InputDevice) map[evdev.EvCode]bool {
	codes := dev.CapableEvents(evdev.EV_KEY)
	keys := make(map[evdev.EvCode]bool, len(codes))
	for _, c := range codes {
		keys[c] = true
	}
	return keys
}

// chordSupported reports whether the device exposes every key of the chord.
func chordSupported(keys map[evdev.EvCode]bool, spec ChordSpec) bool {
	for _, code := range spec.Codes {
		if !keys[code] {
			return false
		}
	}
	return len(spec.Codes) > 0
}

func anyChordSupported(keys map[evdev.EvCode]bool, specs []ChordSpec) bool {
	for _, spec := range specs {
		if chordSupported(keys, spec) {
			return true
		}
	}
	return false
}

// skipForAutodetect filters out the uinput clones this daemon creates in
// suppress mode; picking one up would feed the daemon its own output.
func skipForAutodetect(name string) bool {
	return strings.HasPrefix(name, passthroughPrefix)
}

// chooseCandidate applies the autodetection rule to already-enumerated
// descriptors: first inspectable device, in order, supporting any chord.
func chooseCandidate(descs []DeviceDescriptor, specs []ChordSpec) (DeviceDescriptor, bool) {
	for _, d := range descs {
		if d.Keys == nil || skipForAutodetect(d.Name) {
			continue
		}
		if anyChordSupported(d.Keys, specs) {
			return d, true
		}
	}
	return DeviceDescriptor{}, false
}

func sortByEventIndex(paths []evdev.InputPath) {
	sort.SliceStable(paths, func(i, j int) bool {
		return eventIndex(paths[i].Path) < eventIndex(paths[j].Path)
	})
}

// eventIndex extracts N from /dev/input/eventN; non-matching paths sort last.
func eventIndex(path string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), "event"))
	if err != nil {
		return math.MaxInt
	}
	return n
}
