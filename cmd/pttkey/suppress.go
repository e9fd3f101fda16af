package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/holoplot/go-evdev"
)

// eventWriter is the sink side of the passthrough, satisfied by the uinput
// clone device.
type eventWriter interface {
	WriteOne(ev *evdev.InputEvent) error
}

// passthrough implements suppress mode: the real device is grabbed so the
// desktop stops seeing it, and a uinput clone re-emits everything except key
// events for the configured chord codes. Events are buffered per sync frame
// and flushed on SYN_REPORT, keeping multi-axis frames intact for consumers
// of the clone.
type passthrough struct {
	out     eventWriter
	masked  map[evdev.EvCode]bool
	pending []*evdev.InputEvent
	logger  *slog.Logger

	clone *evdev.InputDevice
}

// newPassthrough creates the clone and grabs the device. On any error the
// device is left ungrabbed so the daemon can fall back to plain watching.
func newPassthrough(dev *evdev.InputDevice, specs []ChordSpec, logger *slog.Logger) (*passthrough, error) {
	if dev == nil {
		return nil, errors.New("no device handle to grab")
	}
	name, err := dev.Name()
	if err != nil || name == "" {
		name = "input device"
	}
	clone, err := evdev.CloneDevice(passthroughPrefix+name, dev)
	if err != nil {
		return nil, fmt.Errorf("create uinput clone: %w", err)
	}
	if err := dev.Grab(); err != nil {
		clone.Close()
		return nil, fmt.Errorf("grab device: %w", err)
	}
	return &passthrough{
		out:    clone,
		masked: maskedCodes(specs),
		logger: logger,
		clone:  clone,
	}, nil
}

// Forward buffers one event for the clone, dropping key events for masked
// codes, and flushes the frame on SYN_REPORT.
func (p *passthrough) Forward(ev *evdev.InputEvent) {
	if ev.Type == evdev.EV_KEY && p.masked[ev.Code] {
		return
	}
	p.pending = append(p.pending, ev)
	if ev.Type == evdev.EV_SYN && ev.Code == evdev.SYN_REPORT {
		p.flush()
	}
}

func (p *passthrough) flush() {
	for _, ev := range p.pending {
		if err := p.out.WriteOne(ev); err != nil {
			p.logger.Warn("passthrough write failed", "error", err)
			break
		}
	}
	p.pending = p.pending[:0]
}

// Close releases the grab and destroys the clone.
func (p *passthrough) Close(dev *evdev.InputDevice) {
	if err := dev.Ungrab(); err != nil {
		p.logger.Warn("ungrab failed", "error", err)
	}
	if err := p.clone.Close(); err != nil {
		p.logger.Warn("closing uinput clone failed", "error", err)
	}
}

// maskedCodes is the union of all chord codes; these never reach the clone.
func maskedCodes(specs []ChordSpec) map[evdev.EvCode]bool {
	masked := make(map[evdev.EvCode]bool)
	for _, spec := range specs {
		for _, code := range spec.Codes {
			masked[code] = true
		}
	}
	return masked
}
