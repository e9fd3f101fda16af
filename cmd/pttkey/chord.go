package main

import "github.com/holoplot/go-evdev"

// This file implements the chord detection state machine.
//
//   - ChordTracker consumes raw key events from one device session and
//     reduces them to exactly two logical signals: SignalEngaged when any
//     configured chord becomes fully held, SignalReleased when none is.
//   - The tracker is pure state: it performs no I/O and holds no retry or
//     reconnect logic. The daemon loop owns both.
//
// Edge semantics: the engaged flag is the OR over all chords. Overlapping
// chords (say BTN_EXTRA alone and BTN_EXTRA+KEY_LEFTCTRL) therefore produce
// a single engage/release pair, never two.

// Signal is a logical chord transition.
type Signal int

const (
	SignalNone Signal = iota
	SignalEngaged
	SignalReleased
)

func (s Signal) String() string {
	switch s {
	case SignalEngaged:
		return "engaged"
	case SignalReleased:
		return "released"
	default:
		return "none"
	}
}

// ChordTracker tracks per-key state for one device session and derives the
// engaged/released edges. It is bound to a single session: a reconnect
// creates a fresh tracker, so stale key state never survives a device swap.
type ChordTracker struct {
	specs   []ChordSpec
	down    map[evdev.EvCode]bool
	engaged bool
}

// NewChordTracker creates a tracker with all keys up and no chord engaged.
func NewChordTracker(specs []ChordSpec) *ChordTracker {
	return &ChordTracker{
		specs: specs,
		down:  make(map[evdev.EvCode]bool),
	}
}

// Engaged reports whether any chord is currently fully held.
func (t *ChordTracker) Engaged() bool { return t.engaged }

// Update feeds one key event into the tracker and returns the resulting
// transition, if any.
//
// Rules:
//   - Repeat events (value 2) are ignored outright; the key is already down.
//   - Press and release updates are idempotent.
//   - Keys outside every chord update key state but can never flip the
//     engaged flag.
//   - A signal fires only on the rising or falling edge of the OR-aggregate
//     over all chords; partial holds stay silent.
func (t *ChordTracker) Update(code evdev.EvCode, value int32) Signal {
	switch value {
	case evValuePress:
		t.down[code] = true
	case evValueRelease:
		delete(t.down, code)
	default:
		// Repeats and exotic values carry no state change.
		return SignalNone
	}
	return t.recompute()
}

// Reset forces all keys up, as after a kernel-side event drop where presses
// or releases may have been lost. If a chord was engaged this yields the
// falling edge, so the mic never sticks on.
func (t *ChordTracker) Reset() Signal {
	clear(t.down)
	return t.recompute()
}

func (t *ChordTracker) recompute() Signal {
	engaged := false
	for _, spec := range t.specs {
		if t.satisfied(spec) {
			engaged = true
			break
		}
	}
	if engaged == t.engaged {
		return SignalNone
	}
	t.engaged = engaged
	if engaged {
		return SignalEngaged
	}
	return SignalReleased
}

func (t *ChordTracker) satisfied(spec ChordSpec) bool {
	for _, code := range spec.Codes {
		if !t.down[code] {
			return false
		}
	}
	return len(spec.Codes) > 0
}
