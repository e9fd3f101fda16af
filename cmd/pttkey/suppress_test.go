package main

import (
	"errors"
	"testing"

	"github.com/holoplot/go-evdev"
)

// fakeWriter records forwarded events and can simulate uinput write failures.
type fakeWriter struct {
	written []*evdev.InputEvent
	err     error
}

func (w *fakeWriter) WriteOne(ev *evdev.InputEvent) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, ev)
	return nil
}

func keyEvent(code evdev.EvCode, value int32) *evdev.InputEvent {
	return &evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: value}
}

func synEvent() *evdev.InputEvent {
	return &evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT}
}

func testPassthrough(out eventWriter, specs []ChordSpec) *passthrough {
	return &passthrough{out: out, masked: maskedCodes(specs), logger: testLogger()}
}

// TestForwardDropsMaskedKeys verifies chord keys never reach the clone while
// other events in the same frame do.
func TestForwardDropsMaskedKeys(t *testing.T) {
	out := &fakeWriter{}
	p := testPassthrough(out, []ChordSpec{chord(evdev.BTN_EXTRA)})

	p.Forward(keyEvent(evdev.BTN_EXTRA, evValuePress))
	p.Forward(keyEvent(evdev.BTN_LEFT, evValuePress))
	p.Forward(synEvent())

	if len(out.written) != 2 {
		t.Fatalf("expected 2 forwarded events, got %d", len(out.written))
	}
	if out.written[0].Code != evdev.BTN_LEFT {
		t.Errorf("expected BTN_LEFT first, got %v", out.written[0].Code)
	}
	if out.written[1].Type != evdev.EV_SYN {
		t.Errorf("expected SYN_REPORT last, got type %v", out.written[1].Type)
	}
}

// TestForwardMasksEveryChordCode verifies masking covers the union of all
// configured chords.
func TestForwardMasksEveryChordCode(t *testing.T) {
	out := &fakeWriter{}
	specs := []ChordSpec{
		chord(evdev.KEY_LEFTCTRL, evdev.KEY_SPACE),
		chord(evdev.BTN_EXTRA),
	}
	p := testPassthrough(out, specs)

	p.Forward(keyEvent(evdev.KEY_LEFTCTRL, evValuePress))
	p.Forward(keyEvent(evdev.KEY_SPACE, evValuePress))
	p.Forward(keyEvent(evdev.BTN_EXTRA, evValuePress))
	p.Forward(keyEvent(evdev.KEY_A, evValuePress))
	p.Forward(synEvent())

	if len(out.written) != 2 {
		t.Fatalf("expected only KEY_A and SYN_REPORT, got %d events", len(out.written))
	}
	if out.written[0].Code != evdev.KEY_A {
		t.Errorf("expected KEY_A, got %v", out.written[0].Code)
	}
}

// TestForwardBuffersUntilSync verifies frames are written atomically on
// SYN_REPORT, not event by event.
func TestForwardBuffersUntilSync(t *testing.T) {
	out := &fakeWriter{}
	p := testPassthrough(out, nil)

	p.Forward(keyEvent(evdev.BTN_LEFT, evValuePress))
	if len(out.written) != 0 {
		t.Fatalf("expected no writes before SYN_REPORT, got %d", len(out.written))
	}

	p.Forward(synEvent())
	if len(out.written) != 2 {
		t.Fatalf("expected frame flushed on SYN_REPORT, got %d", len(out.written))
	}
}

// TestForwardNonKeyEventsPass verifies relative motion and other non-key
// events are never masked, whatever code they carry.
func TestForwardNonKeyEventsPass(t *testing.T) {
	out := &fakeWriter{}
	p := testPassthrough(out, []ChordSpec{chord(evdev.BTN_EXTRA)})

	rel := &evdev.InputEvent{Type: evdev.EV_REL, Code: evdev.BTN_EXTRA, Value: -3}
	p.Forward(rel)
	p.Forward(synEvent())

	if len(out.written) != 2 {
		t.Fatalf("expected motion event to pass, got %d events", len(out.written))
	}
	if out.written[0] != rel {
		t.Error("expected the motion event to be forwarded unchanged")
	}
}

// TestFlushDropsFrameOnWriteError verifies a failed write abandons the rest
// of the frame instead of retrying it forever.
func TestFlushDropsFrameOnWriteError(t *testing.T) {
	out := &fakeWriter{err: errors.New("uinput gone")}
	p := testPassthrough(out, nil)

	p.Forward(keyEvent(evdev.BTN_LEFT, evValuePress))
	p.Forward(synEvent())

	if len(p.pending) != 0 {
		t.Fatalf("expected pending frame cleared after write error, got %d", len(p.pending))
	}

	out.err = nil
	p.Forward(keyEvent(evdev.BTN_LEFT, evValueRelease))
	p.Forward(synEvent())
	if len(out.written) != 2 {
		t.Fatalf("expected next frame to forward normally, got %d", len(out.written))
	}
}

// TestMaskedCodesUnion verifies deduplication across chords.
func TestMaskedCodesUnion(t *testing.T) {
	specs := []ChordSpec{
		chord(evdev.KEY_LEFTCTRL, evdev.KEY_SPACE),
		chord(evdev.KEY_LEFTCTRL, evdev.KEY_M),
	}
	masked := maskedCodes(specs)

	if len(masked) != 3 {
		t.Fatalf("expected 3 masked codes, got %d", len(masked))
	}
	for _, c := range []evdev.EvCode{evdev.KEY_LEFTCTRL, evdev.KEY_SPACE, evdev.KEY_M} {
		if !masked[c] {
			t.Errorf("expected %v to be masked", c)
		}
	}
}
