package main

import (
	"context"

	"github.com/holoplot/go-evdev"
)

// eventReader is the read side of a device session, satisfied by
// *evdev.InputDevice.
type eventReader interface {
	ReadOne() (*evdev.InputEvent, error)
}

// readInputEvents pumps events from the device into out until a read fails
// or the session context ends. The read blocks in the kernel; closing the
// device from the session teardown is what unblocks it, so this goroutine
// never outlives the session.
func readInputEvents(ctx context.Context, dev eventReader, out chan<- *evdev.InputEvent, readErr chan<- error) {
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			select {
			case readErr <- err:
			case <-ctx.Done():
			}
			return
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}
