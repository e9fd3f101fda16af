package main

// evtap dumps input events from an evdev device, for picking chord keys and
// debugging device issues. Key events print with value 0/1/2 for
// release/press/repeat; the printed code works directly with pttkey -key.

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/holoplot/go-evdev"
)

func main() {
	var (
		devicePath = flag.String("device", "", "device path (default: first device with keys)")
		all        = flag.Bool("all", false, "print every event type, not just keys")
	)
	flag.Parse()

	path := *devicePath
	if path == "" {
		p, err := firstKeyDevice()
		if err != nil {
			log.Fatalf("no device given and autodetect failed: %v", err)
		}
		path = p
	}

	dev, err := evdev.Open(path)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	defer dev.Close()

	name, err := dev.Name()
	if err != nil {
		name = "?"
	}
	log.Printf("reading events from %s (%s), press Ctrl+C to exit", path, name)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		// Closing the device unblocks the read loop.
		dev.Close()
	}()

	for {
		ev, err := dev.ReadOne()
		if err != nil {
			log.Printf("read ended: %v", err)
			return
		}
		switch {
		case ev.Type == evdev.EV_KEY:
			fmt.Printf("[KEY] code=%d value=%d\n", ev.Code, ev.Value)
		case ev.Type == evdev.EV_SYN && ev.Code == evdev.SYN_DROPPED:
			fmt.Println("[SYN] dropped events")
		case *all && ev.Type != evdev.EV_SYN:
			fmt.Printf("[EV] type=%d code=%d value=%d\n", ev.Type, ev.Code, ev.Value)
		}
	}
}

// firstKeyDevice picks the first readable device exposing key events.
func firstKeyDevice() (string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		keys := dev.CapableEvents(evdev.EV_KEY)
		dev.Close()
		if len(keys) > 0 {
			return p.Path, nil
		}
	}
	return "", fmt.Errorf("no readable device exposes keys")
}
