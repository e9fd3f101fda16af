package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/holoplot/go-evdev"
)

// sessionDevice is the surface of an open input device one session drives:
// blocking reads plus identity and teardown. *evdev.InputDevice satisfies it.
type sessionDevice interface {
	eventReader
	Name() (string, error)
	Close() error
}

// Daemon wires device selection, the chord tracker, and effect execution
// into the long-lived loop. One Daemon spans many device sessions; trackers
// and passthroughs live and die with a single session.
type Daemon struct {
	cfg     *Config
	specs   []ChordSpec
	logger  *slog.Logger
	mic     MicCommander
	sounds  *SoundPlayer
	updates <-chan *Config
	backoff *Backoff

	// selectFn opens the device for the next session; tests swap it out.
	selectFn func() (sessionDevice, string, error)

	everOpened bool
}

// errSessionRestart asks the outer loop to rebuild the device session after
// a config change. Not a failure.
var errSessionRestart = errors.New("session restart required")

func NewDaemon(cfg *Config, specs []ChordSpec, mic MicCommander, sounds *SoundPlayer, updates <-chan *Config, logger *slog.Logger) *Daemon {
	d := &Daemon{
		cfg:     cfg,
		specs:   specs,
		logger:  logger,
		mic:     mic,
		sounds:  sounds,
		updates: updates,
		backoff: NewBackoff(reconnectDelayInitial, reconnectDelayMax),
	}
	d.selectFn = func() (sessionDevice, string, error) {
		return selectDevice(d.cfg.Device, d.specs, d.logger)
	}
	return d
}

// Run drives device sessions until the context ends or a fatal error hits.
// Device loss mid-run reconnects with backoff; startup failures and
// permission errors end the run. The mic is always left in the resting
// state on the way out.
func (d *Daemon) Run(ctx context.Context) error {
	for {
		err := d.runSession(ctx)

		if ctx.Err() != nil {
			d.shutdownMic()
			return nil
		}
		if errors.Is(err, errSessionRestart) {
			d.logger.Info("restarting device session after config change")
			continue
		}
		if !retryableSessionErr(err, d.everOpened) {
			d.shutdownMic()
			return err
		}

		delay := d.backoff.Next()
		d.logger.Warn("device unavailable, retrying", "error", err, "retry_in", delay.String())
		select {
		case <-time.After(delay):
		case next := <-d.updates:
			d.applyOfflineUpdate(next)
		case <-ctx.Done():
			d.shutdownMic()
			return nil
		}
	}
}

func (d *Daemon) runSession(ctx context.Context) error {
	dev, path, err := d.selectFn()
	if err != nil {
		return err
	}
	defer dev.Close()

	first := !d.everOpened
	d.everOpened = true
	d.backoff.Reset()

	name, nameErr := dev.Name()
	if nameErr != nil {
		name = ""
	}
	d.logger.Info("listening for chords", "device", path, "name", name, "chords", chordStrings(d.specs))

	// Suppress needs the raw evdev handle for grabbing and uinput cloning.
	evdevDev, _ := dev.(*evdev.InputDevice)

	var pt *passthrough
	if d.cfg.Suppress {
		pt, err = newPassthrough(evdevDev, d.specs, d.logger)
		if err != nil {
			d.logger.Warn("suppress mode unavailable, continuing without", "error", err)
			pt = nil
		}
	}
	defer func() {
		if pt != nil {
			pt.Close(evdevDev)
		}
	}()

	if first {
		d.applyStartupState(ctx)
	}
	// Refresh to the resting state for the current mapping: with reverse the
	// mic goes live now, with nothing held.
	d.apply(ctx, desiredLive(false, d.cfg.Mic), false)

	tracker := NewChordTracker(d.specs)

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan *evdev.InputEvent, eventQueueSize)
	readErr := make(chan error, 1)
	go readInputEvents(sessionCtx, dev, events, readErr)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			if tracker.Engaged() {
				// Device vanished while the chord was held; never leave the
				// mic live.
				d.dispatch(ctx, SignalReleased)
			}
			return DisconnectedError{Path: path, Err: err}

		case next := <-d.updates:
			if d.applyConfigUpdate(next, evdevDev, &pt) {
				return errSessionRestart
			}

		case ev := <-events:
			d.handleEvent(ctx, ev, tracker, pt)
		}
	}
}

func (d *Daemon) handleEvent(ctx context.Context, ev *evdev.InputEvent, tracker *ChordTracker, pt *passthrough) {
	if pt != nil {
		pt.Forward(ev)
	}
	switch {
	case ev.Type == evdev.EV_SYN && ev.Code == evdev.SYN_DROPPED:
		d.logger.Debug("kernel dropped events, resetting key state")
		d.dispatch(ctx, tracker.Reset())
	case ev.Type == evdev.EV_KEY:
		d.dispatch(ctx, tracker.Update(ev.Code, ev.Value))
	}
}

// dispatch turns a chord transition into mic and sound commands.
func (d *Daemon) dispatch(ctx context.Context, sig Signal) {
	if sig == SignalNone {
		return
	}
	live := desiredLive(sig == SignalEngaged, d.cfg.Mic)
	d.logger.Info("chord transition", "signal", sig.String(), "mic_live", live)
	for _, cmd := range commandsFor(live, d.cfg, true) {
		runEffect(ctx, d.mic, d.sounds, cmd, d.logger)
	}
}

func (d *Daemon) apply(ctx context.Context, live bool, withSound bool) {
	for _, cmd := range commandsFor(live, d.cfg, withSound) {
		runEffect(ctx, d.mic, d.sounds, cmd, d.logger)
	}
}

// applyStartupState puts the mic into the configured state before the first
// session starts handling events. Silent: sounds mark transitions, not boot.
func (d *Daemon) applyStartupState(ctx context.Context) {
	state := d.cfg.effectiveStartupState()
	d.logger.Info("applying startup state", "state", state)
	d.apply(ctx, state == startupUnmuted, false)
}

// shutdownMic leaves the capture source in the safe resting state: off level
// or muted, regardless of reverse.
func (d *Daemon) shutdownMic() {
	ctx, cancel := context.WithTimeout(context.Background(), micCommandTimeout)
	defer cancel()
	d.logger.Info("leaving mic in resting state")
	for _, cmd := range offCommands(d.cfg) {
		runEffect(ctx, d.mic, nil, cmd, d.logger)
	}
}

// applyConfigUpdate folds a reloaded config into the running session.
// Returns true when the session must be rebuilt: chord, device, or mic
// mapping changes invalidate the tracker and the selection.
func (d *Daemon) applyConfigUpdate(next *Config, dev *evdev.InputDevice, pt **passthrough) bool {
	prev := d.cfg

	// Updates arrive validated; a parse failure here drops the whole update
	// so cfg and specs never diverge.
	specs, err := parseChords(next.Keys)
	if err != nil {
		d.logger.Error("reloaded config rejected", "error", err)
		return false
	}

	if soundsChanged(prev, next) {
		d.sounds.Close()
		d.sounds = newSoundPlayer(next.Sounds, d.logger)
		d.logger.Info("sound configuration reloaded")
	}
	if next.Logging.Level != prev.Logging.Level {
		d.logger.Info("log level change takes effect on restart", "level", string(next.Logging.Level))
	}

	if needsSessionRestart(prev, next) {
		// Park the mic in the old mapping's resting state before the
		// session goes down; the new session applies the new mapping.
		for _, cmd := range offCommands(prev) {
			runEffect(context.Background(), d.mic, nil, cmd, d.logger)
		}
		d.specs = specs
		d.cfg = next
		return true
	}

	if next.Suppress != prev.Suppress {
		if *pt != nil {
			(*pt).Close(dev)
			*pt = nil
		}
		if next.Suppress {
			newPt, err := newPassthrough(dev, d.specs, d.logger)
			if err != nil {
				d.logger.Warn("suppress mode unavailable", "error", err)
			} else {
				*pt = newPt
			}
		}
		d.logger.Info("suppress mode changed", "suppress", next.Suppress)
	}

	d.cfg = next
	return false
}

// applyOfflineUpdate handles a config reload that lands between sessions,
// while no device is open. A changed device path or chord list may be
// exactly what ends the reconnect loop, so the backoff resets.
func (d *Daemon) applyOfflineUpdate(next *Config) {
	specs, err := parseChords(next.Keys)
	if err != nil {
		d.logger.Error("reloaded config rejected", "error", err)
		return
	}
	if soundsChanged(d.cfg, next) {
		d.sounds.Close()
		d.sounds = newSoundPlayer(next.Sounds, d.logger)
	}
	d.specs = specs
	d.cfg = next
	d.backoff.Reset()
	d.logger.Info("config reloaded while disconnected")
}

// retryableSessionErr separates transient device loss from fatal conditions.
// Before any device was opened, selection failures end the run; afterwards
// the device may simply have been unplugged, so selection is retried.
// Permission errors never resolve by waiting.
func retryableSessionErr(err error, everOpened bool) bool {
	var disc DisconnectedError
	if errors.As(err, &disc) {
		return true
	}
	if !everOpened {
		return false
	}
	var perm DevicePermissionError
	if errors.As(err, &perm) {
		return false
	}
	var notFound DeviceNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, ErrNoCandidate)
}
