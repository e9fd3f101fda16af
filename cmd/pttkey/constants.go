package main

import "time"

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Mic modes and startup states (config enum values)
const (
	modeVolume = "volume"
	modeMute   = "mute"

	startupMuted   = "muted"
	startupUnmuted = "unmuted"
)

// Configuration defaults
const (
	defaultChord       = "BTN_EXTRA"
	defaultOnLevel     = 1.0
	defaultOffLevel    = 0.0
	defaultSoundVolume = 1.0
)

// Timing
const (
	// micCommandTimeout bounds a single wpctl invocation so a wedged command
	// cannot stall release handling.
	micCommandTimeout = 2 * time.Second

	// soundCommandTimeout bounds external sound players (paplay, canberra).
	soundCommandTimeout = 10 * time.Second

	// restartTimeout bounds the systemctl try-restart call after persisting config.
	restartTimeout = 5 * time.Second

	// Reconnect pacing after a device disappears mid-run.
	reconnectDelayInitial = 1 * time.Second
	reconnectDelayMax     = 30 * time.Second

	// configDebounce coalesces bursts of file events from editors and atomic saves.
	configDebounce = 500 * time.Millisecond
)

const eventQueueSize = 64

// passthroughPrefix names the uinput clones created in suppress mode.
// Devices carrying it are never considered during autodetection.
const passthroughPrefix = "pttkey: "

// Persisted configuration locations
const (
	configDirName  = "pttkey"
	configFileName = "config.yaml"
	backupFileName = ".pttkey.yaml"

	serviceName = "pttkey.service"
)

// External sound fallbacks
const (
	soundThemeDir = "/usr/share/sounds/freedesktop/stereo"

	soundThemeOn  = "audio-volume-change"
	soundThemeOff = "audio-volume-muted"
)

// wpctlDefaultSource is the wpctl alias for the default capture source.
const wpctlDefaultSource = "@DEFAULT_SOURCE@"

const appVersion = "1.0.0"
