package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// keyList collects repeatable -key flags.
type keyList []string

func (k *keyList) String() string { return strings.Join(*k, ",") }

func (k *keyList) Set(v string) error {
	*k = append(*k, v)
	return nil
}

func printVersion() {
	fmt.Println("pttkey version " + appVersion)
}

func printUsage() {
	fmt.Println("pttkey - push-to-talk key daemon for Linux")
	fmt.Println()
	fmt.Println("Watches an input device and keeps the default capture source live")
	fmt.Println("only while the configured key chord is held.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pttkey [options]")
	fmt.Println()
	fmt.Println("With no options the daemon runs in the foreground. Configuration")
	fmt.Println("options update the stored config, try to restart pttkey.service,")
	fmt.Println("and exit; the running service picks the changes up.")
	fmt.Println()
	fmt.Println("Configuration options:")
	fmt.Println("  -key CHORD           chord to watch, keys joined with '+'")
	fmt.Println("                       (repeatable; any one chord toggles the mic)")
	fmt.Println("  -device PATH         input device to use (default: autodetect)")
	fmt.Println("  -mode MODE           volume or mute (default: volume)")
	fmt.Println("  -reverse             push-to-mute instead of push-to-talk")
	fmt.Println("  -on-level N          capture volume while engaged, 0..1")
	fmt.Println("  -off-level N         capture volume while released, 0..1")
	fmt.Println("  -startup-state S     muted or unmuted, applied before the loop")
	fmt.Println("  -suppress            hide chord keys from the desktop via a uinput clone")
	fmt.Println("  -sounds              transition sounds on or off (-sounds=false)")
	fmt.Println("  -sound-on V          engage sound: a file path, none, or default")
	fmt.Println("  -sound-off V         release sound: a file path, none, or default")
	fmt.Println("  -sound-volume N      sound playback volume, 0..1")
	fmt.Println()
	fmt.Println("Other options:")
	fmt.Println("  -config PATH         alternate config file (no service restart)")
	fmt.Println("  -log-level LEVEL     error, warn, info, or debug")
	fmt.Println("  -list-keys           print supported key names and exit")
	fmt.Println("  -list-devices        print input devices and exit")
	fmt.Println("  -print-config        print the effective config and exit")
	fmt.Println("  -dry-run             validate chords and device, then exit")
	fmt.Println("  -help                show this help")
	fmt.Println("  -version             show version")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pttkey -key BTN_EXTRA")
	fmt.Println("  pttkey -key KEY_LEFTCTRL+KEY_SPACE -key BTN_SIDE")
	fmt.Println("  pttkey -mode mute -reverse")
	fmt.Println("  pttkey -list-devices")
}

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-h", "--help", "-help", "help":
			printUsage()
			return
		case "-v", "--version", "-version":
			printVersion()
			return
		}
	}

	var keys keyList
	flag.Var(&keys, "key", "chord to watch (repeatable)")
	configFlag := flag.String("config", "", "alternate config file")
	device := flag.String("device", "", "input device path")
	mode := flag.String("mode", "", "volume or mute")
	reverse := flag.Bool("reverse", false, "push-to-mute instead of push-to-talk")
	onLevel := flag.Float64("on-level", 0, "capture volume while engaged")
	offLevel := flag.Float64("off-level", 0, "capture volume while released")
	startupState := flag.String("startup-state", "", "muted or unmuted")
	suppress := flag.Bool("suppress", false, "hide chord keys from the desktop")
	sounds := flag.Bool("sounds", true, "transition sounds")
	soundOn := flag.String("sound-on", "", "engage sound")
	soundOff := flag.String("sound-off", "", "release sound")
	soundVolume := flag.Float64("sound-volume", 0, "sound playback volume")
	logLevel := flag.String("log-level", "", "log level (error, warn, info, debug)")
	listKeys := flag.Bool("list-keys", false, "print supported key names and exit")
	listDevs := flag.Bool("list-devices", false, "print input devices and exit")
	printCfg := flag.Bool("print-config", false, "print the effective config and exit")
	dryRun := flag.Bool("dry-run", false, "validate chords and device, then exit")
	flag.Parse()

	if *listKeys {
		for _, name := range supportedKeyNames() {
			fmt.Println(name)
		}
		return
	}

	overrides := FlagOverrides{Keys: keys}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			overrides.Device = device
		case "mode":
			overrides.Mode = mode
		case "reverse":
			overrides.Reverse = reverse
		case "on-level":
			overrides.OnLevel = onLevel
		case "off-level":
			overrides.OffLevel = offLevel
		case "startup-state":
			overrides.StartupState = startupState
		case "suppress":
			overrides.Suppress = suppress
		case "sounds":
			overrides.Sounds = sounds
		case "sound-on":
			overrides.SoundOn = soundOn
		case "sound-off":
			overrides.SoundOff = soundOff
		case "sound-volume":
			overrides.SoundVolume = soundVolume
		}
	})

	cfgPath := *configFlag
	isDefaultPath := cfgPath == ""
	if isDefaultPath {
		path, err := configFilePath()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfgPath = path
	}

	logger := setupLogger(LogLevelInfo)
	cfg, err := loadOrCreateConfig(cfgPath, isDefaultPath, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	overrides.Apply(cfg)

	levelStr := string(cfg.Logging.Level)
	if *logLevel != "" {
		levelStr = *logLevel
	}
	level, err := parseLogLevel(levelStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger = setupLogger(level)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	specs, err := parseChords(cfg.Keys)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if *printCfg {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		fmt.Print(string(data))
		return
	}

	if *listDevs {
		descs, err := listDevices()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		for _, d := range descs {
			line := d.Path + "\t" + d.Name
			switch {
			case d.Keys == nil:
				line += "\t(unreadable)"
			case anyChordSupported(d.Keys, specs):
				line += "\t(supports configured chords)"
			}
			fmt.Println(line)
		}
		return
	}

	if *dryRun {
		dev, path, err := selectDevice(cfg.Device, specs, logger)
		if err != nil {
			reportStartupError(err)
			os.Exit(1)
		}
		dev.Close()
		fmt.Printf("ok: chords %s on device %s\n", strings.Join(chordStrings(specs), ", "), path)
		return
	}

	if overrides.Any() {
		if err := persistConfig(cfg, cfgPath, isDefaultPath, logger); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		logger.Info("configuration updated", "path", cfgPath)
		if isDefaultPath {
			restartService(logger)
		}
		return
	}

	var mic MicCommander
	if wpctl, err := NewWpctlCommander(); err != nil {
		logger.Error("wpctl not found, mic toggles will fail until it is installed", "error", err)
	} else {
		mic = wpctl
	}

	soundPlayer := newSoundPlayer(cfg.Sounds, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("starting pttkey", "version", appVersion)
	logger.Debug("configuration",
		"config", cfgPath,
		"chords", chordStrings(specs),
		"device", cfg.Device,
		"suppress", cfg.Suppress,
		"mode", cfg.Mic.Mode,
		"reverse", cfg.Mic.Reverse,
		"on_level", cfg.Mic.OnLevel,
		"off_level", cfg.Mic.OffLevel,
		"startup_state", cfg.effectiveStartupState(),
		"sounds", cfg.Sounds.Enabled)

	updates := make(chan *Config, 1)
	daemon := NewDaemon(cfg, specs, mic, soundPlayer, updates, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watchConfig(ctx, cfgPath, configDebounce, logger, updates)
	})
	g.Go(func() error {
		return daemon.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		reportStartupError(err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// reportStartupError prints a fatal error, with the permission hint when a
// device could not be read.
func reportStartupError(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	var perm DevicePermissionError
	if errors.As(err, &perm) {
		fmt.Fprintln(os.Stderr, "hint: add your user to the 'input' group or install a udev rule for the device")
	}
}

// restartService asks the user systemd instance to pick up a persisted
// config change. Best effort: without the unit installed this just warns.
func restartService(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), restartTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "systemctl", "--user", "try-restart", serviceName)
	if err := cmd.Run(); err != nil {
		logger.Warn("could not restart service, restart it manually", "service", serviceName, "error", err)
		return
	}
	logger.Info("service restarted", "service", serviceName)
}
