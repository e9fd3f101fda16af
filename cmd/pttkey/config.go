package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the persisted daemon configuration.
type Config struct {
	// Keys is the chord list. Each entry is one chord of '+'-joined key
	// names (or decimal codes); holding any one chord toggles the mic.
	Keys []string `yaml:"keys"`

	// Device pins the input device path. Empty means autodetect.
	Device string `yaml:"device,omitempty"`

	// Suppress grabs the device and re-emits everything except the chord
	// keys through a uinput clone.
	Suppress bool `yaml:"suppress"`

	Mic     MicConfig     `yaml:"mic"`
	Sounds  SoundConfig   `yaml:"sounds"`
	Logging LoggingConfig `yaml:"logging"`
}

// MicConfig is the hold-state to mic-state mapping. It is read once per
// device session; changing it at runtime restarts the session.
type MicConfig struct {
	Mode     string  `yaml:"mode" validate:"required,oneof=volume mute"`
	Reverse  bool    `yaml:"reverse"`
	OnLevel  float64 `yaml:"on_level" validate:"gte=0,lte=1"`
	OffLevel float64 `yaml:"off_level" validate:"gte=0,lte=1"`

	// StartupState is applied before the loop starts. Empty follows
	// reverse; see effectiveStartupState.
	StartupState string `yaml:"startup_state,omitempty" validate:"omitempty,oneof=muted unmuted"`
}

type SoundConfig struct {
	Enabled bool        `yaml:"enabled"`
	On      SoundChoice `yaml:"on"`
	Off     SoundChoice `yaml:"off"`
	Volume  float64     `yaml:"volume" validate:"gte=0,lte=1"`
}

type LoggingConfig struct {
	Level LogLevel `yaml:"level" validate:"omitempty,oneof=error warn info debug"`
}

// SoundChoice selects the sound for one transition direction: null (or
// absent) uses the built-in sound, false disables the direction, a string
// names a sound file.
type SoundChoice struct {
	Disabled bool
	File     string
}

func (s *SoundChoice) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		switch value.Tag {
		case "!!null":
			*s = SoundChoice{}
			return nil
		case "!!bool":
			var b bool
			if err := value.Decode(&b); err != nil {
				return err
			}
			if b {
				return errors.New("sound entries accept false, null, or a file path, not true")
			}
			*s = SoundChoice{Disabled: true}
			return nil
		case "!!str":
			var file string
			if err := value.Decode(&file); err != nil {
				return err
			}
			*s = SoundChoice{File: file}
			return nil
		}
	}
	return errors.New("invalid sound entry: expected false, null, or a file path")
}

func (s SoundChoice) MarshalYAML() (interface{}, error) {
	if s.Disabled {
		return false, nil
	}
	if s.File != "" {
		return s.File, nil
	}
	return nil, nil
}

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() *Config {
	return &Config{
		Keys: []string{defaultChord},
		Mic: MicConfig{
			Mode:     modeVolume,
			OnLevel:  defaultOnLevel,
			OffLevel: defaultOffLevel,
		},
		Sounds: SoundConfig{
			Enabled: true,
			Volume:  defaultSoundVolume,
		},
		Logging: LoggingConfig{
			Level: LogLevelInfo,
		},
	}
}

// LoadConfigFile reads and strictly parses a config file. Unknown fields and
// trailing YAML documents are errors; missing fields keep their defaults.
func LoadConfigFile(path string) (*Config, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", expanded, err)
	}

	var extra interface{}
	if err := decoder.Decode(&extra); err != io.EOF {
		return nil, fmt.Errorf("unexpected trailing YAML document in %s", expanded)
	}
	return config, nil
}

// SaveConfigFile writes the config, creating parent directories as needed.
func SaveConfigFile(path string, cfg *Config) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return fmt.Errorf("failed to expand config path: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks chord syntax, value ranges, and sound file presence.
func (c *Config) Validate() error {
	if len(c.Keys) == 0 {
		return errors.New("keys: at least one chord is required")
	}
	if _, err := parseChords(c.Keys); err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config field %s fails %q constraint", fe.Namespace(), fe.Tag())
		}
		return err
	}

	for _, entry := range []struct {
		name   string
		choice SoundChoice
	}{
		{"sounds.on", c.Sounds.On},
		{"sounds.off", c.Sounds.Off},
	} {
		if entry.choice.File == "" {
			continue
		}
		expanded, err := ExpandPath(entry.choice.File)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.name, err)
		}
		if _, err := os.Stat(expanded); err != nil {
			return fmt.Errorf("%s: sound file %s: %w", entry.name, entry.choice.File, err)
		}
	}
	return nil
}

// effectiveStartupState resolves the startup state. When unset it follows
// reverse: plain push-to-talk starts muted, push-to-mute starts live.
func (c *Config) effectiveStartupState() string {
	if c.Mic.StartupState != "" {
		return c.Mic.StartupState
	}
	if c.Mic.Reverse {
		return startupUnmuted
	}
	return startupMuted
}

// needsSessionRestart reports whether a reloaded config changes anything the
// live device session was built from: chords, device selection, or the mic
// mapping.
func needsSessionRestart(prev, next *Config) bool {
	return !slices.Equal(prev.Keys, next.Keys) || prev.Device != next.Device || prev.Mic != next.Mic
}

func soundsChanged(prev, next *Config) bool {
	return prev.Sounds != next.Sounds
}

// FlagOverrides carries the configuration flags that were explicitly set on
// the command line. Pointer fields distinguish "not given" from zero values.
type FlagOverrides struct {
	Keys         []string
	Device       *string
	Suppress     *bool
	Mode         *string
	Reverse      *bool
	OnLevel      *float64
	OffLevel     *float64
	StartupState *string
	Sounds       *bool
	SoundOn      *string
	SoundOff     *string
	SoundVolume  *float64
}

// Any reports whether any configuration flag was given. If so the CLI
// persists the updated config and restarts the service instead of running
// the loop itself.
func (o FlagOverrides) Any() bool {
	return len(o.Keys) > 0 || o.Device != nil || o.Suppress != nil || o.Mode != nil ||
		o.Reverse != nil || o.OnLevel != nil || o.OffLevel != nil || o.StartupState != nil ||
		o.Sounds != nil || o.SoundOn != nil || o.SoundOff != nil || o.SoundVolume != nil
}

// Apply overlays the set flags onto the config.
func (o FlagOverrides) Apply(cfg *Config) {
	if len(o.Keys) > 0 {
		cfg.Keys = append([]string(nil), o.Keys...)
	}
	if o.Device != nil {
		cfg.Device = *o.Device
	}
	if o.Suppress != nil {
		cfg.Suppress = *o.Suppress
	}
	if o.Mode != nil {
		cfg.Mic.Mode = *o.Mode
	}
	if o.Reverse != nil {
		cfg.Mic.Reverse = *o.Reverse
	}
	if o.OnLevel != nil {
		cfg.Mic.OnLevel = *o.OnLevel
	}
	if o.OffLevel != nil {
		cfg.Mic.OffLevel = *o.OffLevel
	}
	if o.StartupState != nil {
		cfg.Mic.StartupState = *o.StartupState
	}
	if o.Sounds != nil {
		cfg.Sounds.Enabled = *o.Sounds
	}
	if o.SoundOn != nil {
		cfg.Sounds.On = parseSoundFlag(*o.SoundOn)
	}
	if o.SoundOff != nil {
		cfg.Sounds.Off = parseSoundFlag(*o.SoundOff)
	}
	if o.SoundVolume != nil {
		cfg.Sounds.Volume = *o.SoundVolume
	}
}

// parseSoundFlag maps a -sound-on/-sound-off value: "default" resets to the
// built-in sound, "none" disables the direction, anything else is a file.
func parseSoundFlag(v string) SoundChoice {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "default":
		return SoundChoice{}
	case "none":
		return SoundChoice{Disabled: true}
	default:
		return SoundChoice{File: v}
	}
}

// configFilePath is the primary location, under the user config directory.
func configFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve user config directory: %w", err)
	}
	return filepath.Join(dir, configDirName, configFileName), nil
}

// backupFilePath is the home-directory fallback copy.
func backupFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	return filepath.Join(home, backupFileName), nil
}

// loadOrCreateConfig loads the config at path. For the default path a
// missing primary is restored from the backup copy when one exists;
// otherwise defaults are written and used.
func loadOrCreateConfig(path string, isDefaultPath bool, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		return LoadConfigFile(path)
	}

	if isDefaultPath {
		if backup, err := backupFilePath(); err == nil {
			if _, statErr := os.Stat(backup); statErr == nil {
				cfg, loadErr := LoadConfigFile(backup)
				if loadErr == nil {
					logger.Info("restoring config from backup", "backup", backup)
					if saveErr := SaveConfigFile(path, cfg); saveErr != nil {
						logger.Warn("could not restore primary config", "error", saveErr)
					}
					return cfg, nil
				}
				logger.Warn("backup config unreadable", "backup", backup, "error", loadErr)
			}
		}
	}

	cfg := DefaultConfig()
	logger.Info("writing default config", "path", path)
	if err := SaveConfigFile(path, cfg); err != nil {
		logger.Warn("could not write default config", "path", path, "error", err)
	}
	if isDefaultPath {
		if backup, err := backupFilePath(); err == nil {
			if err := SaveConfigFile(backup, cfg); err != nil {
				logger.Warn("could not write backup config", "path", backup, "error", err)
			}
		}
	}
	return cfg, nil
}

// persistConfig writes the config to its primary location and, for the
// default path, the backup copy. The save succeeds if either write lands.
func persistConfig(cfg *Config, path string, isDefaultPath bool, logger *slog.Logger) error {
	primaryErr := SaveConfigFile(path, cfg)
	if primaryErr != nil {
		logger.Warn("writing config failed", "path", path, "error", primaryErr)
	}
	if !isDefaultPath {
		return primaryErr
	}

	backup, err := backupFilePath()
	backupErr := err
	if backupErr == nil {
		backupErr = SaveConfigFile(backup, cfg)
	}
	if backupErr != nil {
		logger.Warn("writing backup config failed", "error", backupErr)
	}
	if primaryErr != nil && backupErr != nil {
		return fmt.Errorf("config not saved: %w", primaryErr)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
