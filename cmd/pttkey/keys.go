package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/holoplot/go-evdev"
)

// keyRegistry maps the supported symbolic key names to evdev codes.
// Names follow <linux/input-event-codes.h>. Tokens that are plain decimal
// numbers bypass the registry, so unlisted codes remain usable.
var keyRegistry = map[string]evdev.EvCode{
	// Letters
	"KEY_A": evdev.KEY_A, "KEY_B": evdev.KEY_B, "KEY_C": evdev.KEY_C,
	"KEY_D": evdev.KEY_D, "KEY_E": evdev.KEY_E, "KEY_F": evdev.KEY_F,
	"KEY_G": evdev.KEY_G, "KEY_H": evdev.KEY_H, "KEY_I": evdev.KEY_I,
	"KEY_J": evdev.KEY_J, "KEY_K": evdev.KEY_K, "KEY_L": evdev.KEY_L,
	"KEY_M": evdev.KEY_M, "KEY_N": evdev.KEY_N, "KEY_O": evdev.KEY_O,
	"KEY_P": evdev.KEY_P, "KEY_Q": evdev.KEY_Q, "KEY_R": evdev.KEY_R,
	"KEY_S": evdev.KEY_S, "KEY_T": evdev.KEY_T, "KEY_U": evdev.KEY_U,
	"KEY_V": evdev.KEY_V, "KEY_W": evdev.KEY_W, "KEY_X": evdev.KEY_X,
	"KEY_Y": evdev.KEY_Y, "KEY_Z": evdev.KEY_Z,

	// Digit row
	"KEY_1": evdev.KEY_1, "KEY_2": evdev.KEY_2, "KEY_3": evdev.KEY_3,
	"KEY_4": evdev.KEY_4, "KEY_5": evdev.KEY_5, "KEY_6": evdev.KEY_6,
	"KEY_7": evdev.KEY_7, "KEY_8": evdev.KEY_8, "KEY_9": evdev.KEY_9,
	"KEY_0": evdev.KEY_0,

	// Function keys
	"KEY_F1": evdev.KEY_F1, "KEY_F2": evdev.KEY_F2, "KEY_F3": evdev.KEY_F3,
	"KEY_F4": evdev.KEY_F4, "KEY_F5": evdev.KEY_F5, "KEY_F6": evdev.KEY_F6,
	"KEY_F7": evdev.KEY_F7, "KEY_F8": evdev.KEY_F8, "KEY_F9": evdev.KEY_F9,
	"KEY_F10": evdev.KEY_F10, "KEY_F11": evdev.KEY_F11, "KEY_F12": evdev.KEY_F12,

	// Modifiers
	"KEY_LEFTCTRL":   evdev.KEY_LEFTCTRL,
	"KEY_RIGHTCTRL":  evdev.KEY_RIGHTCTRL,
	"KEY_LEFTSHIFT":  evdev.KEY_LEFTSHIFT,
	"KEY_RIGHTSHIFT": evdev.KEY_RIGHTSHIFT,
	"KEY_LEFTALT":    evdev.KEY_LEFTALT,
	"KEY_RIGHTALT":   evdev.KEY_RIGHTALT,
	"KEY_LEFTMETA":   evdev.KEY_LEFTMETA,
	"KEY_RIGHTMETA":  evdev.KEY_RIGHTMETA,
	"KEY_CAPSLOCK":   evdev.KEY_CAPSLOCK,
	"KEY_COMPOSE":    evdev.KEY_COMPOSE,

	// Whitespace and editing
	"KEY_SPACE":     evdev.KEY_SPACE,
	"KEY_ENTER":     evdev.KEY_ENTER,
	"KEY_TAB":       evdev.KEY_TAB,
	"KEY_ESC":       evdev.KEY_ESC,
	"KEY_BACKSPACE": evdev.KEY_BACKSPACE,
	"KEY_INSERT":    evdev.KEY_INSERT,
	"KEY_DELETE":    evdev.KEY_DELETE,

	// Punctuation row
	"KEY_MINUS":      evdev.KEY_MINUS,
	"KEY_EQUAL":      evdev.KEY_EQUAL,
	"KEY_LEFTBRACE":  evdev.KEY_LEFTBRACE,
	"KEY_RIGHTBRACE": evdev.KEY_RIGHTBRACE,
	"KEY_SEMICOLON":  evdev.KEY_SEMICOLON,
	"KEY_APOSTROPHE": evdev.KEY_APOSTROPHE,
	"KEY_GRAVE":      evdev.KEY_GRAVE,
	"KEY_BACKSLASH":  evdev.KEY_BACKSLASH,
	"KEY_COMMA":      evdev.KEY_COMMA,
	"KEY_DOT":        evdev.KEY_DOT,
	"KEY_SLASH":      evdev.KEY_SLASH,
	"KEY_102ND":      evdev.KEY_102ND,

	// Navigation
	"KEY_UP":       evdev.KEY_UP,
	"KEY_DOWN":     evdev.KEY_DOWN,
	"KEY_LEFT":     evdev.KEY_LEFT,
	"KEY_RIGHT":    evdev.KEY_RIGHT,
	"KEY_HOME":     evdev.KEY_HOME,
	"KEY_END":      evdev.KEY_END,
	"KEY_PAGEUP":   evdev.KEY_PAGEUP,
	"KEY_PAGEDOWN": evdev.KEY_PAGEDOWN,

	// System row
	"KEY_SYSRQ":      evdev.KEY_SYSRQ,
	"KEY_SCROLLLOCK": evdev.KEY_SCROLLLOCK,
	"KEY_PAUSE":      evdev.KEY_PAUSE,
	"KEY_MENU":       evdev.KEY_MENU,

	// Numpad
	"KEY_NUMLOCK": evdev.KEY_NUMLOCK,
	"KEY_KP0":     evdev.KEY_KP0, "KEY_KP1": evdev.KEY_KP1,
	"KEY_KP2": evdev.KEY_KP2, "KEY_KP3": evdev.KEY_KP3,
	"KEY_KP4": evdev.KEY_KP4, "KEY_KP5": evdev.KEY_KP5,
	"KEY_KP6": evdev.KEY_KP6, "KEY_KP7": evdev.KEY_KP7,
	"KEY_KP8": evdev.KEY_KP8, "KEY_KP9": evdev.KEY_KP9,
	"KEY_KPSLASH":    evdev.KEY_KPSLASH,
	"KEY_KPASTERISK": evdev.KEY_KPASTERISK,
	"KEY_KPMINUS":    evdev.KEY_KPMINUS,
	"KEY_KPPLUS":     evdev.KEY_KPPLUS,
	"KEY_KPENTER":    evdev.KEY_KPENTER,
	"KEY_KPDOT":      evdev.KEY_KPDOT,

	// Media
	"KEY_MUTE":         evdev.KEY_MUTE,
	"KEY_MICMUTE":      evdev.KEY_MICMUTE,
	"KEY_VOLUMEDOWN":   evdev.KEY_VOLUMEDOWN,
	"KEY_VOLUMEUP":     evdev.KEY_VOLUMEUP,
	"KEY_PLAYPAUSE":    evdev.KEY_PLAYPAUSE,
	"KEY_NEXTSONG":     evdev.KEY_NEXTSONG,
	"KEY_PREVIOUSSONG": evdev.KEY_PREVIOUSSONG,
	"KEY_STOPCD":       evdev.KEY_STOPCD,

	// Mouse buttons
	"BTN_LEFT":    evdev.BTN_LEFT,
	"BTN_RIGHT":   evdev.BTN_RIGHT,
	"BTN_MIDDLE":  evdev.BTN_MIDDLE,
	"BTN_SIDE":    evdev.BTN_SIDE,
	"BTN_EXTRA":   evdev.BTN_EXTRA,
	"BTN_FORWARD": evdev.BTN_FORWARD,
	"BTN_BACK":    evdev.BTN_BACK,
	"BTN_TASK":    evdev.BTN_TASK,
}

// keyCodeNames is the reverse of keyRegistry, for display.
var keyCodeNames = func() map[evdev.EvCode]string {
	m := make(map[evdev.EvCode]string, len(keyRegistry))
	for name, code := range keyRegistry {
		m[code] = name
	}
	return m
}()

// keyName returns the display name for a code: the registry name when known,
// the decimal code otherwise.
func keyName(code evdev.EvCode) string {
	if name, ok := keyCodeNames[code]; ok {
		return name
	}
	return strconv.Itoa(int(code))
}

// supportedKeyNames returns all registry names, sorted.
func supportedKeyNames() []string {
	names := make([]string, 0, len(keyRegistry))
	for name := range keyRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChordSpec is one chord: the set of key codes that must all be held at once.
// Codes are deduplicated; order is kept only for display.
type ChordSpec struct {
	Codes []evdev.EvCode
}

// Contains reports whether the chord includes the given code.
func (s ChordSpec) Contains(code evdev.EvCode) bool {
	for _, c := range s.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// String renders the chord as '+'-joined key names, the same form the config
// file uses.
func (s ChordSpec) String() string {
	names := make([]string, len(s.Codes))
	for i, c := range s.Codes {
		names[i] = keyName(c)
	}
	return strings.Join(names, "+")
}

// parseKey resolves one token to a key code. Surrounding whitespace is
// trimmed; names are matched exactly, decimal numbers are accepted as raw
// codes.
func parseKey(token string) (evdev.EvCode, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return 0, ErrEmptyChord
	}
	if n, err := strconv.ParseUint(t, 10, 16); err == nil {
		return evdev.EvCode(n), nil
	}
	if code, ok := keyRegistry[t]; ok {
		return code, nil
	}
	return 0, UnknownKeyError{Token: t}
}

// parseChord parses a '+'-joined chord spec like "KEY_LEFTCTRL+KEY_SPACE".
func parseChord(spec string) (ChordSpec, error) {
	parts := strings.Split(spec, "+")
	codes := make([]evdev.EvCode, 0, len(parts))
	seen := make(map[evdev.EvCode]bool, len(parts))
	for _, part := range parts {
		code, err := parseKey(part)
		if err != nil {
			return ChordSpec{}, err
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return ChordSpec{}, ErrEmptyChord
	}
	return ChordSpec{Codes: codes}, nil
}

// chordStrings renders chords for logs and listings.
func chordStrings(specs []ChordSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.String()
	}
	return out
}

// parseChords parses the configured chord list. Each entry is an independent
// chord; holding all keys of any one of them engages the signal.
func parseChords(specs []string) ([]ChordSpec, error) {
	chords := make([]ChordSpec, 0, len(specs))
	for _, spec := range specs {
		chord, err := parseChord(spec)
		if err != nil {
			return nil, fmt.Errorf("chord %q: %w", spec, err)
		}
		chords = append(chords, chord)
	}
	return chords, nil
}
