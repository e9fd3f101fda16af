package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewSoundPlayerDisabled verifies disabled sounds produce no player and
// the nil player is safe to use.
func TestNewSoundPlayerDisabled(t *testing.T) {
	cfg := SoundConfig{Enabled: false}
	p := newSoundPlayer(cfg, testLogger())
	if p != nil {
		t.Fatal("expected nil player when sounds are disabled")
	}
	p.Close()
}

// TestResolveSoundSourceDisabled verifies a per-direction false stays silent.
func TestResolveSoundSourceDisabled(t *testing.T) {
	src := resolveSoundSource(SoundChoice{Disabled: true}, true, testLogger())
	if !src.disabled {
		t.Fatal("expected disabled source")
	}
	if src.buffer != nil {
		t.Fatal("expected no buffer for disabled source")
	}
}

// TestResolveSoundSourceDefault verifies the empty choice yields the built-in
// blip.
func TestResolveSoundSourceDefault(t *testing.T) {
	src := resolveSoundSource(SoundChoice{}, true, testLogger())
	if src.disabled || src.buffer == nil {
		t.Fatalf("expected built-in buffer, got %+v", src)
	}
}

// TestResolveSoundSourceBadFileFallsBack verifies an unusable file downgrades
// to the built-in sound instead of failing.
func TestResolveSoundSourceBadFileFallsBack(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.wav")
	src := resolveSoundSource(SoundChoice{File: missing}, false, testLogger())
	if src.disabled || src.buffer == nil {
		t.Fatalf("expected fallback buffer, got %+v", src)
	}
}

// TestLoadSoundFileUnsupportedFormat verifies unknown extensions are rejected
// before any decode attempt.
func TestLoadSoundFileUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ping.flac")
	if err := os.WriteFile(path, []byte("fLaC"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if _, err := loadSoundFile(path); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

// TestBuiltinBlipLength verifies the synthesized blip has the expected
// duration and differs per direction.
func TestBuiltinBlipLength(t *testing.T) {
	on := builtinBlip(true)
	off := builtinBlip(false)

	want := soundSampleRate.N(90 * time.Millisecond)
	if on.Len() != want {
		t.Errorf("expected %d samples, got %d", want, on.Len())
	}
	if off.Len() != want {
		t.Errorf("expected %d samples, got %d", want, off.Len())
	}

	var a, b [1][2]float64
	on.Streamer(100, 101).Stream(a[:])
	off.Streamer(100, 101).Stream(b[:])
	if a == b {
		t.Error("expected on and off blips to differ")
	}
}

// TestToneStreamerDrains verifies the tone reports completion exactly at its
// length and stays inside unit amplitude.
func TestToneStreamerDrains(t *testing.T) {
	tone := &toneStreamer{freq: 440, rate: 44100, total: 1000}

	var buf [512][2]float64
	got := 0
	for {
		n, ok := tone.Stream(buf[:])
		for _, s := range buf[:n] {
			if s[0] < -1 || s[0] > 1 {
				t.Fatalf("sample out of range: %v", s[0])
			}
		}
		got += n
		if !ok {
			break
		}
	}
	if got != 1000 {
		t.Fatalf("expected 1000 samples, got %d", got)
	}
	if err := tone.Err(); err != nil {
		t.Fatalf("expected no streamer error, got %v", err)
	}
}

// TestThemeFile verifies extension preference and the missing case.
func TestThemeFile(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"ping.wav", "ping.ogg"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644); err != nil {
			t.Fatalf("writing file: %v", err)
		}
	}

	got, ok := themeFile(dir, "ping")
	if !ok {
		t.Fatal("expected a theme file")
	}
	if got != filepath.Join(dir, "ping.wav") {
		t.Errorf("expected .wav preferred over .ogg, got %s", got)
	}

	if _, ok := themeFile(dir, "pong"); ok {
		t.Error("expected no match for absent sound")
	}
}
