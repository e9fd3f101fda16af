package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

// All playback happens at one rate; decoded files are resampled into it.
const soundSampleRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func ensureSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(soundSampleRate, soundSampleRate.N(100*time.Millisecond))
	})
	return speakerErr
}

type soundRequest struct {
	on bool
}

// SoundPlayer plays the engage/release transition sounds. Requests go
// through a channel to a dedicated goroutine, so the event loop never
// waits on audio. Every failure downgrades to the next fallback or a log
// line; sound can never break the mic toggle.
//
// Per direction the source resolves, in order: the configured file, the
// built-in blip, and when no speaker backend is available, paplay with the
// freedesktop sound theme and finally canberra-gtk-play.
type SoundPlayer struct {
	logger *slog.Logger
	volume float64
	onSrc  soundSource
	offSrc soundSource
	reqs   chan soundRequest
}

type soundSource struct {
	disabled bool
	buffer   *beep.Buffer
}

// newSoundPlayer builds the player for the given config, decoding and
// caching configured files up front. Returns nil when sounds are disabled.
func newSoundPlayer(cfg SoundConfig, logger *slog.Logger) *SoundPlayer {
	if !cfg.Enabled {
		return nil
	}
	p := &SoundPlayer{
		logger: logger,
		volume: cfg.Volume,
		onSrc:  resolveSoundSource(cfg.On, true, logger),
		offSrc: resolveSoundSource(cfg.Off, false, logger),
		reqs:   make(chan soundRequest, 4),
	}
	go p.loop()
	return p
}

// Play queues the transition sound for the new mic state. Never blocks; a
// full queue drops the sound.
func (p *SoundPlayer) Play(on bool) {
	select {
	case p.reqs <- soundRequest{on: on}:
	default:
		p.logger.Debug("sound queue full, dropping transition sound")
	}
}

// Close stops the playback goroutine. The player must not be used after.
func (p *SoundPlayer) Close() {
	if p == nil {
		return
	}
	close(p.reqs)
}

func (p *SoundPlayer) loop() {
	for req := range p.reqs {
		p.play(req.on)
	}
}

func (p *SoundPlayer) play(on bool) {
	src := p.offSrc
	if on {
		src = p.onSrc
	}
	if src.disabled {
		return
	}
	if src.buffer != nil {
		err := ensureSpeaker()
		if err == nil {
			p.playBuffer(src.buffer)
			return
		}
		p.logger.Debug("speaker unavailable, trying external player", "error", err)
	}
	p.playExternal(on)
}

func (p *SoundPlayer) playBuffer(buf *beep.Buffer) {
	var s beep.Streamer = buf.Streamer(0, buf.Len())
	if p.volume != 1 {
		s = &effects.Volume{
			Streamer: s,
			Base:     2,
			Volume:   math.Log2(math.Max(p.volume, 1e-4)),
			Silent:   p.volume == 0,
		}
	}
	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))
	<-done
}

func (p *SoundPlayer) playExternal(on bool) {
	name := soundThemeOff
	if on {
		name = soundThemeOn
	}
	if bin, err := findBin("paplay"); err == nil {
		if file, ok := themeFile(soundThemeDir, name); ok {
			if p.runPlayer(bin, file) == nil {
				return
			}
		}
	}
	if bin, err := findBin("canberra-gtk-play"); err == nil {
		if p.runPlayer(bin, "-i", name) == nil {
			return
		}
	}
	p.logger.Debug("no usable sound player, transition sound skipped")
}

func (p *SoundPlayer) runPlayer(bin string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), soundCommandTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, bin, args...).Run(); err != nil {
		p.logger.Debug("sound player failed", "player", bin, "error", err)
		return err
	}
	return nil
}

// themeFile finds the first present variant of a freedesktop theme sound.
func themeFile(dir, name string) (string, bool) {
	for _, ext := range []string{".oga", ".wav", ".ogg"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// resolveSoundSource turns one config entry into a playable source.
// Unusable files fall back to the built-in blip rather than failing the run.
func resolveSoundSource(choice SoundChoice, on bool, logger *slog.Logger) soundSource {
	if choice.Disabled {
		return soundSource{disabled: true}
	}
	if choice.File != "" {
		buf, err := loadSoundFile(choice.File)
		if err == nil {
			return soundSource{buffer: buf}
		}
		logger.Warn("sound file unusable, using built-in sound", "file", choice.File, "error", err)
	}
	return soundSource{buffer: builtinBlip(on)}
}

// loadSoundFile decodes a wav, mp3, or ogg file into a cached buffer.
func loadSoundFile(path string) (*beep.Buffer, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(expanded)); ext {
	case ".wav":
		s, format, err = wav.Decode(f)
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".ogg", ".oga":
		s, format, err = vorbis.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported sound format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", expanded, err)
	}
	defer s.Close()

	buf := beep.NewBuffer(beep.Format{SampleRate: soundSampleRate, NumChannels: 2, Precision: 2})
	if format.SampleRate == soundSampleRate {
		buf.Append(s)
	} else {
		buf.Append(beep.Resample(4, format.SampleRate, soundSampleRate, s))
	}
	return buf, nil
}

// builtinBlip synthesizes the default transition sound: a short sine blip,
// higher pitched for mic-on.
func builtinBlip(on bool) *beep.Buffer {
	freq := 440.0
	if on {
		freq = 880.0
	}
	tone := &toneStreamer{
		freq:  freq,
		rate:  int(soundSampleRate),
		total: soundSampleRate.N(90 * time.Millisecond),
	}
	buf := beep.NewBuffer(beep.Format{SampleRate: soundSampleRate, NumChannels: 2, Precision: 2})
	buf.Append(tone)
	return buf
}

// toneStreamer generates a fixed-length sine tone with a linear fade-out.
type toneStreamer struct {
	freq  float64
	rate  int
	pos   int
	total int
}

func (t *toneStreamer) Stream(samples [][2]float64) (int, bool) {
	if t.pos >= t.total {
		return 0, false
	}
	n := 0
	for i := range samples {
		if t.pos >= t.total {
			break
		}
		phase := float64(t.pos) / float64(t.rate)
		fade := 1 - float64(t.pos)/float64(t.total)
		v := 0.25 * fade * math.Sin(2*math.Pi*t.freq*phase)
		samples[i][0] = v
		samples[i][1] = v
		t.pos++
		n++
	}
	return n, true
}

func (t *toneStreamer) Err() error { return nil }
