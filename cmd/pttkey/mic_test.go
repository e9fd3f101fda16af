package main

import (
	"context"
	"errors"
	"testing"
)

// fakeMic records the mic commands it receives and can fail on demand.
type fakeMic struct {
	volumes []float64
	mutes   []bool
	err     error
}

func (f *fakeMic) SetVolume(_ context.Context, level float64) error {
	f.volumes = append(f.volumes, level)
	return f.err
}

func (f *fakeMic) SetMute(_ context.Context, muted bool) error {
	f.mutes = append(f.mutes, muted)
	return f.err
}

// TestDesiredLiveMapping verifies the engaged-to-live mapping, with reverse
// swapping it uniformly.
func TestDesiredLiveMapping(t *testing.T) {
	cases := []struct {
		engaged bool
		reverse bool
		want    bool
	}{
		{true, false, true},
		{false, false, false},
		{true, true, false},
		{false, true, true},
	}
	for _, c := range cases {
		got := desiredLive(c.engaged, MicConfig{Reverse: c.reverse})
		if got != c.want {
			t.Errorf("desiredLive(engaged=%v, reverse=%v) = %v, want %v", c.engaged, c.reverse, got, c.want)
		}
	}
}

// TestCommandsForVolumeMode verifies volume mode maps live/resting to the
// configured levels and appends the sound command only when asked.
func TestCommandsForVolumeMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mic.OnLevel = 0.8
	cfg.Mic.OffLevel = 0.1

	cmds := commandsFor(true, cfg, false)
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command without sound, got %d", len(cmds))
	}
	vol, ok := cmds[0].(CmdSetMicVolume)
	if !ok || vol.Level != 0.8 {
		t.Fatalf("expected CmdSetMicVolume(0.8), got %v", cmds[0])
	}

	cmds = commandsFor(false, cfg, true)
	if len(cmds) != 2 {
		t.Fatalf("expected volume and sound commands, got %d", len(cmds))
	}
	vol, ok = cmds[0].(CmdSetMicVolume)
	if !ok || vol.Level != 0.1 {
		t.Fatalf("expected CmdSetMicVolume(0.1), got %v", cmds[0])
	}
	snd, ok := cmds[1].(CmdPlaySound)
	if !ok || snd.On {
		t.Fatalf("expected CmdPlaySound(on=false), got %v", cmds[1])
	}
}

// TestCommandsForMuteMode verifies mute mode inverts live into the muted
// flag.
func TestCommandsForMuteMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mic.Mode = modeMute

	cmds := commandsFor(true, cfg, false)
	mute, ok := cmds[0].(CmdSetMicMute)
	if !ok || mute.Muted {
		t.Fatalf("expected CmdSetMicMute(muted=false) while live, got %v", cmds[0])
	}

	cmds = commandsFor(false, cfg, false)
	mute, ok = cmds[0].(CmdSetMicMute)
	if !ok || !mute.Muted {
		t.Fatalf("expected CmdSetMicMute(muted=true) while resting, got %v", cmds[0])
	}
}

// TestReverseMuteMapping verifies reverse in mute mode: holding the chord
// mutes, releasing unmutes.
func TestReverseMuteMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mic.Mode = modeMute
	cfg.Mic.Reverse = true

	held := commandsFor(desiredLive(true, cfg.Mic), cfg, false)
	mute, ok := held[0].(CmdSetMicMute)
	if !ok || !mute.Muted {
		t.Fatalf("expected hold to mute under reverse, got %v", held[0])
	}

	released := commandsFor(desiredLive(false, cfg.Mic), cfg, false)
	mute, ok = released[0].(CmdSetMicMute)
	if !ok || mute.Muted {
		t.Fatalf("expected release to unmute under reverse, got %v", released[0])
	}
}

// TestOffCommandsIgnoreReverse verifies the shutdown resting state is always
// the off action, even for reverse configs that idle live.
func TestOffCommandsIgnoreReverse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mic.Reverse = true
	cfg.Mic.OffLevel = 0.2

	cmds := offCommands(cfg)
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	vol, ok := cmds[0].(CmdSetMicVolume)
	if !ok || vol.Level != 0.2 {
		t.Fatalf("expected CmdSetMicVolume(0.2), got %v", cmds[0])
	}

	cfg.Mic.Mode = modeMute
	cmds = offCommands(cfg)
	mute, ok := cmds[0].(CmdSetMicMute)
	if !ok || !mute.Muted {
		t.Fatalf("expected CmdSetMicMute(muted=true), got %v", cmds[0])
	}
}

// TestWpctlArgs verifies the exact argument forms handed to wpctl.
func TestWpctlArgs(t *testing.T) {
	got := setVolumeArgs(1)
	want := []string{"set-volume", "@DEFAULT_SOURCE@", "1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("setVolumeArgs(1) = %v, want %v", got, want)
		}
	}

	if got := setVolumeArgs(0.35); got[2] != "0.35" {
		t.Errorf("setVolumeArgs(0.35) level = %q, want 0.35", got[2])
	}
	if got := setMuteArgs(true); got[0] != "set-mute" || got[2] != "1" {
		t.Errorf("setMuteArgs(true) = %v", got)
	}
	if got := setMuteArgs(false); got[2] != "0" {
		t.Errorf("setMuteArgs(false) = %v", got)
	}
}

// TestMicCommandErrorUnwraps verifies the error carries its cause for
// errors.Is checks.
func TestMicCommandErrorUnwraps(t *testing.T) {
	cause := errors.New("exit status 1")
	err := MicCommandError{Args: []string{"wpctl", "set-mute"}, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("expected MicCommandError to unwrap to its cause")
	}
}

// TestFindBinLocatesShell verifies PATH lookup works for a binary that is
// present on any Linux system.
func TestFindBinLocatesShell(t *testing.T) {
	if _, err := findBin("sh"); err != nil {
		t.Fatalf("expected to find sh, got %v", err)
	}
	if _, err := findBin("definitely-not-a-real-binary-name"); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
