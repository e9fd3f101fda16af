package main

import "fmt"

// Command represents an external side effect requested by the chord state
// machine and executed by the daemon loop via runEffect. Computing commands
// stays pure; only runEffect touches the outside world.
type Command interface {
	commandMarker()
	String() string
}

// CmdSetMicVolume sets the default capture source volume.
type CmdSetMicVolume struct {
	Level float64
}

func (CmdSetMicVolume) commandMarker() {}
func (c CmdSetMicVolume) String() string {
	return fmt.Sprintf("CmdSetMicVolume(level=%.2f)", c.Level)
}

// CmdSetMicMute sets the default capture source mute flag.
type CmdSetMicMute struct {
	Muted bool
}

func (CmdSetMicMute) commandMarker() {}
func (c CmdSetMicMute) String() string {
	return fmt.Sprintf("CmdSetMicMute(muted=%v)", c.Muted)
}

// CmdPlaySound plays the transition sound for the new mic state.
type CmdPlaySound struct {
	On bool
}

func (CmdPlaySound) commandMarker() {}
func (c CmdPlaySound) String() string {
	return fmt.Sprintf("CmdPlaySound(on=%v)", c.On)
}

// desiredLive maps a chord state to the wanted mic state. reverse swaps the
// mapping uniformly, turning push-to-talk into push-to-mute.
func desiredLive(engaged bool, mic MicConfig) bool {
	if mic.Reverse {
		return !engaged
	}
	return engaged
}

// commandsFor computes the commands that bring the mic to the desired state.
// withSound adds the transition sound; startup and shutdown applications
// stay silent.
func commandsFor(live bool, cfg *Config, withSound bool) []Command {
	var cmds []Command
	switch cfg.Mic.Mode {
	case modeMute:
		cmds = append(cmds, CmdSetMicMute{Muted: !live})
	default:
		level := cfg.Mic.OffLevel
		if live {
			level = cfg.Mic.OnLevel
		}
		cmds = append(cmds, CmdSetMicVolume{Level: level})
	}
	if withSound && cfg.Sounds.Enabled {
		cmds = append(cmds, CmdPlaySound{On: live})
	}
	return cmds
}

// offCommands is the unconditional safe resting state applied on shutdown:
// volume to off level, or muted, regardless of reverse.
func offCommands(cfg *Config) []Command {
	switch cfg.Mic.Mode {
	case modeMute:
		return []Command{CmdSetMicMute{Muted: true}}
	default:
		return []Command{CmdSetMicVolume{Level: cfg.Mic.OffLevel}}
	}
}
