package main

import (
	"context"
	"log/slog"
)

// runEffect executes a single Command against the external world.
//
// Design rules:
//   - This is the only place mic and sound side effects happen.
//   - Failures are logged, never returned: a failed toggle leaves the mic
//     state stale until the next chord edge re-applies it.
//   - Sound dispatch is fire-and-forget and cannot block the caller.
func runEffect(ctx context.Context, mic MicCommander, sounds *SoundPlayer, cmd Command, logger *slog.Logger) {
	switch c := cmd.(type) {
	case CmdSetMicVolume:
		if mic == nil {
			logger.Error("no mic commander, skipping", "command", cmd.String())
			return
		}
		if err := mic.SetVolume(ctx, c.Level); err != nil {
			logger.Error("set-volume failed", "level", c.Level, "error", err)
		}

	case CmdSetMicMute:
		if mic == nil {
			logger.Error("no mic commander, skipping", "command", cmd.String())
			return
		}
		if err := mic.SetMute(ctx, c.Muted); err != nil {
			logger.Error("set-mute failed", "muted", c.Muted, "error", err)
		}

	case CmdPlaySound:
		if sounds == nil {
			return
		}
		sounds.Play(c.On)

	default:
		logger.Warn("unknown command type", "command", cmd.String())
	}
}
