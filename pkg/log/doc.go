/*
Package log provides structured logging for warpconnect using zerolog.

The package wraps a single global zerolog.Logger with component-scoped child
loggers, configurable level and output format, and a few terse helper
functions for the common cases.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	reconcilerLog := log.WithComponent("reconciler")
	reconcilerLog.Info().Str("container_id", id).Msg("target observed")

	targetLog := log.WithTarget(targetID)
	targetLog.Warn().Err(err).Msg("route install failed, will retry")

Context loggers exist for the identifiers that show up across nearly every
log line in this daemon: WithComponent for the subsystem name, WithTarget
for a target container, WithWarp for a warp peer, WithContainer for a bare
container id when neither role is yet known (e.g. during classification).

# Output

JSONOutput controls JSON (production, one object per line) vs a
human-readable console writer (development). Both include a timestamp.
Level filters below Debug/Info/Warn/Error; there is no separate Fatal
level — callers that need to exit call Fatal() which logs then os.Exit(1)s.
*/
package log
