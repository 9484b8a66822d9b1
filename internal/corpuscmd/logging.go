// Package corpuscmd implements the pubmedcorpus subcommands.
package corpuscmd

import (
	"io"
	"log/slog"
)

// SetupLogging installs a text slog handler on w as the default logger.
func SetupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
