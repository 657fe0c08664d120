package common

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/GiGurra/boa/pkg/boa"
)

func DefaultParamEnricher() boa.ParamEnricher {
	return boa.ParamEnricherCombine(
		boa.ParamEnricherBool,
		boa.ParamEnricherName,
		boa.ParamEnricherShort,
	)
}

// LogPath returns the path to the aegis log file (~/.aegis/aegis.log).
func LogPath() string {
	dir := AppDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "aegis.log")
}

// SetupLogging configures slog to write to stderr and ~/.aegis/aegis.log.
// Verbose lowers the level to debug; otherwise only warnings and errors are kept.
// Interactive commands pass quietStderr so log lines don't tear the terminal UI.
func SetupLogging(verbose, quietStderr bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	var writers []io.Writer
	if !quietStderr {
		writers = append(writers, os.Stderr)
	}

	if logPath := LogPath(); logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err == nil {
			logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err == nil {
				writers = append(writers, logFile)
			}
		}
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
