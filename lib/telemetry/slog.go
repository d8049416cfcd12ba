package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog replaces the default logger with a text handler on stderr,
// verbose lowers the level to debug.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// Mask hides all but the first `show` characters of a secret so it can be
// logged.
func Mask(secret string, show int) string {
	if secret == "" {
		return "(empty)"
	}
	runes := []rune(secret)
	if show > len(runes) {
		show = len(runes)
	}
	masked := make([]rune, len(runes))
	copy(masked, runes[:show])
	for i := show; i < len(runes); i++ {
		masked[i] = '•'
	}
	return string(masked)
}
