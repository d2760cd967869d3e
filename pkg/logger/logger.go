package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib *log.Logger that writes through base, tagged with a
// component attribute. Used where a library only accepts *log.Logger.
func New(component string, base *slog.Logger) *log.Logger {
	handler := base.With("component", component).Handler()
	return slog.NewLogLogger(handler, slog.LevelError)
}
