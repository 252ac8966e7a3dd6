// Package logging builds the charmbracelet loggers shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

const DefaultLevel = "warn"

// New creates a [log.Logger] writing to w with timestamps enabled.
//
// The writer defaults to [os.Stderr] and an empty level to [DefaultLevel].
func New(w io.Writer, level string) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	if strings.TrimSpace(level) == "" {
		level = DefaultLevel
	}

	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
		Prefix:          "snip",
	}), nil
}

// Component returns a child logger tagged with the component name.
func Component(l *log.Logger, name string) *log.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With("component", name)
}

// Discard returns a logger that drops everything; constructors fall back to it when given nil.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
