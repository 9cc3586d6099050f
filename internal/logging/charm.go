package logging

import (
	"io"

	charm "github.com/charmbracelet/log"
)

// Charm adapts charmbracelet/log to the Logger interface, giving the
// demo binaries structured, leveled output: color, field support, and a
// real leveling system in place of hand-formatted log lines.
type Charm struct {
	l *charm.Logger
}

// NewCharm builds a Charm logger writing to w with the given minimum
// level (a charm.Level such as charm.InfoLevel or charm.WarnLevel).
func NewCharm(w io.Writer, level charm.Level) *Charm {
	l := charm.NewWithOptions(w, charm.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05.000",
	})
	l.SetLevel(level)
	return &Charm{l: l}
}

func (c *Charm) Debugf(format string, args ...interface{}) { c.l.Debugf(format, args...) }
func (c *Charm) Warnf(format string, args ...interface{})  { c.l.Warnf(format, args...) }
func (c *Charm) Errorf(format string, args ...interface{}) { c.l.Errorf(format, args...) }
