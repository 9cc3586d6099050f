package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a Buffered ring-buffer entry.
type Level int

const (
	LevelDebug Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

type entry struct {
	at      time.Time
	level   Level
	message string
}

// Buffered is a Logger that keeps the last max formatted lines in
// memory, regardless of any backing file, so a running server can serve
// them back over RPC (the demo "logs" method): a daemon with no
// attached terminal still needs a way to hand its own recent history
// back to a client.
type Buffered struct {
	mu      sync.Mutex
	entries []entry
	max     int
	next    Logger // optional downstream sink (e.g. a Charm logger)
}

// NewBuffered creates a ring buffer holding up to max entries, optionally
// forwarding every message to next as well (nil disables forwarding).
func NewBuffered(max int, next Logger) *Buffered {
	if max <= 0 {
		max = 1000
	}
	return &Buffered{max: max, next: next}
}

func (b *Buffered) record(level Level, format string, args ...interface{}) {
	b.mu.Lock()
	if len(b.entries) >= b.max {
		b.entries = b.entries[1:]
	}
	b.entries = append(b.entries, entry{at: time.Now(), level: level, message: fmt.Sprintf(format, args...)})
	b.mu.Unlock()
}

func (b *Buffered) Debugf(format string, args ...interface{}) {
	b.record(LevelDebug, format, args...)
	if b.next != nil {
		b.next.Debugf(format, args...)
	}
}

func (b *Buffered) Warnf(format string, args ...interface{}) {
	b.record(LevelWarn, format, args...)
	if b.next != nil {
		b.next.Warnf(format, args...)
	}
}

func (b *Buffered) Errorf(format string, args ...interface{}) {
	b.record(LevelError, format, args...)
	if b.next != nil {
		b.next.Errorf(format, args...)
	}
}

// GetLogs renders every entry at or above minLevel, oldest first.
func (b *Buffered) GetLogs(minLevel Level) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var lines []string
	for _, e := range b.entries {
		if e.level >= minLevel {
			lines = append(lines, fmt.Sprintf("[%s] [%s] %s", e.at.Format("2006-01-02 15:04:05.000"), e.level, e.message))
		}
	}
	return strings.Join(lines, "\n")
}
