package orchestrator

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/caretech-ops/fleetsweep/internal/redact"
)

// Journal log levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// LogEntry is one append-only campaign log record.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Journal is the ordered campaign log. Entries are append-only and pass
// through the redaction filter before storage; snapshots are copies so
// concurrent readers never observe a torn update.
type Journal struct {
	mu      sync.Mutex
	entries []LogEntry
	logger  *logrus.Entry
	now     func() time.Time
}

func NewJournal(logger *logrus.Entry) *Journal {
	return &Journal{logger: logger, now: time.Now}
}

func (j *Journal) append(level, message string) {
	message = redact.Scrub(message)

	j.mu.Lock()
	j.entries = append(j.entries, LogEntry{
		Timestamp: j.now(),
		Level:     level,
		Message:   message,
	})
	j.mu.Unlock()

	if j.logger == nil {
		return
	}

	switch level {
	case LevelWarning:
		j.logger.Warn(message)
	case LevelError:
		j.logger.Error(message)
	default:
		j.logger.Info(message)
	}
}

func (j *Journal) Info(message string)  { j.append(LevelInfo, message) }
func (j *Journal) Warn(message string)  { j.append(LevelWarning, message) }
func (j *Journal) Error(message string) { j.append(LevelError, message) }

// Snapshot returns a copy of the journal entries in append order.
func (j *Journal) Snapshot() []LogEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]LogEntry, len(j.entries))
	copy(out, j.entries)

	return out
}
