// Package diag builds the diagnostics sink handed to every component: a
// leveled slog logger that can tee into a circular flash log so the node
// keeps its recent history across resets.
package diag

import (
	"io"
	"log/slog"

	"github.com/ystepanoff/mirranode/flash"
	"github.com/ystepanoff/mirranode/kvs"
)

const keyLevel = "level"

// New returns a text logger writing every record to all outputs.
func New(level slog.Leveler, outputs ...io.Writer) *slog.Logger {
	var w io.Writer = io.Discard
	switch len(outputs) {
	case 0:
	case 1:
		w = outputs[0]
	default:
		w = io.MultiWriter(outputs...)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func Discard() *slog.Logger { return New(slog.LevelError, io.Discard) }

// Persist returns a writer appending log lines to l. The oldest lines are
// evicted when the log is full.
func Persist(l *flash.Log) io.Writer { return l.Appender() }

// Dump copies the persisted log to w, oldest line first.
func Dump(l *flash.Log, w io.Writer) (int64, error) {
	buf := make([]byte, 512)
	var total int64
	for off := 0; off < l.Size(); {
		n := l.Read(off, buf)
		m, err := w.Write(buf[:n])
		total += int64(m)
		if err != nil {
			return total, err
		}
		off += n
	}
	return total, nil
}

// LoadLevel returns the level stored in s, or def.
func LoadLevel(s kvs.Store, def slog.Level) slog.Level {
	v, ok := s.Get(keyLevel)
	if !ok {
		return def
	}
	return slog.Level(int64(v))
}

func SaveLevel(s kvs.Store, level slog.Level) error {
	s.Set(keyLevel, uint64(int64(level)))
	return s.Commit()
}

// Sink is a logger persisted into a flash log with a runtime-adjustable level.
type Sink struct {
	Logger *slog.Logger
	Level  *slog.LevelVar

	log  *flash.Log
	meta kvs.Store
}

// Open restores the level from meta (falling back to def) and returns a sink
// writing to console and to log.
func Open(log *flash.Log, meta kvs.Store, console io.Writer, def slog.Level) *Sink {
	lv := new(slog.LevelVar)
	lv.Set(LoadLevel(meta, def))
	return &Sink{
		Logger: New(lv, console, Persist(log)),
		Level:  lv,
		log:    log,
		meta:   meta,
	}
}

// SetLevel changes the level and stores it for the next boot.
func (s *Sink) SetLevel(level slog.Level) error {
	s.Level.Set(level)
	return SaveLevel(s.meta, level)
}

func (s *Sink) Dump(w io.Writer) (int64, error) { return Dump(s.log, w) }

func (s *Sink) Flush() error { return s.log.Flush() }
