package diag

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/ystepanoff/mirranode/flash"
	"github.com/ystepanoff/mirranode/kvs"
)

func newLog(t *testing.T, size int, meta kvs.Store) *flash.Log {
	t.Helper()
	p, err := flash.NewPartition("logs", flash.NewMemory(size), Discard())
	if err != nil {
		t.Fatal(err)
	}
	return flash.OpenLog(p, meta, Discard())
}

func TestNew_Level(t *testing.T) {
	var a, b bytes.Buffer
	l := New(slog.LevelWarn, &a, &b)
	l.Info("hidden")
	l.Warn("shown", "k", 1)
	for _, out := range []string{a.String(), b.String()} {
		if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown k=1") {
			t.Errorf("output = %q", out)
		}
	}
}

func TestLevel_Persisted(t *testing.T) {
	tests := []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}
	for _, level := range tests {
		t.Run(level.String(), func(t *testing.T) {
			s := kvs.NewMemory().Namespace("logs")
			if got := LoadLevel(s, slog.LevelInfo); got != slog.LevelInfo {
				t.Errorf("default level = %v", got)
			}
			if err := SaveLevel(s, level); err != nil {
				t.Fatal(err)
			}
			if got := LoadLevel(s, slog.LevelInfo); got != level {
				t.Errorf("LoadLevel() = %v, want %v", got, level)
			}
		})
	}
}

func TestSink_PersistAndDump(t *testing.T) {
	store := kvs.NewMemory()
	meta := store.Namespace("logs")
	var console bytes.Buffer

	sink := Open(newLog(t, flash.SectorSize, meta), meta, &console, slog.LevelInfo)
	sink.Logger.Debug("not stored")
	sink.Logger.Error("LoRa module init failed")
	if err := sink.SetLevel(slog.LevelDebug); err != nil {
		t.Fatal(err)
	}
	sink.Logger.Debug("now stored")
	if err := sink.Flush(); err != nil {
		t.Fatal(err)
	}

	var dump bytes.Buffer
	if _, err := sink.Dump(&dump); err != nil {
		t.Fatal(err)
	}
	if dump.String() != console.String() {
		t.Errorf("dump %q differs from console %q", dump.String(), console.String())
	}
	if strings.Contains(dump.String(), "not stored") || !strings.Contains(dump.String(), "now stored") {
		t.Errorf("dump = %q", dump.String())
	}

	if got := LoadLevel(meta, slog.LevelInfo); got != slog.LevelDebug {
		t.Errorf("level after reboot = %v, want DEBUG", got)
	}
}

func TestDump_Evicted(t *testing.T) {
	l := newLog(t, flash.SectorSize, kvs.NewMemory().Namespace("logs"))
	logger := New(slog.LevelInfo, Persist(l))
	for i := 0; i < 200; i++ {
		logger.Info("sample stored", "round", i)
	}
	var dump bytes.Buffer
	n, err := Dump(l, &dump)
	if err != nil || n != int64(flash.SectorSize) {
		t.Fatalf("Dump() = %d, %v; want full log", n, err)
	}
	if !strings.HasSuffix(dump.String(), "round=199\n") {
		t.Error("newest line missing from full log")
	}
}
