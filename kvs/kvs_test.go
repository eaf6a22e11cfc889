package kvs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemory_CommitSurvivesPowerLoss(t *testing.T) {
	m := NewMemory()
	s := m.Namespace("logs")

	s.Set("head", 10)
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	s.Set("head", 20)
	if got := Uint(s, "head", 0); got != 20 {
		t.Errorf("pending value not visible: got %d", got)
	}

	m.PowerLoss()
	if got := Uint(s, "head", 0); got != 10 {
		t.Errorf("after power loss got %d, want committed 10", got)
	}
}

func TestMemory_NamespacesIsolated(t *testing.T) {
	m := NewMemory()
	a, b := m.Namespace("a"), m.Namespace("b")
	a.Set("k", 1)
	_ = a.Commit()

	if _, ok := b.Get("k"); ok {
		t.Error("namespace b sees key from a")
	}
	b.Set("k", 2)
	m.PowerLoss()
	if _, ok := b.Get("k"); ok {
		t.Error("uncommitted key in b survived power loss")
	}
	if names := m.Namespaces(); len(names) != 1 || names[0] != "a" {
		t.Errorf("Namespaces() = %v", names)
	}
}

func TestUint_Default(t *testing.T) {
	if got := Uint(NewMemory().Namespace("x"), "missing", 7); got != 7 {
		t.Errorf("Uint() = %d, want 7", got)
	}
}

func TestFile_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvs.yaml")

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	s := f.Namespace("logs")
	s.Set("head", 4096)
	s.Set("size", 12)
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	s.Set("tail", 99) // never committed

	g, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	r := g.Namespace("logs")
	tests := []struct {
		key  string
		want uint64
		ok   bool
	}{
		{"head", 4096, true},
		{"size", 12, true},
		{"tail", 0, false},
	}
	for _, tt := range tests {
		got, ok := r.Get(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Get(%q) = %d, %v; want %d, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvs.yaml")
	if err := os.WriteFile(path, []byte("logs: [not, a, map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Error("OpenFile() accepted malformed document")
	}
}
