package kvs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File persists committed namespaces as a YAML document.
// Each commit rewrites the document through a temporary file and rename.
type File struct {
	path string
	t    *table
}

// OpenFile loads path, treating a missing file as an empty store.
func OpenFile(path string) (*File, error) {
	committed := make(map[string]map[string]uint64)
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read kvs: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &committed); err != nil {
			return nil, fmt.Errorf("parse kvs %s: %w", path, err)
		}
	}
	f := &File{path: path, t: newTable(committed)}
	f.t.persist = f.write
	return f, nil
}

func (f *File) Namespace(name string) Store { return namespace{t: f.t, name: name} }

func (f *File) Namespaces() []string { return f.t.namespaces() }

func (f *File) write(snapshot map[string]map[string]uint64) error {
	raw, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode kvs: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("write kvs: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write kvs: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("write kvs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write kvs: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("write kvs: %w", err)
	}
	return nil
}
