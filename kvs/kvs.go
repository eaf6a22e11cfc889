// Package kvs provides durable storage of small unsigned scalars grouped in
// named namespaces, modelled on the ESP32 NVS API.
//
// Values set on a Store are visible to Get immediately but only survive power
// loss once Commit returns.
package kvs

import (
	"sort"
	"sync"
)

// Store is one namespace of a backend.
type Store interface {
	Get(key string) (uint64, bool)
	Set(key string, value uint64)
	Commit() error
}

// Backend hands out namespaces of one durable store.
type Backend interface {
	Namespace(name string) Store
}

var (
	_ Backend = (*Memory)(nil)
	_ Backend = (*File)(nil)
)

// Uint returns the value stored under key, or def if it is absent.
func Uint(s Store, key string, def uint64) uint64 {
	if v, ok := s.Get(key); ok {
		return v
	}
	return def
}

// table holds committed and pending values of every namespace.
// persist is called with the full committed snapshot after each commit.
type table struct {
	mu        sync.Mutex
	committed map[string]map[string]uint64
	pending   map[string]map[string]uint64
	persist   func(snapshot map[string]map[string]uint64) error
}

func newTable(committed map[string]map[string]uint64) *table {
	if committed == nil {
		committed = make(map[string]map[string]uint64)
	}
	return &table{committed: committed, pending: make(map[string]map[string]uint64)}
}

func (t *table) get(ns, key string) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.pending[ns][key]; ok {
		return v, true
	}
	v, ok := t.committed[ns][key]
	return v, ok
}

func (t *table) set(ns, key string, v uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending[ns] == nil {
		t.pending[ns] = make(map[string]uint64)
	}
	t.pending[ns][key] = v
}

func (t *table) commit(ns string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending[ns]) == 0 {
		return nil
	}
	if t.committed[ns] == nil {
		t.committed[ns] = make(map[string]uint64)
	}
	for k, v := range t.pending[ns] {
		t.committed[ns][k] = v
	}
	delete(t.pending, ns)
	if t.persist == nil {
		return nil
	}
	return t.persist(t.committed)
}

// dropPending forgets every uncommitted value.
func (t *table) dropPending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = make(map[string]map[string]uint64)
}

func (t *table) namespaces() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.committed))
	for name := range t.committed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type namespace struct {
	t    *table
	name string
}

func (n namespace) Get(key string) (uint64, bool) { return n.t.get(n.name, key) }

func (n namespace) Set(key string, v uint64) { n.t.set(n.name, key, v) }

func (n namespace) Commit() error { return n.t.commit(n.name) }
