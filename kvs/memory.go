package kvs

// Memory is a volatile backend. PowerLoss simulates an unclean reset.
type Memory struct {
	t *table
}

func NewMemory() *Memory { return &Memory{t: newTable(nil)} }

func (m *Memory) Namespace(name string) Store { return namespace{t: m.t, name: name} }

// PowerLoss discards every value that was set but not committed.
func (m *Memory) PowerLoss() { m.t.dropPending() }

// Namespaces lists the namespaces holding committed values.
func (m *Memory) Namespaces() []string { return m.t.namespaces() }
