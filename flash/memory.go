package flash

import "sync"

type Op uint8

const (
	OpRead Op = iota
	OpErase
	OpWrite
)

// Stats counts completed operations.
type Stats struct {
	Reads, Erases, Writes int
}

// Memory is a RAM-backed Device with NOR semantics and fault injection.
type Memory struct {
	mu    sync.Mutex
	data  []byte
	stats Stats
	fail  map[Op]error
}

func NewMemory(size int) *Memory {
	m := &Memory{data: make([]byte, size), fail: make(map[Op]error)}
	for i := range m.data {
		m.data[i] = erasedByte
	}
	return m
}

func (m *Memory) Size() int { return len(m.data) }

// FailNext makes the next op of the given kind return err without
// touching the contents.
func (m *Memory) FailNext(op Op, err error) {
	m.mu.Lock()
	m.fail[op] = err
	m.mu.Unlock()
}

func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Bytes returns a copy of the raw contents.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

func (m *Memory) injected(op Op) error {
	err := m.fail[op]
	delete(m.fail, op)
	return err
}

func (m *Memory) Read(offset int, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkRange(len(m.data), offset, len(p)); err != nil {
		return err
	}
	if err := m.injected(OpRead); err != nil {
		return err
	}
	copy(p, m.data[offset:])
	m.stats.Reads++
	return nil
}

func (m *Memory) Erase(offset, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkErase(len(m.data), offset, n); err != nil {
		return err
	}
	if err := m.injected(OpErase); err != nil {
		return err
	}
	for i := offset; i < offset+n; i++ {
		m.data[i] = erasedByte
	}
	m.stats.Erases++
	return nil
}

func (m *Memory) Write(offset int, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkRange(len(m.data), offset, len(p)); err != nil {
		return err
	}
	if err := m.injected(OpWrite); err != nil {
		return err
	}
	for i, b := range p {
		m.data[offset+i] &= b
	}
	m.stats.Writes++
	return nil
}
