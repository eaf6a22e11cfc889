package flash

import (
	"errors"
	"io"
	"log/slog"

	"github.com/ystepanoff/mirranode/kvs"
)

const (
	keyHead = "head"
	keyTail = "tail"
	keySize = "size"
)

// Log is a bounded append-and-evict byte log over a Partition. Its extent
// is defined only by the head, tail and size counters kept in a kvs.Store;
// partition bytes outside [tail, head) are garbage.
//
// Push evicts the oldest bytes one for one, so a caller that frames records
// must detect a truncated first record itself.
type Log struct {
	part *Partition
	meta kvs.Store
	log  *slog.Logger

	head, tail, size int
}

// OpenLog restores the counters from meta and preloads the head sector.
// Inconsistent counters are logged and reset to an empty log.
func OpenLog(part *Partition, meta kvs.Store, logger *slog.Logger) *Log {
	l := &Log{part: part, meta: meta, log: logger.With("log", part.Name())}
	limit := uint64(part.MaxSize())
	head := kvs.Uint(meta, keyHead, 0)
	tail := kvs.Uint(meta, keyTail, 0)
	size := kvs.Uint(meta, keySize, 0)
	if head >= limit || tail >= limit || size > limit || (tail+size)%limit != head {
		l.log.Warn("log counters inconsistent, resetting", "head", head, "tail", tail, "size", size)
		head, tail, size = 0, 0, 0
	}
	l.head, l.tail, l.size = int(head), int(tail), int(size)
	part.load(sectorOf(l.head))
	return l
}

func (l *Log) Name() string   { return l.part.Name() }
func (l *Log) Size() int      { return l.size }
func (l *Log) MaxSize() int   { return l.part.MaxSize() }
func (l *Log) FreeSpace() int { return l.MaxSize() - l.size }

// Push appends data, evicting exactly as many of the oldest bytes as needed.
// Data longer than MaxSize keeps only its last MaxSize bytes.
func (l *Log) Push(data []byte) {
	n := len(data)
	if n == 0 {
		return
	}
	limit := l.MaxSize()
	if deficit := n - l.FreeSpace(); deficit > 0 {
		l.tail = (l.tail + deficit) % limit
		l.size -= min(deficit, l.size)
	}
	keep := min(n, limit)
	l.part.Write((l.head+n-keep)%limit, data[n-keep:])
	l.head = (l.head + n) % limit
	l.size += keep
}

// Read copies bytes from logical address (0 is the oldest byte) into buf,
// stopping at Size. It returns the number of bytes read.
func (l *Log) Read(address int, buf []byte) int {
	if address < 0 || address >= l.size {
		return 0
	}
	n := min(len(buf), l.size-address)
	l.part.Read(l.tail+address, buf[:n])
	return n
}

// Write overwrites stored bytes in place from logical address, stopping at
// Size. It returns the number of bytes written.
func (l *Log) Write(address int, data []byte) int {
	if address < 0 || address >= l.size {
		return 0
	}
	n := min(len(data), l.size-address)
	l.part.Write(l.tail+address, data[:n])
	return n
}

// Discard drops up to n of the oldest bytes and returns how many went.
func (l *Log) Discard(n int) int {
	n = min(max(n, 0), l.size)
	l.tail = (l.tail + n) % l.MaxSize()
	l.size -= n
	return n
}

// Flush commits the counters, then flushes the partition.
func (l *Log) Flush() error {
	l.meta.Set(keyHead, uint64(l.head))
	l.meta.Set(keyTail, uint64(l.tail))
	l.meta.Set(keySize, uint64(l.size))
	kerr := l.meta.Commit()
	if kerr != nil {
		l.log.Error("commit log counters failed", "err", kerr)
	}
	return errors.Join(kerr, l.part.Flush())
}

func (l *Log) Close() error { return l.Flush() }

// Appender returns a writer that pushes every write onto the log.
func (l *Log) Appender() io.Writer { return appender{l} }

type appender struct{ l *Log }

func (a appender) Write(p []byte) (int, error) {
	a.l.Push(p)
	return len(p), nil
}
