package node

import (
	"log/slog"

	"github.com/sigurn/crc8"

	"github.com/ystepanoff/mirranode/flash"
	proto "github.com/ystepanoff/mirranode/protocol"
)

// On-flash record layout:
//
//	[magic:1][flags:1][len:1][payload:len][crc8:1]
//
// The checksum covers len and payload so the flags byte can be rewritten
// in place.
const (
	recordMagic    = 0xA5
	recordOverhead = 4

	flagUploaded = 0x01
)

var recordCRC = crc8.MakeTable(crc8.CRC8_MAXIM)

// Record is one stored SensorData payload.
type Record struct {
	// Offset is the logical log address of the record's magic byte.
	Offset   int
	Uploaded bool
	Data     proto.SensorData
}

// Store keeps SensorData records in a circular flash log.
//
// The log evicts whole bytes rather than records, so the oldest record may
// be cut. Scans resynchronise on the next intact record and report the
// skipped bytes.
type Store struct {
	log    *flash.Log
	logger *slog.Logger
}

func NewStore(l *flash.Log, logger *slog.Logger) *Store {
	return &Store{log: l, logger: logger.With("store", l.Name())}
}

// Append frames d and pushes it onto the log. Bytes are durable after Flush.
func (s *Store) Append(d proto.SensorData) error {
	payload, err := d.MarshalBinary()
	if err != nil {
		return err
	}
	rec := make([]byte, 0, recordOverhead+len(payload))
	rec = append(rec, recordMagic, 0, byte(len(payload)))
	rec = append(rec, payload...)
	rec = append(rec, crc8.Checksum(rec[2:], recordCRC))
	s.log.Push(rec)
	return nil
}

// Scan calls fn for every intact record, oldest first, until fn returns
// false. It returns the number of bytes that did not belong to any record.
func (s *Store) Scan(fn func(Record) bool) (skipped int) {
	size := s.log.Size()
	buf := make([]byte, recordOverhead+255)
	for off := 0; off+recordOverhead <= size; {
		rec, n := s.decode(off, buf)
		if n == 0 {
			off++
			skipped++
			continue
		}
		if !fn(rec) {
			break
		}
		off += n
	}
	if skipped > 0 {
		s.logger.Warn("skipped bytes outside intact records", "bytes", skipped)
	}
	return skipped
}

// decode parses the record at off, returning its length or 0 if none starts there.
func (s *Store) decode(off int, buf []byte) (Record, int) {
	if s.log.Read(off, buf[:3]) != 3 || buf[0] != recordMagic {
		return Record{}, 0
	}
	n := recordOverhead + int(buf[2])
	if s.log.Read(off, buf[:n]) != n {
		return Record{}, 0
	}
	if crc8.Checksum(buf[2:n-1], recordCRC) != buf[n-1] {
		return Record{}, 0
	}
	data, err := proto.UnmarshalSensorData(buf[3 : n-1])
	if err != nil {
		return Record{}, 0
	}
	return Record{Offset: off, Uploaded: buf[1]&flagUploaded != 0, Data: data}, n
}

// Records returns every intact record.
func (s *Store) Records() []Record {
	var out []Record
	s.Scan(func(r Record) bool {
		out = append(out, r)
		return true
	})
	return out
}

// Pending returns up to limit records not yet uploaded; limit <= 0 means all.
func (s *Store) Pending(limit int) []Record {
	var out []Record
	s.Scan(func(r Record) bool {
		if !r.Uploaded {
			out = append(out, r)
		}
		return limit <= 0 || len(out) < limit
	})
	return out
}

// MarkUploaded sets the uploaded flag of r in place.
func (s *Store) MarkUploaded(r Record) bool {
	var flags [1]byte
	if s.log.Read(r.Offset+1, flags[:]) != 1 {
		return false
	}
	flags[0] |= flagUploaded
	return s.log.Write(r.Offset+1, flags[:]) == 1
}

// Prune drops the oldest records until at most maxBytes remain and returns
// the number of bytes dropped.
func (s *Store) Prune(maxBytes int) int {
	size := s.log.Size()
	if size <= maxBytes {
		return 0
	}
	cut := size
	s.Scan(func(r Record) bool {
		if size-r.Offset <= maxBytes {
			cut = r.Offset
			return false
		}
		return true
	})
	dropped := s.log.Discard(cut)
	s.logger.Info("pruned sensor data", "bytes", dropped, "remaining", s.log.Size())
	return dropped
}

func (s *Store) Size() int { return s.log.Size() }

func (s *Store) Flush() error { return s.log.Flush() }
