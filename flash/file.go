package flash

import (
	"bytes"
	"fmt"
	"os"
	"sync"
)

// File is a Device backed by an image file on the host, so simulated
// nodes keep their logs across restarts.
type File struct {
	mu   sync.Mutex
	f    *os.File
	size int
}

// OpenFile opens or creates an image of size bytes. A shorter image is
// extended with erased sectors.
func OpenFile(path string, size int) (*File, error) {
	if size <= 0 || size%SectorSize != 0 {
		return nil, ErrPartitionSize
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open flash image: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat flash image: %w", err)
	}
	if have := int(st.Size()); have < size {
		fill := bytes.Repeat([]byte{erasedByte}, size-have)
		if _, err := f.WriteAt(fill, int64(have)); err != nil {
			f.Close()
			return nil, fmt.Errorf("extend flash image: %w", err)
		}
	}
	return &File{f: f, size: size}, nil
}

func (d *File) Size() int { return d.size }

func (d *File) Read(offset int, p []byte) error {
	if err := checkRange(d.size, offset, len(p)); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.f.ReadAt(p, int64(offset))
	return err
}

func (d *File) Erase(offset, n int) error {
	if err := checkErase(d.size, offset, n); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.f.WriteAt(bytes.Repeat([]byte{erasedByte}, n), int64(offset))
	return err
}

func (d *File) Write(offset int, p []byte) error {
	if err := checkRange(d.size, offset, len(p)); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	cur := make([]byte, len(p))
	if _, err := d.f.ReadAt(cur, int64(offset)); err != nil {
		return err
	}
	for i, b := range p {
		cur[i] &= b
	}
	_, err := d.f.WriteAt(cur, int64(offset))
	return err
}

func (d *File) Sync() error { return d.f.Sync() }

func (d *File) Close() error { return d.f.Close() }
