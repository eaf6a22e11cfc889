// Package flash implements NOR flash storage for sensor data: raw devices,
// a sector-cached Partition and a circular Log whose counters live in kvs.
package flash

import (
	"errors"
	"fmt"
)

// SectorSize is the erase granularity of every Device.
const SectorSize = 4096

const erasedByte = 0xFF

var (
	ErrOutOfRange    = errors.New("flash: access out of range")
	ErrUnaligned     = errors.New("flash: erase not sector aligned")
	ErrPartitionSize = errors.New("flash: partition size must be a positive multiple of the sector size")
)

// Device is raw NOR flash. Erase sets whole sectors to 0xFF; Write can only
// clear bits, so a region must be erased before it is rewritten.
type Device interface {
	Size() int
	Read(offset int, p []byte) error
	Erase(offset, n int) error
	Write(offset int, p []byte) error
}

func checkRange(size, offset, n int) error {
	if offset < 0 || n < 0 || offset+n > size {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, offset, offset+n, size)
	}
	return nil
}

func checkErase(size, offset, n int) error {
	if err := checkRange(size, offset, n); err != nil {
		return err
	}
	if offset%SectorSize != 0 || n%SectorSize != 0 {
		return ErrUnaligned
	}
	return nil
}

// Region names a slice of a device in a partition table.
type Region struct {
	Name string
	Size int
}

type subDevice struct {
	dev    Device
	offset int
	size   int
}

// Sub returns the window [offset, offset+size) of dev as its own Device.
func Sub(dev Device, offset, size int) (Device, error) {
	if size <= 0 || size%SectorSize != 0 {
		return nil, ErrPartitionSize
	}
	if err := checkErase(dev.Size(), offset, size); err != nil {
		return nil, err
	}
	return &subDevice{dev: dev, offset: offset, size: size}, nil
}

func (s *subDevice) Size() int { return s.size }

func (s *subDevice) Read(offset int, p []byte) error {
	if err := checkRange(s.size, offset, len(p)); err != nil {
		return err
	}
	return s.dev.Read(s.offset+offset, p)
}

func (s *subDevice) Erase(offset, n int) error {
	if err := checkErase(s.size, offset, n); err != nil {
		return err
	}
	return s.dev.Erase(s.offset+offset, n)
}

func (s *subDevice) Write(offset int, p []byte) error {
	if err := checkRange(s.size, offset, len(p)); err != nil {
		return err
	}
	return s.dev.Write(s.offset+offset, p)
}

// Layout carves dev into consecutive regions starting at offset 0.
func Layout(dev Device, regions []Region) (map[string]Device, error) {
	out := make(map[string]Device, len(regions))
	offset := 0
	for _, r := range regions {
		if _, dup := out[r.Name]; dup {
			return nil, fmt.Errorf("flash: duplicate region %q", r.Name)
		}
		sub, err := Sub(dev, offset, r.Size)
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", r.Name, err)
		}
		out[r.Name] = sub
		offset += r.Size
	}
	return out, nil
}
