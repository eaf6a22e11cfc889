package flash

import (
	"log/slog"
)

// Partition gives circular byte access to one Device through a single
// buffered sector. Reads outside the buffered sector go straight to flash;
// writes outside it flush the buffer and load the target sector first.
//
// Flash errors are logged and the operation abandoned. A Partition is not
// safe for concurrent use.
type Partition struct {
	name    string
	dev     Device
	maxSize int
	log     *slog.Logger

	sectorAddr int
	sector     []byte
	loaded     bool
	dirty      bool
}

func NewPartition(name string, dev Device, logger *slog.Logger) (*Partition, error) {
	size := dev.Size()
	if size <= 0 || size%SectorSize != 0 {
		return nil, ErrPartitionSize
	}
	return &Partition{
		name:    name,
		dev:     dev,
		maxSize: size,
		log:     logger.With("partition", name),
		sector:  make([]byte, SectorSize),
	}, nil
}

func (p *Partition) Name() string { return p.name }
func (p *Partition) MaxSize() int { return p.maxSize }

func sectorOf(address int) int { return address - address%SectorSize }

func (p *Partition) wrap(address int) int {
	address %= p.maxSize
	if address < 0 {
		address += p.maxSize
	}
	return address
}

func (p *Partition) buffered(address int) bool {
	return p.loaded && address >= p.sectorAddr && address < p.sectorAddr+SectorSize
}

// Read copies len(buf) bytes starting at address into buf, wrapping at MaxSize.
func (p *Partition) Read(address int, buf []byte) {
	address = p.wrap(address)
	for len(buf) > 0 {
		var n int
		if p.buffered(address) {
			n = copy(buf, p.sector[address-p.sectorAddr:])
		} else {
			// stop at the buffered sector so it is served from memory
			limit := p.maxSize
			if p.loaded && address < p.sectorAddr {
				limit = p.sectorAddr
			}
			n = min(limit-address, len(buf))
			if err := p.dev.Read(address, buf[:n]); err != nil {
				p.log.Error("flash read failed", "address", address, "len", n, "err", err)
				return
			}
		}
		address = (address + n) % p.maxSize
		buf = buf[n:]
	}
}

// Write stores data at address in the sector buffer, wrapping at MaxSize.
// The bytes are durable only after Flush.
func (p *Partition) Write(address int, data []byte) {
	address = p.wrap(address)
	for len(data) > 0 {
		if !p.buffered(address) {
			p.load(sectorOf(address))
		}
		n := copy(p.sector[address-p.sectorAddr:], data)
		p.dirty = true
		address = (address + n) % p.maxSize
		data = data[n:]
	}
}

// load replaces the buffer with the sector at addr, flushing it first.
func (p *Partition) load(addr int) {
	_ = p.Flush()
	p.sectorAddr = addr
	p.loaded = true
	if err := p.dev.Read(addr, p.sector); err != nil {
		p.log.Error("flash read failed", "sector", addr, "err", err)
	}
}

// Flush erases the buffered sector and programs it from memory if dirty.
// The dirty flag is cleared even when flash fails.
func (p *Partition) Flush() error {
	if !p.dirty {
		return nil
	}
	p.dirty = false
	if err := p.dev.Erase(p.sectorAddr, SectorSize); err != nil {
		p.log.Error("flash erase failed", "sector", p.sectorAddr, "err", err)
		return err
	}
	if err := p.dev.Write(p.sectorAddr, p.sector); err != nil {
		p.log.Error("flash write failed", "sector", p.sectorAddr, "err", err)
		return err
	}
	return nil
}

func (p *Partition) Close() error { return p.Flush() }
