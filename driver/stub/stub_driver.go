//go:build !tinygo && !baremetal

package stub

import (
	"errors"
	"sync"

	"github.com/sigurn/crc8"

	"github.com/ystepanoff/mirranode/power"
	proto "github.com/ystepanoff/mirranode/protocol"
	"github.com/ystepanoff/mirranode/transport"
)

var (
	ErrNotConfigured = errors.New("stub radio: Begin not called")
	ErrBadConfig     = errors.New("stub radio: modulation parameters out of range")
)

// crcTable models the LoRa PHY payload CRC carried after every frame on air.
var crcTable = crc8.MakeTable(crc8.CRC8_MAXIM)

// Driver implements a simulated half-duplex radio for host-side runs and tests.
// Frames sent by one Driver reach every other Driver attached to the same Air.
type Driver struct {
	mu         sync.Mutex
	air        *Air
	irq        chan struct{}
	configured bool
	receiving  bool
	rxBuf      ringBuffer
	txBuf      ringBuffer
	onTx       func([]byte)
}

func New() *Driver { return &Driver{irq: make(chan struct{}, 1)} }

var _ transport.RadioDriver = (*Driver)(nil)

func (d *Driver) Begin(cfg transport.RadioConfig) error {
	if cfg.SpreadingFactor < 6 || cfg.SpreadingFactor > 12 ||
		cfg.CodingRate < 5 || cfg.CodingRate > 8 ||
		cfg.FrequencyMHz <= 0 || cfg.BandwidthKHz <= 0 {
		return ErrBadConfig
	}
	d.mu.Lock()
	d.configured = true
	d.mu.Unlock()
	return nil
}

func (d *Driver) StartTransmit(data []byte) error {
	d.mu.Lock()
	if !d.configured {
		d.mu.Unlock()
		return ErrNotConfigured
	}
	if len(data) > proto.MaxMessageSize {
		d.mu.Unlock()
		return proto.ErrInvalidPayload
	}
	frame := make([]byte, len(data)+1)
	copy(frame, data)
	frame[len(data)] = crc8.Checksum(data, crcTable)
	d.receiving = false
	d.rxBuf.reset()
	d.txBuf.push(frame)
	hook, air := d.onTx, d.air
	d.mu.Unlock()

	if air != nil {
		air.deliver(d, frame)
	}
	if hook != nil {
		hook(append([]byte(nil), data...))
	}
	power.Signal(d.irq)
	return nil
}

func (d *Driver) FinishTransmit() error { return nil }

func (d *Driver) StartReceive() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.configured {
		return ErrNotConfigured
	}
	d.receiving = true
	if d.rxBuf.count > 0 {
		power.Signal(d.irq)
	}
	return nil
}

// ReadData pops the oldest received frame and verifies its CRC trailer.
func (d *Driver) ReadData(buf []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	frame, ok := d.rxBuf.pop()
	if d.receiving && d.rxBuf.count > 0 {
		power.Signal(d.irq)
	}
	if !ok {
		return 0, proto.ErrTimeout
	}
	if len(frame) < 1 {
		return 0, proto.ErrCRCMismatch
	}
	body, sum := frame[:len(frame)-1], frame[len(frame)-1]
	if crc8.Checksum(body, crcTable) != sum {
		return 0, proto.ErrCRCMismatch
	}
	return copy(buf, body), nil
}

// Standby leaves receive mode and discards frames not yet read.
func (d *Driver) Standby() error {
	d.mu.Lock()
	d.receiving = false
	d.rxBuf.reset()
	d.mu.Unlock()
	return nil
}

func (d *Driver) Interrupt() <-chan struct{} { return d.irq }

// OnTransmit registers a hook called with every transmitted message (without CRC).
func (d *Driver) OnTransmit(fn func([]byte)) {
	d.mu.Lock()
	d.onTx = fn
	d.mu.Unlock()
}

// InjectRx queues data as if it had been received intact. Like a half-duplex
// radio, the driver only hears frames while in receive mode.
func (d *Driver) InjectRx(data []byte) {
	frame := make([]byte, len(data)+1)
	copy(frame, data)
	frame[len(data)] = crc8.Checksum(data, crcTable)
	d.receiveFrame(frame)
}

// InjectCorrupt queues data with a damaged CRC trailer.
func (d *Driver) InjectCorrupt(data []byte) {
	frame := make([]byte, len(data)+1)
	copy(frame, data)
	frame[len(data)] = ^crc8.Checksum(data, crcTable)
	d.receiveFrame(frame)
}

// receiveFrame drops frames arriving outside receive mode.
func (d *Driver) receiveFrame(frame []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.receiving {
		return
	}
	d.rxBuf.push(frame)
	power.Signal(d.irq)
}

// GetTxLog returns the transmitted messages, oldest first, without CRC trailers.
func (d *Driver) GetTxLog() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	frames := d.txBuf.snapshot()
	for i, f := range frames {
		frames[i] = f[:len(f)-1]
	}
	return frames
}

const ringCapacity = 64

type ringBuffer struct {
	data       [ringCapacity][]byte
	head, tail int // head = next pop, tail = next push
	count      int
}

func (rb *ringBuffer) push(frame []byte) {
	if rb.count == ringCapacity {
		// Overwrite the oldest when buffer is full to keep memory bounded
		rb.data[rb.tail] = nil
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = frame
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) pop() ([]byte, bool) {
	if rb.count == 0 {
		return nil, false
	}
	frame := rb.data[rb.head]
	rb.data[rb.head] = nil
	rb.head = (rb.head + 1) % ringCapacity
	rb.count--
	return frame, true
}

func (rb *ringBuffer) reset() {
	for rb.count > 0 {
		rb.pop()
	}
}

func (rb *ringBuffer) snapshot() [][]byte {
	out := make([][]byte, rb.count)
	idx := 0
	i := rb.head
	for c := 0; c < rb.count; c++ {
		p := rb.data[i]
		cp := make([]byte, len(p))
		copy(cp, p)
		out[idx] = cp
		idx++
		i = (i + 1) % ringCapacity
	}
	return out
}
