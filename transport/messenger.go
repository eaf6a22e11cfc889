package transport

import (
	"log/slog"
	"time"

	"github.com/ystepanoff/mirranode/power"
	proto "github.com/ystepanoff/mirranode/protocol"
)

// DefaultTxTimeout bounds the wait for the transmit-complete interrupt.
const DefaultTxTimeout = 2 * time.Second

// Messenger sends and receives framed messages over a single-channel half-duplex
// radio, sleeping between radio events. It is not safe for concurrent use.
type Messenger struct {
	addr      proto.Address
	driver    RadioDriver
	sleeper   power.Sleeper
	log       *slog.Logger
	txTimeout time.Duration

	last lastSent
}

// lastSent is the copy of the most recent transmission kept for Repeat requests.
type lastSent struct {
	dest proto.Address
	buf  [proto.MaxMessageSize]byte
	n    int
}

func NewMessengerWithDriver(addr proto.Address, d RadioDriver, s power.Sleeper, logger *slog.Logger) *Messenger {
	return &Messenger{
		addr:      addr,
		driver:    d,
		sleeper:   s,
		log:       logger.With("component", "lora"),
		txTimeout: DefaultTxTimeout,
		last:      lastSent{dest: proto.Broadcast},
	}
}

// Initialise configures the radio. A failure is logged and returned, but the
// Messenger stays usable: later sends and receives fail through timeouts.
func (m *Messenger) Initialise(cfg RadioConfig) error {
	if err := m.driver.Begin(cfg); err != nil {
		m.log.Error("LoRa module init failed", "err", err)
		return err
	}
	m.log.Debug("LoRa init successful", "address", m.addr)
	return nil
}

func (m *Messenger) SetTxTimeout(d time.Duration) {
	if d > 0 {
		m.txTimeout = d
	}
}

func (m *Messenger) Address() proto.Address { return m.addr }

// LastDest returns the destination of the last sent message, or Broadcast.
func (m *Messenger) LastDest() proto.Address { return m.last.dest }

// Send stores msg in the last-sent slot and transmits it. A positive delay sleeps
// before transmitting to stagger channel access.
func (m *Messenger) Send(msg *proto.Message, delay time.Duration) error {
	if msg == nil || msg.Len() > proto.MaxMessageSize {
		return proto.ErrInvalidPayload
	}
	m.last.n = proto.EncodeTo(m.last.buf[:], msg)
	m.last.dest = msg.Dest

	if delay > 0 {
		m.sleeper.Sleep(power.Wake{Timer: delay})
	}
	m.log.Debug("sending message", "type", msg.Type, "dest", msg.Dest)
	return m.sendPacket(m.last.buf[:m.last.n])
}

// Resend retransmits the last-sent slot verbatim.
func (m *Messenger) Resend() error {
	if m.last.n == 0 {
		m.log.Error("could not repeat last sent message because no message has been sent yet")
		return proto.ErrNothingSent
	}
	m.log.Debug("resending last sent message", "dest", m.last.dest)
	return m.sendPacket(m.last.buf[:m.last.n])
}

func (m *Messenger) sendRepeat(dest proto.Address) error {
	m.log.Debug("sending REPEAT message", "dest", dest)
	return m.sendPacket(proto.Encode(proto.NewControl(proto.TypeRepeat, m.addr, dest)))
}

// sendPacket starts a transmission and sleeps until the radio reports completion.
// The transmit session is always closed afterwards.
func (m *Messenger) sendPacket(data []byte) error {
	irq := m.driver.Interrupt()
	power.Drain(irq)

	if err := m.driver.StartTransmit(data); err != nil {
		m.log.Error("send failed", "err", err)
		m.finishTransmit()
		return err
	}

	if cause := m.sleeper.Sleep(power.Wake{Radio: irq, Timer: m.txTimeout}); cause != power.CauseRadio {
		m.log.Error("transmit did not complete", "cause", cause, "timeout", m.txTimeout)
		m.finishTransmit()
		return proto.ErrTimeout
	}
	m.log.Debug("packet sent", "bytes", len(data))
	m.finishTransmit()
	return nil
}

func (m *Messenger) finishTransmit() {
	if err := m.driver.FinishTransmit(); err != nil {
		m.log.Warn("finish transmit failed", "err", err)
	}
}
