package transport

import (
	"errors"
	"time"

	"github.com/ystepanoff/mirranode/power"
	proto "github.com/ystepanoff/mirranode/protocol"
)

// ReceiveOptions parameterise a multi-window receive.
type ReceiveOptions struct {
	// Timeout is split into RepeatAttempts+1 equal windows.
	Timeout        time.Duration
	RepeatAttempts int
	// Source restricts accepted senders; Broadcast accepts anyone.
	Source proto.Address
	// Listen extends every window, covering the peer's own send delay.
	Listen time.Duration
	// Promiscuous accepts messages addressed to other nodes.
	Promiscuous bool
}

// Receive waits for a valid message of type t. Between windows a Repeat is sent
// to opts.Source (or to the last destination while Source is Broadcast).
// Returns protocol.ErrTimeout once every window has expired.
func (m *Messenger) Receive(t proto.MessageType, opts ReceiveOptions) (*proto.Message, error) {
	return m.receive(opts, proto.Size(t), func(msg *proto.Message) bool {
		return msg.IsType(t) && msg.Valid()
	})
}

// ReceiveFunc is Receive with a caller-supplied acceptance predicate.
// Repeat requests are always handled by the Messenger and never reach accept.
func (m *Messenger) ReceiveFunc(opts ReceiveOptions, accept func(*proto.Message) bool) (*proto.Message, error) {
	return m.receive(opts, proto.MaxMessageSize, accept)
}

func (m *Messenger) receive(opts ReceiveOptions, limit int, accept func(*proto.Message) bool) (*proto.Message, error) {
	attempts := max(opts.RepeatAttempts, 0)
	window := opts.Timeout / time.Duration(attempts+1)
	remaining := window
	buf := make([]byte, limit)

	for {
		expired := true
		if remaining+opts.Listen > 0 {
			start := m.sleeper.Now()
			cause := m.wait(remaining+opts.Listen, nil)
			if cause == power.CauseRadio {
				remaining -= m.sleeper.Now().Sub(start)
				if msg := m.readMessage(buf); msg != nil {
					if m.filter(msg, opts) {
						if msg.IsType(proto.TypeRepeat) {
							if m.handleRepeat(msg) {
								remaining = window
							}
						} else if accept(msg) {
							return msg, nil
						} else {
							m.log.Debug("discarding message", "type", msg.Type, "source", msg.Source)
						}
					}
				}
				expired = remaining+opts.Listen <= 0
			}
		}
		if !expired {
			continue
		}

		if attempts == 0 {
			m.standby()
			return nil, proto.ErrTimeout
		}
		dest := opts.Source
		if dest.IsBroadcast() {
			dest = m.last.dest
		}
		_ = m.sendRepeat(dest)
		attempts--
		remaining = window
	}
}

// Listen waits up to timeout for a valid message of type t. An edge on wake ends
// the wait early with protocol.ErrInterrupted. No Repeat logic is applied.
func (m *Messenger) Listen(t proto.MessageType, timeout time.Duration, wake <-chan struct{}) (*proto.Message, error) {
	remaining := timeout
	buf := make([]byte, proto.Size(t))

	for remaining > 0 {
		start := m.sleeper.Now()
		cause := m.wait(remaining, wake)
		remaining -= m.sleeper.Now().Sub(start)

		switch cause {
		case power.CauseRadio:
			if msg := m.readMessage(buf); msg != nil && msg.IsType(t) && msg.Valid() {
				return msg, nil
			}
		case power.CauseExternal:
			m.log.Debug("listen interrupted by external wake")
			m.standby()
			return nil, proto.ErrInterrupted
		default:
			remaining = 0
		}
	}
	m.standby()
	return nil, proto.ErrTimeout
}

// wait puts the radio in receive mode and sleeps until data is ready, the timer
// fires, or ext (if non-nil) is raised.
func (m *Messenger) wait(d time.Duration, ext <-chan struct{}) power.Cause {
	irq := m.driver.Interrupt()
	power.Drain(irq)
	if err := m.driver.StartReceive(); err != nil {
		m.log.Error("start receive failed", "err", err)
	}
	return m.sleeper.Sleep(power.Wake{Radio: irq, External: ext, Timer: d})
}

func (m *Messenger) readMessage(buf []byte) *proto.Message {
	n, err := m.driver.ReadData(buf)
	if err != nil {
		if errors.Is(err, proto.ErrCRCMismatch) {
			m.log.Warn("CRC mismatch, discarding frame")
		} else {
			m.log.Error("read failed", "err", err)
		}
		return nil
	}
	msg := proto.Decode(buf[:n])
	if msg == nil {
		m.log.Debug("discarding malformed frame", "bytes", n)
	}
	return msg
}

// filter applies the sender and addressee checks.
func (m *Messenger) filter(msg *proto.Message, opts ReceiveOptions) bool {
	if !opts.Source.IsBroadcast() && msg.Source != opts.Source {
		m.log.Debug("message from unexpected source", "source", msg.Source, "want", opts.Source)
		return false
	}
	if !opts.Promiscuous && msg.Dest != m.addr && !msg.Dest.IsBroadcast() {
		m.log.Debug("message for another node", "dest", msg.Dest)
		return false
	}
	return true
}

// handleRepeat resends the last-sent slot if msg comes from its destination.
func (m *Messenger) handleRepeat(msg *proto.Message) bool {
	if msg.Source != m.last.dest {
		m.log.Debug("ignoring REPEAT for another exchange", "source", msg.Source)
		return false
	}
	_ = m.Resend()
	return true
}

func (m *Messenger) standby() {
	if err := m.driver.Standby(); err != nil {
		m.log.Warn("standby failed", "err", err)
	}
}
