package protocol

// Message is a fixed-layout record exchanged over the radio link.
// Layout: Type(1) | Source(6) | Destination(6) | Payload(fixed width for Type)
type Message struct {
	Type    MessageType
	Source  Address
	Dest    Address
	Payload []byte
}

// layout describes the payload width and validity predicate of a message type.
type layout struct {
	size  int
	valid func(payload []byte) bool
}

func always([]byte) bool { return true }

var layouts = map[MessageType]layout{
	TypeHello:      {size: 0, valid: always},
	TypeTimeConfig: {size: timeConfigSize, valid: validTimeConfig},
	TypeAckTime:    {size: 0, valid: always},
	TypeSensorData: {size: sensorDataSize, valid: validSensorData},
	TypeRepeat:     {size: 0, valid: always},
}

// PayloadSize returns the fixed payload width of t, or false for unknown types.
func PayloadSize(t MessageType) (int, bool) {
	l, ok := layouts[t]
	return l.size, ok
}

// Size returns the total on-air length of a message of type t.
// Unknown types are treated as header-only.
func Size(t MessageType) int {
	return HeaderSize + layouts[t].size
}

// NewMessage builds a message carrying p from src to dst.
func NewMessage(src, dst Address, p Payload) *Message {
	t := p.MessageType()
	payload := make([]byte, layouts[t].size)
	p.put(payload)
	return &Message{Type: t, Source: src, Dest: dst, Payload: payload}
}

// NewControl builds a header-only message such as Repeat, Hello or AckTime.
func NewControl(t MessageType, src, dst Address) *Message {
	return &Message{Type: t, Source: src, Dest: dst, Payload: make([]byte, layouts[t].size)}
}

func (m *Message) IsType(t MessageType) bool { return m != nil && m.Type == t }

// Valid reports whether the payload satisfies the invariant of its type.
// Unknown types and short payloads are never valid.
func (m *Message) Valid() bool {
	if m == nil {
		return false
	}
	l, ok := layouts[m.Type]
	if !ok || len(m.Payload) != l.size {
		return false
	}
	return l.valid(m.Payload)
}

// Len returns the on-air length of m.
func (m *Message) Len() int { return HeaderSize + len(m.Payload) }

// Encode serialises m into on-air bytes.
func Encode(m *Message) []byte {
	if m == nil {
		return make([]byte, 0)
	}
	data := make([]byte, m.Len())
	EncodeTo(data, m)
	return data
}

// EncodeTo writes m into dst and returns the number of bytes written.
// dst must hold at least m.Len() bytes.
func EncodeTo(dst []byte, m *Message) int {
	if m == nil || len(dst) < m.Len() {
		return 0
	}
	dst[0] = byte(m.Type)
	copy(dst[TypeFieldSize:], m.Source[:])
	copy(dst[TypeFieldSize+AddressLength:], m.Dest[:])
	copy(dst[HeaderSize:], m.Payload)
	return m.Len()
}

// Decode reinterprets received bytes as a message. No validation beyond length is
// performed; use Valid for that. Returns nil when data cannot hold the header plus
// the fixed payload of its type. Trailing bytes are ignored.
func Decode(data []byte) *Message {
	if len(data) < HeaderSize {
		return nil
	}

	m := &Message{Type: MessageType(data[0])}
	copy(m.Source[:], data[TypeFieldSize:TypeFieldSize+AddressLength])
	copy(m.Dest[:], data[TypeFieldSize+AddressLength:HeaderSize])

	size, ok := PayloadSize(m.Type)
	if !ok {
		return m
	}
	if len(data) < HeaderSize+size {
		return nil
	}
	m.Payload = make([]byte, size)
	copy(m.Payload, data[HeaderSize:HeaderSize+size])
	return m
}
