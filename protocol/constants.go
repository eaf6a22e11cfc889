package protocol

// Generic link & message constants (platform independent). All higher layers should depend on this file.
const (
	// Message sizing
	// Layout:
	//   Type (1) | Source (6) | Destination (6) | Payload (fixed width per type)
	// There is no length byte: the type tag alone determines the total message length.

	// Sizes of individual components
	TypeFieldSize = 1
	AddressLength = 6

	// Header consists of: Type(1)+Source(6)+Destination(6) = 13 bytes before payload
	HeaderSize = TypeFieldSize + 2*AddressLength

	// Total maximum message length on air, bounded by the LoRa FIFO
	MaxMessageSize = 255

	// Sensor data sizing
	MaxSensorValues = 16
	SensorValueSize = 1 + 1 + 4 // type tag, instance tag, float32

	sensorDataSize = 4 + 1 + MaxSensorValues*SensorValueSize
	timeConfigSize = 4 * 4
)

// MessageType is the tag stored in the first byte of every message.
type MessageType uint8

// Message types
const (
	TypeInvalid    MessageType = 0x00
	TypeHello      MessageType = 0x01
	TypeTimeConfig MessageType = 0x02
	TypeAckTime    MessageType = 0x03
	TypeSensorData MessageType = 0x04

	// TypeRepeat asks the addressee to retransmit the last message it sent.
	TypeRepeat MessageType = 0x05
)

var typeNames = map[MessageType]string{
	TypeInvalid:    "INVALID",
	TypeHello:      "HELLO",
	TypeTimeConfig: "TIME_CONFIG",
	TypeAckTime:    "ACK_TIME",
	TypeSensorData: "SENSOR_DATA",
	TypeRepeat:     "REPEAT",
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}
