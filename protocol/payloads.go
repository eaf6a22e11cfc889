package protocol

import (
	"encoding/binary"
	"math"
)

// Payload is implemented by the typed message bodies of this package.
type Payload interface {
	MessageType() MessageType
	put(b []byte)
}

// TimeConfig is sent by the gateway to schedule a node's sampling and next comm window.
// All times are unix seconds.
type TimeConfig struct {
	Time           uint32
	SampleInterval uint32
	SampleRounds   uint32
	NextCommTime   uint32
}

func (TimeConfig) MessageType() MessageType { return TypeTimeConfig }

func (c TimeConfig) put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], c.Time)
	binary.LittleEndian.PutUint32(b[4:8], c.SampleInterval)
	binary.LittleEndian.PutUint32(b[8:12], c.SampleRounds)
	binary.LittleEndian.PutUint32(b[12:16], c.NextCommTime)
}

func timeConfigFrom(b []byte) TimeConfig {
	return TimeConfig{
		Time:           binary.LittleEndian.Uint32(b[0:4]),
		SampleInterval: binary.LittleEndian.Uint32(b[4:8]),
		SampleRounds:   binary.LittleEndian.Uint32(b[8:12]),
		NextCommTime:   binary.LittleEndian.Uint32(b[12:16]),
	}
}

func validTimeConfig(b []byte) bool {
	c := timeConfigFrom(b)
	return c.SampleInterval > 0 && c.SampleRounds > 0
}

// TimeConfig returns the decoded payload, or false if m is not a TimeConfig message.
func (m *Message) TimeConfig() (TimeConfig, bool) {
	if !m.IsType(TypeTimeConfig) || len(m.Payload) != timeConfigSize {
		return TimeConfig{}, false
	}
	return timeConfigFrom(m.Payload), true
}

// SensorValue is one reading tagged with the sensor kind and its instance number.
type SensorValue struct {
	TypeTag  uint8
	Instance uint8
	Value    float32
}

// SensorData carries up to MaxSensorValues readings taken at Timestamp (unix seconds).
type SensorData struct {
	Timestamp uint32
	Values    []SensorValue
}

func (SensorData) MessageType() MessageType { return TypeSensorData }

// put truncates to MaxSensorValues; unused value slots stay zero.
func (d SensorData) put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], d.Timestamp)
	n := min(len(d.Values), MaxSensorValues)
	b[4] = byte(n)
	for i := 0; i < n; i++ {
		off := 5 + i*SensorValueSize
		b[off] = d.Values[i].TypeTag
		b[off+1] = d.Values[i].Instance
		binary.LittleEndian.PutUint32(b[off+2:off+6], math.Float32bits(d.Values[i].Value))
	}
}

// MarshalBinary returns the fixed-width payload encoding of d.
func (d SensorData) MarshalBinary() ([]byte, error) {
	b := make([]byte, sensorDataSize)
	d.put(b)
	return b, nil
}

func sensorDataFrom(b []byte) SensorData {
	d := SensorData{Timestamp: binary.LittleEndian.Uint32(b[0:4])}
	n := min(int(b[4]), MaxSensorValues)
	d.Values = make([]SensorValue, n)
	for i := 0; i < n; i++ {
		off := 5 + i*SensorValueSize
		d.Values[i] = SensorValue{
			TypeTag:  b[off],
			Instance: b[off+1],
			Value:    math.Float32frombits(binary.LittleEndian.Uint32(b[off+2 : off+6])),
		}
	}
	return d
}

// UnmarshalSensorData decodes a fixed-width payload produced by MarshalBinary.
func UnmarshalSensorData(b []byte) (SensorData, error) {
	if len(b) != sensorDataSize {
		return SensorData{}, ErrInvalidPayload
	}
	return sensorDataFrom(b), nil
}

func validSensorData(b []byte) bool {
	if int(b[4]) > MaxSensorValues {
		return false
	}
	for _, v := range sensorDataFrom(b).Values {
		f := float64(v.Value)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// SensorData returns the decoded payload, or false if m is not a SensorData message.
func (m *Message) SensorData() (SensorData, bool) {
	if !m.IsType(TypeSensorData) || len(m.Payload) != sensorDataSize {
		return SensorData{}, false
	}
	return sensorDataFrom(m.Payload), true
}

// SensorDataSize is the fixed payload width of a SensorData message.
const SensorDataSize = sensorDataSize
