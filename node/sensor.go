package node

import (
	proto "github.com/ystepanoff/mirranode/protocol"
)

// Sensor type tags carried in SensorValue.TypeTag.
const (
	TagTemperature  uint8 = 1
	TagHumidity     uint8 = 2
	TagSoilMoisture uint8 = 3
	TagRandom       uint8 = 100
)

// Sensor is one measurement source. Start is called on every sensor before
// any Measure so slow probes can settle in parallel.
type Sensor interface {
	Start() error
	Measure() (proto.SensorValue, error)
}

// SensorFunc adapts a function to a Sensor that needs no warm-up.
type SensorFunc func() (proto.SensorValue, error)

func (f SensorFunc) Start() error { return nil }

func (f SensorFunc) Measure() (proto.SensorValue, error) { return f() }
