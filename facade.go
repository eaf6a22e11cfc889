// Package mirranode provides a façade over the sensor node stack: message
// framing, the duty-cycled radio messenger, flash-backed record storage and
// the node and gateway cycles built on them.
package mirranode

import (
	"github.com/ystepanoff/mirranode/node"
	"github.com/ystepanoff/mirranode/protocol"
	"github.com/ystepanoff/mirranode/transport"
)

// The radio constructors are split into build-tag specific files:
// - constructors_host.go - simulated radio and host clock (//go:build !tinygo && !baremetal)
// Embedded targets pass their own transport.RadioDriver to Build.

type (
	Address        = protocol.Address
	Message        = protocol.Message
	MessageType    = protocol.MessageType
	TimeConfig     = protocol.TimeConfig
	SensorData     = protocol.SensorData
	SensorValue    = protocol.SensorValue
	Messenger      = transport.Messenger
	ReceiveOptions = transport.ReceiveOptions
	RadioDriver    = transport.RadioDriver
	Node           = node.Node
	Gateway        = node.Gateway
	Sensor         = node.Sensor
)

// Error constants exposed in the public API
var (
	ErrInvalidPayload = protocol.ErrInvalidPayload
	ErrInvalidAddress = protocol.ErrInvalidAddress
	ErrTimeout        = protocol.ErrTimeout
	ErrInterrupted    = protocol.ErrInterrupted
	ErrNothingSent    = protocol.ErrNothingSent
	ErrNoGateway      = node.ErrNoGateway
)

var Broadcast = protocol.Broadcast

// Constants exposed in the public API
const (
	TypeHello      = protocol.TypeHello
	TypeTimeConfig = protocol.TypeTimeConfig
	TypeAckTime    = protocol.TypeAckTime
	TypeSensorData = protocol.TypeSensorData
	TypeRepeat     = protocol.TypeRepeat
)

func ParseAddress(s string) (Address, error) { return protocol.ParseAddress(s) }
