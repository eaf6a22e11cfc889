package node

import (
	cayennelpp "github.com/TheThingsNetwork/go-cayenne-lib"

	proto "github.com/ystepanoff/mirranode/protocol"
)

// EncodeLPP converts a reading to Cayenne LPP for upstream export. Each
// value gets channel index i; values without an LPP type become analog inputs.
func EncodeLPP(d proto.SensorData) []byte {
	enc := cayennelpp.NewEncoder()
	enc.Reset()
	for i, v := range d.Values {
		ch := uint8(i)
		switch v.TypeTag {
		case TagTemperature:
			enc.AddTemperature(ch, float64(v.Value))
		case TagHumidity:
			enc.AddRelativeHumidity(ch, float64(v.Value))
		default:
			enc.AddAnalogInput(ch, float64(v.Value))
		}
	}
	return enc.Bytes()
}
