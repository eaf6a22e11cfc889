package transport

// RadioConfig holds the LoRa modulation parameters applied by RadioDriver.Begin.
type RadioConfig struct {
	FrequencyMHz    float64
	BandwidthKHz    float64
	SpreadingFactor uint8
	CodingRate      uint8
	SyncWord        uint8
	PowerDBm        int8
	PreambleLength  uint16
	Gain            uint8
}

// DefaultRadioConfig matches the EU868 settings the sensor network ships with.
func DefaultRadioConfig() RadioConfig {
	return RadioConfig{
		FrequencyMHz:    868.0,
		BandwidthKHz:    125.0,
		SpreadingFactor: 9,
		CodingRate:      7,
		SyncWord:        0x12,
		PowerDBm:        17,
		PreambleLength:  8,
		Gain:            0,
	}
}

// RadioDriver is the interface that wraps the basic half-duplex radio operations.
//
// Interrupt returns the DIO0 line: it is raised once when a transmission completes
// and when a received frame is ready to be read. ReadData returns
// protocol.ErrCRCMismatch for frames that failed the PHY integrity check.
// StartTransmit must not retain data after it returns.
type RadioDriver interface {
	Begin(cfg RadioConfig) error
	StartTransmit(data []byte) error
	FinishTransmit() error
	StartReceive() error
	ReadData(buf []byte) (int, error)
	Standby() error
	Interrupt() <-chan struct{}
}
