package protocol

import "errors"

var (
	ErrInvalidPayload = errors.New("invalid payload size")
	ErrInvalidAddress = errors.New("invalid address (want AA:BB:CC:DD:EE:FF)")
	ErrTimeout        = errors.New("operation timed out")
	ErrInterrupted    = errors.New("wait interrupted by external wake source")
	ErrCRCMismatch    = errors.New("frame integrity check failed")
	ErrNothingSent    = errors.New("no message has been sent yet")
	ErrRadioBusy      = errors.New("radio is not idle")
)
