package protocol

import (
	"encoding/hex"
	"strings"
)

// Address is the 6-byte hardware (MAC) identifier of a node.
type Address [AddressLength]byte

// Broadcast is accepted by every node regardless of its own address.
var Broadcast = Address{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

func (a Address) IsBroadcast() bool { return a == Broadcast }

// String returns the canonical colon-separated upper-case form.
func (a Address) String() string {
	var sb strings.Builder
	sb.Grow(AddressLength*3 - 1)
	for i, b := range a {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{b})))
	}
	return sb.String()
}

// ParseAddress accepts the canonical form in either case.
func ParseAddress(s string) (Address, error) {
	var a Address
	parts := strings.Split(s, ":")
	if len(parts) != AddressLength {
		return a, ErrInvalidAddress
	}
	for i, p := range parts {
		if len(p) != 2 {
			return a, ErrInvalidAddress
		}
		b, err := hex.DecodeString(p)
		if err != nil {
			return a, ErrInvalidAddress
		}
		a[i] = b[0]
	}
	return a, nil
}

// MarshalText lets addresses appear as strings in YAML and logs.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
