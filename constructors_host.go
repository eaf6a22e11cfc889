//go:build !tinygo && !baremetal

// This file is built only for non-embedded targets (host-based testing).
package mirranode

import (
	"io"
	"log/slog"

	"github.com/ystepanoff/mirranode/config"
	"github.com/ystepanoff/mirranode/driver/stub"
	"github.com/ystepanoff/mirranode/power"
	"github.com/ystepanoff/mirranode/protocol"
	"github.com/ystepanoff/mirranode/transport"
)

// NewMessenger returns a Messenger on a new simulated radio attached to air,
// sleeping on the host clock.
func NewMessenger(addr protocol.Address, air *stub.Air, logger *slog.Logger) *transport.Messenger {
	return transport.NewMessengerWithDriver(addr, air.Attach(), power.NewHost(), logger)
}

// Open builds the device described by cfg on a simulated radio attached to air.
func Open(cfg *config.Config, air *stub.Air, console io.Writer) (*Stack, error) {
	return Build(cfg, air.Attach(), power.NewHost(), console)
}
