package config

import (
	"fmt"
	"log/slog"

	"github.com/ystepanoff/mirranode/flash"
	"github.com/ystepanoff/mirranode/node"
)

// Validate checks configuration correctness.
// It performs declarative validation only and MUST NOT mutate configuration.
// Zero values mean "use the default" and are accepted.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ---- node ----

	addr, err := cfg.Node.Addr()
	if err != nil {
		return fmt.Errorf("node.address %q: %w", cfg.Node.Address, err)
	}
	if addr.IsBroadcast() {
		return fmt.Errorf("node.address must not be the broadcast address")
	}
	switch cfg.Node.Role {
	case "", RoleNode, RoleGateway:
	default:
		return fmt.Errorf("node.role %q: must be %q or %q", cfg.Node.Role, RoleNode, RoleGateway)
	}
	if _, err := cfg.Node.GatewayAddr(); err != nil {
		return fmt.Errorf("node.gateway %q: %w", cfg.Node.Gateway, err)
	}

	// ---- radio ----

	r := cfg.Radio
	if r.FrequencyMHz < 0 || r.BandwidthKHz < 0 {
		return fmt.Errorf("radio: frequency and bandwidth must not be negative")
	}
	if r.SpreadingFactor != 0 && (r.SpreadingFactor < 6 || r.SpreadingFactor > 12) {
		return fmt.Errorf("radio.spreading_factor %d: must be 6..12", r.SpreadingFactor)
	}
	if r.CodingRate != 0 && (r.CodingRate < 5 || r.CodingRate > 8) {
		return fmt.Errorf("radio.coding_rate %d: must be 5..8", r.CodingRate)
	}

	// ---- comm ----

	c := cfg.Comm
	for name, v := range map[string]int{
		"timeout_ms":      c.TimeoutMs,
		"repeat_attempts": deref(c.RepeatAttempts),
		"listen_ms":       c.ListenMs,
		"tx_timeout_ms":   c.TxTimeoutMs,
		"send_delay_ms":   deref(c.SendDelayMs),
		"batch":           c.Batch,
	} {
		if v < 0 {
			return fmt.Errorf("comm.%s %d: must not be negative", name, v)
		}
	}
	if c.Batch > node.MaxBatch {
		return fmt.Errorf("comm.batch %d: must be at most %d", c.Batch, node.MaxBatch)
	}

	// ---- storage ----

	s := cfg.Storage
	seen := make(map[string]bool)
	for _, p := range s.Partitions {
		if p.Name == "" {
			return fmt.Errorf("storage.partitions: name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("storage.partitions: duplicate partition %q", p.Name)
		}
		seen[p.Name] = true
		if p.Size <= 0 || p.Size%flash.SectorSize != 0 {
			return fmt.Errorf("storage.partitions %q: size %d must be a positive multiple of %d",
				p.Name, p.Size, flash.SectorSize)
		}
	}
	if len(s.Partitions) > 0 {
		for field, name := range map[string]string{
			"data_partition": s.DataPartition,
			"log_partition":  s.LogPartition,
		} {
			if name != "" && !seen[name] {
				return fmt.Errorf("storage.%s %q: no such partition", field, name)
			}
		}
		if s.DataPartition != "" && s.DataPartition == s.LogPartition {
			return fmt.Errorf("storage: data and log partitions must differ")
		}
	}
	if s.PruneBytes < 0 {
		return fmt.Errorf("storage.prune_bytes %d: must not be negative", s.PruneBytes)
	}

	// ---- sampling ----

	if cfg.Sampling.IntervalS < 0 || cfg.Sampling.Rounds < 0 {
		return fmt.Errorf("sampling: interval and rounds must not be negative")
	}

	// ---- log ----

	if cfg.Log.Level != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return fmt.Errorf("log.level %q: %w", cfg.Log.Level, err)
		}
	}

	return nil
}
