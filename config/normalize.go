package config

import (
	"github.com/ystepanoff/mirranode/flash"
	"github.com/ystepanoff/mirranode/transport"
)

const (
	DefaultTimeoutMs      = 6000
	DefaultRepeatAttempts = 2
	DefaultSendDelayMs    = 20
	DefaultTxTimeoutMs    = 2000
	DefaultBatch          = 16
	DefaultIntervalS      = 300
	DefaultRounds         = 12

	DefaultDataPartition = "data"
	DefaultLogPartition  = "logs"
)

// Normalize fills defaults for every zero field and every unset optional one.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Node.Role == "" {
		cfg.Node.Role = RoleNode
	}

	// ---- radio ----

	def := transport.DefaultRadioConfig()
	r := &cfg.Radio
	if r.FrequencyMHz == 0 {
		r.FrequencyMHz = def.FrequencyMHz
	}
	if r.BandwidthKHz == 0 {
		r.BandwidthKHz = def.BandwidthKHz
	}
	if r.SpreadingFactor == 0 {
		r.SpreadingFactor = def.SpreadingFactor
	}
	if r.CodingRate == 0 {
		r.CodingRate = def.CodingRate
	}
	if r.SyncWord == 0 {
		r.SyncWord = def.SyncWord
	}
	if r.PowerDBm == 0 {
		r.PowerDBm = def.PowerDBm
	}
	if r.PreambleLength == 0 {
		r.PreambleLength = def.PreambleLength
	}

	// ---- comm ----

	c := &cfg.Comm
	if c.TimeoutMs == 0 {
		c.TimeoutMs = DefaultTimeoutMs
	}
	if c.RepeatAttempts == nil {
		c.RepeatAttempts = Int(DefaultRepeatAttempts)
	}
	if c.SendDelayMs == nil {
		c.SendDelayMs = Int(DefaultSendDelayMs)
	}
	if c.TxTimeoutMs == 0 {
		c.TxTimeoutMs = DefaultTxTimeoutMs
	}
	if c.Batch == 0 {
		c.Batch = DefaultBatch
	}

	// ---- storage ----

	s := &cfg.Storage
	if s.DataPartition == "" {
		s.DataPartition = DefaultDataPartition
	}
	if s.LogPartition == "" {
		s.LogPartition = DefaultLogPartition
	}
	if len(s.Partitions) == 0 {
		s.Partitions = []PartitionConfig{
			{Name: s.DataPartition, Size: 16 * flash.SectorSize},
			{Name: s.LogPartition, Size: 4 * flash.SectorSize},
		}
	}
	if s.PruneBytes == 0 {
		if p, ok := s.Partition(s.DataPartition); ok {
			s.PruneBytes = p.Size * 3 / 4
		}
	}

	// ---- sampling ----

	if cfg.Sampling.IntervalS == 0 {
		cfg.Sampling.IntervalS = DefaultIntervalS
	}
	if cfg.Sampling.Rounds == 0 {
		cfg.Sampling.Rounds = DefaultRounds
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "INFO"
	}
}
