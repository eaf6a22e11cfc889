// Package config loads the YAML configuration of a node or gateway.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	proto "github.com/ystepanoff/mirranode/protocol"
	"github.com/ystepanoff/mirranode/transport"
)

const (
	RoleNode    = "node"
	RoleGateway = "gateway"
)

type Config struct {
	Node     NodeConfig     `yaml:"node"`
	Radio    RadioConfig    `yaml:"radio"`
	Comm     CommConfig     `yaml:"comm"`
	Storage  StorageConfig  `yaml:"storage"`
	Sampling SamplingConfig `yaml:"sampling"`
	Log      LogConfig      `yaml:"log"`
}

// ---- NODE ----

type NodeConfig struct {
	Address string `yaml:"address"`
	Role    string `yaml:"role"`
	// Gateway pins the gateway address; empty means discover it.
	Gateway string `yaml:"gateway"`
}

// ---- RADIO ----

// RadioConfig mirrors transport.RadioConfig. Zero fields take the defaults.
type RadioConfig struct {
	FrequencyMHz    float64 `yaml:"frequency_mhz"`
	BandwidthKHz    float64 `yaml:"bandwidth_khz"`
	SpreadingFactor uint8   `yaml:"spreading_factor"`
	CodingRate      uint8   `yaml:"coding_rate"`
	SyncWord        uint8   `yaml:"sync_word"`
	PowerDBm        int8    `yaml:"power_dbm"`
	PreambleLength  uint16  `yaml:"preamble_length"`
	Gain            uint8   `yaml:"gain"`
}

// ---- COMM ----

type CommConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
	// RepeatAttempts and SendDelayMs are optional: zero is a valid setting.
	RepeatAttempts *int `yaml:"repeat_attempts"`
	ListenMs       int  `yaml:"listen_ms"`
	TxTimeoutMs    int  `yaml:"tx_timeout_ms"`
	SendDelayMs    *int `yaml:"send_delay_ms"`
	// Batch caps the records a node sends per upload, at most node.MaxBatch.
	Batch int `yaml:"batch"`
}

// ---- STORAGE ----

type StorageConfig struct {
	// FlashPath is the flash image; empty keeps flash in memory.
	FlashPath string `yaml:"flash_path"`
	// KVSPath is the key-value document; empty keeps it in memory.
	KVSPath       string            `yaml:"kvs_path"`
	Partitions    []PartitionConfig `yaml:"partitions"`
	DataPartition string            `yaml:"data_partition"`
	LogPartition  string            `yaml:"log_partition"`
	// PruneBytes bounds stored sensor records after each upload.
	PruneBytes int `yaml:"prune_bytes"`
}

type PartitionConfig struct {
	Name string `yaml:"name"`
	Size int    `yaml:"size"`
}

// ---- SAMPLING ----

type SamplingConfig struct {
	IntervalS int `yaml:"interval_s"`
	Rounds    int `yaml:"rounds"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads and decodes path. The result is neither validated nor normalized.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a normalized configuration for address.
func Default(address string) *Config {
	cfg := &Config{Node: NodeConfig{Address: address}}
	Normalize(cfg)
	return cfg
}

func (n NodeConfig) Addr() (proto.Address, error) { return proto.ParseAddress(n.Address) }

// GatewayAddr returns the pinned gateway, or Broadcast when it is discovered.
func (n NodeConfig) GatewayAddr() (proto.Address, error) {
	if n.Gateway == "" {
		return proto.Broadcast, nil
	}
	return proto.ParseAddress(n.Gateway)
}

func (r RadioConfig) Transport() transport.RadioConfig {
	return transport.RadioConfig{
		FrequencyMHz:    r.FrequencyMHz,
		BandwidthKHz:    r.BandwidthKHz,
		SpreadingFactor: r.SpreadingFactor,
		CodingRate:      r.CodingRate,
		SyncWord:        r.SyncWord,
		PowerDBm:        r.PowerDBm,
		PreambleLength:  r.PreambleLength,
		Gain:            r.Gain,
	}
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c CommConfig) Timeout() time.Duration   { return ms(c.TimeoutMs) }
func (c CommConfig) Listen() time.Duration    { return ms(c.ListenMs) }
func (c CommConfig) TxTimeout() time.Duration { return ms(c.TxTimeoutMs) }
func (c CommConfig) SendDelay() time.Duration { return ms(deref(c.SendDelayMs)) }

func (c CommConfig) Repeats() int { return deref(c.RepeatAttempts) }

// Int returns a pointer to v for optional fields.
func Int(v int) *int { return &v }

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func (s SamplingConfig) Interval() time.Duration { return time.Duration(s.IntervalS) * time.Second }

// SlogLevel parses Level; it must have passed Validate.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(l.Level))
	return level
}

// FlashSize is the device size needed for every partition.
func (s StorageConfig) FlashSize() int {
	total := 0
	for _, p := range s.Partitions {
		total += p.Size
	}
	return total
}

func (s StorageConfig) Partition(name string) (PartitionConfig, bool) {
	for _, p := range s.Partitions {
		if p.Name == name {
			return p, true
		}
	}
	return PartitionConfig{}, false
}
