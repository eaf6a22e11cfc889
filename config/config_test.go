package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ystepanoff/mirranode/flash"
	proto "github.com/ystepanoff/mirranode/protocol"
)

const sample = `
node:
  address: "02:00:00:00:00:01"
  gateway: "02:00:00:00:00:AA"
radio:
  frequency_mhz: 868.1
  spreading_factor: 7
comm:
  timeout_ms: 900
  repeat_attempts: 2
  listen_ms: 100
storage:
  partitions:
    - name: data
      size: 32768
    - name: logs
      size: 8192
sampling:
  interval_s: 60
log:
  level: debug
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeFile(t, sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	Normalize(cfg)

	if addr, _ := cfg.Node.Addr(); addr != (proto.Address{2, 0, 0, 0, 0, 1}) {
		t.Errorf("address = %v", addr)
	}
	if gw, _ := cfg.Node.GatewayAddr(); gw.IsBroadcast() {
		t.Error("pinned gateway parsed as broadcast")
	}
	if cfg.Node.Role != RoleNode {
		t.Errorf("role = %q", cfg.Node.Role)
	}
	rc := cfg.Radio.Transport()
	if rc.FrequencyMHz != 868.1 || rc.SpreadingFactor != 7 || rc.CodingRate != 7 || rc.BandwidthKHz != 125 {
		t.Errorf("radio = %+v", rc)
	}
	if cfg.Comm.Timeout() != 900*time.Millisecond || cfg.Comm.Listen() != 100*time.Millisecond {
		t.Errorf("comm = %+v", cfg.Comm)
	}
	if cfg.Comm.TxTimeout() != 2*time.Second {
		t.Errorf("tx timeout = %v", cfg.Comm.TxTimeout())
	}
	if cfg.Storage.FlashSize() != 40960 || cfg.Storage.PruneBytes != 24576 {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Sampling.Interval() != time.Minute || cfg.Sampling.Rounds != DefaultRounds {
		t.Errorf("sampling = %+v", cfg.Sampling)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("level = %v", cfg.Log.SlogLevel())
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file succeeded")
	}
	if _, err := Load(writeFile(t, "node: [")); err == nil {
		t.Error("Load() of malformed yaml succeeded")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default("02:00:00:00:00:01")
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default) error = %v", err)
	}
	for _, name := range []string{DefaultDataPartition, DefaultLogPartition} {
		if _, ok := cfg.Storage.Partition(name); !ok {
			t.Errorf("default partition %q missing", name)
		}
	}
	if gw, _ := cfg.Node.GatewayAddr(); !gw.IsBroadcast() {
		t.Error("unpinned gateway should be discovered")
	}
}

func TestNormalize_OptionalComm(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantRepeats int
		wantDelay   time.Duration
	}{
		{"unset", "comm:\n  timeout_ms: 900\n", DefaultRepeatAttempts, DefaultSendDelayMs * time.Millisecond},
		{"explicit zero", "comm:\n  repeat_attempts: 0\n  send_delay_ms: 0\n", 0, 0},
		{"explicit", "comm:\n  repeat_attempts: 4\n  send_delay_ms: 75\n", 4, 75 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, "node:\n  address: \"02:00:00:00:00:01\"\n"+tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if err := Validate(cfg); err != nil {
				t.Fatal(err)
			}
			Normalize(cfg)
			if got := cfg.Comm.Repeats(); got != tt.wantRepeats {
				t.Errorf("Repeats() = %d, want %d", got, tt.wantRepeats)
			}
			if got := cfg.Comm.SendDelay(); got != tt.wantDelay {
				t.Errorf("SendDelay() = %v, want %v", got, tt.wantDelay)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad address", func(c *Config) { c.Node.Address = "zz" }, "node.address"},
		{"broadcast address", func(c *Config) { c.Node.Address = "FF:FF:FF:FF:FF:FF" }, "broadcast"},
		{"bad role", func(c *Config) { c.Node.Role = "relay" }, "node.role"},
		{"bad gateway", func(c *Config) { c.Node.Gateway = "1:2" }, "node.gateway"},
		{"spreading factor", func(c *Config) { c.Radio.SpreadingFactor = 13 }, "spreading_factor"},
		{"coding rate", func(c *Config) { c.Radio.CodingRate = 4 }, "coding_rate"},
		{"negative timeout", func(c *Config) { c.Comm.TimeoutMs = -1 }, "timeout_ms"},
		{"negative repeats", func(c *Config) { c.Comm.RepeatAttempts = Int(-1) }, "repeat_attempts"},
		{"batch too large", func(c *Config) { c.Comm.Batch = 100 }, "comm.batch"},
		{"unaligned partition", func(c *Config) {
			c.Storage.Partitions = []PartitionConfig{{Name: "data", Size: 1000}}
		}, "multiple of"},
		{"duplicate partition", func(c *Config) {
			c.Storage.Partitions = []PartitionConfig{{"data", flash.SectorSize}, {"data", flash.SectorSize}}
		}, "duplicate"},
		{"unknown log partition", func(c *Config) {
			c.Storage.Partitions = []PartitionConfig{{"data", flash.SectorSize}}
			c.Storage.LogPartition = "logs"
		}, "log_partition"},
		{"shared partition", func(c *Config) {
			c.Storage.Partitions = []PartitionConfig{{"data", flash.SectorSize}}
			c.Storage.DataPartition, c.Storage.LogPartition = "data", "data"
		}, "must differ"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Node: NodeConfig{Address: "02:00:00:00:00:01"}}
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
