package mirranode

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ystepanoff/mirranode/config"
	"github.com/ystepanoff/mirranode/diag"
	"github.com/ystepanoff/mirranode/flash"
	"github.com/ystepanoff/mirranode/kvs"
	"github.com/ystepanoff/mirranode/node"
	"github.com/ystepanoff/mirranode/power"
	"github.com/ystepanoff/mirranode/transport"
)

// Stack is one device assembled from its configuration.
type Stack struct {
	Config    *config.Config
	Sink      *diag.Sink
	Messenger *transport.Messenger
	Store     *node.Store
	Sleeper   power.Sleeper

	device io.Closer
}

// Build assembles flash, key-value storage, diagnostics and the radio
// messenger described by cfg, which must be validated and normalized.
// A radio that fails to initialise is logged and kept.
func Build(cfg *config.Config, radio transport.RadioDriver, sleeper power.Sleeper, console io.Writer) (*Stack, error) {
	addr, err := cfg.Node.Addr()
	if err != nil {
		return nil, fmt.Errorf("node address: %w", err)
	}
	boot := diag.New(cfg.Log.SlogLevel(), console)

	var dev flash.Device
	var closer io.Closer
	if cfg.Storage.FlashPath == "" {
		dev = flash.NewMemory(cfg.Storage.FlashSize())
	} else {
		f, err := flash.OpenFile(cfg.Storage.FlashPath, cfg.Storage.FlashSize())
		if err != nil {
			return nil, err
		}
		dev, closer = f, f
	}
	fail := func(err error) (*Stack, error) {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	regions := make([]flash.Region, 0, len(cfg.Storage.Partitions))
	for _, p := range cfg.Storage.Partitions {
		regions = append(regions, flash.Region{Name: p.Name, Size: p.Size})
	}
	parts, err := flash.Layout(dev, regions)
	if err != nil {
		return fail(err)
	}

	var backend kvs.Backend
	if cfg.Storage.KVSPath == "" {
		backend = kvs.NewMemory()
	} else if backend, err = kvs.OpenFile(cfg.Storage.KVSPath); err != nil {
		return fail(err)
	}

	// the log partition reports its own faults to the console only
	logs, err := openLog(cfg.Storage.LogPartition, parts, backend, boot)
	if err != nil {
		return fail(err)
	}
	logMeta := backend.Namespace(cfg.Storage.LogPartition)
	sink := diag.Open(logs, logMeta, console, cfg.Log.SlogLevel())

	data, err := openLog(cfg.Storage.DataPartition, parts, backend, sink.Logger)
	if err != nil {
		return fail(err)
	}

	msgr := transport.NewMessengerWithDriver(addr, radio, sleeper, sink.Logger)
	msgr.SetTxTimeout(cfg.Comm.TxTimeout())
	_ = msgr.Initialise(cfg.Radio.Transport())

	return &Stack{
		Config:    cfg,
		Sink:      sink,
		Messenger: msgr,
		Store:     node.NewStore(data, sink.Logger),
		Sleeper:   sleeper,
		device:    closer,
	}, nil
}

func openLog(name string, parts map[string]flash.Device, backend kvs.Backend, logger *slog.Logger) (*flash.Log, error) {
	dev, ok := parts[name]
	if !ok {
		return nil, fmt.Errorf("partition %q not configured", name)
	}
	p, err := flash.NewPartition(name, dev, logger)
	if err != nil {
		return nil, err
	}
	return flash.OpenLog(p, backend.Namespace(name), logger), nil
}

func (s *Stack) Logger() *slog.Logger { return s.Sink.Logger }

func (s *Stack) comm() node.Comm {
	c := s.Config.Comm
	return node.Comm{
		Timeout:        c.Timeout(),
		RepeatAttempts: c.Repeats(),
		Listen:         c.Listen(),
		SendDelay:      c.SendDelay(),
	}
}

// Node returns the sensor node cycle of this device.
func (s *Stack) Node(sensors []node.Sensor) (*node.Node, error) {
	gw, err := s.Config.Node.GatewayAddr()
	if err != nil {
		return nil, err
	}
	return node.New(s.Messenger, s.Store, sensors, s.Sleeper, node.Options{
		Comm:       s.comm(),
		Gateway:    gw,
		Batch:      s.Config.Comm.Batch,
		PruneBytes: s.Config.Storage.PruneBytes,
	}, s.Logger()), nil
}

// Gateway returns the gateway cycle of this device.
func (s *Stack) Gateway() *node.Gateway {
	return node.NewGateway(s.Messenger, s.Sleeper, s.gatewayOptions(), s.Logger())
}

// gatewayOptions ends a burst after half a node receive window of silence,
// so the TimeConfig reply lands inside the node's first window.
func (s *Stack) gatewayOptions() node.GatewayOptions {
	c := s.comm()
	return node.GatewayOptions{
		Comm:           c,
		Collect:        c.Timeout / time.Duration(2*(c.RepeatAttempts+1)),
		SampleInterval: s.Config.Sampling.Interval(),
		SampleRounds:   s.Config.Sampling.Rounds,
	}
}

// Close flushes the record store and the persisted log, then releases flash.
func (s *Stack) Close() error {
	err := errors.Join(s.Store.Flush(), s.Sink.Flush())
	if s.device != nil {
		err = errors.Join(err, s.device.Close())
	}
	return err
}
