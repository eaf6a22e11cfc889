package node

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ystepanoff/mirranode/power"
	proto "github.com/ystepanoff/mirranode/protocol"
	"github.com/ystepanoff/mirranode/transport"
)

type GatewayOptions struct {
	Comm Comm
	// Collect is the silence that ends a node's SensorData burst. It must be
	// shorter than the node's receive window, less SendDelay, or every upload
	// costs the node a Repeat.
	Collect time.Duration
	// SampleInterval and SampleRounds form the schedule handed to nodes.
	SampleInterval time.Duration
	SampleRounds   int
}

// Reading is one SensorData message received from a node.
type Reading struct {
	Source proto.Address
	Data   proto.SensorData
	// LPP is Data in Cayenne LPP form.
	LPP []byte
}

// Exchange summarises one served node.
type Exchange struct {
	Node     proto.Address
	Hello    bool
	Readings []Reading
	Acked    bool
}

// Gateway answers Hello and SensorData bursts with a TimeConfig and waits
// for the node's AckTime.
type Gateway struct {
	msgr    *transport.Messenger
	sleeper power.Sleeper
	log     *slog.Logger
	opts    GatewayOptions
}

func NewGateway(m *transport.Messenger, s power.Sleeper, opts GatewayOptions, logger *slog.Logger) *Gateway {
	if opts.Collect <= 0 {
		opts.Collect = time.Second
	}
	if opts.SampleRounds <= 0 {
		opts.SampleRounds = 1
	}
	if opts.SampleInterval < time.Second {
		opts.SampleInterval = time.Second
	}
	return &Gateway{
		msgr:    m,
		sleeper: s,
		log:     logger.With("component", "gateway", "addr", m.Address()),
		opts:    opts,
	}
}

// Schedule is the TimeConfig handed to nodes at the current time.
func (g *Gateway) Schedule() proto.TimeConfig {
	now := g.sleeper.Now().Unix()
	interval := uint32(g.opts.SampleInterval / time.Second)
	rounds := uint32(g.opts.SampleRounds)
	return proto.TimeConfig{
		Time:           uint32(now),
		SampleInterval: interval,
		SampleRounds:   rounds,
		NextCommTime:   uint32(now) + interval*rounds,
	}
}

func opening(m *proto.Message) bool {
	return (m.IsType(proto.TypeHello) || m.IsType(proto.TypeSensorData)) && m.Valid()
}

// Serve waits up to wait for a node to open an exchange and completes it.
// It returns protocol.ErrTimeout if no node spoke.
func (g *Gateway) Serve(wait time.Duration) (*Exchange, error) {
	first, err := g.msgr.ReceiveFunc(transport.ReceiveOptions{Timeout: wait, Source: proto.Broadcast}, opening)
	if err != nil {
		return nil, err
	}
	ex := &Exchange{Node: first.Source, Hello: first.IsType(proto.TypeHello)}
	if !ex.Hello {
		ex.add(first)
		for len(ex.Readings) < MaxBatch {
			m, err := g.msgr.Receive(proto.TypeSensorData, transport.ReceiveOptions{
				Timeout: g.opts.Collect,
				Source:  ex.Node,
			})
			if err != nil {
				break
			}
			ex.add(m)
		}
	}

	reply := proto.NewMessage(g.msgr.Address(), ex.Node, g.Schedule())
	if err := g.msgr.Send(reply, g.opts.Comm.SendDelay); err != nil {
		g.log.Error("sending time config failed", "node", ex.Node, "err", err)
		return ex, err
	}
	_, err = g.msgr.Receive(proto.TypeAckTime, g.opts.Comm.receive(ex.Node))
	ex.Acked = err == nil
	if !ex.Acked {
		g.log.Warn("time config not acknowledged", "node", ex.Node, "err", err)
	}
	g.log.Info("exchange complete", "node", ex.Node, "hello", ex.Hello, "readings", len(ex.Readings), "acked", ex.Acked)
	return ex, nil
}

func (ex *Exchange) add(m *proto.Message) {
	d, ok := m.SensorData()
	if !ok {
		return
	}
	ex.Readings = append(ex.Readings, Reading{Source: m.Source, Data: d, LPP: EncodeLPP(d)})
}

// Run serves exchanges until ctx is done, handing each to handle.
func (g *Gateway) Run(ctx context.Context, handle func(*Exchange)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ex, err := g.Serve(g.opts.Comm.Timeout)
		switch {
		case errors.Is(err, proto.ErrTimeout):
			continue
		case err != nil:
			g.log.Warn("exchange failed", "err", err)
		}
		if ex != nil && handle != nil {
			handle(ex)
		}
	}
}
