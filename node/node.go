// Package node composes the messaging engine and the sensor record store
// into the sampling and communication cycles of a sensor node and of the
// gateway it reports to.
package node

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ystepanoff/mirranode/power"
	proto "github.com/ystepanoff/mirranode/protocol"
	"github.com/ystepanoff/mirranode/transport"
)

var ErrNoGateway = errors.New("node: no gateway known")

// MaxBatch is the most SensorData messages one upload carries, and the most a
// gateway collects from one burst.
const MaxBatch = 16

// Comm parameterises every exchange with the peer.
type Comm struct {
	Timeout        time.Duration
	RepeatAttempts int
	Listen         time.Duration
	// SendDelay staggers the first transmission of an exchange and precedes
	// every reply, giving the peer time to turn its radio to receive.
	SendDelay time.Duration
}

func (c Comm) receive(source proto.Address) transport.ReceiveOptions {
	return transport.ReceiveOptions{
		Timeout:        c.Timeout,
		RepeatAttempts: c.RepeatAttempts,
		Source:         source,
		Listen:         c.Listen,
	}
}

type Options struct {
	Comm Comm
	// Gateway pins the gateway; Broadcast means discover it.
	Gateway proto.Address
	// Batch caps the records sent per upload; 0 or anything above MaxBatch
	// means MaxBatch.
	Batch int
	// PruneBytes bounds the store after each upload; 0 disables pruning.
	PruneBytes int
}

// Node samples its sensors into a Store and uploads pending records to a
// gateway, adopting the schedule the gateway replies with.
type Node struct {
	msgr    *transport.Messenger
	store   *Store
	sensors []Sensor
	sleeper power.Sleeper
	log     *slog.Logger
	opts    Options

	gateway  proto.Address
	schedule proto.TimeConfig
	synced   bool
	// offset maps the sleeper clock to gateway time.
	offset time.Duration
}

func New(m *transport.Messenger, store *Store, sensors []Sensor, s power.Sleeper, opts Options, logger *slog.Logger) *Node {
	gw := opts.Gateway
	if gw == (proto.Address{}) {
		gw = proto.Broadcast
	}
	if opts.Batch <= 0 || opts.Batch > MaxBatch {
		opts.Batch = MaxBatch
	}
	return &Node{
		msgr:    m,
		store:   store,
		sensors: sensors,
		sleeper: s,
		log:     logger.With("component", "node", "addr", m.Address()),
		opts:    opts,
		gateway: gw,
	}
}

func (n *Node) Gateway() proto.Address { return n.gateway }

// Schedule returns the last TimeConfig adopted from the gateway.
func (n *Node) Schedule() (proto.TimeConfig, bool) { return n.schedule, n.synced }

// Now is the sleeper clock corrected to gateway time.
func (n *Node) Now() time.Time { return n.sleeper.Now().Add(n.offset) }

// Sample reads every sensor and stores the values as one record.
// Sensors that fail are logged and left out.
func (n *Node) Sample() (proto.SensorData, error) {
	for _, s := range n.sensors {
		if err := s.Start(); err != nil {
			n.log.Warn("sensor start failed", "err", err)
		}
	}
	d := proto.SensorData{Timestamp: uint32(n.Now().Unix())}
	for _, s := range n.sensors {
		v, err := s.Measure()
		if err != nil {
			n.log.Warn("sensor measurement failed", "err", err)
			continue
		}
		if len(d.Values) == proto.MaxSensorValues {
			n.log.Warn("too many sensor values, dropping rest")
			break
		}
		d.Values = append(d.Values, v)
	}
	if err := n.store.Append(d); err != nil {
		return d, err
	}
	n.log.Debug("sample stored", "timestamp", d.Timestamp, "values", len(d.Values))
	return d, nil
}

// Discover broadcasts a Hello and adopts the first gateway that answers
// with a TimeConfig.
func (n *Node) Discover() error {
	hello := proto.NewControl(proto.TypeHello, n.msgr.Address(), proto.Broadcast)
	if err := n.msgr.Send(hello, n.opts.Comm.SendDelay); err != nil {
		return err
	}
	msg, err := n.msgr.Receive(proto.TypeTimeConfig, n.opts.Comm.receive(proto.Broadcast))
	if err != nil {
		n.log.Warn("no gateway answered", "err", err)
		return err
	}
	n.gateway = msg.Source
	n.adopt(msg)
	n.log.Info("gateway discovered", "gateway", n.gateway)
	return n.ack()
}

// Upload sends pending records to the gateway and waits for its TimeConfig.
// On success the records are marked uploaded, the store pruned and flushed.
// It returns the number of records acknowledged.
//
// The TimeConfig confirms the burst as a whole. A record the gateway lost to
// a corrupt frame in the middle of the burst is marked uploaded all the same.
func (n *Node) Upload() (int, error) {
	if n.gateway.IsBroadcast() {
		return 0, ErrNoGateway
	}
	pending := n.store.Pending(n.opts.Batch)
	if len(pending) == 0 {
		return 0, nil
	}
	for i, r := range pending {
		delay := time.Duration(0)
		if i == 0 {
			delay = n.opts.Comm.SendDelay
		}
		if err := n.msgr.Send(proto.NewMessage(n.msgr.Address(), n.gateway, r.Data), delay); err != nil {
			n.log.Error("sending sensor data failed", "err", err)
			return 0, err
		}
	}

	msg, err := n.msgr.Receive(proto.TypeTimeConfig, n.opts.Comm.receive(n.gateway))
	if err != nil {
		n.log.Warn("upload not confirmed", "gateway", n.gateway, "records", len(pending), "err", err)
		return 0, err
	}
	n.adopt(msg)
	for _, r := range pending {
		if !n.store.MarkUploaded(r) {
			n.log.Warn("record evicted before marking", "offset", r.Offset)
		}
	}
	ackErr := n.ack()
	if n.opts.PruneBytes > 0 {
		n.store.Prune(n.opts.PruneBytes)
	}
	if err := n.store.Flush(); err != nil {
		return len(pending), err
	}
	n.log.Info("upload complete", "records", len(pending))
	return len(pending), ackErr
}

// Cycle runs one scheduled period: SampleRounds samples SampleInterval
// apart, then an upload. Without a schedule the gateway is discovered first.
func (n *Node) Cycle() error {
	if !n.synced {
		if err := n.Discover(); err != nil {
			return err
		}
	}
	rounds := max(int(n.schedule.SampleRounds), 1)
	interval := time.Duration(n.schedule.SampleInterval) * time.Second
	for i := 0; i < rounds; i++ {
		if _, err := n.Sample(); err != nil {
			return err
		}
		if err := n.store.Flush(); err != nil {
			n.log.Warn("store flush failed", "err", err)
		}
		if i < rounds-1 {
			n.sleeper.Sleep(power.Wake{Timer: interval})
		}
	}
	if next := n.nextComm(); next > 0 {
		n.sleeper.Sleep(power.Wake{Timer: next})
	}
	_, err := n.Upload()
	return err
}

// nextComm is the wait until the scheduled comm time.
func (n *Node) nextComm() time.Duration {
	at := time.Unix(int64(n.schedule.NextCommTime), 0)
	return at.Sub(n.Now())
}

func (n *Node) adopt(msg *proto.Message) {
	tc, ok := msg.TimeConfig()
	if !ok {
		return
	}
	n.offset = time.Unix(int64(tc.Time), 0).Sub(n.sleeper.Now())
	n.schedule = tc
	n.synced = true
	n.log.Debug("schedule adopted", "interval", tc.SampleInterval, "rounds", tc.SampleRounds, "next", tc.NextCommTime)
}

func (n *Node) ack() error {
	return n.msgr.Send(proto.NewControl(proto.TypeAckTime, n.msgr.Address(), n.gateway), n.opts.Comm.SendDelay)
}
