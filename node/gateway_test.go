package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ystepanoff/mirranode/diag"
	"github.com/ystepanoff/mirranode/flash"
	"github.com/ystepanoff/mirranode/power"
	proto "github.com/ystepanoff/mirranode/protocol"
)

func newTestGateway(t *testing.T) (*Gateway, *harness) {
	t.Helper()
	h := newHarness(t, gwAddr, flash.SectorSize)
	g := NewGateway(h.msgr, h.v, GatewayOptions{
		Comm:           testComm,
		Collect:        200 * time.Millisecond,
		SampleInterval: time.Minute,
		SampleRounds:   5,
	}, diag.Discard())
	return g, h
}

func sensorData(ts uint32) *proto.Message {
	return proto.NewMessage(nodeAddr, gwAddr, proto.SensorData{
		Timestamp: ts,
		Values:    []proto.SensorValue{{TypeTag: TagTemperature, Value: 20}},
	})
}

func TestGateway_Schedule(t *testing.T) {
	g, h := newTestGateway(t)
	h.v.Sleep(power.Wake{Timer: 10 * time.Second})

	tc := g.Schedule()
	want := proto.TimeConfig{Time: 10, SampleInterval: 60, SampleRounds: 5, NextCommTime: 310}
	if tc != want {
		t.Errorf("Schedule() = %+v, want %+v", tc, want)
	}
}

func TestGateway_ServeHello(t *testing.T) {
	g, h := newTestGateway(t)
	h.reply(10*time.Millisecond, proto.NewControl(proto.TypeHello, nodeAddr, proto.Broadcast))
	h.script(func(m *proto.Message) {
		if m.IsType(proto.TypeTimeConfig) {
			h.reply(20*time.Millisecond, proto.NewControl(proto.TypeAckTime, nodeAddr, gwAddr))
		}
	})

	ex, err := g.Serve(time.Second)
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if !ex.Hello || !ex.Acked || ex.Node != nodeAddr || len(ex.Readings) != 0 {
		t.Errorf("exchange = %+v", ex)
	}
	log := h.radio.GetTxLog()
	if len(log) != 1 {
		t.Fatalf("sent %d messages, want 1", len(log))
	}
	tc, ok := proto.Decode(log[0]).TimeConfig()
	if !ok || tc.SampleInterval != 60 || tc.SampleRounds != 5 {
		t.Errorf("sent time config = %+v, %v", tc, ok)
	}
}

func TestGateway_ServeSensorBurst(t *testing.T) {
	g, h := newTestGateway(t)
	h.reply(10*time.Millisecond, sensorData(100))
	h.reply(20*time.Millisecond, sensorData(160))
	// addressed elsewhere, must not join the burst
	other := sensorData(170)
	other.Dest = proto.Address{9, 9, 9, 9, 9, 9}
	h.reply(30*time.Millisecond, other)
	h.script(func(m *proto.Message) {
		if m.IsType(proto.TypeTimeConfig) {
			h.reply(20*time.Millisecond, proto.NewControl(proto.TypeAckTime, nodeAddr, gwAddr))
		}
	})

	ex, err := g.Serve(time.Second)
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if ex.Hello || !ex.Acked || len(ex.Readings) != 2 {
		t.Fatalf("exchange = %+v", ex)
	}
	for i, ts := range []uint32{100, 160} {
		r := ex.Readings[i]
		if r.Data.Timestamp != ts || r.Source != nodeAddr || len(r.LPP) == 0 {
			t.Errorf("reading %d = %+v", i, r)
		}
	}
}

func TestGateway_ResendsTimeConfigOnRepeat(t *testing.T) {
	g, h := newTestGateway(t)
	h.reply(10*time.Millisecond, proto.NewControl(proto.TypeHello, nodeAddr, proto.Broadcast))
	sent := 0
	h.script(func(m *proto.Message) {
		if !m.IsType(proto.TypeTimeConfig) {
			return
		}
		if sent++; sent == 1 {
			h.reply(10*time.Millisecond, proto.NewControl(proto.TypeRepeat, nodeAddr, gwAddr))
		} else {
			h.reply(10*time.Millisecond, proto.NewControl(proto.TypeAckTime, nodeAddr, gwAddr))
		}
	})

	ex, err := g.Serve(time.Second)
	if err != nil || !ex.Acked {
		t.Fatalf("Serve() = %+v, %v", ex, err)
	}
	if sent != 2 {
		t.Errorf("time config sent %d times, want 2", sent)
	}
}

func TestGateway_ServeTimeout(t *testing.T) {
	g, h := newTestGateway(t)
	if _, err := g.Serve(time.Second); !errors.Is(err, proto.ErrTimeout) {
		t.Errorf("Serve() error = %v, want %v", err, proto.ErrTimeout)
	}
	if len(h.radio.GetTxLog()) != 0 {
		t.Error("idle gateway transmitted")
	}
}

func TestGateway_RunStopsOnCancel(t *testing.T) {
	g, h := newTestGateway(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.reply(10*time.Millisecond, proto.NewControl(proto.TypeHello, nodeAddr, proto.Broadcast))

	var served []*Exchange
	err := g.Run(ctx, func(ex *Exchange) {
		served = append(served, ex)
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want %v", err, context.Canceled)
	}
	if len(served) != 1 || served[0].Acked {
		t.Errorf("served = %+v", served)
	}
}

func TestEncodeLPP(t *testing.T) {
	b := EncodeLPP(proto.SensorData{Values: []proto.SensorValue{
		{TypeTag: TagTemperature, Value: 21.5},
		{TypeTag: TagHumidity, Value: 50},
		{TypeTag: TagSoilMoisture, Value: 2.5},
	}})
	// channel, LPP type, value bytes
	if len(b) != 4+3+4 {
		t.Fatalf("EncodeLPP() = %x, want 11 bytes", b)
	}
	checks := []struct {
		at   int
		want byte
	}{
		{0, 0}, {1, 0x67},
		{4, 1}, {5, 0x68},
		{7, 2}, {8, 0x02},
	}
	for _, c := range checks {
		if b[c.at] != c.want {
			t.Errorf("byte %d = %#x, want %#x", c.at, b[c.at], c.want)
		}
	}
}
