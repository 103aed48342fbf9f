package node

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
	"github.com/notnil/arke/messages"
	"github.com/notnil/arke/nvram"
)

type harness struct {
	loop   *canbus.LoopbackBus
	host   canbus.Bus
	store  *nvram.Memory
	runner *Runner
	done   chan error
	cancel context.CancelFunc
}

func start(t *testing.T, addr byte, app Application) *harness {
	t.Helper()
	loop := canbus.NewLoopbackBus()
	h := &harness{
		loop:  loop,
		host:  loop.Open(),
		store: nvram.NewMemory(addr),
		done:  make(chan error, 1),
	}
	h.runner = &Runner{
		Open: func(context.Context) (canbus.Bus, error) {
			return loop.Open(), nil
		},
		Store:        h.store,
		Family:       arke.Celaeno,
		Version:      arke.Version{Major: 4, Minor: 2, Length: 2},
		RestartDelay: time.Millisecond,
		Application:  app,
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.runner.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(time.Second):
			t.Errorf("runner did not stop")
		}
		h.host.Close()
		loop.Close()
	})
	return h
}

// expect resends f until the host sees a frame with identifier id.
func (h *harness) expect(t *testing.T, f canbus.Frame, id uint32) canbus.Frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := h.host.Send(context.Background(), f); err != nil {
			t.Fatalf("send: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		for {
			got, err := h.host.Receive(ctx)
			if err != nil {
				break
			}
			if got.ID == id {
				cancel()
				return got
			}
		}
		cancel()
	}
	t.Fatalf("no frame 0x%03x", id)
	return canbus.Frame{}
}

func TestRunner_PingAndRestartOnIDChange(t *testing.T) {
	h := start(t, 1, nil)
	l := arke.DefaultLayout

	ping := messages.Ping(l, arke.Celaeno)
	hb := h.expect(t, ping, 0x781)
	if !bytes.Equal(hb.Payload(), []byte{4, 2}) {
		t.Fatalf("heartbeat payload % x", hb.Payload())
	}

	change, err := messages.IDChangeRequest(l, arke.Celaeno, 1, 5)
	if err != nil {
		t.Fatalf("IDChangeRequest: %v", err)
	}
	if err := h.host.Send(context.Background(), change); err != nil {
		t.Fatalf("send: %v", err)
	}
	h.expect(t, ping, 0x785)
	if addr, _ := h.store.LoadAddress(); addr != 5 {
		t.Fatalf("stored address %d", addr)
	}
	if h.runner.Restarts() != 1 {
		t.Fatalf("restarts = %d", h.runner.Restarts())
	}
}

func TestRunner_RepairsStoredAddress(t *testing.T) {
	h := start(t, nvram.Erased, nil)
	h.expect(t, messages.Ping(arke.DefaultLayout, arke.Celaeno), 0x781)
	if addr, _ := h.store.LoadAddress(); addr != 1 {
		t.Fatalf("repaired address %d", addr)
	}
}

func TestRunner_DecoderReportsMalformedPayloads(t *testing.T) {
	got := make(chan messages.Message, 4)
	h := start(t, 2, &Decoder{Handler: func(e *arke.Engine, m messages.Message) { got <- m }})
	l := arke.DefaultLayout

	sp, err := messages.Frame(l, &messages.CelaenoSetPoint{Power: 200}, 2, false)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	// Wait for the node to be up before relying on a single delivery.
	h.expect(t, messages.Ping(l, arke.Celaeno), 0x782)
	if err := h.host.Send(context.Background(), sp); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case m := <-got:
		p, ok := m.Payload.(*messages.CelaenoSetPoint)
		if !ok || p.Power != 200 || m.Node != 2 {
			t.Fatalf("handled %s", m)
		}
	case <-time.After(time.Second):
		t.Fatalf("set point not handled")
	}

	// A status class addressed to the node carries no payload: malformed.
	bad := canbus.MustFrame(uint32(l.Encode(arke.Message, arke.ClassCelaenoStatus, 2)), nil)
	report := h.expect(t, bad, uint32(l.Encode(arke.NetworkControl, 0, arke.NodeID(arke.CmdErrorReport))))
	if !bytes.Equal(report.Payload(), []byte{0x30, 2, 0x01, 0x00}) {
		t.Fatalf("error report % x", report.Payload())
	}
}

func TestRunner_RequiresOpenAndStore(t *testing.T) {
	r := &Runner{}
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected setup error")
	}
	r = &Runner{
		Open:  func(context.Context) (canbus.Bus, error) { return nil, errors.New("no bus") },
		Store: nvram.NewMemory(1),
	}
	if err := r.Run(context.Background()); err == nil || errors.Is(err, arke.ErrRestart) {
		t.Fatalf("open failure err = %v", err)
	}
}
