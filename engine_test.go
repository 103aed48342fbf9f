package arke

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type sentFrame struct {
	ID   IDT
	Data []byte
}

type pendingFrame struct {
	id   IDT
	data []byte
}

// fakeTransport completes sends immediately and delivers inbound frames to
// the first armed listener, in the order listeners were first armed.
type fakeTransport struct {
	exhausted bool

	order     []*Txn
	listening map[*Txn]bool
	results   map[*Txn]TxnStatus
	received  map[*Txn]pendingFrame
	listens   map[*Txn]int
	sent      []sentFrame
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		listening: make(map[*Txn]bool),
		results:   make(map[*Txn]TxnStatus),
		received:  make(map[*Txn]pendingFrame),
		listens:   make(map[*Txn]int),
	}
}

func (f *fakeTransport) Listen(t *Txn) error {
	if f.exhausted {
		return ErrSlotExhausted
	}
	if _, seen := f.listens[t]; !seen {
		f.order = append(f.order, t)
	}
	f.listens[t]++
	f.listening[t] = true
	return nil
}

func (f *fakeTransport) Send(t *Txn) error {
	if f.exhausted {
		return ErrSlotExhausted
	}
	f.sent = append(f.sent, sentFrame{ID: t.ID, Data: append([]byte(nil), t.Data[:t.Length]...)})
	f.results[t] = Completed
	return nil
}

func (f *fakeTransport) Status(t *Txn) TxnStatus {
	if f.listening[t] {
		return Pending
	}
	s, ok := f.results[t]
	if !ok {
		return Unsubmitted
	}
	delete(f.results, t)
	if fr, ok := f.received[t]; ok {
		t.ID = fr.id
		t.Length = uint8(copy(t.Data, fr.data))
		delete(f.received, t)
	}
	return s
}

func (f *fakeTransport) deliver(id IDT, data []byte) bool {
	for _, t := range f.order {
		if f.listening[t] && Matches(id, t.ID, t.Mask) {
			f.listening[t] = false
			f.results[t] = Completed
			f.received[t] = pendingFrame{id: id, data: append([]byte(nil), data...)}
			return true
		}
	}
	return false
}

func (f *fakeTransport) takeSent() []sentFrame {
	out := f.sent
	f.sent = nil
	return out
}

type manualClock struct{ now Tick }

func (c *manualClock) Now() Tick { return c.now }

type harness struct {
	t        *testing.T
	engine   *Engine
	tr       *fakeTransport
	clock    *manualClock
	store    *memStore
	restarts int
}

func newHarness(t *testing.T, f Family, addr byte) *harness {
	t.Helper()
	h := &harness{t: t, tr: newFakeTransport(), clock: &manualClock{}, store: &memStore{addr: addr}}
	id, err := LoadIdentity(h.store, DefaultLayout)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	h.engine, err = New(Config{
		Family:    f,
		Version:   Version{Major: 1, Minor: 2, Patch: 3, Length: 3},
		Restarter: RestartFunc(func() { h.restarts++ }),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, h.tr, h.clock, id)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return h
}

func (h *harness) poll() (Inbound, bool) {
	h.t.Helper()
	in, ok, err := h.engine.Poll()
	if err != nil {
		h.t.Fatalf("poll: %v", err)
	}
	return in, ok
}

func (h *harness) control(target Class, cmd Command, payload ...byte) {
	h.t.Helper()
	if !h.tr.deliver(DefaultLayout.Encode(NetworkControl, target, NodeID(cmd)), payload) {
		h.t.Fatalf("control frame not accepted")
	}
}

func TestEngine_SingleHeartbeat(t *testing.T) {
	h := newHarness(t, Celaeno, 1)
	h.control(BroadcastClass, CmdHeartbeatRequest)
	h.poll()

	sent := h.tr.takeSent()
	if len(sent) != 1 {
		t.Fatalf("sent %d frames want 1", len(sent))
	}
	if sent[0].ID != 0x781 || !bytes.Equal(sent[0].Data, []byte{1, 2, 3}) {
		t.Fatalf("heartbeat %03x % x", sent[0].ID, sent[0].Data)
	}
	if h.engine.HeartbeatMode() != HeartbeatNone {
		t.Fatalf("mode %v want none", h.engine.HeartbeatMode())
	}
	for i := 0; i < 100; i++ {
		h.clock.now += 50
		h.poll()
	}
	if n := len(h.tr.takeSent()); n != 0 {
		t.Fatalf("%d extra heartbeats", n)
	}

	// Two zero bytes are also a single request. The first poll only
	// collects the previous heartbeat's completion.
	h.control(Celaeno.Class, CmdHeartbeatRequest, 0, 0)
	h.poll()
	h.poll()
	if n := len(h.tr.takeSent()); n != 1 {
		t.Fatalf("zero-period request sent %d", n)
	}
}

func TestEngine_RepeatingHeartbeatSurvivesExhaustion(t *testing.T) {
	h := newHarness(t, Zeus, 4)
	h.control(BroadcastClass, CmdHeartbeatRequest, 0x64, 0x00)

	var times []Tick
	step := func() {
		h.poll()
		for _, f := range h.tr.takeSent() {
			if len(f.Data) != 0 {
				t.Fatalf("repeating heartbeat carries payload % x", f.Data)
			}
			if f.ID != DefaultLayout.Encode(Heartbeat, Zeus.Class, 4) {
				t.Fatalf("heartbeat id %03x", f.ID)
			}
			times = append(times, h.clock.now)
		}
		h.clock.now += 10
	}
	for h.clock.now < 1000 {
		step()
	}
	h.tr.exhausted = true
	for h.clock.now < 1130 {
		step()
	}
	h.tr.exhausted = false
	for h.clock.now < 1500 {
		step()
	}

	want := []Tick{100, 200, 300, 400, 500, 600, 700, 800, 900, 1130, 1230, 1330, 1430}
	if len(times) != len(want) {
		t.Fatalf("heartbeats at %v want %v", times, want)
	}
	for i := range want {
		if times[i] != want[i] {
			t.Fatalf("heartbeats at %v want %v", times, want)
		}
	}
	if h.engine.HeartbeatMode() != HeartbeatRepeating {
		t.Fatalf("mode %v", h.engine.HeartbeatMode())
	}
}

func TestEngine_HeartbeatAcrossTickWrap(t *testing.T) {
	h := newHarness(t, Helios, 1)
	h.clock.now = 0xffd0
	h.control(BroadcastClass, CmdHeartbeatRequest, 0x64, 0x00)
	var sentAt []Tick
	for i := 0; i < 30; i++ {
		h.poll()
		if len(h.tr.takeSent()) > 0 {
			sentAt = append(sentAt, h.clock.now)
		}
		h.clock.now += 10
	}
	if len(sentAt) != 2 || sentAt[0] != 0x0034 || sentAt[1] != 0x0098 {
		t.Fatalf("heartbeats at %v", sentAt)
	}
}

func TestEngine_ErrorQueueOrderAndOverflow(t *testing.T) {
	h := newHarness(t, Celaeno, 3)
	for code := uint16(0); code < 20; code++ {
		h.engine.ReportError(0x100 + code)
	}
	if n := h.engine.PendingErrors(); n != ErrorQueueCapacity {
		t.Fatalf("pending %d want %d", n, ErrorQueueCapacity)
	}

	h.tr.exhausted = true
	for i := 0; i < 5; i++ {
		h.poll()
	}
	if len(h.tr.takeSent()) != 0 || h.engine.PendingErrors() != ErrorQueueCapacity {
		t.Fatalf("exhausted transport must not dequeue")
	}
	h.tr.exhausted = false

	var codes []uint16
	for i := 0; i < 40; i++ {
		h.poll()
		for _, f := range h.tr.takeSent() {
			if f.ID != 0x003 || len(f.Data) != 4 || f.Data[0] != byte(Celaeno.Class) || f.Data[1] != 3 {
				t.Fatalf("error report %03x % x", f.ID, f.Data)
			}
			codes = append(codes, uint16(f.Data[2])|uint16(f.Data[3])<<8)
		}
		if i == 10 {
			// Exhaustion in the middle of the drain retries the same head.
			h.tr.exhausted = true
			h.poll()
			h.poll()
			h.tr.exhausted = false
		}
	}
	if len(codes) != ErrorQueueCapacity {
		t.Fatalf("drained %d reports: %x", len(codes), codes)
	}
	for i, c := range codes {
		if c != 0x100+uint16(i) {
			t.Fatalf("report %d = %#x want %#x", i, c, 0x100+i)
		}
	}
	if h.engine.PendingErrors() != 0 {
		t.Fatalf("queue not empty")
	}
}

func TestEngine_SendExhaustedHasNoSideEffect(t *testing.T) {
	h := newHarness(t, Zeus, 2)
	listens := len(h.tr.order)
	h.tr.exhausted = true
	if err := h.engine.Send(ClassZeusReport, false, []byte{1, 2, 3}); !errors.Is(err, ErrSlotExhausted) {
		t.Fatalf("send: got %v want ErrSlotExhausted", err)
	}
	if len(h.tr.sent) != 0 || len(h.tr.results) != 0 || len(h.tr.order) != listens {
		t.Fatalf("exhausted send changed slot state")
	}
	h.tr.exhausted = false

	if err := h.engine.Send(ClassZeusReport, false, []byte{1, 2, 3}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := h.engine.Send(ClassZeusControlPoint, true, []byte{9, 9, 9, 9, 9, 9}); err != nil {
		t.Fatalf("emergency send: %v", err)
	}
	sent := h.tr.takeSent()
	if sent[0].ID != 0x5ca || !bytes.Equal(sent[0].Data, []byte{1, 2, 3, 0, 0, 0, 0, 0}) {
		t.Fatalf("report frame %03x % x", sent[0].ID, sent[0].Data)
	}
	if sent[1].ID != DefaultLayout.Encode(HighPriority, ClassZeusControlPoint, 2) || len(sent[1].Data) != 4 {
		t.Fatalf("control point frame %03x % x", sent[1].ID, sent[1].Data)
	}
	if err := h.engine.Send(Class(0x01), false, nil); !errors.Is(err, ErrUnknownClass) {
		t.Fatalf("unknown class: got %v", err)
	}
}

func TestEngine_Reset(t *testing.T) {
	cases := []struct {
		name    string
		target  Class
		payload []byte
		restart bool
	}{
		{"broadcast no payload", BroadcastClass, nil, true},
		{"family to all nodes", Zeus.Class, []byte{0}, true},
		{"own address", Zeus.Class, []byte{5}, true},
		{"other address", Zeus.Class, []byte{6}, false},
		{"other family", Helios.Class, nil, false},
		{"malformed", BroadcastClass, []byte{5, 0}, false},
	}
	for _, tc := range cases {
		h := newHarness(t, Zeus, 5)
		h.control(tc.target, CmdReset, tc.payload...)
		_, _, err := h.engine.Poll()
		if tc.restart {
			if !errors.Is(err, ErrRestart) || h.restarts != 1 || !h.engine.Halted() {
				t.Fatalf("%s: err=%v restarts=%d", tc.name, err, h.restarts)
			}
			if _, _, err := h.engine.Poll(); !errors.Is(err, ErrRestart) {
				t.Fatalf("%s: halted engine polled: %v", tc.name, err)
			}
			if err := h.engine.Send(ClassZeusReport, false, nil); !errors.Is(err, ErrRestart) {
				t.Fatalf("%s: halted engine sent: %v", tc.name, err)
			}
			if h.restarts != 1 {
				t.Fatalf("%s: restarted %d times", tc.name, h.restarts)
			}
			continue
		}
		if err != nil || h.restarts != 0 {
			t.Fatalf("%s: err=%v restarts=%d", tc.name, err, h.restarts)
		}
		if h.tr.listens[&h.engine.control] != 2 {
			t.Fatalf("%s: control slot not re-armed", tc.name)
		}
	}
}

func TestEngine_IDChange(t *testing.T) {
	h := newHarness(t, Notus, 2)
	h.control(Notus.Class, CmdIDChange, 3, 6)
	h.poll()
	h.control(BroadcastClass, CmdIDChange, 2, 9)
	h.poll()
	if h.restarts != 0 || h.store.addr != 2 {
		t.Fatalf("ignored change took effect: restarts=%d stored=%d", h.restarts, h.store.addr)
	}

	h.control(Notus.Class, CmdIDChange, 2, 6)
	if _, _, err := h.engine.Poll(); !errors.Is(err, ErrRestart) {
		t.Fatalf("id change: got %v", err)
	}
	if h.store.addr != 6 || h.restarts != 1 || h.engine.Address() != 2 {
		t.Fatalf("stored=%d restarts=%d running=%d", h.store.addr, h.restarts, h.engine.Address())
	}
}

func TestEngine_InboundPriority(t *testing.T) {
	h := newHarness(t, Celaeno, 1)
	own := DefaultLayout.Encode(Message, ClassCelaenoSetPoint, 1)
	other := DefaultLayout.Encode(Message, ClassCelaenoConfig, 4)

	if !h.tr.deliver(own, []byte{0x80}) || !h.tr.deliver(other, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("frames not accepted")
	}
	in, ok := h.poll()
	if !ok || in.ID != own || in.Length != 1 || in.Data[0] != 0x80 {
		t.Fatalf("first poll: %+v %v", in, ok)
	}
	in, ok = h.poll()
	if !ok || in.ID != other || in.Length != 8 || !bytes.Equal(in.Data, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("second poll: %+v %v", in, ok)
	}
	if _, ok := h.poll(); ok {
		t.Fatalf("third poll should be empty")
	}
	if h.tr.deliver(DefaultLayout.Encode(Message, ClassZeusReport, 1), nil) {
		t.Fatalf("foreign family frame accepted")
	}
}

func TestEngine_RearmsAfterExhaustedListen(t *testing.T) {
	h := newHarness(t, Celaeno, 1)
	h.control(BroadcastClass, CmdSync)
	h.tr.exhausted = true
	h.poll()
	if h.tr.listening[&h.engine.control] {
		t.Fatalf("control should not be armed while exhausted")
	}
	h.tr.exhausted = false
	h.poll()
	if !h.tr.listening[&h.engine.control] {
		t.Fatalf("control slot not re-armed")
	}
}
