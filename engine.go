package arke

import (
	"errors"
	"fmt"
	"log/slog"
)

// Config selects the node's family and wire format.
type Config struct {
	Family  Family
	Layout  Layout // zero value selects DefaultLayout
	Version Version

	// RxBuffer receives inbound application payloads. It is shared by the
	// node-addressed and family slots; nil allocates 8 bytes.
	RxBuffer []byte

	// Restarter is called once when the engine halts for a restart.
	Restarter Restarter
	Logger    *slog.Logger
}

// Inbound is an application message surfaced by Poll. Data aliases the
// engine's receive buffer and is valid until the next Poll.
type Inbound struct {
	ID     IDT
	Length uint8
	Data   []byte
}

// Engine is the per-node protocol state. It is not safe for concurrent use:
// Poll, Send and ReportError must be called from the host's poll loop.
type Engine struct {
	family    Family
	layout    Layout
	transport Transport
	clock     Clock
	identity  *Identity
	restarter Restarter
	logger    *slog.Logger

	control     Txn
	controlData [8]byte
	rx          Txn
	broadcast   Txn
	rxBuffer    []byte

	hb heartbeat

	errors   errorQueue
	errTxn   Txn
	errData  [4]byte
	sendTxn  Txn
	sendData [8]byte

	halted bool
}

// New builds an engine and arms its listening slots. Slots that cannot be
// armed yet are retried by Poll.
func New(cfg Config, t Transport, c Clock, id *Identity) (*Engine, error) {
	if cfg.Layout == (Layout{}) {
		cfg.Layout = DefaultLayout
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Family.validate(cfg.Layout); err != nil {
		return nil, err
	}
	if cfg.Version.Length == 0 {
		cfg.Version.Length = 2
	}
	if cfg.Version.Length < 2 || cfg.Version.Length > 4 {
		return nil, fmt.Errorf("arke: version length %d (valid 2..4)", cfg.Version.Length)
	}
	if t == nil || c == nil || id == nil {
		return nil, errors.New("arke: transport, clock and identity are required")
	}
	if cfg.RxBuffer == nil {
		cfg.RxBuffer = make([]byte, 8)
	}
	if len(cfg.RxBuffer) > 8 {
		cfg.RxBuffer = cfg.RxBuffer[:8]
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := &Engine{
		family:    cfg.Family,
		layout:    cfg.Layout,
		transport: t,
		clock:     c,
		identity:  id,
		restarter: cfg.Restarter,
		rxBuffer:  cfg.RxBuffer,
	}
	e.logger = cfg.Logger.With("family", e.family.Name, "node", int(id.Address()))
	e.hb.init(e.layout.Encode(Heartbeat, e.family.Class, id.Address()), cfg.Version)
	e.errTxn = Txn{
		ID:     e.layout.Encode(NetworkControl, BroadcastClass, NodeID(CmdErrorReport)),
		Length: uint8(len(e.errData)),
		Data:   e.errData[:],
	}
	e.sendTxn.Data = e.sendData[:]

	// Arming order is slot priority: control first, then frames addressed
	// to this node ahead of family-wide ones.
	e.armControl()
	e.armRx()
	e.armBroadcast()
	return e, nil
}

// Address returns the node address the engine runs with.
func (e *Engine) Address() NodeID { return e.identity.Address() }

// Family returns the node's family.
func (e *Engine) Family() Family { return e.family }

// Layout returns the identifier layout in use.
func (e *Engine) Layout() Layout { return e.layout }

// HeartbeatMode reports the heartbeat scheduler state.
func (e *Engine) HeartbeatMode() HeartbeatMode { return e.hb.mode }

// PendingErrors returns the number of queued error reports.
func (e *Engine) PendingErrors() int { return e.errors.len() }

// Halted reports whether the engine stopped for a restart.
func (e *Engine) Halted() bool { return e.halted }

func (e *Engine) armRx() {
	e.rx.ID, e.rx.Mask = e.layout.NodeFilter(e.family, e.identity.Address())
	e.rx.Length = uint8(len(e.rxBuffer))
	e.rx.Data = e.rxBuffer
	if err := e.transport.Listen(&e.rx); err != nil {
		e.logger.Debug("arke rx slot not armed", "error", err)
	}
}

func (e *Engine) armBroadcast() {
	e.broadcast.ID, e.broadcast.Mask = e.layout.FamilyFilter(e.family)
	e.broadcast.Length = uint8(len(e.rxBuffer))
	e.broadcast.Data = e.rxBuffer
	if err := e.transport.Listen(&e.broadcast); err != nil {
		e.logger.Debug("arke broadcast slot not armed", "error", err)
	}
}

// Poll advances the engine by one cycle: control channel, inbound
// application slots, error queue, heartbeat. It returns at most one newly
// received application message. The only error is one wrapping ErrRestart,
// after which the engine is halted.
func (e *Engine) Poll() (Inbound, bool, error) {
	if e.halted {
		return Inbound{}, false, ErrRestart
	}
	if err := e.serviceControl(); err != nil {
		return Inbound{}, false, err
	}
	in, ok := e.serviceInbound()
	e.drainErrors()
	if e.hb.advance(e.transport, e.clock) {
		e.logger.Debug("arke heartbeat sent", "length", int(e.hb.txn.Length))
	}
	return in, ok, nil
}

// serviceInbound checks the node-addressed slot, then the family slot
// only when the first yielded nothing.
func (e *Engine) serviceInbound() (Inbound, bool) {
	if in, ok := e.collect(&e.rx, e.armRx); ok {
		return in, true
	}
	return e.collect(&e.broadcast, e.armBroadcast)
}

func (e *Engine) collect(t *Txn, rearm func()) (Inbound, bool) {
	s := e.transport.Status(t)
	var in Inbound
	ok := s == Completed
	if ok {
		n := min(int(t.Length), len(e.rxBuffer))
		in = Inbound{ID: t.ID, Length: t.Length, Data: e.rxBuffer[:n]}
	}
	if s != Pending {
		rearm()
	}
	return in, ok
}

// Send transmits payload as an application message of the given class,
// from this node. emergency selects the high-priority message type. The
// payload is zero-padded or truncated to the class wire length. When no
// slot is free Send returns ErrSlotExhausted and nothing is submitted.
func (e *Engine) Send(class Class, emergency bool, payload []byte) error {
	if e.halted {
		return ErrRestart
	}
	info, ok := LookupClass(class)
	if !ok {
		return fmt.Errorf("%w: 0x%02x", ErrUnknownClass, uint8(class))
	}
	typ := Message
	if emergency {
		typ = HighPriority
	}
	e.sendTxn.ID = e.layout.Encode(typ, info.Class, e.identity.Address())
	e.sendTxn.Length = info.Length
	n := copy(e.sendData[:info.Length], payload)
	clear(e.sendData[n:info.Length])
	return e.transport.Send(&e.sendTxn)
}

// ReportError queues an error code for transmission. A full queue drops
// the code silently.
func (e *Engine) ReportError(code uint16) {
	if !e.errors.push(code) {
		e.logger.Debug("arke error queue full, report dropped", "code", code)
	}
}

// drainErrors submits the oldest pending report, dequeuing it only once the
// transport accepted it.
func (e *Engine) drainErrors() {
	code, ok := e.errors.peek()
	if !ok || e.transport.Status(&e.errTxn) != Unsubmitted {
		return
	}
	e.errData[0] = byte(e.family.Class)
	e.errData[1] = byte(e.identity.Address())
	e.errData[2] = byte(code)
	e.errData[3] = byte(code >> 8)
	if err := e.transport.Send(&e.errTxn); err != nil {
		return
	}
	e.errors.pop()
}

func isRestart(err error) bool { return errors.Is(err, ErrRestart) }

// restart halts the engine and calls the platform hook once.
func (e *Engine) restart(cause error, reason string, attrs ...any) error {
	if !e.halted {
		e.halted = true
		e.logger.Info("arke restart", append([]any{"reason", reason, "cause", cause}, attrs...)...)
		if e.restarter != nil {
			e.restarter.Restart()
		}
	}
	return cause
}
