package arke

import "log/slog"

// Command is a network-control command, carried in the sub-address field
// of a control identifier.
type Command uint8

const (
	CmdReset            Command = 0
	CmdSync             Command = 1
	CmdIDChange         Command = 2
	CmdErrorReport      Command = 3
	CmdHeartbeatRequest Command = 7
)

func (c Command) String() string {
	switch c {
	case CmdReset:
		return "reset"
	case CmdSync:
		return "sync"
	case CmdIDChange:
		return "id-change"
	case CmdErrorReport:
		return "error-report"
	case CmdHeartbeatRequest:
		return "heartbeat-request"
	}
	return "unknown"
}

func (e *Engine) armControl() {
	e.control.ID, e.control.Mask = e.layout.ControlFilter()
	e.control.Length = uint8(len(e.controlData))
	e.control.Data = e.controlData[:]
	if err := e.transport.Listen(&e.control); err != nil {
		e.logger.Debug("arke control slot not armed", "error", err)
	}
}

// serviceControl handles a completed control frame and re-arms the slot
// whatever the outcome. It only returns restart errors.
func (e *Engine) serviceControl() error {
	s := e.transport.Status(&e.control)
	if s == Completed {
		if err := e.handleControl(); err != nil {
			return err
		}
	}
	if s != Pending {
		e.armControl()
	}
	return nil
}

func (e *Engine) handleControl() error {
	_, target, sub := e.layout.Decode(e.control.ID)
	if target != BroadcastClass && target != e.family.Class {
		return nil
	}
	cmd := Command(sub)
	payload := e.controlData[:min(int(e.control.Length), len(e.controlData))]
	addr := e.identity.Address()

	switch cmd {
	case CmdReset:
		if len(payload) == 0 || (len(payload) == 1 && (payload[0] == 0 || NodeID(payload[0]) == addr)) {
			return e.restart(ErrRestart, "reset request")
		}
	case CmdHeartbeatRequest:
		if e.hb.request(payload, e.clock.Now()) {
			e.logger.Debug("arke heartbeat configured",
				"mode", e.hb.mode.String(),
				"period", int(e.hb.period),
			)
		}
	case CmdIDChange:
		if len(payload) != 2 || NodeID(payload[0]) != addr {
			return nil
		}
		err := e.identity.ChangeTo(NodeID(payload[1]))
		if err == nil || !isRestart(err) {
			return nil
		}
		return e.restart(err, "address change", slog.Int("new", int(payload[1])))
	}
	return nil
}
