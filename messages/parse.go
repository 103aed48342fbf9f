package messages

import (
	"fmt"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
)

// Message is a decoded Arke frame.
//
// For network-control frames Class is the targeted family (zero for all)
// and Command the command; for the other types Class and Node name the
// message class and the node that sent it. A remote frame is a Request
// for that class from node Node and carries no payload.
type Message struct {
	Type    arke.MessageType
	Class   arke.Class
	Node    arke.NodeID
	Command arke.Command
	Request bool
	Payload Payload // nil for sync commands and requests
}

// Parse decodes f under layout l. On a payload error the returned Message
// still carries the identifier fields.
func Parse(l arke.Layout, f canbus.Frame) (Message, error) {
	if f.Extended || f.ID > canbus.MaxStandardID {
		return Message{}, fmt.Errorf("%w: %s", ErrNotArke, f)
	}
	t, c, sub := l.Decode(arke.IDT(f.ID))
	m := Message{Type: t, Class: c, Node: sub, Request: f.RTR}
	if m.Request {
		if t == arke.NetworkControl {
			m.Node = 0
			m.Command = arke.Command(sub)
		}
		return m, nil
	}
	name := c.String()
	switch t {
	case arke.NetworkControl:
		m.Node = 0
		m.Command = arke.Command(sub)
		name = m.Command.String()
		switch m.Command {
		case arke.CmdReset:
			m.Payload = &ResetRequestData{Target: c}
		case arke.CmdHeartbeatRequest:
			m.Payload = &HeartbeatRequestData{Target: c}
		case arke.CmdIDChange:
			m.Payload = &IDChangeRequestData{Target: c}
		case arke.CmdErrorReport:
			m.Payload = &ErrorReport{}
		case arke.CmdSync:
			return m, nil
		default:
			return m, fmt.Errorf("%w %d", ErrUnknownCommand, sub)
		}
	case arke.Heartbeat:
		m.Payload = &HeartbeatData{Family: c, Node: sub}
		name = "heartbeat"
	default:
		p, err := New(c)
		if err != nil {
			return m, err
		}
		m.Payload = p
	}
	if err := m.Payload.UnmarshalPayload(f.Payload()); err != nil {
		return m, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

func (m Message) String() string {
	if m.Request {
		switch m.Type {
		case arke.NetworkControl:
			return fmt.Sprintf("%s request %s -> %s", m.Type, m.Command, targetName(m.Class))
		case arke.Heartbeat:
			return fmt.Sprintf("%s request %s from %d", m.Type, targetName(m.Class), m.Node)
		}
		return fmt.Sprintf("%s request %s from %d", m.Type, m.Class, m.Node)
	}
	switch m.Type {
	case arke.NetworkControl:
		if m.Payload == nil {
			return fmt.Sprintf("%s %s -> %s", m.Type, m.Command, targetName(m.Class))
		}
		return fmt.Sprintf("%s %s", m.Type, m.Payload)
	case arke.Heartbeat:
		return fmt.Sprintf("%s %s", m.Type, m.Payload)
	}
	if m.Payload == nil {
		return fmt.Sprintf("%s %s from %d", m.Type, m.Class, m.Node)
	}
	return fmt.Sprintf("%s from %d: %s", m.Type, m.Node, m.Payload)
}
