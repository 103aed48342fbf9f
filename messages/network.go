package messages

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
)

// Builders for the network-control commands a host sends. The zero Family
// targets every family.

func controlFrame(l arke.Layout, f arke.Family, cmd arke.Command, payload []byte) canbus.Frame {
	return newFrame(l.Encode(arke.NetworkControl, f.Class, arke.NodeID(cmd)), payload)
}

// ResetRequest asks node id of family f to restart. Id 0 resets every node
// of the family.
func ResetRequest(l arke.Layout, f arke.Family, id arke.NodeID) (canbus.Frame, error) {
	if id > l.MaxAddress() {
		return canbus.Frame{}, fmt.Errorf("%w: %d", arke.ErrInvalidAddress, id)
	}
	return controlFrame(l, f, arke.CmdReset, []byte{byte(id)}), nil
}

// Ping asks every node of family f for a single heartbeat.
func Ping(l arke.Layout, f arke.Family) canbus.Frame {
	return controlFrame(l, f, arke.CmdHeartbeatRequest, nil)
}

// HeartbeatRequest asks the nodes of family f to send a heartbeat every
// period. A zero period asks for a single one.
func HeartbeatRequest(l arke.Layout, f arke.Family, period time.Duration) (canbus.Frame, error) {
	ms, err := durationUnits(period, time.Millisecond)
	if err != nil {
		return canbus.Frame{}, err
	}
	return controlFrame(l, f, arke.CmdHeartbeatRequest, binary.LittleEndian.AppendUint16(nil, ms)), nil
}

// IDChangeRequest moves node old of family f to address next.
func IDChangeRequest(l arke.Layout, f arke.Family, old, next arke.NodeID) (canbus.Frame, error) {
	if old == 0 || old > l.MaxAddress() {
		return canbus.Frame{}, fmt.Errorf("%w: %d", arke.ErrInvalidAddress, old)
	}
	if next == 0 || next > l.MaxAddress() {
		return canbus.Frame{}, fmt.Errorf("%w: %d", arke.ErrInvalidAddress, next)
	}
	return controlFrame(l, f, arke.CmdIDChange, []byte{byte(old), byte(next)}), nil
}

func targetName(c arke.Class) string {
	if c == arke.BroadcastClass {
		return "all"
	}
	if f, ok := arke.FamilyOf(c); ok && f.Class == c {
		return f.Name
	}
	return fmt.Sprintf("0x%02x", uint8(c))
}

// ResetRequestData is a decoded reset command.
type ResetRequestData struct {
	Target arke.Class
	Node   arke.NodeID
}

func (d *ResetRequestData) MarshalPayload() ([]byte, error) { return []byte{byte(d.Node)}, nil }

// UnmarshalPayload accepts an empty payload as a reset of every node.
func (d *ResetRequestData) UnmarshalPayload(buf []byte) error {
	d.Node = 0
	if len(buf) > 0 {
		d.Node = arke.NodeID(buf[0])
	}
	return nil
}

func (d *ResetRequestData) String() string {
	node := "all"
	if d.Node != 0 {
		node = fmt.Sprint(d.Node)
	}
	return fmt.Sprintf("ResetRequest{Target: %s, Node: %s}", targetName(d.Target), node)
}

// HeartbeatRequestData is a decoded heartbeat request. A zero Period is a
// single ping.
type HeartbeatRequestData struct {
	Target arke.Class
	Period time.Duration
}

func (d *HeartbeatRequestData) MarshalPayload() ([]byte, error) {
	if d.Period == 0 {
		return nil, nil
	}
	ms, err := durationUnits(d.Period, time.Millisecond)
	if err != nil {
		return nil, err
	}
	return binary.LittleEndian.AppendUint16(nil, ms), nil
}

func (d *HeartbeatRequestData) UnmarshalPayload(buf []byte) error {
	if len(buf) == 0 {
		d.Period = 0
		return nil
	}
	if err := checkSize(buf, 2); err != nil {
		return err
	}
	d.Period = time.Duration(binary.LittleEndian.Uint16(buf)) * time.Millisecond
	return nil
}

func (d *HeartbeatRequestData) String() string {
	period := "single"
	if d.Period != 0 {
		period = d.Period.String()
	}
	return fmt.Sprintf("HeartbeatRequest{Target: %s, Period: %s}", targetName(d.Target), period)
}

// IDChangeRequestData is a decoded address change command.
type IDChangeRequestData struct {
	Target   arke.Class
	Old, New arke.NodeID
}

func (d *IDChangeRequestData) MarshalPayload() ([]byte, error) {
	return []byte{byte(d.Old), byte(d.New)}, nil
}

func (d *IDChangeRequestData) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 2); err != nil {
		return err
	}
	d.Old, d.New = arke.NodeID(buf[0]), arke.NodeID(buf[1])
	return nil
}

func (d *IDChangeRequestData) String() string {
	return fmt.Sprintf("IDChangeRequest{Target: %s, Old: %d, New: %d}", targetName(d.Target), d.Old, d.New)
}

// ErrorReport is an application error code published by a node.
type ErrorReport struct {
	Family arke.Class
	Node   arke.NodeID
	Code   uint16
}

func (d *ErrorReport) MarshalPayload() ([]byte, error) {
	return binary.LittleEndian.AppendUint16([]byte{byte(d.Family), byte(d.Node)}, d.Code), nil
}

func (d *ErrorReport) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 4); err != nil {
		return err
	}
	d.Family, d.Node = arke.Class(buf[0]), arke.NodeID(buf[1])
	d.Code = binary.LittleEndian.Uint16(buf[2:])
	return nil
}

func (d *ErrorReport) String() string {
	return fmt.Sprintf("ErrorReport{Family: %s, Node: %d, Code: 0x%04x}", targetName(d.Family), d.Node, d.Code)
}

// HeartbeatData is a decoded heartbeat. Version.Length is zero for the
// empty heartbeats of a repeating schedule.
type HeartbeatData struct {
	Family  arke.Class
	Node    arke.NodeID
	Version arke.Version
}

func (h *HeartbeatData) MarshalPayload() ([]byte, error) {
	all := []byte{h.Version.Major, h.Version.Minor, h.Version.Patch, h.Version.Tweak}
	if h.Version.Length > 4 {
		return nil, fmt.Errorf("%w: version length %d", ErrOutOfRange, h.Version.Length)
	}
	return all[:h.Version.Length], nil
}

func (h *HeartbeatData) UnmarshalPayload(buf []byte) error {
	h.Version = arke.Version{}
	switch {
	case len(buf) == 0:
		return nil
	case len(buf) == 1:
		return fmt.Errorf("%w: heartbeat version needs 2 bytes", ErrShortPayload)
	}
	n := min(len(buf), 4)
	v := [4]uint8{}
	copy(v[:], buf[:n])
	h.Version = arke.Version{Major: v[0], Minor: v[1], Patch: v[2], Tweak: v[3], Length: uint8(n)}
	return nil
}

func (h *HeartbeatData) String() string {
	if h.Version.Length == 0 {
		return fmt.Sprintf("Heartbeat{Family: %s, Node: %d}", targetName(h.Family), h.Node)
	}
	return fmt.Sprintf("Heartbeat{Family: %s, Node: %d, Version: %s}", targetName(h.Family), h.Node, h.Version)
}
