package messages

import (
	"errors"
	"fmt"
	"time"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
)

var (
	ErrShortPayload   = errors.New("messages: payload too short")
	ErrOutOfRange     = errors.New("messages: value out of range")
	ErrNotArke        = errors.New("messages: not an arke frame")
	ErrUnknownCommand = errors.New("messages: unknown network command")
)

// Payload encodes and decodes the data bytes of a frame.
type Payload interface {
	MarshalPayload() ([]byte, error)
	UnmarshalPayload([]byte) error
	fmt.Stringer
}

// ClassPayload is a Payload bound to an application message class.
type ClassPayload interface {
	Payload
	Class() arke.Class
}

var factory = map[arke.Class]func() ClassPayload{
	arke.ClassZeusSetPoint:         func() ClassPayload { return &ZeusSetPoint{} },
	arke.ClassZeusReport:           func() ClassPayload { return &ZeusReport{} },
	arke.ClassZeusVibrationReport:  func() ClassPayload { return &ZeusVibrationReport{} },
	arke.ClassZeusConfig:           func() ClassPayload { return &ZeusConfig{} },
	arke.ClassZeusStatus:           func() ClassPayload { return &ZeusStatus{} },
	arke.ClassZeusControlPoint:     func() ClassPayload { return &ZeusControlPoint{} },
	arke.ClassZeusDeltaTemperature: func() ClassPayload { return &ZeusDeltaTemperature{} },
	arke.ClassHeliosSetPoint:       func() ClassPayload { return &HeliosSetPoint{} },
	arke.ClassHeliosPulseMode:      func() ClassPayload { return &HeliosPulseMode{} },
	arke.ClassHeliosTriggerMode:    func() ClassPayload { return &HeliosTriggerMode{} },
	arke.ClassCelaenoSetPoint:      func() ClassPayload { return &CelaenoSetPoint{} },
	arke.ClassCelaenoStatus:        func() ClassPayload { return &CelaenoStatus{} },
	arke.ClassCelaenoConfig:        func() ClassPayload { return &CelaenoConfig{} },
	arke.ClassNotusSetPoint:        func() ClassPayload { return &NotusSetPoint{} },
	arke.ClassNotusConfig:          func() ClassPayload { return &NotusConfig{} },
}

// New returns an empty payload for message class c.
func New(c arke.Class) (ClassPayload, error) {
	mk, ok := factory[c]
	if !ok {
		return nil, fmt.Errorf("%w 0x%02x", arke.ErrUnknownClass, uint8(c))
	}
	return mk(), nil
}

// Frame builds the frame carrying p for node addr. Emergency frames use the
// high-priority message type.
func Frame(l arke.Layout, p ClassPayload, addr arke.NodeID, emergency bool) (canbus.Frame, error) {
	if addr > l.MaxAddress() {
		return canbus.Frame{}, fmt.Errorf("%w: %d", arke.ErrInvalidAddress, addr)
	}
	data, err := p.MarshalPayload()
	if err != nil {
		return canbus.Frame{}, err
	}
	return newFrame(l.Encode(messageType(emergency), p.Class(), addr), data), nil
}

// Request builds the remote frame asking node addr for its class c
// message. Address 0 asks every node of the family.
func Request(l arke.Layout, c arke.Class, addr arke.NodeID, emergency bool) (canbus.Frame, error) {
	if _, ok := arke.LookupClass(c); !ok {
		return canbus.Frame{}, fmt.Errorf("%w 0x%02x", arke.ErrUnknownClass, uint8(c))
	}
	if addr > l.MaxAddress() {
		return canbus.Frame{}, fmt.Errorf("%w: %d", arke.ErrInvalidAddress, addr)
	}
	return canbus.Frame{ID: uint32(l.Encode(messageType(emergency), c, addr)), RTR: true}, nil
}

func messageType(emergency bool) arke.MessageType {
	if emergency {
		return arke.HighPriority
	}
	return arke.Message
}

func newFrame(id arke.IDT, payload []byte) canbus.Frame {
	f := canbus.Frame{ID: uint32(id), Len: uint8(len(payload))}
	copy(f.Data[:], payload)
	return f
}

func checkSize(buf []byte, want int) error {
	if len(buf) < want {
		return fmt.Errorf("%w: got %d bytes, need %d", ErrShortPayload, len(buf), want)
	}
	return nil
}

// durationUnits expresses d as a 16-bit count of unit.
func durationUnits(d, unit time.Duration) (uint16, error) {
	n := d / unit
	if d < 0 || n > 0xffff {
		return 0, fmt.Errorf("%w: time constant overflow (%s)", ErrOutOfRange, d)
	}
	return uint16(n), nil
}
