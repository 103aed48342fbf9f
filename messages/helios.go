package messages

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/notnil/arke"
)

// HeliosSetPoint sets the visible and UV illumination levels.
type HeliosSetPoint struct {
	Visible uint8
	UV      uint8
}

func (*HeliosSetPoint) Class() arke.Class { return arke.ClassHeliosSetPoint }

func (m *HeliosSetPoint) MarshalPayload() ([]byte, error) {
	return []byte{m.Visible, m.UV}, nil
}

func (m *HeliosSetPoint) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 2); err != nil {
		return err
	}
	m.Visible, m.UV = buf[0], buf[1]
	return nil
}

func (m *HeliosSetPoint) String() string {
	return fmt.Sprintf("HeliosSetPoint{Visible: %d, UV: %d}", m.Visible, m.UV)
}

// HeliosPulseMode blinks the illumination with the given period, sent in
// milliseconds. A zero period disables pulsing.
type HeliosPulseMode struct {
	Period time.Duration
}

func (*HeliosPulseMode) Class() arke.Class { return arke.ClassHeliosPulseMode }

func (m *HeliosPulseMode) MarshalPayload() ([]byte, error) {
	p, err := durationUnits(m.Period, time.Millisecond)
	if err != nil {
		return nil, err
	}
	return binary.LittleEndian.AppendUint16(nil, p), nil
}

func (m *HeliosPulseMode) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 2); err != nil {
		return err
	}
	m.Period = time.Duration(binary.LittleEndian.Uint16(buf)) * time.Millisecond
	return nil
}

func (m *HeliosPulseMode) String() string {
	return fmt.Sprintf("HeliosPulseMode{Period: %s}", m.Period)
}

// HeliosTriggerMode synchronizes the illumination with a camera trigger.
// Period travels in units of 100µs, PulseLength in µs.
type HeliosTriggerMode struct {
	Period      time.Duration
	PulseLength time.Duration
}

func (*HeliosTriggerMode) Class() arke.Class { return arke.ClassHeliosTriggerMode }

func (m *HeliosTriggerMode) MarshalPayload() ([]byte, error) {
	period, err := durationUnits(m.Period, 100*time.Microsecond)
	if err != nil {
		return nil, err
	}
	pulse, err := durationUnits(m.PulseLength, time.Microsecond)
	if err != nil {
		return nil, err
	}
	buf := binary.LittleEndian.AppendUint16(nil, period)
	return binary.LittleEndian.AppendUint16(buf, pulse), nil
}

func (m *HeliosTriggerMode) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 4); err != nil {
		return err
	}
	m.Period = time.Duration(binary.LittleEndian.Uint16(buf[0:])) * 100 * time.Microsecond
	m.PulseLength = time.Duration(binary.LittleEndian.Uint16(buf[2:])) * time.Microsecond
	return nil
}

func (m *HeliosTriggerMode) String() string {
	return fmt.Sprintf("HeliosTriggerMode{Period: %s, PulseLength: %s}", m.Period, m.PulseLength)
}
