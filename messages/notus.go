package messages

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/notnil/arke"
)

// NotusSetPoint sets the heater power.
type NotusSetPoint struct {
	Power uint8
}

func (*NotusSetPoint) Class() arke.Class { return arke.ClassNotusSetPoint }

func (m *NotusSetPoint) MarshalPayload() ([]byte, error) { return []byte{m.Power}, nil }

func (m *NotusSetPoint) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 1); err != nil {
		return err
	}
	m.Power = buf[0]
	return nil
}

func (m *NotusSetPoint) String() string {
	return fmt.Sprintf("NotusSetPoint{Power: %d}", m.Power)
}

type NotusConfig struct {
	RampDownTime time.Duration
	MinFan       uint8
	MaxHeat      uint8
}

func (*NotusConfig) Class() arke.Class { return arke.ClassNotusConfig }

func (m *NotusConfig) MarshalPayload() ([]byte, error) {
	ms, err := durationUnits(m.RampDownTime, time.Millisecond)
	if err != nil {
		return nil, err
	}
	return append(binary.LittleEndian.AppendUint16(nil, ms), m.MinFan, m.MaxHeat), nil
}

func (m *NotusConfig) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 4); err != nil {
		return err
	}
	m.RampDownTime = time.Duration(binary.LittleEndian.Uint16(buf)) * time.Millisecond
	m.MinFan, m.MaxHeat = buf[2], buf[3]
	return nil
}

func (m *NotusConfig) String() string {
	return fmt.Sprintf("NotusConfig{RampDownTime: %s, MinFan: %d, MaxHeat: %d}", m.RampDownTime, m.MinFan, m.MaxHeat)
}
