package messages

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/notnil/arke"
)

// CelaenoSetPoint sets the humidifier power.
type CelaenoSetPoint struct {
	Power uint8
}

func (*CelaenoSetPoint) Class() arke.Class { return arke.ClassCelaenoSetPoint }

func (m *CelaenoSetPoint) MarshalPayload() ([]byte, error) { return []byte{m.Power}, nil }

func (m *CelaenoSetPoint) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 1); err != nil {
		return err
	}
	m.Power = buf[0]
	return nil
}

func (m *CelaenoSetPoint) String() string {
	return fmt.Sprintf("CelaenoSetPoint{Power: %d}", m.Power)
}

// WaterLevel is the reservoir state of a Celaeno node.
type WaterLevel uint8

const (
	WaterNominal   WaterLevel = 0x00
	WaterWarning   WaterLevel = 0x01
	WaterCritical  WaterLevel = 0x02
	WaterReadError WaterLevel = 0x04
)

func (w WaterLevel) String() string {
	switch w {
	case WaterNominal:
		return "nominal"
	case WaterWarning:
		return "warning"
	case WaterCritical:
		return "critical"
	case WaterReadError:
		return "read-error"
	}
	return fmt.Sprintf("0x%02x", uint8(w))
}

// CelaenoStatus reports the water level and the fan.
type CelaenoStatus struct {
	WaterLevel WaterLevel
	Fan        FanStatus
}

func (*CelaenoStatus) Class() arke.Class { return arke.ClassCelaenoStatus }

func (m *CelaenoStatus) MarshalPayload() ([]byte, error) {
	return binary.LittleEndian.AppendUint16([]byte{byte(m.WaterLevel)}, uint16(m.Fan)), nil
}

// UnmarshalPayload keeps the most severe level when several bits are set.
func (m *CelaenoStatus) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 3); err != nil {
		return err
	}
	switch lvl := WaterLevel(buf[0]); {
	case lvl&WaterReadError != 0:
		m.WaterLevel = WaterReadError
	case lvl&WaterCritical != 0:
		m.WaterLevel = WaterCritical
	default:
		m.WaterLevel = lvl
	}
	m.Fan = FanStatus(binary.LittleEndian.Uint16(buf[1:]))
	return nil
}

func (m *CelaenoStatus) String() string {
	return fmt.Sprintf("CelaenoStatus{WaterLevel: %s, Fan: %s}", m.WaterLevel, m.Fan)
}

// CelaenoConfig holds the humidifier timings, each sent in milliseconds.
type CelaenoConfig struct {
	RampUpTime    time.Duration
	RampDownTime  time.Duration
	MinimumOnTime time.Duration
	DebounceTime  time.Duration
}

func (*CelaenoConfig) Class() arke.Class { return arke.ClassCelaenoConfig }

func (m *CelaenoConfig) MarshalPayload() ([]byte, error) {
	buf := make([]byte, 0, 8)
	for _, d := range []time.Duration{m.RampUpTime, m.RampDownTime, m.MinimumOnTime, m.DebounceTime} {
		ms, err := durationUnits(d, time.Millisecond)
		if err != nil {
			return nil, err
		}
		buf = binary.LittleEndian.AppendUint16(buf, ms)
	}
	return buf, nil
}

func (m *CelaenoConfig) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 8); err != nil {
		return err
	}
	ms := func(i int) time.Duration {
		return time.Duration(binary.LittleEndian.Uint16(buf[2*i:])) * time.Millisecond
	}
	m.RampUpTime, m.RampDownTime, m.MinimumOnTime, m.DebounceTime = ms(0), ms(1), ms(2), ms(3)
	return nil
}

func (m *CelaenoConfig) String() string {
	return fmt.Sprintf("CelaenoConfig{RampUp: %s, RampDown: %s, MinimumOn: %s, Debounce: %s}",
		m.RampUpTime, m.RampDownTime, m.MinimumOnTime, m.DebounceTime)
}
