package messages

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/notnil/arke"
)

// ZeusSetPoint is the climate target sent to a Zeus node.
type ZeusSetPoint struct {
	Humidity    float32 // %RH
	Temperature float32 // °C
	Wind        uint8
}

func (*ZeusSetPoint) Class() arke.Class { return arke.ClassZeusSetPoint }

func (m *ZeusSetPoint) MarshalPayload() ([]byte, error) {
	buf := make([]byte, 5)
	binary.LittleEndian.PutUint16(buf[0:], humidityToRaw(m.Humidity))
	binary.LittleEndian.PutUint16(buf[2:], temperatureToRaw(m.Temperature))
	buf[4] = m.Wind
	return buf, nil
}

func (m *ZeusSetPoint) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 5); err != nil {
		return err
	}
	h, err := humidityFromRaw(binary.LittleEndian.Uint16(buf[0:]))
	if err != nil {
		return err
	}
	t, err := temperatureFromRaw(binary.LittleEndian.Uint16(buf[2:]))
	if err != nil {
		return err
	}
	m.Humidity, m.Temperature, m.Wind = h, t, buf[4]
	return nil
}

func (m *ZeusSetPoint) String() string {
	return fmt.Sprintf("ZeusSetPoint{Humidity: %.2f%%, Temperature: %.2f°C, Wind: %d}", m.Humidity, m.Temperature, m.Wind)
}

// ZeusReport is a Zeus sensor sample. Humidity and Temperature come from the
// HIH6030, Aux from three TMP1075 probes.
//
// The eight bytes are bit-packed little-endian: humidity in bits 0..13,
// temperature in bits 14..27, then the three 12-bit probes.
type ZeusReport struct {
	Humidity    float32
	Temperature float32
	Aux         [3]float32
}

func (*ZeusReport) Class() arke.Class { return arke.ClassZeusReport }

func (m *ZeusReport) MarshalPayload() ([]byte, error) {
	h := humidityToRaw(m.Humidity)
	t := temperatureToRaw(m.Temperature)
	a := [3]uint16{tmp1075ToRaw(m.Aux[0]), tmp1075ToRaw(m.Aux[1]), tmp1075ToRaw(m.Aux[2])}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint16(buf[0:], h&0x3fff|(t&0x3)<<14)
	binary.LittleEndian.PutUint16(buf[2:], (t>>2)&0x0fff|(a[0]&0xf)<<12)
	binary.LittleEndian.PutUint16(buf[4:], (a[0]>>4)&0xff|(a[1]&0xff)<<8)
	binary.LittleEndian.PutUint16(buf[6:], (a[1]>>8)&0xf|a[2]<<4)
	return buf, nil
}

func (m *ZeusReport) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 8); err != nil {
		return err
	}
	var p [4]uint16
	for i := range p {
		p[i] = binary.LittleEndian.Uint16(buf[2*i:])
	}
	h, err := humidityFromRaw(p[0] & 0x3fff)
	if err != nil {
		return err
	}
	t, err := temperatureFromRaw(p[0]>>14 | (p[1]&0x0fff)<<2)
	if err != nil {
		return err
	}
	m.Humidity, m.Temperature = h, t
	m.Aux[0] = tmp1075FromRaw(p[1]>>12 | (p[2]&0x00ff)<<4)
	m.Aux[1] = tmp1075FromRaw(p[2]>>8 | (p[3]&0x000f)<<8)
	m.Aux[2] = tmp1075FromRaw(p[3] >> 4)
	return nil
}

func (m *ZeusReport) String() string {
	return fmt.Sprintf("ZeusReport{Humidity: %.2f%%, Temperature: %.2f°C, Aux: [%.2f %.2f %.2f]}",
		m.Humidity, m.Temperature, m.Aux[0], m.Aux[1], m.Aux[2])
}

// ZeusVibrationReport carries the raw reading of the vibration sensor.
type ZeusVibrationReport struct {
	Value uint16
}

func (*ZeusVibrationReport) Class() arke.Class { return arke.ClassZeusVibrationReport }

func (m *ZeusVibrationReport) MarshalPayload() ([]byte, error) {
	return binary.LittleEndian.AppendUint16(nil, m.Value), nil
}

func (m *ZeusVibrationReport) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 2); err != nil {
		return err
	}
	m.Value = binary.LittleEndian.Uint16(buf)
	return nil
}

func (m *ZeusVibrationReport) String() string {
	return fmt.Sprintf("ZeusVibrationReport{Value: %d}", m.Value)
}

// ZeusConfig tunes the humidity and temperature loops.
type ZeusConfig struct {
	Humidity    PDConfig
	Temperature PDConfig
}

func (*ZeusConfig) Class() arke.Class { return arke.ClassZeusConfig }

func (m *ZeusConfig) MarshalPayload() ([]byte, error) {
	buf := make([]byte, 8)
	if err := m.Humidity.marshal(buf[0:]); err != nil {
		return nil, fmt.Errorf("humidity: %w", err)
	}
	if err := m.Temperature.marshal(buf[4:]); err != nil {
		return nil, fmt.Errorf("temperature: %w", err)
	}
	return buf, nil
}

func (m *ZeusConfig) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 8); err != nil {
		return err
	}
	m.Humidity.unmarshal(buf[0:])
	m.Temperature.unmarshal(buf[4:])
	return nil
}

func (m *ZeusConfig) String() string {
	return fmt.Sprintf("ZeusConfig{Humidity: %s, Temperature: %s}", m.Humidity, m.Temperature)
}

// ZeusStatusFlags is the regulation state of a Zeus node.
type ZeusStatusFlags uint8

const (
	ZeusIdle                   ZeusStatusFlags = 0
	ZeusActive                 ZeusStatusFlags = 0x01
	ZeusClimateUncontrolled    ZeusStatusFlags = 0x02
	ZeusHumidityUnreachable    ZeusStatusFlags = 0x04
	ZeusTemperatureUnreachable ZeusStatusFlags = 0x08
)

func (f ZeusStatusFlags) String() string {
	if f == ZeusIdle {
		return "idle"
	}
	var parts []string
	for _, n := range []struct {
		flag ZeusStatusFlags
		name string
	}{
		{ZeusActive, "active"},
		{ZeusClimateUncontrolled, "climate-uncontrolled"},
		{ZeusHumidityUnreachable, "humidity-unreachable"},
		{ZeusTemperatureUnreachable, "temperature-unreachable"},
	} {
		if f&n.flag != 0 {
			parts = append(parts, n.name)
			f &^= n.flag
		}
	}
	if f != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", uint8(f)))
	}
	return strings.Join(parts, "|")
}

// ZeusStatus reports the regulation state and the three fans.
type ZeusStatus struct {
	Status ZeusStatusFlags
	Fans   [3]FanStatus
}

func (*ZeusStatus) Class() arke.Class { return arke.ClassZeusStatus }

func (m *ZeusStatus) MarshalPayload() ([]byte, error) {
	buf := make([]byte, 7)
	buf[0] = byte(m.Status)
	for i, f := range m.Fans {
		binary.LittleEndian.PutUint16(buf[1+2*i:], uint16(f))
	}
	return buf, nil
}

func (m *ZeusStatus) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 7); err != nil {
		return err
	}
	m.Status = ZeusStatusFlags(buf[0])
	for i := range m.Fans {
		m.Fans[i] = FanStatus(binary.LittleEndian.Uint16(buf[1+2*i:]))
	}
	return nil
}

func (m *ZeusStatus) String() string {
	return fmt.Sprintf("ZeusStatus{Status: %s, Fans: [%s, %s, %s]}", m.Status, m.Fans[0], m.Fans[1], m.Fans[2])
}

// ZeusControlPoint exposes the raw outputs of both regulation loops.
type ZeusControlPoint struct {
	Humidity    int16
	Temperature int16
}

func (*ZeusControlPoint) Class() arke.Class { return arke.ClassZeusControlPoint }

func (m *ZeusControlPoint) MarshalPayload() ([]byte, error) {
	buf := binary.LittleEndian.AppendUint16(nil, uint16(m.Humidity))
	return binary.LittleEndian.AppendUint16(buf, uint16(m.Temperature)), nil
}

func (m *ZeusControlPoint) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 4); err != nil {
		return err
	}
	m.Humidity = int16(binary.LittleEndian.Uint16(buf[0:]))
	m.Temperature = int16(binary.LittleEndian.Uint16(buf[2:]))
	return nil
}

func (m *ZeusControlPoint) String() string {
	return fmt.Sprintf("ZeusControlPoint{Humidity: %d, Temperature: %d}", m.Humidity, m.Temperature)
}

// ZeusDeltaTemperature holds per-sensor temperature offsets, sent as int16
// in 1/16 °C.
type ZeusDeltaTemperature struct {
	Delta [4]float32
}

func (*ZeusDeltaTemperature) Class() arke.Class { return arke.ClassZeusDeltaTemperature }

func (m *ZeusDeltaTemperature) MarshalPayload() ([]byte, error) {
	buf := make([]byte, 0, 8)
	for _, d := range m.Delta {
		n := math.Round(float64(d) * 16)
		if n < math.MinInt16 || n > math.MaxInt16 {
			return nil, fmt.Errorf("%w: temperature delta %.2f", ErrOutOfRange, d)
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(n)))
	}
	return buf, nil
}

func (m *ZeusDeltaTemperature) UnmarshalPayload(buf []byte) error {
	if err := checkSize(buf, 8); err != nil {
		return err
	}
	for i := range m.Delta {
		m.Delta[i] = float32(int16(binary.LittleEndian.Uint16(buf[2*i:]))) / 16
	}
	return nil
}

func (m *ZeusDeltaTemperature) String() string {
	return fmt.Sprintf("ZeusDeltaTemperature{Delta: [%.4g %.4g %.4g %.4g]}", m.Delta[0], m.Delta[1], m.Delta[2], m.Delta[3])
}
