package messages

import (
	"fmt"
	"math"
)

// hih6030Max is the largest valid 14-bit HIH6030 reading.
const hih6030Max = 16382

func humidityFromRaw(v uint16) (float32, error) {
	if v > hih6030Max {
		return 0, fmt.Errorf("%w: invalid humidity value 0x%04x", ErrOutOfRange, v)
	}
	return float32(float64(v) / hih6030Max * 100), nil
}

func humidityToRaw(h float32) uint16 {
	switch {
	case h <= 0:
		return 0
	case h >= 100:
		return hih6030Max
	}
	return uint16(math.Round(float64(h) / 100 * hih6030Max))
}

func temperatureFromRaw(v uint16) (float32, error) {
	if v > hih6030Max {
		return 0, fmt.Errorf("%w: invalid temperature value 0x%04x", ErrOutOfRange, v)
	}
	return float32(float64(v)/hih6030Max*165 - 40), nil
}

func temperatureToRaw(t float32) uint16 {
	switch {
	case t <= -40:
		return 0
	case t >= 125:
		return hih6030Max
	}
	return uint16(math.Round((float64(t) + 40) / 165 * hih6030Max))
}

// tmp1075FromRaw decodes a 12-bit two's complement reading in 1/16 °C.
func tmp1075FromRaw(v uint16) float32 {
	v &= 0x0fff
	if v&0x0800 != 0 {
		v |= 0xf000
	}
	return float32(int16(v)) * 0.0625
}

func tmp1075ToRaw(t float32) uint16 {
	n := math.Round(float64(t) / 0.0625)
	n = max(-2048, min(2047, n))
	return uint16(int16(n)) & 0x0fff
}
