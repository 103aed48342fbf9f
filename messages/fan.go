package messages

import "fmt"

// FanState is the alert state of a fan.
type FanState uint8

const (
	FanOK FanState = iota
	FanAging
	FanStalled
)

func (s FanState) String() string {
	switch s {
	case FanOK:
		return "ok"
	case FanAging:
		return "aging"
	case FanStalled:
		return "stalled"
	}
	return "unknown"
}

// FanStatus packs a fan speed with its alerts: RPM in the low 14 bits, the
// aging alert in bit 14 and the stall alert in bit 15.
type FanStatus uint16

const (
	fanRPMMask    FanStatus = 0x3fff
	fanAgingAlert FanStatus = 1 << 14
	fanStallAlert FanStatus = 1 << 15
)

// MakeFanStatus packs rpm, truncated to 14 bits, with state.
func MakeFanStatus(rpm uint16, state FanState) FanStatus {
	s := FanStatus(rpm) & fanRPMMask
	switch state {
	case FanAging:
		s |= fanAgingAlert
	case FanStalled:
		s |= fanStallAlert
	}
	return s
}

func (s FanStatus) RPM() uint16 { return uint16(s & fanRPMMask) }

// State reports the most severe alert set.
func (s FanStatus) State() FanState {
	switch {
	case s&fanStallAlert != 0:
		return FanStalled
	case s&fanAgingAlert != 0:
		return FanAging
	}
	return FanOK
}

func (s FanStatus) String() string {
	return fmt.Sprintf("%drpm %s", s.RPM(), s.State())
}
