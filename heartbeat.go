package arke

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Version is the firmware version announced by one-shot heartbeats. Length
// (2, 3 or 4) is how many of the components go on the wire.
type Version struct {
	Major, Minor, Patch, Tweak uint8
	Length                     uint8
}

// ParseVersion parses "major.minor[.patch[.tweak]]".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return Version{}, fmt.Errorf("arke: invalid version %q", s)
	}
	var v [4]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return Version{}, fmt.Errorf("arke: invalid version %q: %w", s, err)
		}
		v[i] = uint8(n)
	}
	return Version{Major: v[0], Minor: v[1], Patch: v[2], Tweak: v[3], Length: uint8(len(parts))}, nil
}

func (v Version) bytes() []byte {
	all := []byte{v.Major, v.Minor, v.Patch, v.Tweak}
	return all[:v.Length]
}

func (v Version) String() string {
	parts := make([]string, 0, 4)
	for _, c := range v.bytes() {
		parts = append(parts, strconv.Itoa(int(c)))
	}
	return strings.Join(parts, ".")
}

// HeartbeatMode is the state of the heartbeat scheduler.
type HeartbeatMode uint8

const (
	HeartbeatNone HeartbeatMode = iota
	HeartbeatOnce
	HeartbeatRepeating
)

func (m HeartbeatMode) String() string {
	switch m {
	case HeartbeatNone:
		return "none"
	case HeartbeatOnce:
		return "once"
	case HeartbeatRepeating:
		return "repeating"
	}
	return "unknown"
}

type heartbeat struct {
	mode   HeartbeatMode
	period Tick
	last   Tick

	txn     Txn
	data    [4]byte
	version uint8
}

func (h *heartbeat) init(id IDT, v Version) {
	h.version = uint8(copy(h.data[:], v.bytes()))
	h.txn = Txn{ID: id, Data: h.data[:]}
}

// request applies a heartbeat request payload. It reports false for a
// malformed payload, which leaves the scheduler untouched.
func (h *heartbeat) request(payload []byte, now Tick) bool {
	switch {
	case len(payload) == 0 || (len(payload) == 2 && payload[0] == 0 && payload[1] == 0):
		h.mode, h.period = HeartbeatOnce, 0
	case len(payload) == 2:
		h.mode, h.period = HeartbeatRepeating, Tick(binary.LittleEndian.Uint16(payload))
	default:
		return false
	}
	h.last = now
	return true
}

// advance submits a heartbeat when one is due. A busy transport defers it
// to the next call without touching the schedule.
func (h *heartbeat) advance(t Transport, c Clock) bool {
	if h.mode == HeartbeatNone || t.Status(&h.txn) != Unsubmitted {
		return false
	}
	now := c.Now()
	if now.Since(h.last) < h.period {
		return false
	}
	h.txn.Length = 0
	if h.mode == HeartbeatOnce {
		h.txn.Length = h.version
	}
	if err := t.Send(&h.txn); err != nil {
		return false
	}
	if h.mode == HeartbeatOnce {
		h.mode = HeartbeatNone
	} else {
		h.last = now
	}
	return true
}
