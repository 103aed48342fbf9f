package arke

import (
	"errors"
	"testing"
)

type memStore struct {
	addr   byte
	writes int
	err    error
}

func (m *memStore) LoadAddress() (byte, error) { return m.addr, nil }
func (m *memStore) StoreAddress(a byte) error {
	if m.err != nil {
		return m.err
	}
	m.addr = a
	m.writes++
	return nil
}

func TestLoadIdentity_Repairs(t *testing.T) {
	cases := []struct {
		stored     byte
		want       NodeID
		wantWrites int
	}{
		{3, 3, 0},
		{7, 7, 0},
		{0, 1, 1},
		{8, 1, 1},
		{0xff, 1, 1},
	}
	for _, tc := range cases {
		s := &memStore{addr: tc.stored}
		id, err := LoadIdentity(s, DefaultLayout)
		if err != nil {
			t.Fatalf("stored %d: %v", tc.stored, err)
		}
		if id.Address() != tc.want || s.writes != tc.wantWrites || s.addr != byte(tc.want) {
			t.Fatalf("stored %d: addr=%d writes=%d persisted=%d", tc.stored, id.Address(), s.writes, s.addr)
		}
	}
}

func TestIdentity_ChangeTo(t *testing.T) {
	s := &memStore{addr: 2}
	id, err := LoadIdentity(s, DefaultLayout)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, bad := range []NodeID{0, 8, 200} {
		if err := id.ChangeTo(bad); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("ChangeTo(%d): got %v want ErrInvalidAddress", bad, err)
		}
		if s.addr != 2 || s.writes != 0 {
			t.Fatalf("ChangeTo(%d) touched storage: %d (%d writes)", bad, s.addr, s.writes)
		}
	}

	if err := id.ChangeTo(5); !errors.Is(err, ErrRestart) {
		t.Fatalf("ChangeTo(5): got %v want ErrRestart", err)
	}
	if s.addr != 5 {
		t.Fatalf("persisted %d want 5", s.addr)
	}
	if id.Address() != 2 {
		t.Fatalf("running address changed without restart: %d", id.Address())
	}

	s.err = errors.New("eeprom busy")
	if err := id.ChangeTo(6); !errors.Is(err, ErrRestart) {
		t.Fatalf("ChangeTo with failing store: got %v want ErrRestart", err)
	}
}
