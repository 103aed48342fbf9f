// Package nvram persists the node address the way an EEPROM cell does: a
// single byte at a fixed offset of a small non-volatile image.
package nvram

import (
	"fmt"
	"sync"
)

// ImageSize is the size of file-backed EEPROM images.
const ImageSize = 512

// Erased is the value of a cell that was never written.
const Erased = 0xff

// Store is byte-granular storage for the node address. It satisfies
// arke.AddressStore.
type Store interface {
	LoadAddress() (byte, error)
	StoreAddress(addr byte) error
	Close() error
}

// Kind selects a Store implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindMmap   Kind = "mmap"
)

// Open returns a store of the given kind. path and offset are ignored for
// memory stores.
func Open(kind Kind, path string, offset int) (Store, error) {
	switch kind {
	case KindMemory, "":
		return NewMemory(Erased), nil
	case KindFile:
		s, err := OpenFile(path, offset)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindMmap:
		s, err := OpenMmap(path, offset)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("nvram: unknown storage kind %q", kind)
}

func checkOffset(offset int) error {
	if offset < 0 || offset >= ImageSize {
		return fmt.Errorf("nvram: offset %d outside image (size %d)", offset, ImageSize)
	}
	return nil
}

// Memory keeps the address in RAM.
type Memory struct {
	mu   sync.Mutex
	addr byte
}

// NewMemory returns a store holding addr.
func NewMemory(addr byte) *Memory { return &Memory{addr: addr} }

func (m *Memory) LoadAddress() (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr, nil
}

func (m *Memory) StoreAddress(addr byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addr = addr
	return nil
}

func (m *Memory) Close() error { return nil }
