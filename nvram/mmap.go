package nvram

import (
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"go.uber.org/multierr"
)

// Mmap maps the EEPROM image into memory; writes are flushed immediately.
type Mmap struct {
	mu     sync.Mutex
	file   *os.File
	data   mmap.MMap
	offset int
}

// OpenMmap opens or creates the image at path and maps it read-write.
func OpenMmap(path string, offset int) (*Mmap, error) {
	if err := checkOffset(offset); err != nil {
		return nil, err
	}
	f, err := openImage(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("nvram: mmap %s: %w", path, err), f.Close())
	}
	return &Mmap{file: f, data: data, offset: offset}, nil
}

func (s *Mmap) LoadAddress() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return 0, os.ErrClosed
	}
	return s.data[s.offset], nil
}

func (s *Mmap) StoreAddress(addr byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return os.ErrClosed
	}
	s.data[s.offset] = addr
	if err := s.data.Flush(); err != nil {
		return fmt.Errorf("nvram: flush: %w", err)
	}
	return nil
}

// Close unmaps the image and closes the file.
func (s *Mmap) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.data != nil {
		err = multierr.Append(err, s.data.Unmap())
		s.data = nil
	}
	if s.file != nil {
		err = multierr.Append(err, s.file.Close())
		s.file = nil
	}
	return err
}
