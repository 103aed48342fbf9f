package nvram

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/multierr"
)

// File stores the address in an EEPROM image file using positioned reads
// and writes, syncing after every write.
type File struct {
	mu     sync.Mutex
	file   *os.File
	offset int64
}

// OpenFile opens or creates the image at path. A new image is filled with
// Erased bytes.
func OpenFile(path string, offset int) (*File, error) {
	if err := checkOffset(offset); err != nil {
		return nil, err
	}
	f, err := openImage(path)
	if err != nil {
		return nil, err
	}
	return &File{file: f, offset: int64(offset)}, nil
}

func openImage(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("nvram: open %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, multierr.Append(err, f.Close())
	}
	if size := fi.Size(); size < ImageSize {
		blank := make([]byte, ImageSize-size)
		for i := range blank {
			blank[i] = Erased
		}
		if _, err := f.WriteAt(blank, size); err != nil {
			return nil, multierr.Append(fmt.Errorf("nvram: format %s: %w", path, err), f.Close())
		}
		if err := f.Sync(); err != nil {
			return nil, multierr.Append(err, f.Close())
		}
	}
	return f, nil
}

func (s *File) LoadAddress() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b [1]byte
	if _, err := s.file.ReadAt(b[:], s.offset); err != nil {
		return 0, fmt.Errorf("nvram: read: %w", err)
	}
	return b[0], nil
}

func (s *File) StoreAddress(addr byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.WriteAt([]byte{addr}, s.offset); err != nil {
		return fmt.Errorf("nvram: write: %w", err)
	}
	return s.file.Sync()
}

func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
