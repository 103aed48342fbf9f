package canbus

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/grid-x/serial"
)

// SLCAN (LAWICEL) ASCII protocol spoken by most USB-serial CAN adapters.
// Frames are lines terminated by '\r':
//   tIIILDD..  standard data frame
//   TIIIIIIIILDD..  extended data frame
//   rIIIL / RIIIIIIIIL  remote frames

// SLCANConfig selects the serial device and the CAN bitrate of an adapter.
type SLCANConfig struct {
	Device   string
	BaudRate int
	Bitrate  uint32
	// ReadTimeout bounds each serial read so cancellation is observed.
	ReadTimeout time.Duration
}

var slcanBitrates = map[uint32]byte{
	10000: '0', 20000: '1', 50000: '2', 100000: '3',
	125000: '4', 250000: '5', 500000: '6', 800000: '7', 1000000: '8',
}

// ErrSLCANSyntax is returned for lines that are not valid SLCAN frames.
var ErrSLCANSyntax = errors.New("canbus: malformed slcan frame")

// DialSLCAN opens the serial device, sets the bitrate and opens the channel.
func DialSLCAN(cfg SLCANConfig) (Bus, error) {
	code, ok := slcanBitrates[cfg.Bitrate]
	if !ok {
		return nil, fmt.Errorf("canbus: unsupported slcan bitrate %d", cfg.Bitrate)
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 100 * time.Millisecond
	}
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Device,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("canbus: open %s: %w", cfg.Device, err)
	}
	// Close any channel left open by a previous session before configuring.
	for _, cmd := range []string{"C\r", "S" + string(code) + "\r", "O\r"} {
		if _, err := io.WriteString(port, cmd); err != nil {
			port.Close()
			return nil, fmt.Errorf("canbus: slcan setup %q: %w", cmd[:1], err)
		}
	}
	return NewSLCAN(port), nil
}

// NewSLCAN speaks SLCAN over an already opened, configured stream.
func NewSLCAN(rw io.ReadWriteCloser) Bus {
	return &slcanBus{rw: rw, r: bufio.NewReader(rw), closed: make(chan struct{})}
}

type slcanBus struct {
	rw io.ReadWriteCloser
	r  *bufio.Reader

	wmu sync.Mutex
	rmu sync.Mutex

	line      []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func (s *slcanBus) Send(ctx context.Context, frame Frame) error {
	line, err := encodeSLCAN(frame)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err = s.rw.Write(line)
	return err
}

// Receive reads lines until a frame arrives. Acknowledgements ("\r", "z",
// "Z") and bell characters are skipped. Read errors caused by the serial
// timeout are retried while ctx is live.
func (s *slcanBus) Receive(ctx context.Context) (Frame, error) {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	for {
		select {
		case <-s.closed:
			return Frame{}, ErrClosed
		default:
		}
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		c, err := s.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				return Frame{}, ErrClosed
			}
			continue
		}
		switch c {
		case '\r':
			line := s.line
			s.line = s.line[:0]
			if len(line) == 0 {
				continue
			}
			switch line[0] {
			case 't', 'T', 'r', 'R':
				return decodeSLCAN(line)
			}
		case '\a':
			s.line = s.line[:0]
		default:
			if len(s.line) < 32 {
				s.line = append(s.line, c)
			}
		}
	}
}

func (s *slcanBus) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.wmu.Lock()
		io.WriteString(s.rw, "C\r")
		s.wmu.Unlock()
		err = s.rw.Close()
	})
	return err
}

func encodeSLCAN(f Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	kind, id := byte('t'), fmt.Sprintf("%03X", f.ID)
	if f.Extended {
		kind, id = 'T', fmt.Sprintf("%08X", f.ID)
	}
	if f.RTR {
		kind -= 't' - 'r'
	}
	out := make([]byte, 0, 1+len(id)+1+16+1)
	out = append(out, kind)
	out = append(out, id...)
	out = append(out, '0'+f.Len)
	if !f.RTR {
		for _, c := range f.Payload() {
			out = append(out, fmt.Sprintf("%02X", c)...)
		}
	}
	return append(out, '\r'), nil
}

func decodeSLCAN(line []byte) (Frame, error) {
	var f Frame
	idLen := 3
	switch line[0] {
	case 'T':
		f.Extended, idLen = true, 8
	case 'r':
		f.RTR = true
	case 'R':
		f.Extended, f.RTR, idLen = true, true, 8
	}
	if len(line) < 2+idLen {
		return Frame{}, ErrSLCANSyntax
	}
	id, err := strconv.ParseUint(string(line[1:1+idLen]), 16, 32)
	if err != nil {
		return Frame{}, ErrSLCANSyntax
	}
	f.ID = uint32(id)
	dlc := line[1+idLen]
	if dlc < '0' || dlc > '8' {
		return Frame{}, ErrSLCANSyntax
	}
	f.Len = dlc - '0'
	data := line[2+idLen:]
	if !f.RTR {
		if len(data) != 2*int(f.Len) {
			return Frame{}, ErrSLCANSyntax
		}
		for i := 0; i < int(f.Len); i++ {
			v, err := strconv.ParseUint(string(data[2*i:2*i+2]), 16, 8)
			if err != nil {
				return Frame{}, ErrSLCANSyntax
			}
			f.Data[i] = byte(v)
		}
	}
	return f, f.Validate()
}
