//go:build linux

package canbus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// socketCAN implements Bus over a Linux raw CAN socket.
type socketCAN struct {
	fd        int
	closeOnce sync.Once
	closed    chan struct{}
}

// pollSlice bounds each poll(2) so Close and ctx cancellation are noticed
// even when the context carries no deadline.
const pollSlice = 50 * time.Millisecond

// DialSocketCAN opens a raw CAN socket bound to the given interface name (e.g., "can0").
func DialSocketCAN(iface string) (Bus, error) {
	netIf, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("canbus: interface %q: %w", iface, err)
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("canbus: socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: netIf.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("canbus: bind %s: %w", iface, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &socketCAN{fd: fd, closed: make(chan struct{})}, nil
}

func (s *socketCAN) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = unix.Close(s.fd)
	})
	return err
}

// Send writes one frame using the Linux can_frame binary layout.
func (s *socketCAN) Send(ctx context.Context, frame Frame) error {
	buf, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	for {
		if err := s.alive(); err != nil {
			return err
		}
		n, werr := unix.Write(s.fd, buf)
		switch {
		case werr == nil && n != len(buf):
			return errors.New("canbus: short write")
		case werr == nil:
			return nil
		case werr == unix.EAGAIN || werr == unix.ENOBUFS:
			if err := s.wait(ctx, unix.POLLOUT); err != nil {
				return err
			}
		case werr == unix.EINTR:
		default:
			return werr
		}
	}
}

// Receive reads one frame, blocking until one arrives or ctx is done.
func (s *socketCAN) Receive(ctx context.Context) (Frame, error) {
	var buf [16]byte
	for {
		if err := s.alive(); err != nil {
			return Frame{}, err
		}
		n, rerr := unix.Read(s.fd, buf[:])
		switch {
		case rerr == nil && n != len(buf):
			return Frame{}, errors.New("canbus: short read")
		case rerr == nil:
			var f Frame
			if err := f.UnmarshalBinary(buf[:]); err != nil {
				return Frame{}, err
			}
			return f, nil
		case rerr == unix.EAGAIN:
			if err := s.wait(ctx, unix.POLLIN); err != nil {
				return Frame{}, err
			}
		case rerr == unix.EINTR:
		default:
			return Frame{}, rerr
		}
	}
}

func (s *socketCAN) alive() error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
		return nil
	}
}

// wait polls the socket for the requested events.
func (s *socketCAN) wait(ctx context.Context, events int16) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.alive(); err != nil {
			return err
		}
		slice := pollSlice
		if deadline, ok := ctx.Deadline(); ok {
			if d := time.Until(deadline); d < slice {
				slice = d
			}
		}
		if slice <= 0 {
			return context.DeadlineExceeded
		}
		fds := []unix.PollFd{{Fd: int32(s.fd), Events: events}}
		n, err := unix.Poll(fds, int(slice/time.Millisecond)+1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}
}
