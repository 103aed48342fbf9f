//go:build !linux

package canbus

import "errors"

// ErrUnsupported is returned by the SocketCAN helpers outside Linux.
var ErrUnsupported = errors.New("canbus: socketcan is only available on linux")

func DialSocketCAN(iface string) (Bus, error) { return nil, ErrUnsupported }

func IsInterfaceUp(name string) (bool, error) { return false, ErrUnsupported }

func SetInterfaceUp(name string) error { return ErrUnsupported }

func SetInterfaceDown(name string) error { return ErrUnsupported }

func ConfigureBitrate(name string, bitrate uint32) error { return ErrUnsupported }
