package config

import (
	"fmt"
	"log/slog"

	"github.com/notnil/arke/canbus"
)

// DefaultSLCANBitrate is used by the slcan driver when no bitrate is set.
const DefaultSLCANBitrate = 500000

var loopback = canbus.NewLoopbackBus()

// Open opens the configured bus. The loopback driver attaches to a bus
// shared by the whole process.
func (b BusConfig) Open(logger *slog.Logger) (canbus.Bus, error) {
	var (
		bus canbus.Bus
		err error
	)
	if logger == nil {
		logger = slog.Default()
	}
	switch b.Driver {
	case "socketcan":
		bus, err = b.openSocketCAN(logger)
	case "slcan":
		bitrate := uint32(b.Bitrate)
		if bitrate == 0 {
			bitrate = DefaultSLCANBitrate
		}
		bus, err = canbus.DialSLCAN(canbus.SLCANConfig{
			Device:   b.Device,
			BaudRate: b.BaudRate,
			Bitrate:  bitrate,
		})
	case "loopback":
		bus = loopback.Open()
	default:
		err = fmt.Errorf("config: unknown bus driver %q", b.Driver)
	}
	if err != nil {
		return nil, err
	}
	if b.LogFrames {
		bus = canbus.NewLoggedBus(bus, logger, slog.LevelDebug, canbus.LogAll, nil)
	}
	return bus, nil
}

func (b BusConfig) openSocketCAN(logger *slog.Logger) (canbus.Bus, error) {
	if b.Bitrate > 0 {
		if err := canbus.ConfigureBitrate(b.Interface, uint32(b.Bitrate)); err != nil {
			return nil, err
		}
	} else if up, err := canbus.IsInterfaceUp(b.Interface); err == nil && !up {
		logger.Info("bringing interface up", "interface", b.Interface)
		if err := canbus.SetInterfaceUp(b.Interface); err != nil {
			return nil, err
		}
	}
	return canbus.DialSocketCAN(b.Interface)
}
