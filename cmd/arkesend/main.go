// Command arkesend sends one frame on an Arke bus: a network-control
// command, an application message or a request for one.
//
//	arkesend [flags] reset <family|all> <id>
//	arkesend [flags] ping <family|all>
//	arkesend [flags] heartbeat <family|all> <period>
//	arkesend [flags] id-change <family> <old> <new>
//	arkesend [flags] send <class> <id> [field=value ...]
//	arkesend [flags] get <class> <id>
//
// Message fields are named after the payload fields, case-insensitively,
// with dots for nested ones:
//
//	arkesend send ZeusSetPoint 1 humidity=40 temperature=26.5 wind=100
//	arkesend send ZeusConfig 1 humidity.proportionalmultiplier=4
//	arkesend send CelaenoConfig 2 rampuptime=500ms
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
	"github.com/notnil/arke/internal/config"
	"github.com/notnil/arke/messages"
)

func main() {
	var bus config.BusConfig
	pflag.StringVar(&bus.Driver, "driver", "socketcan", "CAN driver (socketcan, slcan).")
	pflag.StringVarP(&bus.Interface, "interface", "i", "can0", "SocketCAN interface.")
	pflag.StringVar(&bus.Device, "device", "/dev/ttyACM0", "SLCAN serial device.")
	pflag.IntVar(&bus.BaudRate, "baud-rate", 115200, "SLCAN serial speed.")
	pflag.IntVar(&bus.Bitrate, "bitrate", 0, "CAN bitrate to configure, 0 to keep the current one.")
	timeout := pflag.Duration("timeout", time.Second, "Send timeout.")
	priority := pflag.BoolP("priority", "P", false, "Send messages and requests as high priority.")
	pflag.Parse()

	f, err := buildFrame(arke.DefaultLayout, *priority, pflag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "arkesend: %v\n", err)
		pflag.Usage()
		os.Exit(2)
	}
	if err := send(bus, f, *timeout); err != nil {
		slog.Error("arkesend failed", "frame", f.String(), "err", err)
		os.Exit(1)
	}
	slog.Info("sent", "frame", f.String())
}

func send(cfg config.BusConfig, f canbus.Frame, timeout time.Duration) error {
	bus, err := cfg.Open(slog.Default())
	if err != nil {
		return err
	}
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return bus.Send(ctx, f)
}

func buildFrame(l arke.Layout, priority bool, args []string) (canbus.Frame, error) {
	if len(args) > 0 && (args[0] == "send" || args[0] == "get") {
		return buildMessage(l, priority, args)
	}
	if len(args) < 2 {
		return canbus.Frame{}, fmt.Errorf("missing command or family")
	}
	family, err := parseFamily(args[1])
	if err != nil {
		return canbus.Frame{}, err
	}
	want := map[string]int{"reset": 3, "ping": 2, "heartbeat": 3, "id-change": 4}
	n, ok := want[args[0]]
	if !ok {
		return canbus.Frame{}, fmt.Errorf("unknown command %q", args[0])
	}
	if len(args) != n {
		return canbus.Frame{}, fmt.Errorf("%s takes %d arguments", args[0], n-1)
	}

	switch args[0] {
	case "reset":
		id, err := parseNode(args[2])
		if err != nil {
			return canbus.Frame{}, err
		}
		return messages.ResetRequest(l, family, id)
	case "ping":
		return messages.Ping(l, family), nil
	case "heartbeat":
		period, err := time.ParseDuration(args[2])
		if err != nil {
			return canbus.Frame{}, fmt.Errorf("period: %w", err)
		}
		return messages.HeartbeatRequest(l, family, period)
	default:
		if family.Class == arke.BroadcastClass {
			return canbus.Frame{}, fmt.Errorf("id-change needs a family")
		}
		old, err := parseNode(args[2])
		if err != nil {
			return canbus.Frame{}, err
		}
		next, err := parseNode(args[3])
		if err != nil {
			return canbus.Frame{}, err
		}
		return messages.IDChangeRequest(l, family, old, next)
	}
}

// parseFamily accepts a family name or "all" for the broadcast target.
func parseFamily(s string) (arke.Family, error) {
	if s == "all" {
		return arke.Family{Name: "all"}, nil
	}
	return arke.FamilyByName(s)
}

func parseNode(s string) (arke.NodeID, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("node id %q: %w", s, err)
	}
	return arke.NodeID(n), nil
}
