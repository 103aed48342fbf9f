// Command arkedump prints the traffic of an Arke bus, decoded.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
	"github.com/notnil/arke/internal/config"
)

func main() {
	var bus config.BusConfig
	pflag.StringVar(&bus.Driver, "driver", "socketcan", "CAN driver (socketcan, slcan).")
	pflag.StringVarP(&bus.Interface, "interface", "i", "can0", "SocketCAN interface.")
	pflag.StringVar(&bus.Device, "device", "/dev/ttyACM0", "SLCAN serial device.")
	pflag.IntVar(&bus.BaudRate, "baud-rate", 115200, "SLCAN serial speed.")
	pflag.IntVar(&bus.Bitrate, "bitrate", 0, "CAN bitrate to configure, 0 to keep the current one.")
	format := pflag.String("format", "text", "Output format (text, yaml).")
	var sel selection
	pflag.StringVarP(&sel.family, "family", "f", "", "Only show traffic of this family.")
	pflag.Uint8VarP(&sel.node, "node", "n", 0, "With --family, only show this node's messages and heartbeats.")
	pflag.StringSliceVarP(&sel.types, "type", "t", nil, "Only show these message types (network-control, high-priority, message, heartbeat).")
	pflag.Uint32Var(&sel.id, "id", 0, "Only show frames matching this identifier under --mask.")
	pflag.Uint32Var(&sel.mask, "mask", 0, "Identifier mask applied with --id.")
	pflag.BoolVar(&sel.foreign, "all", false, "Also show extended frames.")
	noColor := pflag.Bool("no-color", false, "Disable colored text output.")
	pflag.Parse()

	f, err := sel.filter(arke.DefaultLayout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arkedump: %v\n", err)
		os.Exit(2)
	}

	var p printer
	switch *format {
	case "text":
		color := !*noColor && term.IsTerminal(int(os.Stdout.Fd()))
		p = &textPrinter{w: os.Stdout, layout: arke.DefaultLayout, color: color}
	case "yaml":
		yp := newYAMLPrinter(os.Stdout, arke.DefaultLayout)
		defer yp.Close()
		p = yp
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q\n", *format)
		os.Exit(2)
	}

	if err := run(bus, p, f); err != nil {
		slog.Error("arkedump stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.BusConfig, p printer, f canbus.FrameFilter) error {
	bus, err := cfg.Open(slog.Default())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := canbus.NewMux(bus)
	defer func() {
		mux.Close()
		bus.Close()
	}()
	frames, cancel := mux.Subscribe(f, 256)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fr, ok := <-frames:
			if !ok {
				return mux.Err()
			}
			if err := p.Print(time.Now(), fr); err != nil {
				return err
			}
		}
	}
}
