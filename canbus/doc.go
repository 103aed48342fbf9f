// Package canbus provides the CAN primitives the Arke stack is built on.
//
// It includes:
//   - A classical Frame type with validation, text and binary encodings
//   - A context-aware Bus interface with an in-memory loopback implementation
//   - A Mux that fans one receiver out to filtered subscribers
//   - A slog decorator that traces bus traffic
//   - A Linux SocketCAN driver and interface helpers (linux-only)
//   - An SLCAN (LAWICEL) driver for USB-serial adapters
package canbus
