// Package arke implements the node side of the Arke protocol, a small
// application layer multiplexed over an 11-bit CAN bus.
//
// An Engine owns a handful of transport slots and is advanced by the host
// calling Poll once per cycle. Each poll services the network-control slot
// (reset, heartbeat configuration, address change), surfaces at most one
// inbound application message, drains the error report queue and runs the
// heartbeat scheduler. Nothing in the engine blocks: work that cannot get a
// free slot is retried on the next poll.
//
// A reset or address change ends with ErrRestart. The engine is halted from
// that point and the host must rebuild it from persisted storage; see the
// node package for a runner that does this.
package arke
