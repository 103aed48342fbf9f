// Package messages holds the wire contracts of Arke frames: typed payloads
// for every application message class, builders for the network-control
// commands a host sends, and Parse, which turns a captured CAN frame back
// into a typed Message.
//
// Payloads are little-endian. Sensor readings travel in the raw formats of
// the sensors that produced them (HIH6030 humidity and temperature, TMP1075
// temperature); the typed structs carry engineering units.
package messages
