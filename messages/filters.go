package messages

import (
	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
)

// Frame filters for monitors subscribed to a canbus.Mux.

// Arke matches the frames an Arke network carries: standard frames, data
// or remote requests.
func Arke() canbus.FrameFilter {
	return canbus.StandardOnly()
}

// Requests matches Arke remote frames asking a node for a message class.
func Requests() canbus.FrameFilter {
	return canbus.And(Arke(), canbus.Not(canbus.DataOnly()))
}

// Foreign matches the frames no Arke node sends.
func Foreign() canbus.FrameFilter {
	return canbus.ExtendedOnly()
}

// ByType matches Arke frames of any of the given message types.
func ByType(l arke.Layout, types ...arke.MessageType) canbus.FrameFilter {
	var match canbus.FrameFilter = canbus.Not(nil)
	for _, t := range types {
		match = canbus.Or(match, canbus.ByMask(uint32(l.Encode(t, 0, 0)), uint32(l.TypeMask())))
	}
	return canbus.And(Arke(), match)
}

// ByFamily matches every Arke frame whose class field belongs to family f:
// its messages and heartbeats, and the commands targeting it.
func ByFamily(l arke.Layout, f arke.Family) canbus.FrameFilter {
	id, mask := l.FamilyFilter(f)
	return canbus.And(Arke(), canbus.ByMask(uint32(id), uint32(mask&^l.TypeMask())))
}

// ByNode matches the messages and heartbeats of node addr in family f.
func ByNode(l arke.Layout, f arke.Family, addr arke.NodeID) canbus.FrameFilter {
	notControl := canbus.Not(ByType(l, arke.NetworkControl))
	return canbus.And(ByFamily(l, f), canbus.And(notControl, canbus.ByMask(uint32(addr), uint32(l.SubIDMask()))))
}
