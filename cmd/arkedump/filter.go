package main

import (
	"fmt"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
	"github.com/notnil/arke/messages"
)

// selection is the set of frames requested on the command line.
type selection struct {
	family  string
	node    uint8
	types   []string
	id      uint32
	mask    uint32
	foreign bool
}

func (s selection) filter(l arke.Layout) (canbus.FrameFilter, error) {
	f := messages.Arke()
	if s.family != "" {
		fam, err := arke.FamilyByName(s.family)
		if err != nil {
			return nil, err
		}
		if s.node != 0 {
			f = messages.ByNode(l, fam, arke.NodeID(s.node))
		} else {
			f = messages.ByFamily(l, fam)
		}
	} else if s.node != 0 {
		return nil, fmt.Errorf("--node needs --family")
	}
	if len(s.types) > 0 {
		var types []arke.MessageType
		for _, name := range s.types {
			t, err := parseType(name)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
		f = canbus.And(f, messages.ByType(l, types...))
	}
	f = canbus.And(f, canbus.ByMask(s.id, s.mask))
	if s.foreign {
		f = canbus.Or(f, messages.Foreign())
	}
	return f, nil
}

func parseType(name string) (arke.MessageType, error) {
	for t := arke.NetworkControl; t <= arke.Heartbeat; t++ {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown message type %q", name)
}
