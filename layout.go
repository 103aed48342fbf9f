package arke

import "fmt"

// IDT is a standard 11-bit CAN identifier.
type IDT uint16

// MessageType is the priority field of an identifier.
type MessageType uint8

const (
	NetworkControl MessageType = 0
	HighPriority   MessageType = 1
	Message        MessageType = 2
	Heartbeat      MessageType = 3
)

func (t MessageType) String() string {
	switch t {
	case NetworkControl:
		return "network-control"
	case HighPriority:
		return "high-priority"
	case Message:
		return "message"
	case Heartbeat:
		return "heartbeat"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Class is the family-or-class field. Inbound it selects a device family,
// outbound it names the message class.
type Class uint8

// NodeID is the sub-address field: a node address within its family, or a
// network command code on the control channel. 0 addresses the whole family.
type NodeID uint8

// Layout describes how the three identifier fields are packed, from the
// most significant bit down: type, class, sub-address.
type Layout struct {
	TypeBits  uint8
	ClassBits uint8
	SubIDBits uint8
}

// DefaultLayout packs identifiers as type<<9 | class<<3 | sub.
var DefaultLayout = Layout{TypeBits: 2, ClassBits: 6, SubIDBits: 3}

// Validate checks that the layout covers exactly 11 bits with room for the
// four message types, node addresses 1 to 7 and every network command.
func (l Layout) Validate() error {
	if l.TypeBits < 2 || l.ClassBits == 0 || l.SubIDBits < 3 ||
		int(l.TypeBits)+int(l.ClassBits)+int(l.SubIDBits) != 11 {
		return fmt.Errorf("%w: %d/%d/%d bits", ErrInvalidLayout, l.TypeBits, l.ClassBits, l.SubIDBits)
	}
	return nil
}

func (l Layout) classShift() uint8 { return l.SubIDBits }
func (l Layout) typeShift() uint8  { return l.SubIDBits + l.ClassBits }

// MaxClass is the largest value the class field holds.
func (l Layout) MaxClass() Class { return Class(1<<l.ClassBits - 1) }

// MaxAddress is the largest value the sub-address field holds.
func (l Layout) MaxAddress() NodeID { return NodeID(1<<l.SubIDBits - 1) }

// TypeMask selects the message type bits.
func (l Layout) TypeMask() IDT { return IDT(1<<l.TypeBits-1) << l.typeShift() }

// ClassMask selects the class bits.
func (l Layout) ClassMask() IDT { return IDT(l.MaxClass()) << l.classShift() }

// SubIDMask selects the sub-address bits.
func (l Layout) SubIDMask() IDT { return IDT(l.MaxAddress()) }

// Encode packs the three fields. Out-of-range values are truncated to
// their field width.
func (l Layout) Encode(t MessageType, c Class, sub NodeID) IDT {
	return IDT(t)<<l.typeShift()&l.TypeMask() |
		IDT(c)<<l.classShift()&l.ClassMask() |
		IDT(sub)&l.SubIDMask()
}

// Decode unpacks an identifier.
func (l Layout) Decode(id IDT) (MessageType, Class, NodeID) {
	return MessageType((id & l.TypeMask()) >> l.typeShift()),
		Class((id & l.ClassMask()) >> l.classShift()),
		NodeID(id & l.SubIDMask())
}

// familyClassMask keeps the class bits shared by every class of the family.
func (l Layout) familyClassMask(f Family) IDT {
	return IDT(^Class(f.Size-1)&l.MaxClass()) << l.classShift()
}

// NodeFilter returns the match value and mask accepting application messages
// of any class of family f addressed to node addr.
func (l Layout) NodeFilter(f Family, addr NodeID) (IDT, IDT) {
	return l.Encode(Message, f.Class, addr), l.TypeMask() | l.familyClassMask(f) | l.SubIDMask()
}

// FamilyFilter returns the match value and mask accepting application
// messages of any class of family f, whatever their sub-address.
func (l Layout) FamilyFilter(f Family) (IDT, IDT) {
	return l.Encode(Message, f.Class, 0), l.TypeMask() | l.familyClassMask(f)
}

// ControlFilter returns the match value and mask accepting every network
// control frame. Family targeting is checked in software.
func (l Layout) ControlFilter() (IDT, IDT) {
	return l.Encode(NetworkControl, 0, 0), l.TypeMask()
}

// Matches reports whether id is accepted by the value/mask pair.
func Matches(id, value, mask IDT) bool {
	return id&mask == value&mask
}
