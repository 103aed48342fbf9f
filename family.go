package arke

import (
	"fmt"
	"sort"
	"strings"
)

// Family is a device category. A family owns Size consecutive message
// classes starting at Class; Size is a power of two and Class is aligned on it.
type Family struct {
	Name  string
	Class Class
	Size  uint8
}

// BroadcastClass targets every family on the control channel.
const BroadcastClass Class = 0

var (
	Zeus    = Family{Name: "zeus", Class: 0x38, Size: 8}
	Helios  = Family{Name: "helios", Class: 0x34, Size: 4}
	Celaeno = Family{Name: "celaeno", Class: 0x30, Size: 4}
	Notus   = Family{Name: "notus", Class: 0x2c, Size: 4}
)

// Families lists the known device families.
func Families() []Family {
	return []Family{Zeus, Helios, Celaeno, Notus}
}

// FamilyByName looks a family up by case-insensitive name.
func FamilyByName(name string) (Family, error) {
	for _, f := range Families() {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return Family{}, fmt.Errorf("arke: unknown family %q", name)
}

// FamilyOf returns the family owning class c.
func FamilyOf(c Class) (Family, bool) {
	for _, f := range Families() {
		if f.Owns(c) {
			return f, true
		}
	}
	return Family{}, false
}

// Owns reports whether c is one of the family's message classes.
func (f Family) Owns(c Class) bool {
	return f.Size > 0 && c&^Class(f.Size-1) == f.Class
}

func (f Family) validate(l Layout) error {
	if f.Size == 0 || f.Size&(f.Size-1) != 0 {
		return fmt.Errorf("arke: family %s: size %d is not a power of two", f.Name, f.Size)
	}
	if f.Class == BroadcastClass || f.Class > l.MaxClass() || f.Class&Class(f.Size-1) != 0 {
		return fmt.Errorf("arke: family %s: class 0x%02x does not fit the layout", f.Name, f.Class)
	}
	return nil
}

func (f Family) String() string { return f.Name }

// Message classes.
const (
	ClassZeusSetPoint         Class = 0x38
	ClassZeusReport           Class = 0x39
	ClassZeusVibrationReport  Class = 0x3a
	ClassZeusConfig           Class = 0x3b
	ClassZeusStatus           Class = 0x3c
	ClassZeusControlPoint     Class = 0x3d
	ClassZeusDeltaTemperature Class = 0x3e

	ClassHeliosSetPoint    Class = 0x34
	ClassHeliosPulseMode   Class = 0x35
	ClassHeliosTriggerMode Class = 0x36

	ClassCelaenoSetPoint Class = 0x30
	ClassCelaenoStatus   Class = 0x31
	ClassCelaenoConfig   Class = 0x32

	ClassNotusSetPoint Class = 0x2c
	ClassNotusConfig   Class = 0x2d
)

// ClassInfo is one entry of the class table: the wire contract of a
// message class.
type ClassInfo struct {
	Class  Class
	Name   string
	Family Family
	Length uint8
}

var classTable = map[Class]ClassInfo{
	ClassZeusSetPoint:         {ClassZeusSetPoint, "ZeusSetPoint", Zeus, 5},
	ClassZeusReport:           {ClassZeusReport, "ZeusReport", Zeus, 8},
	ClassZeusVibrationReport:  {ClassZeusVibrationReport, "ZeusVibrationReport", Zeus, 2},
	ClassZeusConfig:           {ClassZeusConfig, "ZeusConfig", Zeus, 8},
	ClassZeusStatus:           {ClassZeusStatus, "ZeusStatus", Zeus, 7},
	ClassZeusControlPoint:     {ClassZeusControlPoint, "ZeusControlPoint", Zeus, 4},
	ClassZeusDeltaTemperature: {ClassZeusDeltaTemperature, "ZeusDeltaTemperature", Zeus, 8},

	ClassHeliosSetPoint:    {ClassHeliosSetPoint, "HeliosSetPoint", Helios, 2},
	ClassHeliosPulseMode:   {ClassHeliosPulseMode, "HeliosPulseMode", Helios, 2},
	ClassHeliosTriggerMode: {ClassHeliosTriggerMode, "HeliosTriggerMode", Helios, 4},

	ClassCelaenoSetPoint: {ClassCelaenoSetPoint, "CelaenoSetPoint", Celaeno, 1},
	ClassCelaenoStatus:   {ClassCelaenoStatus, "CelaenoStatus", Celaeno, 3},
	ClassCelaenoConfig:   {ClassCelaenoConfig, "CelaenoConfig", Celaeno, 8},

	ClassNotusSetPoint: {ClassNotusSetPoint, "NotusSetPoint", Notus, 1},
	ClassNotusConfig:   {ClassNotusConfig, "NotusConfig", Notus, 4},
}

// LookupClass returns the class table entry for c.
func LookupClass(c Class) (ClassInfo, bool) {
	info, ok := classTable[c]
	return info, ok
}

// Classes returns the class table sorted by class value.
func Classes() []ClassInfo {
	out := make([]ClassInfo, 0, len(classTable))
	for _, info := range classTable {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}

func (c Class) String() string {
	if info, ok := classTable[c]; ok {
		return info.Name
	}
	if c == BroadcastClass {
		return "Broadcast"
	}
	return fmt.Sprintf("Class(0x%02x)", uint8(c))
}
