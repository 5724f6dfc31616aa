package idcode

// Core describes an ARM core recognised by its TAP IDCODE.
type Core struct {
	Name         string
	Architecture string
	IRLength     int
	// EmbeddedICE cores expose the debug comms channel on scan chain 2.
	EmbeddedICE bool
}

type coreKey struct {
	ManufacturerCode uint16
	PartNumber       uint16
}

var cores = map[coreKey]Core{
	{0x787, 0xF0F0}: {Name: "ARM7TDMI", Architecture: "ARMv4T", IRLength: 4, EmbeddedICE: true},
	{0x787, 0xF1F0}: {Name: "ARM7TDMI-S", Architecture: "ARMv4T", IRLength: 4, EmbeddedICE: true},
	{0x04E, 0x0324}: {Name: "ARM920T", Architecture: "ARMv4T", IRLength: 4, EmbeddedICE: true},
	{0x01F, 0x7926}: {Name: "ARM926EJ-S", Architecture: "ARMv5TEJ", IRLength: 4, EmbeddedICE: true},
	{0x23B, 0xBA00}: {Name: "CoreSight JTAG-DP", Architecture: "ARMv7-M", IRLength: 4},
}

// LookupCore identifies the core behind raw. The version field is ignored.
func LookupCore(raw uint32) (Core, bool) {
	id := ParseIDCode(raw)
	if !id.HasIDCode {
		return Core{}, false
	}
	c, ok := cores[coreKey{id.ManufacturerCode, id.PartNumber}]
	return c, ok
}
