package idcode

import "fmt"

// ParseIDCode parses a raw 32-bit IDCODE into its component fields
func ParseIDCode(raw uint32) IDCode {
	return IDCode{
		Raw:              raw,
		Version:          uint8((raw >> 28) & 0xF),
		PartNumber:       uint16((raw >> 12) & 0xFFFF),
		ManufacturerCode: uint16((raw >> 1) & 0x7FF),
		HasIDCode:        (raw & 0x1) == 0x1,
	}
}

func (id IDCode) String() string {
	if !id.HasIDCode {
		return fmt.Sprintf("0x%08X (bypass)", id.Raw)
	}
	return fmt.Sprintf("0x%08X (ver %d, part 0x%04X, mfr 0x%03X)",
		id.Raw, id.Version, id.PartNumber, id.ManufacturerCode)
}

// Describe renders a one-line summary naming the manufacturer and, when
// known, the ARM core.
func Describe(raw uint32) string {
	id := ParseIDCode(raw)
	if !id.HasIDCode {
		return id.String()
	}
	m, _ := LookupManufacturer(id.ManufacturerCode)
	s := fmt.Sprintf("%s %s", id, m.Name)
	if core, ok := LookupCore(raw); ok {
		s += ": " + core.Name
		if core.EmbeddedICE {
			s += " (EmbeddedICE)"
		}
	}
	return s
}
