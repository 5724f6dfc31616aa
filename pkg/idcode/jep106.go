package idcode

import "fmt"

// manufacturers holds the JEP106 codes of vendors that shipped ARM7/ARM9
// parts with EmbeddedICE, keyed by the 11-bit IDCODE field (bank<<7 | id).
var manufacturers = map[uint16]Manufacturer{
	0x009: {Code: 0x009, Name: "Intel", Abbreviation: "Intel"},
	0x00E: {Code: 0x00E, Name: "Freescale (Motorola)", Abbreviation: "Freescale"},
	0x015: {Code: 0x015, Name: "NXP (Philips)", Abbreviation: "NXP"},
	0x017: {Code: 0x017, Name: "Texas Instruments", Abbreviation: "TI"},
	0x01F: {Code: 0x01F, Name: "Atmel", Abbreviation: "Atmel"},
	0x020: {Code: 0x020, Name: "STMicroelectronics", Abbreviation: "STM"},
	0x04E: {Code: 0x04E, Name: "Samsung", Abbreviation: "Samsung"},
	0x070: {Code: 0x070, Name: "Qualcomm", Abbreviation: "Qualcomm"},
	0x23B: {Code: 0x23B, Name: "ARM Ltd", Abbreviation: "ARM"},
	// Early ARM7TDMI macrocells report 0x787 rather than a registered code.
	0x787: {Code: 0x787, Name: "ARM (legacy macrocell)", Abbreviation: "ARM"},
}

// LookupManufacturer returns manufacturer info for a JEP106 code.
func LookupManufacturer(code uint16) (Manufacturer, bool) {
	m, ok := manufacturers[code]
	if !ok {
		return Manufacturer{
			Code:         code,
			Name:         fmt.Sprintf("Unknown (0x%03X)", code),
			Abbreviation: "Unknown",
		}, false
	}
	return m, true
}
