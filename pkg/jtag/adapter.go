package jtag

import (
	"errors"
	"fmt"
)

// AdapterInfo describes capabilities reported by a JTAG adapter implementation.
type AdapterInfo struct {
	Name         string
	Vendor       string
	Model        string
	SerialNumber string
	Firmware     string
	MinFrequency int // Hertz
	MaxFrequency int // Hertz
	SupportsSRST bool
	SupportsTRST bool
	Notes        string
}

// Adapter moves raw bit streams across a JTAG port. Each shift clocks bits
// TCK cycles with per-bit TMS and TDI and returns TDO sampled on every cycle;
// TAP navigation is the caller's job (see pkg/tap).
type Adapter interface {
	Info() (AdapterInfo, error)
	ShiftIR(tms, tdi []byte, bits int) (tdo []byte, err error)
	ShiftDR(tms, tdi []byte, bits int) (tdo []byte, err error)
	ResetTAP(hard bool) error
	SetSpeed(hz int) error
}

// ErrNotImplemented lets backends signal that a requested capability is not
// available.
var ErrNotImplemented = errors.New("jtag: not implemented")

// ValidateShiftBuffers checks that TMS/TDI buffers, when given, cover bits and
// returns the number of bytes a bit stream of that length occupies.
func ValidateShiftBuffers(tms, tdi []byte, bits int) (int, error) {
	if bits <= 0 {
		return 0, fmt.Errorf("jtag: bits must be positive, got %d", bits)
	}
	required := (bits + 7) / 8
	if len(tms) > 0 && len(tms) < required {
		return 0, fmt.Errorf("jtag: tms buffer too short, need %d bytes", required)
	}
	if len(tdi) > 0 && len(tdi) < required {
		return 0, fmt.Errorf("jtag: tdi buffer too short, need %d bytes", required)
	}
	return required, nil
}

// PackBits packs bits LSB first, the order adapters clock them out.
func PackBits(bits []bool) []byte {
	if len(bits) == 0 {
		return nil
	}
	out := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit {
			out[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return out
}

// UnpackBits is the inverse of PackBits. Missing bytes read as zero.
func UnpackBits(buf []byte, bits int) []bool {
	if bits <= 0 {
		return nil
	}
	out := make([]bool, bits)
	for i := 0; i < bits && i/8 < len(buf); i++ {
		out[i] = buf[i/8]&(1<<(uint(i)%8)) != 0
	}
	return out
}
