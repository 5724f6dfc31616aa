package flash

import "fmt"

// Tristate is a yes/no flag that may not have been determined.
type Tristate int

const (
	Unknown Tristate = -1
	No      Tristate = 0
	Yes     Tristate = 1
)

func (t Tristate) String() string {
	switch t {
	case No:
		return "no"
	case Yes:
		return "yes"
	default:
		return "unknown"
	}
}

// Sector is one erase granule. Offset is relative to the bank base.
type Sector struct {
	Offset    uint32
	Size      uint32
	Erased    Tristate
	Protected Tristate
}

// Bank is a flash device as configured by a "flash bank" command. The driver
// fills Base, Size and Sectors when it probes.
type Bank struct {
	Name       string
	DriverName string
	Base       uint32
	Size       uint32
	ChipWidth  int
	BusWidth   int
	Sectors    []Sector

	Target Target
	Driver Driver
}

// Probed reports whether the sector table has been populated.
func (b *Bank) Probed() bool {
	return len(b.Sectors) > 0
}

// TargetRunning reports whether the owning target is running.
func (b *Bank) TargetRunning() bool {
	return b.Target != nil && b.Target.State() == TargetRunning
}

// Contains reports whether [addr, addr+length) lies within the bank.
func (b *Bank) Contains(addr, length uint32) bool {
	if addr < b.Base {
		return false
	}
	off := uint64(addr - b.Base)
	return off+uint64(length) <= uint64(b.Size)
}

// SectorAt returns the index of the sector holding addr.
func (b *Bank) SectorAt(addr uint32) (int, bool) {
	if addr < b.Base {
		return 0, false
	}
	off := addr - b.Base
	for i, s := range b.Sectors {
		if off >= s.Offset && off-s.Offset < s.Size {
			return i, true
		}
	}
	return 0, false
}

// SectorSpan returns the first and last sector touched by [addr, addr+length).
func (b *Bank) SectorSpan(addr, length uint32) (first, last int, err error) {
	if length == 0 || !b.Contains(addr, length) {
		return 0, 0, fmt.Errorf("%w: 0x%08x+0x%x outside bank %s", ErrSectorRange, addr, length, b.Name)
	}
	first, ok := b.SectorAt(addr)
	if !ok {
		return 0, 0, fmt.Errorf("%w: no sector at 0x%08x", ErrSectorRange, addr)
	}
	last, ok = b.SectorAt(addr + length - 1)
	if !ok {
		return 0, 0, fmt.Errorf("%w: no sector at 0x%08x", ErrSectorRange, addr+length-1)
	}
	return first, last, nil
}

func (b *Bank) String() string {
	return fmt.Sprintf("%s (%s) at 0x%08x, size 0x%08x, %d sectors", b.Name, b.DriverName, b.Base, b.Size, len(b.Sectors))
}
