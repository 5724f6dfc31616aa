package ocl

import "fmt"

// Geometry is the flash layout and transfer buffer reported by the loader.
type Geometry struct {
	Base    uint32
	Size    uint32
	Sectors uint32
	// BufLen is the loader's receive buffer size in bytes; BufAlign is the
	// flash offset alignment the buffer maps onto.
	BufLen   uint32
	BufAlign uint32
}

// UnpackBufferWord splits the fourth probe reply: buffer length in the low
// half, alignment in the high half.
func UnpackBufferWord(w uint32) (buflen, bufalign uint32) {
	return w & 0xFFFF, w >> 16
}

// BufferWord is the inverse of UnpackBufferWord.
func (g Geometry) BufferWord() uint32 {
	return g.BufAlign<<16 | g.BufLen&0xFFFF
}

// Validate checks the geometry. A zero BufAlign is coerced to 1 first.
func (g *Geometry) Validate() error {
	if g.Sectors == 0 {
		return &GeometryError{Geometry: *g, Reason: "number of sectors shall be non zero value"}
	}
	if g.Size%g.Sectors != 0 {
		return &GeometryError{Geometry: *g, Reason: "bank size not divisible by number of sectors"}
	}
	if g.BufAlign == 0 {
		g.BufAlign = 1
	}
	if g.BufLen == 0 {
		return &GeometryError{Geometry: *g, Reason: "buflen shall be non zero value"}
	}
	if g.BufAlign > g.BufLen || g.BufLen%g.BufAlign != 0 {
		return &GeometryError{Geometry: *g, Reason: "buflen is not multiple of bufalign"}
	}
	if g.BufLen%4 != 0 {
		return &GeometryError{Geometry: *g, Reason: "buflen shall be divisible by 4"}
	}
	return nil
}

// SectorSize is the uniform size of one sector.
func (g Geometry) SectorSize() uint32 {
	if g.Sectors == 0 {
		return 0
	}
	return g.Size / g.Sectors
}

// Lane is the byte lane of the first payload byte of a frame at offset.
func (g Geometry) Lane(offset uint32) int {
	return int(offset % g.BufAlign % 4)
}

// RunLength is how many of count bytes at offset fit in one frame: the
// buffer window starts at offset % BufAlign and ends at BufLen.
func (g Geometry) RunLength(offset, count uint32) uint32 {
	room := g.BufLen - offset%g.BufAlign
	if count < room {
		return count
	}
	return room
}

// ScratchWords is the largest FlashBlock command in words: opcode, offset,
// BufLen/4 payload words and the checksum.
func (g Geometry) ScratchWords() int {
	return int(g.BufLen/4) + 3
}

func (g Geometry) String() string {
	return fmt.Sprintf("base 0x%08x, size %d, %d sectors, buflen %d, bufalign %d",
		g.Base, g.Size, g.Sectors, g.BufLen, g.BufAlign)
}
