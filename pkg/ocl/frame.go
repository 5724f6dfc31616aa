package ocl

import "fmt"

// Packer is the byte-to-word state machine behind FlashBlock payloads. Bytes
// fill lanes of an all-ones accumulator starting at the initial lane; each
// completed word is folded into the checksum and emitted.
type Packer struct {
	lane int
	acc  uint32
	sum  uint32
	out  []uint32
}

// NewPacker returns a packer that appends to dst, starting at lane.
func NewPacker(dst []uint32, lane int) *Packer {
	p := &Packer{}
	p.Reset(dst, lane)
	return p
}

// Reset rearms the packer for a new frame.
func (p *Packer) Reset(dst []uint32, lane int) {
	p.lane = lane & 3
	p.acc = 0xFFFFFFFF
	p.sum = ChecksumSeed
	p.out = dst
}

// WriteByte places b in the current lane.
func (p *Packer) WriteByte(b byte) error {
	shift := uint(p.lane) * 8
	p.acc &= uint32(b)<<shift | ^(uint32(0xFF) << shift)
	if p.lane == 3 {
		p.emit()
		p.lane = 0
		return nil
	}
	p.lane++
	return nil
}

func (p *Packer) Write(data []byte) (int, error) {
	for _, b := range data {
		_ = p.WriteByte(b)
	}
	return len(data), nil
}

func (p *Packer) emit() {
	p.sum ^= p.acc
	p.out = append(p.out, p.acc)
	p.acc = 0xFFFFFFFF
}

// Checksum returns the checksum of the words emitted so far.
func (p *Packer) Checksum() uint32 {
	return p.sum
}

// Finish flushes a partially filled word and appends the checksum.
func (p *Packer) Finish() []uint32 {
	if p.lane != 0 {
		p.emit()
		p.lane = 0
	}
	return append(p.out, p.sum)
}

// PackFrame appends the packed, checksummed payload of data to dst.
func PackFrame(dst []uint32, lane int, data []byte) []uint32 {
	var p Packer
	p.Reset(dst, lane)
	_, _ = p.Write(data)
	return p.Finish()
}

// FrameWords is the number of words PackFrame emits for n bytes starting at
// lane, checksum included.
func FrameWords(lane, n int) int {
	return (lane&3+n+3)/4 + 1
}

// UnpackFrame recovers n payload bytes packed from lane and verifies the
// trailing checksum.
func UnpackFrame(words []uint32, lane, n int) ([]byte, error) {
	lane &= 3
	if want := FrameWords(lane, n); len(words) != want {
		return nil, fmt.Errorf("ocl: frame of %d bytes needs %d words, got %d", n, want, len(words))
	}
	data := words[:len(words)-1]

	sum := ChecksumSeed
	for _, w := range data {
		sum ^= w
	}
	if got := words[len(words)-1]; got != sum {
		return nil, fmt.Errorf("ocl: frame checksum 0x%08x, computed 0x%08x", got, sum)
	}

	out := make([]byte, n)
	for i := range out {
		pos := lane + i
		out[i] = byte(data[pos/4] >> (uint(pos%4) * 8))
	}
	return out, nil
}
