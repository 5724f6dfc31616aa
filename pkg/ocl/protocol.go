// Package ocl drives the OCL flash loader, a small resident program that
// erases and programs on-chip flash on behalf of the debugger, exchanging
// words with it over the debug communications channel.
package ocl

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/flash"
)

// Opcode is the high half of a command word.
type Opcode uint32

const (
	OpFlashBlock Opcode = 0x0CFB0000
	OpEraseBlock Opcode = 0x0CEB0000
	OpEraseAll   Opcode = 0x0CEA0000
	OpProbe      Opcode = 0x0CBE0000
)

// Loader response words.
const (
	RespDone uint32 = 0x0ACD0000
	RespErr  uint32 = 0x0ACE0000
)

// ChecksumSeed starts the XOR checksum of every FlashBlock payload.
const ChecksumSeed uint32 = 0xC100CD0C

const opcodeMask = 0xFFFF0000

func (o Opcode) String() string {
	switch o {
	case OpFlashBlock:
		return "OCL_FLASH_BLOCK"
	case OpEraseBlock:
		return "OCL_ERASE_BLOCK"
	case OpEraseAll:
		return "OCL_ERASE_ALL"
	case OpProbe:
		return "OCL_PROBE"
	default:
		return fmt.Sprintf("Opcode(0x%08x)", uint32(o))
	}
}

// ParseOpcode splits a command word into its opcode and the 16-bit argument
// carried in the low half (the byte count of a FlashBlock).
func ParseOpcode(word uint32) (Opcode, uint16) {
	return Opcode(word & opcodeMask), uint16(word)
}

// Command is a request understood by the loader.
type Command interface {
	Opcode() Opcode
	// Encode appends the command's words to dst.
	Encode(dst []uint32) []uint32
}

// Probe asks the loader for its flash geometry.
type Probe struct{}

func (Probe) Opcode() Opcode { return OpProbe }

func (Probe) Encode(dst []uint32) []uint32 {
	return append(dst, uint32(OpProbe))
}

// EraseAll erases the whole device.
type EraseAll struct{}

func (EraseAll) Opcode() Opcode { return OpEraseAll }

func (EraseAll) Encode(dst []uint32) []uint32 {
	return append(dst, uint32(OpEraseAll))
}

// EraseBlock erases sectors First through Last inclusive.
type EraseBlock struct {
	First, Last uint32
}

func (EraseBlock) Opcode() Opcode { return OpEraseBlock }

func (c EraseBlock) Encode(dst []uint32) []uint32 {
	return append(dst, uint32(OpEraseBlock), c.First, c.Last)
}

// FlashBlock programs Data at Offset from the bank base. Lane is the byte
// lane of the first payload byte within its word.
type FlashBlock struct {
	Offset uint32
	Lane   int
	Data   []byte
}

func (FlashBlock) Opcode() Opcode { return OpFlashBlock }

func (c FlashBlock) Encode(dst []uint32) []uint32 {
	dst = append(dst, uint32(OpFlashBlock)|uint32(len(c.Data)&0xFFFF), c.Offset)
	return PackFrame(dst, c.Lane, c.Data)
}

// CheckResponse accepts RespDone and turns anything else into a
// *LoaderError for op.
func CheckResponse(op Opcode, word uint32) error {
	if word == RespDone {
		return nil
	}
	return &LoaderError{Op: op, Response: word, HasResponse: true, Err: flash.ErrOperationFailed}
}
