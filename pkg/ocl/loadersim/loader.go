// Package loadersim simulates the target side of the OCL loader protocol.
// A Loader can stand in directly for the debug channel (dcc.Transport) or
// sit behind a simulated EmbeddedICE as its dcc.Peer.
package loadersim

import (
	"fmt"
	"time"

	"github.com/OpenTraceLab/OpenTraceOCL/internal/syncutil"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/dcc"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/ocl"
)

// maxMemory caps the simulated flash image; larger profiles get no backing
// store and reject writes.
const maxMemory = 64 << 20

// Record is one command the loader executed.
type Record struct {
	Op     ocl.Opcode
	First  uint32
	Last   uint32
	Offset uint32
	Data   []byte
	Reply  uint32
}

// Loader is a simulated OCL loader with a flash image that starts erased.
type Loader struct {
	mu syncutil.Mutex

	profile Profile
	mem     []byte

	in   []uint32
	out  []uint32
	last uint32

	silent   bool
	failNext *uint32
	records  []Record
}

var (
	_ dcc.Transport = (*Loader)(nil)
	_ dcc.Peer      = (*Loader)(nil)
)

// New returns a loader reporting profile.
func New(profile Profile) *Loader {
	l := &Loader{profile: profile}
	if profile.Size <= maxMemory {
		l.mem = make([]byte, profile.Size)
		fill(l.mem)
	}
	return l
}

// Profile returns the geometry the loader reports.
func (l *Loader) Profile() Profile {
	return l.profile
}

// SetSilent makes the loader swallow commands without replying, as if it
// had crashed.
func (l *Loader) SetSilent(silent bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.silent = silent
}

// FailNext replaces the reply to the next command with word.
func (l *Loader) FailNext(word uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = &word
}

// Records returns the commands executed so far.
func (l *Loader) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// Memory returns a copy of n bytes of the flash image at offset.
func (l *Loader) Memory(offset, n uint32) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	if uint64(offset)+uint64(n) > uint64(len(l.mem)) {
		return nil
	}
	return append([]byte(nil), l.mem[offset:offset+n]...)
}

// Deliver accepts a word from the host and runs any command it completes.
func (l *Loader) Deliver(word uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.in = append(l.in, word)
	l.step()
}

func (l *Loader) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.out) > 0
}

// Collect pops the next reply. With nothing pending it returns the last
// word again, like a DCC data register read twice.
func (l *Loader) Collect() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collect()
}

func (l *Loader) collect() uint32 {
	if len(l.out) > 0 {
		l.last = l.out[0]
		l.out = l.out[1:]
	}
	return l.last
}

// Send implements dcc.Transport.
func (l *Loader) Send(words []uint32) error {
	for _, w := range words {
		l.Deliver(w)
	}
	return nil
}

func (l *Loader) Receive(count int) ([]uint32, error) {
	if count < 0 {
		return nil, fmt.Errorf("loadersim: negative receive count %d", count)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	words := make([]uint32, count)
	for i := range words {
		words[i] = l.collect()
	}
	return words, nil
}

// Handshake never waits: commands run as soon as their last word arrives,
// so a missing reply will never come.
func (l *Loader) Handshake(bit dcc.ControlBit, _ time.Duration) error {
	switch bit {
	case dcc.RBit:
		return nil
	case dcc.WBit:
		if l.Pending() {
			return nil
		}
		return dcc.ErrTimeout
	default:
		return fmt.Errorf("loadersim: invalid control bit %d", bit)
	}
}

// step runs the command at the head of the input queue once all its words
// have arrived.
func (l *Loader) step() {
	op, arg := ocl.ParseOpcode(l.in[0])
	g := l.profile.Geometry()

	var rec Record
	switch op {
	case ocl.OpProbe:
		rec = Record{Op: op}
		l.in = l.in[1:]
		l.reply(&rec, ocl.RespDone, g.Base, g.Size, g.Sectors, g.BufferWord())
		return

	case ocl.OpEraseAll:
		rec = Record{Op: op, First: 0, Last: g.Sectors - 1}
		l.in = l.in[1:]
		fill(l.mem)
		l.reply(&rec, ocl.RespDone)
		return

	case ocl.OpEraseBlock:
		if len(l.in) < 3 {
			return
		}
		rec = Record{Op: op, First: l.in[1], Last: l.in[2]}
		l.in = l.in[3:]
		l.reply(&rec, l.eraseBlock(rec.First, rec.Last))
		return

	case ocl.OpFlashBlock:
		if len(l.in) < 2 {
			return
		}
		offset := l.in[1]
		align := g.BufAlign
		if align == 0 {
			align = 1
		}
		lane := int(offset % align % 4)
		need := 2 + ocl.FrameWords(lane, int(arg))
		if len(l.in) < need {
			return
		}
		frame := l.in[2:need]
		l.in = l.in[need:]
		rec = Record{Op: op, Offset: offset}
		data, err := ocl.UnpackFrame(frame, lane, int(arg))
		if err != nil {
			l.reply(&rec, ocl.RespErr)
			return
		}
		rec.Data = data
		l.reply(&rec, l.program(offset, data))
		return
	}

	rec = Record{Op: op}
	l.in = l.in[1:]
	l.reply(&rec, ocl.RespErr)
}

func (l *Loader) reply(rec *Record, status uint32, extra ...uint32) {
	if l.failNext != nil {
		status = *l.failNext
		l.failNext = nil
		extra = nil
	}
	rec.Reply = status
	l.records = append(l.records, *rec)
	if l.silent {
		return
	}
	l.out = append(l.out, status)
	l.out = append(l.out, extra...)
}

func (l *Loader) eraseBlock(first, last uint32) uint32 {
	g := l.profile.Geometry()
	if first > last || last >= g.Sectors || l.mem == nil {
		return ocl.RespErr
	}
	size := g.SectorSize()
	fill(l.mem[first*size : (last+1)*size])
	return ocl.RespDone
}

// program ANDs data into the image, as NOR flash can only clear bits.
func (l *Loader) program(offset uint32, data []byte) uint32 {
	g := l.profile.Geometry()
	if uint32(len(data)) > g.BufLen || uint64(offset)+uint64(len(data)) > uint64(len(l.mem)) {
		return ocl.RespErr
	}
	for i, b := range data {
		l.mem[offset+uint32(i)] &= b
	}
	return ocl.RespDone
}

func fill(b []byte) {
	for i := range b {
		b[i] = 0xFF
	}
}
