package dcc

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/OpenTraceOCL/internal/syncutil"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/tap"
)

// ARM7/ARM9 TAP instructions.
const (
	InstrScanN  = 0x2
	InstrIntest = 0xC
	InstrIDCode = 0xE
)

// EmbeddedICE scan chain 2 layout and register addresses.
const (
	ScanChainICE = 2

	chain2Bits    = 38
	chainSelBits  = 4
	addrShift     = 32
	writeFlagBit  = 37
	RegCommsCtrl  = 4
	RegCommsData  = 5
	ctrlVersionSh = 28

	DefaultIRLength     = 4
	DefaultPollInterval = time.Millisecond
)

// EmbeddedICE is a Transport over the comms channel registers of an ARM7/ARM9
// EmbeddedICE unit, reached through scan chain 2 of the core's TAP.
type EmbeddedICE struct {
	mu syncutil.Mutex

	adapter jtag.Adapter
	tap     *tap.StateMachine
	log     *logrus.Logger

	irLen int
	poll  time.Duration

	// ir and chain cache the selected instruction and scan chain; -1 is unknown.
	ir    int
	chain int
}

// Option configures an EmbeddedICE transport.
type Option func(*EmbeddedICE)

// WithPollInterval sets the delay between control register reads in
// Handshake.
func WithPollInterval(d time.Duration) Option {
	return func(e *EmbeddedICE) { e.poll = d }
}

// WithIRLength sets the instruction register length of the core's TAP.
func WithIRLength(bits int) Option {
	return func(e *EmbeddedICE) { e.irLen = bits }
}

func WithLogger(l *logrus.Logger) Option {
	return func(e *EmbeddedICE) { e.log = l }
}

// NewEmbeddedICE resets the TAP behind adapter and returns a transport
// driving its comms channel.
func NewEmbeddedICE(adapter jtag.Adapter, opts ...Option) (*EmbeddedICE, error) {
	e := &EmbeddedICE{
		adapter: adapter,
		tap:     tap.NewStateMachine(),
		log:     logger,
		irLen:   DefaultIRLength,
		poll:    DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.irLen <= 0 || e.irLen > 32 {
		return nil, fmt.Errorf("dcc: invalid IR length %d", e.irLen)
	}
	if err := e.Reset(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reset forces the TAP into Test-Logic-Reset, which selects IDCODE.
func (e *EmbeddedICE) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reset()
}

func (e *EmbeddedICE) reset() error {
	if err := e.adapter.ResetTAP(false); err != nil {
		return fmt.Errorf("dcc: tap reset: %w", err)
	}
	e.tap.Reset()
	e.ir = InstrIDCode
	e.chain = -1
	return nil
}

// IDCode resets the TAP and reads the core's IDCODE register.
func (e *EmbeddedICE) IDCode() (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.reset(); err != nil {
		return 0, err
	}
	out, err := e.scanDR(make([]bool, 32))
	if err != nil {
		return 0, err
	}
	return uint32(bitsValue(out)), nil
}

func (e *EmbeddedICE) Send(words []uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, w := range words {
		if _, err := e.chain2(w, RegCommsData, true); err != nil {
			return err
		}
	}
	return nil
}

// Receive reads count words from the comms data register. Reads through
// scan chain 2 are pipelined: each scan returns the register addressed by
// the previous one, so the last scan addresses the control register to
// avoid consuming an extra word.
func (e *EmbeddedICE) Receive(count int) ([]uint32, error) {
	if count < 0 {
		return nil, fmt.Errorf("dcc: negative receive count %d", count)
	}
	if count == 0 {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.chain2(0, RegCommsData, false); err != nil {
		return nil, err
	}
	words := make([]uint32, count)
	for i := range words {
		next := uint32(RegCommsData)
		if i == count-1 {
			next = RegCommsCtrl
		}
		w, err := e.chain2(0, next, false)
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	return words, nil
}

func (e *EmbeddedICE) Handshake(bit ControlBit, timeout time.Duration) error {
	if bit != RBit && bit != WBit {
		return fmt.Errorf("dcc: invalid control bit %d", bit)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	if _, err := e.chain2(0, RegCommsCtrl, false); err != nil {
		return err
	}
	for {
		ctrl, err := e.chain2(0, RegCommsCtrl, false)
		if err != nil {
			return err
		}
		set := ctrl&(1<<bit) != 0
		if (bit == WBit && set) || (bit == RBit && !set) {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			e.log.WithField("ctrl", fmt.Sprintf("0x%08x", ctrl)).
				Debugf("dcc: %s handshake timed out after %s", bit, timeout)
			return ErrTimeout
		}
		time.Sleep(e.poll)
	}
}

// chain2 runs one scan of the EmbeddedICE chain and returns the 32 data bits
// captured from the previous read.
func (e *EmbeddedICE) chain2(data, addr uint32, write bool) (uint32, error) {
	if err := e.selectChain(ScanChainICE); err != nil {
		return 0, err
	}
	v := uint64(data) | uint64(addr&0x1F)<<addrShift
	if write {
		v |= 1 << writeFlagBit
	}
	out, err := e.scanDR(valueBits(v, chain2Bits))
	if err != nil {
		return 0, err
	}
	return uint32(bitsValue(out[:32])), nil
}

func (e *EmbeddedICE) selectChain(n int) error {
	if e.chain == n && e.ir == InstrIntest {
		return nil
	}
	if err := e.writeIR(InstrScanN); err != nil {
		return err
	}
	if _, err := e.scanDR(valueBits(uint64(n), chainSelBits)); err != nil {
		return err
	}
	e.chain = n
	return e.writeIR(InstrIntest)
}

func (e *EmbeddedICE) writeIR(instr int) error {
	if e.ir == instr {
		return nil
	}
	scan, err := e.tap.ScanIR(valueBits(uint64(instr), e.irLen))
	if err != nil {
		return err
	}
	if _, err := e.adapter.ShiftIR(jtag.PackBits(scan.TMS), jtag.PackBits(scan.TDI), len(scan.TMS)); err != nil {
		e.ir = -1
		return fmt.Errorf("dcc: shift IR: %w", err)
	}
	e.ir = instr
	return nil
}

func (e *EmbeddedICE) scanDR(tdi []bool) ([]bool, error) {
	scan, err := e.tap.ScanDR(tdi)
	if err != nil {
		return nil, err
	}
	tdo, err := e.adapter.ShiftDR(jtag.PackBits(scan.TMS), jtag.PackBits(scan.TDI), len(scan.TMS))
	if err != nil {
		return nil, fmt.Errorf("dcc: shift DR: %w", err)
	}
	if len(tdo) < (len(scan.TMS)+7)/8 {
		return nil, fmt.Errorf("dcc: short TDO capture (%d bytes for %d bits)", len(tdo), len(scan.TMS))
	}
	return scan.Captured(jtag.UnpackBits(tdo, len(scan.TMS))), nil
}

// valueBits expands the low n bits of v, LSB first.
func valueBits(v uint64, n int) []bool {
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = v&(1<<uint(i)) != 0
	}
	return bits
}

func bitsValue(bits []bool) uint64 {
	var v uint64
	for i, b := range bits {
		if b {
			v |= 1 << uint(i)
		}
	}
	return v
}
