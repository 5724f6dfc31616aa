package ocl

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/dcc"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/flash"
)

// DriverName is the name used in "flash bank" configuration lines.
const DriverName = "ocl"

// DefaultTimeout bounds the wait for the loader's acknowledgement of a
// command.
const DefaultTimeout = 1000 * time.Millisecond

// ProgressFunc is called after each acknowledged write frame.
type ProgressFunc func(written, total int)

// Driver is the per-bank state of an OCL loader session. It implements
// flash.Driver.
type Driver struct {
	link     dcc.Transport
	timeout  time.Duration
	progress ProgressFunc

	geom Geometry

	scratch sync.Pool
}

// Option configures a Driver.
type Option func(*Driver)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(drv *Driver) { drv.timeout = d }
}

func WithProgress(fn ProgressFunc) Option {
	return func(drv *Driver) { drv.progress = fn }
}

// NewDriver returns an unprobed driver talking to the loader over link.
func NewDriver(link dcc.Transport, opts ...Option) *Driver {
	d := &Driver{
		link:    link,
		timeout: DefaultTimeout,
		geom:    Geometry{BufAlign: 1},
	}
	d.scratch.New = func() any {
		buf := make([]uint32, 0, d.geom.ScratchWords())
		return &buf
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ flash.Driver = (*Driver)(nil)

func (d *Driver) Name() string { return DriverName }

// Geometry returns the geometry of the last successful probe.
func (d *Driver) Geometry() (Geometry, bool) {
	return d.geom, d.probed()
}

func (d *Driver) probed() bool {
	return d.geom.BufLen != 0 && d.geom.BufAlign != 0
}

func (d *Driver) Probe(bank *flash.Bank) error {
	d.geom = Geometry{BufAlign: 1}
	bank.Sectors = nil

	// Purge a reply left over from an interrupted exchange.
	_, _ = d.link.Receive(1)

	if err := d.exchange(Probe{}); err != nil {
		return err
	}

	var reply [4]uint32
	for i := range reply {
		if err := d.link.Handshake(dcc.WBit, 0); err != nil {
			return err
		}
		w, err := d.receiveWord()
		if err != nil {
			return err
		}
		reply[i] = w
	}

	g := Geometry{Base: reply[0], Size: reply[1], Sectors: reply[2]}
	g.BufLen, g.BufAlign = UnpackBufferWord(reply[3])
	if err := g.Validate(); err != nil {
		logger.Error(err)
		return err
	}

	d.geom = g
	bank.Base = g.Base
	bank.Size = g.Size
	size := g.SectorSize()
	bank.Sectors = make([]flash.Sector, g.Sectors)
	for i := range bank.Sectors {
		bank.Sectors[i] = flash.Sector{
			Offset:    uint32(i) * size,
			Size:      size,
			Erased:    flash.Unknown,
			Protected: flash.Unknown,
		}
	}
	logger.Debugf("ocl loader geometry: %s", g)
	return nil
}

func (d *Driver) AutoProbe(bank *flash.Bank) error {
	if !d.probed() {
		return flash.ErrBankNotProbed
	}
	return nil
}

func (d *Driver) Erase(bank *flash.Bank, first, last int) error {
	if err := d.ready(bank); err != nil {
		return err
	}
	if first < 0 || first > last || last >= len(bank.Sectors) {
		return fmt.Errorf("%w: sectors %d..%d of %d", flash.ErrSectorRange, first, last, len(bank.Sectors))
	}

	var cmd Command = EraseBlock{First: uint32(first), Last: uint32(last)}
	if first == 0 && last == len(bank.Sectors)-1 {
		cmd = EraseAll{}
	}
	return d.exchange(cmd)
}

func (d *Driver) Write(bank *flash.Bank, buf []byte, offset uint32) error {
	if err := d.ready(bank); err != nil {
		return err
	}

	scratch := d.scratch.Get().(*[]uint32)
	defer d.scratch.Put(scratch)
	if cap(*scratch) < d.geom.ScratchWords() {
		*scratch = make([]uint32, 0, d.geom.ScratchWords())
	}

	total := len(buf)
	for written := 0; written < total; {
		runlen := int(d.geom.RunLength(offset, uint32(total-written)))
		frame := FlashBlock{
			Offset: offset,
			Lane:   d.geom.Lane(offset),
			Data:   buf[written : written+runlen],
		}
		*scratch = frame.Encode((*scratch)[:0])
		logger.Debugf("ocl: %s %d bytes at 0x%08x (%d words)", OpFlashBlock, runlen, offset, len(*scratch))

		if err := d.sendAndAwait(OpFlashBlock, *scratch); err != nil {
			return err
		}

		written += runlen
		offset += uint32(runlen)
		if d.progress != nil {
			d.progress(written, total)
		}
	}
	return nil
}

// The loader keeps no protection state, so these report success.

func (d *Driver) EraseCheck(bank *flash.Bank) error { return nil }

func (d *Driver) ProtectCheck(bank *flash.Bank) error { return nil }

func (d *Driver) Protect(bank *flash.Bank, set bool, first, last int) error { return nil }

// Info describes the probed geometry; it is empty before a probe.
func (d *Driver) Info(bank *flash.Bank) (string, error) {
	if !d.probed() {
		return "", nil
	}
	g := d.geom
	return fmt.Sprintf("ocl flash driver: %d sectors of %d bytes at 0x%08x, loader buffer %d bytes aligned to %d",
		g.Sectors, g.SectorSize(), g.Base, g.BufLen, g.BufAlign), nil
}

func (d *Driver) ready(bank *flash.Bank) error {
	if !d.probed() {
		return flash.ErrBankNotProbed
	}
	if !bank.TargetRunning() {
		logger.Error("target has to be running to communicate with the loader")
		return flash.ErrTargetNotRunning
	}
	return nil
}

func (d *Driver) exchange(cmd Command) error {
	var words [3]uint32
	return d.sendAndAwait(cmd.Opcode(), cmd.Encode(words[:0]))
}

// sendAndAwait sends one command, waits for the acknowledgement and
// requires RespDone.
func (d *Driver) sendAndAwait(op Opcode, words []uint32) error {
	if err := d.link.Send(words); err != nil {
		return err
	}
	if err := d.link.Handshake(dcc.WBit, d.timeout); err != nil {
		if errors.Is(err, dcc.ErrTimeout) {
			logger.Error("loader not responding")
			return &LoaderError{Op: op, Err: err}
		}
		return err
	}
	reply, err := d.receiveWord()
	if err != nil {
		return err
	}
	if err := CheckResponse(op, reply); err != nil {
		logger.Errorf("loader response to %s 0x%08x", op, reply)
		return err
	}
	return nil
}

func (d *Driver) receiveWord() (uint32, error) {
	words, err := d.link.Receive(1)
	if err != nil {
		return 0, err
	}
	if len(words) != 1 {
		return 0, fmt.Errorf("ocl: receive returned %d words, want 1", len(words))
	}
	return words[0], nil
}
