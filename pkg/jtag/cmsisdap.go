package jtag

import (
	"fmt"
	"sync"
)

// packetTransport is the request/response channel to a CMSIS-DAP probe.
// USBTransport is the production implementation.
type packetTransport interface {
	WriteRead(cmd []byte) ([]byte, error)
	PacketSize() int
	Close() error
}

// CMSISDAPAdapter drives JTAG through a CMSIS-DAP probe's DAP_JTAG_Sequence
// command.
type CMSISDAPAdapter struct {
	transport packetTransport

	info      AdapterInfo
	speedHz   int
	connected bool

	mu sync.Mutex
}

// NewCMSISDAPAdapter opens the probe at vid:pid and switches it to JTAG.
func NewCMSISDAPAdapter(vid, pid uint16) (*CMSISDAPAdapter, error) {
	transport, err := NewUSBTransport(vid, pid)
	if err != nil {
		return nil, err
	}
	a, err := newCMSISDAPAdapter(transport)
	if err != nil {
		transport.Close()
		return nil, err
	}
	return a, nil
}

func newCMSISDAPAdapter(transport packetTransport) (*CMSISDAPAdapter, error) {
	a := &CMSISDAPAdapter{
		transport: transport,
		speedHz:   1_000_000,
	}
	if err := a.queryInfo(); err != nil {
		return nil, fmt.Errorf("jtag: query probe info: %w", err)
	}
	if err := a.connect(); err != nil {
		return nil, err
	}
	if err := a.SetSpeed(a.speedHz); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *CMSISDAPAdapter) queryString(id byte) (string, error) {
	resp, err := a.transport.WriteRead(encodeInfo(id))
	if err != nil {
		return "", err
	}
	return decodeInfo(resp)
}

func (a *CMSISDAPAdapter) queryInfo() error {
	vendor, err := a.queryString(InfoVendorID)
	if err != nil {
		return err
	}
	// The remaining strings are optional; probes answer with length 0.
	product, _ := a.queryString(InfoProductID)
	serial, _ := a.queryString(InfoSerialNum)
	firmware, _ := a.queryString(InfoFirmwareVer)

	a.info = AdapterInfo{
		Name:         "CMSIS-DAP",
		Vendor:       vendor,
		Model:        product,
		SerialNumber: serial,
		Firmware:     firmware,
		MinFrequency: 1_000,
		MaxFrequency: 10_000_000,
		SupportsSRST: true,
	}
	return nil
}

func (a *CMSISDAPAdapter) connect() error {
	resp, err := a.transport.WriteRead(encodeConnect(PortJTAG))
	if err != nil {
		return fmt.Errorf("jtag: connect: %w", err)
	}
	port, err := decodeConnect(resp)
	if err != nil {
		return err
	}
	if port != PortJTAG {
		return fmt.Errorf("jtag: probe connected port %d, want JTAG", port)
	}
	a.connected = true
	return nil
}

func (a *CMSISDAPAdapter) Info() (AdapterInfo, error) {
	return a.info, nil
}

func (a *CMSISDAPAdapter) ShiftIR(tms, tdi []byte, bits int) ([]byte, error) {
	return a.shift(tms, tdi, bits)
}

func (a *CMSISDAPAdapter) ShiftDR(tms, tdi []byte, bits int) ([]byte, error) {
	return a.shift(tms, tdi, bits)
}

// shift splits the stream into sequences, batches them into packets and
// reassembles TDO in clock order.
func (a *CMSISDAPAdapter) shift(tms, tdi []byte, bits int) ([]byte, error) {
	if _, err := ValidateShiftBuffers(tms, tdi, bits); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	seqs := buildSequences(tms, tdi, bits)
	tdo := make([]byte, (bits+7)/8)
	pos := 0
	for _, batch := range batchSequences(seqs, a.transport.PacketSize()) {
		resp, err := a.transport.WriteRead(encodeJTAGSequence(batch))
		if err != nil {
			return nil, fmt.Errorf("jtag: shift: %w", err)
		}
		captured, err := decodeJTAGSequence(resp, batch)
		if err != nil {
			return nil, err
		}
		for i, seq := range batch {
			for bit := 0; bit < seq.Bits; bit++ {
				if captured[i][bit/8]&(1<<(uint(bit)%8)) != 0 {
					tdo[pos/8] |= 1 << (uint(pos) % 8)
				}
				pos++
			}
		}
	}
	return tdo, nil
}

// buildSequences cuts the stream wherever TMS changes and every 64 clocks.
// A missing TMS buffer means TMS low throughout.
func buildSequences(tms, tdi []byte, bits int) []JTAGSequence {
	bitAt := func(buf []byte, i int) bool {
		return i/8 < len(buf) && buf[i/8]&(1<<(uint(i)%8)) != 0
	}

	var seqs []JTAGSequence
	for start := 0; start < bits; {
		level := bitAt(tms, start)
		n := 1
		for start+n < bits && n < maxSequenceBits && bitAt(tms, start+n) == level {
			n++
		}
		seq := JTAGSequence{
			Bits:       n,
			TMS:        level,
			CaptureTDO: true,
			TDI:        make([]byte, (n+7)/8),
		}
		for i := 0; i < n; i++ {
			if bitAt(tdi, start+i) {
				seq.TDI[i/8] |= 1 << (uint(i) % 8)
			}
		}
		seqs = append(seqs, seq)
		start += n
	}
	return seqs
}

// batchSequences groups sequences so both the command and its response fit
// in one packet.
func batchSequences(seqs []JTAGSequence, packetSize int) [][]JTAGSequence {
	var batches [][]JTAGSequence
	var cur []JTAGSequence
	cmdLen, respLen := 2, 2
	for _, seq := range seqs {
		n := seq.byteLen()
		if len(cur) > 0 && (cmdLen+1+n > packetSize || respLen+n > packetSize || len(cur) == 255) {
			batches = append(batches, cur)
			cur = nil
			cmdLen, respLen = 2, 2
		}
		cur = append(cur, seq)
		cmdLen += 1 + n
		respLen += n
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

// ResetTAP pulses the target reset line when hard is set, otherwise clocks
// five TMS-high cycles.
func (a *CMSISDAPAdapter) ResetTAP(hard bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if hard {
		resp, err := a.transport.WriteRead([]byte{CmdResetTarget})
		if err != nil {
			return fmt.Errorf("jtag: reset target: %w", err)
		}
		return checkStatus(CmdResetTarget, resp)
	}

	seq := []JTAGSequence{{Bits: 5, TMS: true, TDI: []byte{0}}}
	resp, err := a.transport.WriteRead(encodeJTAGSequence(seq))
	if err != nil {
		return fmt.Errorf("jtag: tap reset: %w", err)
	}
	_, err = decodeJTAGSequence(resp, seq)
	return err
}

func (a *CMSISDAPAdapter) SetSpeed(hz int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if hz < a.info.MinFrequency || hz > a.info.MaxFrequency {
		return fmt.Errorf("jtag: frequency %d Hz out of range [%d, %d]",
			hz, a.info.MinFrequency, a.info.MaxFrequency)
	}
	resp, err := a.transport.WriteRead(encodeSetClock(uint32(hz)))
	if err != nil {
		return fmt.Errorf("jtag: set clock: %w", err)
	}
	if err := checkStatus(CmdSWJClock, resp); err != nil {
		return err
	}
	a.speedHz = hz
	return nil
}

// ConfigureChain tells the probe the IR length of every device on the chain.
func (a *CMSISDAPAdapter) ConfigureChain(irLengths []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	resp, err := a.transport.WriteRead(encodeJTAGConfigure(irLengths))
	if err != nil {
		return fmt.Errorf("jtag: configure chain: %w", err)
	}
	return checkStatus(CmdJTAGConfigure, resp)
}

// Close disconnects from the target and releases the probe.
func (a *CMSISDAPAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connected {
		_, _ = a.transport.WriteRead([]byte{CmdDisconnect})
		a.connected = false
	}
	return a.transport.Close()
}
