package dcc

import (
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/tap"
)

// SimIDCode is the IDCODE reported by the simulated core (ARM7TDMI).
const SimIDCode = 0x3F0F0F0F

const simICEVersion = 1

// NewEmbeddedICESim returns a SimAdapter emulating an ARM7 TAP whose comms
// channel is wired to peer. The hook follows the TAP bit by bit, so any
// well-formed scan sequence works, not just the ones EmbeddedICE issues.
func NewEmbeddedICESim(peer Peer) *jtag.SimAdapter {
	sim := &iceSim{peer: peer}
	sim.reset()

	adapter := jtag.NewSimAdapter(jtag.AdapterInfo{
		Name:         "Simulator",
		Vendor:       "OpenTraceLab",
		Model:        "ARM7TDMI EmbeddedICE",
		MaxFrequency: 100_000_000,
		Notes:        "DCC wired to a simulated OCL loader",
	})
	adapter.OnShift = sim.shift
	adapter.OnReset = func(bool) { sim.reset() }
	return adapter
}

type iceSim struct {
	peer Peer

	state tap.State
	ir    uint32
	chain uint32

	shiftReg []bool
	// readLatch holds the register latched by the last chain 2 read update.
	readLatch uint32
	// lastData is what the data register reads back when nothing is pending.
	lastData uint32
}

func (s *iceSim) reset() {
	s.state = tap.StateTestLogicReset
	s.ir = InstrIDCode
	s.chain = 0
}

func (s *iceSim) shift(_ jtag.ShiftRegion, tms, tdi []byte, bits int) ([]byte, error) {
	tmsBits := jtag.UnpackBits(tms, bits)
	tdiBits := jtag.UnpackBits(tdi, bits)
	tdo := make([]bool, bits)

	for i := 0; i < bits; i++ {
		pre := s.state
		if pre == tap.StateShiftIR || pre == tap.StateShiftDR {
			if len(s.shiftReg) > 0 {
				tdo[i] = s.shiftReg[0]
				s.shiftReg = append(s.shiftReg[1:], tdiBits[i])
			} else {
				tdo[i] = tdiBits[i]
			}
		}

		s.state = tap.NextState(pre, tmsBits[i])
		switch s.state {
		case tap.StateTestLogicReset:
			s.ir = InstrIDCode
		case tap.StateCaptureIR:
			// IEEE 1149.1 requires the IR capture to end in 01.
			s.shiftReg = valueBits(0x1, DefaultIRLength)
		case tap.StateUpdateIR:
			s.ir = uint32(bitsValue(s.shiftReg))
		case tap.StateCaptureDR:
			s.captureDR()
		case tap.StateUpdateDR:
			s.updateDR()
		}
	}
	return jtag.PackBits(tdo), nil
}

func (s *iceSim) captureDR() {
	switch {
	case s.ir == InstrIDCode:
		s.shiftReg = valueBits(SimIDCode, 32)
	case s.ir == InstrScanN:
		s.shiftReg = valueBits(uint64(s.chain), chainSelBits)
	case s.ir == InstrIntest && s.chain == ScanChainICE:
		s.shiftReg = valueBits(uint64(s.readLatch), chain2Bits)
	default:
		s.shiftReg = []bool{false}
	}
}

func (s *iceSim) updateDR() {
	switch {
	case s.ir == InstrScanN:
		s.chain = uint32(bitsValue(s.shiftReg))
	case s.ir == InstrIntest && s.chain == ScanChainICE:
		v := bitsValue(s.shiftReg)
		data := uint32(v)
		addr := uint32(v>>addrShift) & 0x1F
		write := v&(1<<writeFlagBit) != 0
		if write {
			if addr == RegCommsData {
				s.peer.Deliver(data)
			}
			return
		}
		s.readLatch = s.read(addr)
	}
}

func (s *iceSim) read(addr uint32) uint32 {
	switch addr {
	case RegCommsCtrl:
		ctrl := uint32(simICEVersion) << ctrlVersionSh
		if s.peer.Pending() {
			ctrl |= 1 << WBit
		}
		return ctrl
	case RegCommsData:
		if s.peer.Pending() {
			s.lastData = s.peer.Collect()
		}
		return s.lastData
	default:
		return 0
	}
}
