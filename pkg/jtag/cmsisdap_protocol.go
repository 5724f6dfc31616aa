package jtag

import (
	"encoding/binary"
	"fmt"
)

// CMSIS-DAP command IDs used by the adapter.
const (
	CmdInfo          = 0x00
	CmdConnect       = 0x02
	CmdDisconnect    = 0x03
	CmdResetTarget   = 0x0A
	CmdSWJClock      = 0x11
	CmdJTAGSequence  = 0x14
	CmdJTAGConfigure = 0x15
)

// DAP_Info IDs.
const (
	InfoVendorID    = 0x01
	InfoProductID   = 0x02
	InfoSerialNum   = 0x03
	InfoFirmwareVer = 0x04
	InfoPacketSize  = 0xFF
)

// DAP_Connect ports.
const (
	PortDefault = 0
	PortSWD     = 1
	PortJTAG    = 2
)

const (
	StatusOK    = 0x00
	StatusError = 0xFF
)

// DAP_JTAG_Sequence info byte layout.
const (
	seqTCKMask = 0x3F // 0 encodes 64 clocks
	seqTMS     = 0x40
	seqTDO     = 0x80

	maxSequenceBits = 64
)

// JTAGSequence is one DAP_JTAG_Sequence entry: up to 64 clocks at a fixed
// TMS level.
type JTAGSequence struct {
	Bits       int
	TMS        bool
	CaptureTDO bool
	TDI        []byte
}

func (s JTAGSequence) info() byte {
	info := byte(s.Bits & seqTCKMask)
	if s.TMS {
		info |= seqTMS
	}
	if s.CaptureTDO {
		info |= seqTDO
	}
	return info
}

func (s JTAGSequence) byteLen() int {
	return (s.Bits + 7) / 8
}

func encodeInfo(id byte) []byte {
	return []byte{CmdInfo, id}
}

func decodeInfo(resp []byte) (string, error) {
	if err := expectCommand(CmdInfo, resp, 2); err != nil {
		return "", err
	}
	n := int(resp[1])
	if len(resp) < 2+n {
		return "", fmt.Errorf("jtag: DAP_Info string truncated (%d of %d bytes)", len(resp)-2, n)
	}
	// Strings are NUL terminated on most probes.
	s := resp[2 : 2+n]
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return string(s), nil
}

func encodeConnect(port byte) []byte {
	return []byte{CmdConnect, port}
}

func decodeConnect(resp []byte) (byte, error) {
	if err := expectCommand(CmdConnect, resp, 2); err != nil {
		return 0, err
	}
	if resp[1] == PortDefault {
		return 0, fmt.Errorf("jtag: DAP_Connect refused")
	}
	return resp[1], nil
}

func encodeSetClock(hz uint32) []byte {
	cmd := make([]byte, 5)
	cmd[0] = CmdSWJClock
	binary.LittleEndian.PutUint32(cmd[1:], hz)
	return cmd
}

func encodeJTAGConfigure(irLengths []byte) []byte {
	cmd := make([]byte, 2+len(irLengths))
	cmd[0] = CmdJTAGConfigure
	cmd[1] = byte(len(irLengths))
	copy(cmd[2:], irLengths)
	return cmd
}

func encodeJTAGSequence(seqs []JTAGSequence) []byte {
	cmd := []byte{CmdJTAGSequence, byte(len(seqs))}
	for _, seq := range seqs {
		cmd = append(cmd, seq.info())
		tdi := make([]byte, seq.byteLen())
		copy(tdi, seq.TDI)
		cmd = append(cmd, tdi...)
	}
	return cmd
}

// decodeJTAGSequence returns the captured TDO of every capturing sequence.
func decodeJTAGSequence(resp []byte, seqs []JTAGSequence) ([][]byte, error) {
	if err := checkStatus(CmdJTAGSequence, resp); err != nil {
		return nil, err
	}
	var out [][]byte
	pos := 2
	for _, seq := range seqs {
		if !seq.CaptureTDO {
			continue
		}
		n := seq.byteLen()
		if pos+n > len(resp) {
			return nil, fmt.Errorf("jtag: DAP_JTAG_Sequence response truncated")
		}
		out = append(out, append([]byte(nil), resp[pos:pos+n]...))
		pos += n
	}
	return out, nil
}

// checkStatus validates the common {cmd, status} response shape.
func checkStatus(cmd byte, resp []byte) error {
	if err := expectCommand(cmd, resp, 2); err != nil {
		return err
	}
	if resp[1] != StatusOK {
		return fmt.Errorf("jtag: command 0x%02X failed with status 0x%02X", cmd, resp[1])
	}
	return nil
}

func expectCommand(cmd byte, resp []byte, min int) error {
	if len(resp) < min {
		return fmt.Errorf("jtag: response to 0x%02X too short (%d bytes)", cmd, len(resp))
	}
	if resp[0] != cmd {
		return fmt.Errorf("jtag: response id 0x%02X does not match command 0x%02X", resp[0], cmd)
	}
	return nil
}
