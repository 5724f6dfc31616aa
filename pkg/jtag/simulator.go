package jtag

import "fmt"

// ShiftRegion identifies whether a shift was issued through ShiftIR or ShiftDR.
type ShiftRegion uint8

const (
	ShiftRegionIR ShiftRegion = iota
	ShiftRegionDR
)

// ShiftHook lets a simulator produce TDO for a shift.
type ShiftHook func(region ShiftRegion, tms, tdi []byte, bits int) ([]byte, error)

// ShiftOp captures a shift invocation for inspection within tests.
type ShiftOp struct {
	Region ShiftRegion
	TMS    []byte
	TDI    []byte
	Bits   int
}

// SimAdapter is an in-memory adapter. Without a hook it echoes TDI to TDO;
// dcc.NewEmbeddedICESim installs a hook that emulates an ARM debug core.
type SimAdapter struct {
	InfoData AdapterInfo
	SpeedHz  int

	OnShift ShiftHook
	// OnReset, when set, observes every ResetTAP call.
	OnReset func(hard bool)

	lastShift ShiftOp
	shifts    int
	resets    int
	hardReset int
}

// NewSimAdapter constructs a simulator configured with the provided AdapterInfo.
func NewSimAdapter(info AdapterInfo) *SimAdapter {
	return &SimAdapter{InfoData: info}
}

// LastShift returns a copy of the most recent shift request.
func (s *SimAdapter) LastShift() ShiftOp {
	return ShiftOp{
		Region: s.lastShift.Region,
		TMS:    append([]byte(nil), s.lastShift.TMS...),
		TDI:    append([]byte(nil), s.lastShift.TDI...),
		Bits:   s.lastShift.Bits,
	}
}

// Shifts reports how many shift requests the adapter has served.
func (s *SimAdapter) Shifts() int {
	return s.shifts
}

// ResetCounts reports how many resets have been requested (soft as total,
// hard as subset).
func (s *SimAdapter) ResetCounts() (soft, hard int) {
	return s.resets, s.hardReset
}

func (s *SimAdapter) Info() (AdapterInfo, error) {
	return s.InfoData, nil
}

func (s *SimAdapter) ShiftIR(tms, tdi []byte, bits int) ([]byte, error) {
	return s.shift(ShiftRegionIR, tms, tdi, bits)
}

func (s *SimAdapter) ShiftDR(tms, tdi []byte, bits int) ([]byte, error) {
	return s.shift(ShiftRegionDR, tms, tdi, bits)
}

func (s *SimAdapter) ResetTAP(hard bool) error {
	s.resets++
	if hard {
		s.hardReset++
	}
	if s.OnReset != nil {
		s.OnReset(hard)
	}
	return nil
}

func (s *SimAdapter) SetSpeed(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("jtag: invalid speed %dHz", hz)
	}
	if s.InfoData.MaxFrequency > 0 && hz > s.InfoData.MaxFrequency {
		return fmt.Errorf("jtag: speed %dHz above simulator limit %dHz", hz, s.InfoData.MaxFrequency)
	}
	s.SpeedHz = hz
	return nil
}

func (s *SimAdapter) shift(region ShiftRegion, tms, tdi []byte, bits int) ([]byte, error) {
	required, err := ValidateShiftBuffers(tms, tdi, bits)
	if err != nil {
		return nil, err
	}

	s.shifts++
	s.lastShift = ShiftOp{
		Region: region,
		TMS:    append([]byte(nil), tms...),
		TDI:    append([]byte(nil), tdi...),
		Bits:   bits,
	}

	if s.OnShift != nil {
		return s.OnShift(region, tms, tdi, bits)
	}

	tdo := make([]byte, required)
	copy(tdo, tdi)
	return tdo, nil
}
