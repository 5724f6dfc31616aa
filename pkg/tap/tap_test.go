package tap

import "testing"

func TestNextStateTable(t *testing.T) {
	type transition struct {
		start State
		tms   bool
		end   State
	}

	cases := []transition{
		{StateTestLogicReset, false, StateRunTestIdle},
		{StateTestLogicReset, true, StateTestLogicReset},
		{StateRunTestIdle, true, StateSelectDRScan},
		{StateSelectDRScan, false, StateCaptureDR},
		{StateShiftDR, true, StateExit1DR},
		{StateExit2DR, false, StateShiftDR},
		{StateSelectIRScan, true, StateTestLogicReset},
		{StateCaptureIR, false, StateShiftIR},
		{StatePauseIR, true, StateExit2IR},
		{StateExit2IR, true, StateUpdateIR},
	}

	for _, tc := range cases {
		got := NextState(tc.start, tc.tms)
		if got != tc.end {
			t.Fatalf("NextState(%s, %v) = %s, want %s", tc.start, tc.tms, got, tc.end)
		}
	}
}

func TestStateMachineReset(t *testing.T) {
	m := NewStateMachine()
	// Move out of reset to ensure Reset() actually travels back.
	m.Clock(false) // -> Run-Test/Idle
	if m.State() != StateRunTestIdle {
		t.Fatalf("State() = %s, want %s", m.State(), StateRunTestIdle)
	}

	seq := m.Reset()

	if len(seq.TMS) != 5 {
		t.Fatalf("Reset sequence length = %d, want 5", len(seq.TMS))
	}
	if want := StateTestLogicReset; m.State() != want {
		t.Fatalf("State after reset = %s, want %s", m.State(), want)
	}
	if seq.States[len(seq.States)-1] != StateTestLogicReset {
		t.Fatalf("Final sequence state = %s, want %s", seq.States[len(seq.States)-1], StateTestLogicReset)
	}
}

func TestGoToProducesExpectedPattern(t *testing.T) {
	m := NewStateMachine()
	// Move into Run-Test/Idle so GoTo has to traverse more than one edge.
	m.Clock(false)

	path, err := m.GoTo(StateShiftIR)
	if err != nil {
		t.Fatalf("GoTo returned error: %v", err)
	}

	wantBits := []bool{true, true, false, false}
	if len(path.TMS) != len(wantBits) {
		t.Fatalf("GoTo length = %d, want %d", len(path.TMS), len(wantBits))
	}
	for i, want := range wantBits {
		if path.TMS[i] != want {
			t.Fatalf("path bit %d = %v, want %v", i, path.TMS[i], want)
		}
	}
	if m.State() != StateShiftIR {
		t.Fatalf("State() = %s, want %s", m.State(), StateShiftIR)
	}

	// Go back to Run-Test/Idle to ensure BFS works from IR path.
	if _, err := m.GoTo(StateRunTestIdle); err != nil {
		t.Fatalf("GoTo RunTestIdle returned error: %v", err)
	}
	if m.State() != StateRunTestIdle {
		t.Fatalf("State() = %s, want %s", m.State(), StateRunTestIdle)
	}
}

func TestScanIRFromReset(t *testing.T) {
	m := NewStateMachine()

	scan, err := m.ScanIR([]bool{false, true, false, false})
	if err != nil {
		t.Fatalf("ScanIR returned error: %v", err)
	}

	wantTMS := []bool{false, true, true, false, false, false, false, false, true, true, false}
	if len(scan.TMS) != len(wantTMS) {
		t.Fatalf("len(TMS) = %d, want %d", len(scan.TMS), len(wantTMS))
	}
	for i, want := range wantTMS {
		if scan.TMS[i] != want {
			t.Fatalf("TMS bit %d = %v, want %v", i, scan.TMS[i], want)
		}
	}
	if scan.Shift != 5 || scan.Bits != 4 {
		t.Fatalf("Shift/Bits = %d/%d, want 5/4", scan.Shift, scan.Bits)
	}
	if !scan.TDI[6] || scan.TDI[5] {
		t.Fatalf("TDI payload misplaced: %v", scan.TDI)
	}
	if m.State() != StateRunTestIdle {
		t.Fatalf("State() = %s, want %s", m.State(), StateRunTestIdle)
	}
}

func TestScanDRBackToBack(t *testing.T) {
	m := NewStateMachine()
	m.Clock(false)

	first, err := m.ScanDR(make([]bool, 38))
	if err != nil {
		t.Fatalf("ScanDR returned error: %v", err)
	}
	second, err := m.ScanDR(make([]bool, 38))
	if err != nil {
		t.Fatalf("second ScanDR returned error: %v", err)
	}

	// Run-Test/Idle -> Shift-DR is three clocks, Exit1-DR -> Run-Test/Idle two.
	for _, s := range []Scan{first, second} {
		if s.Shift != 3 {
			t.Fatalf("Shift = %d, want 3", s.Shift)
		}
		if len(s.TMS) != 3+38+2 {
			t.Fatalf("len(TMS) = %d, want %d", len(s.TMS), 3+38+2)
		}
	}
}

func TestScanRejectsEmptyPayload(t *testing.T) {
	m := NewStateMachine()
	if _, err := m.ScanDR(nil); err == nil {
		t.Fatalf("expected error for empty scan")
	}
	if m.State() != StateTestLogicReset {
		t.Fatalf("failed scan moved the machine to %s", m.State())
	}
}

func TestScanCaptured(t *testing.T) {
	s := Scan{Shift: 2, Bits: 3}
	tdo := []bool{false, false, true, false, true, false}
	got := s.Captured(tdo)
	want := []bool{true, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Captured()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if s.Captured(tdo[:3]) != nil {
		t.Fatalf("expected nil for short capture")
	}
}
