package tap

import (
	"fmt"
)

// State is one of the 16 IEEE 1149.1 TAP controller states.
type State uint8

const (
	StateTestLogicReset State = iota
	StateRunTestIdle
	StateSelectDRScan
	StateCaptureDR
	StateShiftDR
	StateExit1DR
	StatePauseDR
	StateExit2DR
	StateUpdateDR
	StateSelectIRScan
	StateCaptureIR
	StateShiftIR
	StateExit1IR
	StatePauseIR
	StateExit2IR
	StateUpdateIR
)

var stateNames = [...]string{
	StateTestLogicReset: "TestLogicReset",
	StateRunTestIdle:    "RunTestIdle",
	StateSelectDRScan:   "SelectDRScan",
	StateCaptureDR:      "CaptureDR",
	StateShiftDR:        "ShiftDR",
	StateExit1DR:        "Exit1DR",
	StatePauseDR:        "PauseDR",
	StateExit2DR:        "Exit2DR",
	StateUpdateDR:       "UpdateDR",
	StateSelectIRScan:   "SelectIRScan",
	StateCaptureIR:      "CaptureIR",
	StateShiftIR:        "ShiftIR",
	StateExit1IR:        "Exit1IR",
	StatePauseIR:        "PauseIR",
	StateExit2IR:        "Exit2IR",
	StateUpdateIR:       "UpdateIR",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// valid reports whether s names a real controller state.
func (s State) valid() bool {
	return int(s) < len(stateNames)
}

// edges holds the successor for TMS=0 and TMS=1 respectively.
var edges = [...][2]State{
	StateTestLogicReset: {StateRunTestIdle, StateTestLogicReset},
	StateRunTestIdle:    {StateRunTestIdle, StateSelectDRScan},
	StateSelectDRScan:   {StateCaptureDR, StateSelectIRScan},
	StateCaptureDR:      {StateShiftDR, StateExit1DR},
	StateShiftDR:        {StateShiftDR, StateExit1DR},
	StateExit1DR:        {StatePauseDR, StateUpdateDR},
	StatePauseDR:        {StatePauseDR, StateExit2DR},
	StateExit2DR:        {StateShiftDR, StateUpdateDR},
	StateUpdateDR:       {StateRunTestIdle, StateSelectDRScan},
	StateSelectIRScan:   {StateCaptureIR, StateTestLogicReset},
	StateCaptureIR:      {StateShiftIR, StateExit1IR},
	StateShiftIR:        {StateShiftIR, StateExit1IR},
	StateExit1IR:        {StatePauseIR, StateUpdateIR},
	StatePauseIR:        {StatePauseIR, StateExit2IR},
	StateExit2IR:        {StateShiftIR, StateUpdateIR},
	StateUpdateIR:       {StateRunTestIdle, StateSelectDRScan},
}

// NextState returns the state reached from current after one TCK with the
// given TMS level. It panics on a state outside the diagram.
func NextState(current State, tms bool) State {
	if !current.valid() {
		panic(fmt.Sprintf("tap: unhandled state %d", current))
	}
	if tms {
		return edges[current][1]
	}
	return edges[current][0]
}

// Sequence is a TMS pattern together with every state it passes through,
// starting with the state it was computed from.
type Sequence struct {
	TMS    []bool
	States []State
}

// StateMachine mirrors the TAP controller of the device under test. It does no
// I/O; callers forward the generated TMS bits to an adapter.
type StateMachine struct {
	state State
}

// NewStateMachine returns a machine in Test-Logic-Reset, the power-on state.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateTestLogicReset}
}

// State reports the tracked controller state.
func (m *StateMachine) State() State {
	return m.state
}

// Clock advances one TCK cycle.
func (m *StateMachine) Clock(tms bool) State {
	m.state = NextState(m.state, tms)
	return m.state
}

// Reset clocks five TMS=1 cycles, which reaches Test-Logic-Reset from any
// state, and returns the pattern so it can be sent to the adapter.
func (m *StateMachine) Reset() Sequence {
	seq := Sequence{
		TMS:    make([]bool, 5),
		States: make([]State, 6),
	}
	seq.States[0] = m.state
	for i := range seq.TMS {
		seq.TMS[i] = true
		seq.States[i+1] = m.Clock(true)
	}
	return seq
}

// GoTo moves the machine along the shortest path to target and returns it.
func (m *StateMachine) GoTo(target State) (Sequence, error) {
	path, err := computePath(m.state, target)
	if err != nil {
		return Sequence{}, err
	}
	for _, bit := range path.TMS {
		m.Clock(bit)
	}
	return path, nil
}

// Scan is one complete IR or DR scan flattened into a single bit stream. The
// stream starts wherever the machine was and always parks in Run-Test/Idle, so
// consecutive scans can be issued back to back.
type Scan struct {
	TMS []bool
	TDI []bool
	// Shift is the index of the first bit clocked in Shift-IR/Shift-DR.
	Shift int
	// Bits is how many bits are shifted through the register.
	Bits int
}

// Captured returns the register bits from a TDO capture of the whole stream.
func (s Scan) Captured(tdo []bool) []bool {
	if len(tdo) < s.Shift+s.Bits {
		return nil
	}
	return tdo[s.Shift : s.Shift+s.Bits]
}

// ScanIR builds a scan that shifts tdi through the instruction register.
func (m *StateMachine) ScanIR(tdi []bool) (Scan, error) {
	return m.scan(StateShiftIR, tdi)
}

// ScanDR builds a scan that shifts tdi through the selected data register.
func (m *StateMachine) ScanDR(tdi []bool) (Scan, error) {
	return m.scan(StateShiftDR, tdi)
}

func (m *StateMachine) scan(shift State, tdi []bool) (Scan, error) {
	if len(tdi) == 0 {
		return Scan{}, fmt.Errorf("tap: empty %s scan", shift)
	}

	enter, err := computePath(m.state, shift)
	if err != nil {
		return Scan{}, err
	}

	var s Scan
	s.TMS = append(s.TMS, enter.TMS...)
	s.TDI = append(s.TDI, make([]bool, len(enter.TMS))...)
	s.Shift = len(s.TMS)
	s.Bits = len(tdi)

	// The last register bit is clocked with TMS=1, leaving through Exit1.
	for i, bit := range tdi {
		s.TMS = append(s.TMS, i == len(tdi)-1)
		s.TDI = append(s.TDI, bit)
	}

	exit1 := NextState(shift, true)
	leave, err := computePath(exit1, StateRunTestIdle)
	if err != nil {
		return Scan{}, err
	}
	s.TMS = append(s.TMS, leave.TMS...)
	s.TDI = append(s.TDI, make([]bool, len(leave.TMS))...)

	for _, bit := range s.TMS {
		m.Clock(bit)
	}
	return s, nil
}

// computePath runs a breadth-first search over the state diagram.
func computePath(from, to State) (Sequence, error) {
	if !from.valid() {
		return Sequence{}, fmt.Errorf("tap: invalid start state %d", from)
	}
	if !to.valid() {
		return Sequence{}, fmt.Errorf("tap: invalid target state %d", to)
	}
	if from == to {
		return Sequence{States: []State{from}}, nil
	}

	type node struct {
		state  State
		tms    []bool
		states []State
	}

	queue := []node{{state: from, states: []State{from}}}
	visited := map[State]bool{from: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, bit := range [2]bool{false, true} {
			next := NextState(current.state, bit)
			if visited[next] {
				continue
			}

			tms := append(append([]bool{}, current.tms...), bit)
			states := append(append([]State{}, current.states...), next)
			if next == to {
				return Sequence{TMS: tms, States: states}, nil
			}

			visited[next] = true
			queue = append(queue, node{state: next, tms: tms, states: states})
		}
	}

	return Sequence{}, fmt.Errorf("tap: no path from %s to %s", from, to)
}
