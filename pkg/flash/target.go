package flash

import (
	"fmt"
	"sync/atomic"
)

// TargetState is the execution state of the core that owns a bank.
type TargetState int32

const (
	TargetUnknown TargetState = iota
	TargetRunning
	TargetHalted
	TargetReset
	TargetDebugRunning
)

func (s TargetState) String() string {
	switch s {
	case TargetUnknown:
		return "unknown"
	case TargetRunning:
		return "running"
	case TargetHalted:
		return "halted"
	case TargetReset:
		return "reset"
	case TargetDebugRunning:
		return "debug-running"
	default:
		return fmt.Sprintf("TargetState(%d)", int32(s))
	}
}

// Target is the part of the debug target a flash driver needs to see.
type Target interface {
	Name() string
	State() TargetState
}

// StaticTarget is a Target whose state is set by the caller, used when no
// run control is attached (the CLI assumes the loader is already running).
type StaticTarget struct {
	name  string
	state atomic.Int32
}

// NewStaticTarget returns a target named name in the given state.
func NewStaticTarget(name string, state TargetState) *StaticTarget {
	t := &StaticTarget{name: name}
	t.state.Store(int32(state))
	return t
}

func (t *StaticTarget) Name() string { return t.name }

func (t *StaticTarget) State() TargetState {
	return TargetState(t.state.Load())
}

func (t *StaticTarget) SetState(s TargetState) {
	t.state.Store(int32(s))
}
