// Package dcc moves 32-bit words across an ARM debug communications channel.
package dcc

import (
	"errors"
	"fmt"
	"time"
)

// ControlBit selects a DCC control register flag.
type ControlBit uint8

const (
	// RBit is set while a host-to-target word waits to be read by the target.
	RBit ControlBit = 0
	// WBit is set while a target-to-host word waits to be read by the host.
	WBit ControlBit = 1
)

func (b ControlBit) String() string {
	switch b {
	case RBit:
		return "R"
	case WBit:
		return "W"
	default:
		return fmt.Sprintf("ControlBit(%d)", uint8(b))
	}
}

// ErrTimeout is returned by Handshake when the peer does not become ready
// before the deadline.
var ErrTimeout = errors.New("dcc: handshake timeout")

// Transport is the host side of a DCC link.
type Transport interface {
	// Send writes words to the target in order.
	Send(words []uint32) error
	// Receive reads count words from the target.
	Receive(count int) ([]uint32, error)
	// Handshake waits until bit reaches its ready level: WBit set (a word is
	// waiting for the host) or RBit clear (the target consumed the last
	// word). A zero timeout waits without a deadline.
	Handshake(bit ControlBit, timeout time.Duration) error
}

// Peer is the target side of a DCC link, as seen by a simulator.
type Peer interface {
	// Deliver hands the target a word written by the host.
	Deliver(word uint32)
	// Pending reports whether the target has a word for the host.
	Pending() bool
	// Collect removes and returns the next word for the host.
	Collect() uint32
}
