package dcc

import (
	"errors"
	"testing"
	"time"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/jtag"
)

// queuePeer records delivered words and serves a queue of replies.
type queuePeer struct {
	delivered []uint32
	replies   []uint32
}

func (p *queuePeer) Deliver(w uint32) { p.delivered = append(p.delivered, w) }
func (p *queuePeer) Pending() bool    { return len(p.replies) > 0 }

func (p *queuePeer) Collect() uint32 {
	w := p.replies[0]
	p.replies = p.replies[1:]
	return w
}

func newTestLink(t *testing.T, peer Peer) *EmbeddedICE {
	t.Helper()
	link, err := NewEmbeddedICE(NewEmbeddedICESim(peer), WithPollInterval(100*time.Microsecond))
	if err != nil {
		t.Fatalf("NewEmbeddedICE: %v", err)
	}
	return link
}

func TestEmbeddedICEIDCode(t *testing.T) {
	link := newTestLink(t, &queuePeer{})
	id, err := link.IDCode()
	if err != nil {
		t.Fatalf("IDCode: %v", err)
	}
	if id != SimIDCode {
		t.Fatalf("IDCode = 0x%08X, want 0x%08X", id, SimIDCode)
	}

	// The chain selection is redone after the reset IDCode performs.
	peer := &queuePeer{}
	link = newTestLink(t, peer)
	if err := link.Send([]uint32{1}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := link.IDCode(); err != nil {
		t.Fatalf("IDCode: %v", err)
	}
	if err := link.Send([]uint32{2}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(peer.delivered) != 2 || peer.delivered[1] != 2 {
		t.Fatalf("delivered = %v, want [1 2]", peer.delivered)
	}
}

func TestEmbeddedICESendInOrder(t *testing.T) {
	peer := &queuePeer{}
	link := newTestLink(t, peer)

	words := []uint32{0x0CBE0000, 0xDEADBEEF, 0, 0xFFFFFFFF}
	if err := link.Send(words); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(peer.delivered) != len(words) {
		t.Fatalf("delivered %d words, want %d", len(peer.delivered), len(words))
	}
	for i := range words {
		if peer.delivered[i] != words[i] {
			t.Fatalf("word %d = 0x%08X, want 0x%08X", i, peer.delivered[i], words[i])
		}
	}
}

func TestEmbeddedICEReceivePipelined(t *testing.T) {
	peer := &queuePeer{replies: []uint32{0x0ACD0000, 0x08000000, 0x10000, 42}}
	link := newTestLink(t, peer)

	got, err := link.Receive(3)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	want := []uint32{0x0ACD0000, 0x08000000, 0x10000}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("word %d = 0x%08X, want 0x%08X", i, got[i], want[i])
		}
	}
	if len(peer.replies) != 1 {
		t.Fatalf("receive consumed %d extra words", 1-len(peer.replies))
	}

	got, err = link.Receive(1)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got[0] != 42 {
		t.Fatalf("last word = %d, want 42", got[0])
	}
}

func TestEmbeddedICEReceiveCounts(t *testing.T) {
	link := newTestLink(t, &queuePeer{})
	if words, err := link.Receive(0); err != nil || words != nil {
		t.Fatalf("Receive(0) = %v, %v", words, err)
	}
	if _, err := link.Receive(-1); err == nil {
		t.Fatalf("expected error for negative count")
	}
}

func TestEmbeddedICEHandshake(t *testing.T) {
	peer := &queuePeer{}
	link := newTestLink(t, peer)

	if err := link.Handshake(WBit, 5*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("silent peer: err = %v, want ErrTimeout", err)
	}
	if err := link.Handshake(RBit, 5*time.Millisecond); err != nil {
		t.Fatalf("R handshake: %v", err)
	}

	peer.replies = []uint32{7}
	if err := link.Handshake(WBit, 5*time.Millisecond); err != nil {
		t.Fatalf("W handshake with pending word: %v", err)
	}
	if err := link.Handshake(WBit, 0); err != nil {
		t.Fatalf("W handshake without deadline: %v", err)
	}
	if len(peer.replies) != 1 {
		t.Fatalf("handshake consumed a word")
	}
	if err := link.Handshake(ControlBit(5), time.Millisecond); err == nil {
		t.Fatalf("expected error for invalid control bit")
	}
}

func TestEmbeddedICEShiftErrors(t *testing.T) {
	sim := NewEmbeddedICESim(&queuePeer{})
	link, err := NewEmbeddedICE(sim)
	if err != nil {
		t.Fatalf("NewEmbeddedICE: %v", err)
	}

	boom := errors.New("cable unplugged")
	sim.OnShift = func(jtag.ShiftRegion, []byte, []byte, int) ([]byte, error) {
		return nil, boom
	}
	if err := link.Send([]uint32{1}); !errors.Is(err, boom) {
		t.Fatalf("Send error = %v, want wrapped %v", err, boom)
	}
	if _, err := link.Receive(1); !errors.Is(err, boom) {
		t.Fatalf("Receive error = %v, want wrapped %v", err, boom)
	}

	sim.OnShift = func(_ jtag.ShiftRegion, _, _ []byte, _ int) ([]byte, error) {
		return []byte{0}, nil
	}
	if _, err := link.IDCode(); err == nil {
		t.Fatalf("expected error for short TDO")
	}
}

func TestNewEmbeddedICEOptions(t *testing.T) {
	sim := NewEmbeddedICESim(&queuePeer{})
	if _, err := NewEmbeddedICE(sim, WithIRLength(0)); err == nil {
		t.Fatalf("expected error for zero IR length")
	}
	if soft, _ := sim.ResetCounts(); soft != 0 {
		t.Fatalf("rejected transport reset the TAP")
	}
	if _, err := NewEmbeddedICE(sim, WithIRLength(4)); err != nil {
		t.Fatalf("NewEmbeddedICE: %v", err)
	}
	if soft, _ := sim.ResetCounts(); soft != 1 {
		t.Fatalf("resets = %d, want 1", soft)
	}
}

func TestControlBitString(t *testing.T) {
	if RBit.String() != "R" || WBit.String() != "W" {
		t.Fatalf("unexpected control bit names")
	}
}
