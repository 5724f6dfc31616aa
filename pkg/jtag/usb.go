package jtag

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
)

const (
	// Raspberry Pi Debug Probe identifiers.
	VendorIDRaspberryPi = 0x2E8A
	ProductIDCMSISDAP   = 0x000C

	// DefaultPacketSize is the CMSIS-DAP v2 bulk packet size used until the
	// endpoint descriptor says otherwise.
	DefaultPacketSize = 64
	DefaultTimeout    = 5 * time.Second
)

// USBTransport carries CMSIS-DAP packets over a vendor-class bulk interface.
type USBTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	packetSize int
	timeout    time.Duration
}

// NewUSBTransport opens the first device matching vid:pid and claims its
// CMSIS-DAP bulk interface.
func NewUSBTransport(vid, pid uint16) (*USBTransport, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("jtag: open usb device: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("jtag: device %04X:%04X not found", vid, pid)
	}
	// Not supported on every platform; claiming below reports real failures.
	_ = dev.SetAutoDetach(true)

	t := &USBTransport{
		ctx:        ctx,
		dev:        dev,
		packetSize: DefaultPacketSize,
		timeout:    DefaultTimeout,
	}
	if err := t.claim(); err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}
	return t, nil
}

// claim picks the first vendor-specific interface (interface 0 when none is
// marked) and opens its bulk endpoints.
func (t *USBTransport) claim() error {
	cfgNum, err := t.dev.ActiveConfigNum()
	if err != nil {
		cfgNum = 1
	}
	cfg, err := t.dev.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("jtag: usb config %d: %w", cfgNum, err)
	}

	ifNum := 0
	for _, desc := range cfg.Desc.Interfaces {
		if len(desc.AltSettings) > 0 && desc.AltSettings[0].Class == gousb.ClassVendorSpec {
			ifNum = desc.Number
			break
		}
	}

	intf, err := cfg.Interface(ifNum, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("jtag: claim interface %d: %w", ifNum, err)
	}
	t.done = func() {
		intf.Close()
		cfg.Close()
	}

	var outNum, inNum int
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && outNum == 0:
			outNum = ep.Number
		case ep.Direction == gousb.EndpointDirectionIn && inNum == 0:
			inNum = ep.Number
			t.packetSize = ep.MaxPacketSize
		}
	}
	if outNum == 0 || inNum == 0 {
		t.done()
		return fmt.Errorf("jtag: interface %d has no bulk endpoint pair", ifNum)
	}

	if t.epOut, err = intf.OutEndpoint(outNum); err != nil {
		t.done()
		return fmt.Errorf("jtag: open OUT endpoint: %w", err)
	}
	if t.epIn, err = intf.InEndpoint(inNum); err != nil {
		t.done()
		return fmt.Errorf("jtag: open IN endpoint: %w", err)
	}
	return nil
}

// WriteRead sends one command packet and returns the response packet.
func (t *USBTransport) WriteRead(cmd []byte) ([]byte, error) {
	if len(cmd) > t.packetSize {
		return nil, fmt.Errorf("jtag: command of %d bytes exceeds packet size %d", len(cmd), t.packetSize)
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	packet := make([]byte, t.packetSize)
	copy(packet, cmd)
	if _, err := t.epOut.WriteContext(ctx, packet); err != nil {
		return nil, fmt.Errorf("jtag: usb write: %w", err)
	}

	resp := make([]byte, t.packetSize)
	n, err := t.epIn.ReadContext(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("jtag: usb read: %w", err)
	}
	return resp[:n], nil
}

// PacketSize returns the negotiated packet size.
func (t *USBTransport) PacketSize() int {
	return t.packetSize
}

// SetTimeout bounds each WriteRead round trip.
func (t *USBTransport) SetTimeout(timeout time.Duration) {
	t.timeout = timeout
}

// Close releases USB resources.
func (t *USBTransport) Close() error {
	if t.done != nil {
		t.done()
		t.done = nil
	}
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
	return nil
}
