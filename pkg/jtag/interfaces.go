package jtag

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"
)

// InterfaceKind categorizes adapter families.
type InterfaceKind string

const (
	InterfaceKindCMSISDAP InterfaceKind = "cmsis-dap"
	InterfaceKindSim      InterfaceKind = "simulator"
)

// InterfaceInfo describes a detected adapter.
type InterfaceInfo struct {
	Kind        InterfaceKind
	Description string
	VendorID    uint16
	ProductID   uint16
	Serial      string
}

// Label returns a user-friendly description for the interface.
func (i InterfaceInfo) Label() string {
	if i.Description != "" {
		return i.Description
	}
	return fmt.Sprintf("%s (%04X:%04X)", string(i.Kind), i.VendorID, i.ProductID)
}

// DiscoverInterfaces lists connected CMSIS-DAP probes with a known VID/PID.
// The simulator entry is always appended so flashing can be rehearsed
// without hardware.
func DiscoverInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	var results []InterfaceInfo
	usb := gousb.NewContext()
	defer usb.Close()

	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		_, ok := lookupProbe(uint16(desc.Vendor), uint16(desc.Product))
		return ok
	})
	for _, dev := range devs {
		known, _ := lookupProbe(uint16(dev.Desc.Vendor), uint16(dev.Desc.Product))
		serial, _ := dev.SerialNumber()
		results = append(results, InterfaceInfo{
			Kind:        InterfaceKindCMSISDAP,
			Description: known.Description,
			VendorID:    known.VendorID,
			ProductID:   known.ProductID,
			Serial:      serial,
		})
		dev.Close()
	}
	// Devices we may not open still get listed by OpenDevices; access
	// errors are expected on hosts without udev rules.
	if err != nil && !errors.Is(err, gousb.ErrorAccess) {
		return results, err
	}

	results = append(results, InterfaceInfo{
		Kind:        InterfaceKindSim,
		Description: "Simulator (ARM7 EmbeddedICE + OCL loader)",
	})

	return results, nil
}

type knownProbe struct {
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownCMSISDAPProbes = []knownProbe{
	{VendorID: VendorIDRaspberryPi, ProductID: ProductIDCMSISDAP, Description: "Raspberry Pi Debug Probe (CMSIS-DAP)"},
	{VendorID: 0x0d28, ProductID: 0x0204, Description: "DAPLink CMSIS-DAP"},
	{VendorID: 0x1366, ProductID: 0x0101, Description: "SEGGER J-Link CMSIS-DAP"},
	{VendorID: 0xc251, ProductID: 0xf001, Description: "Keil ULINKplus"},
}

func lookupProbe(vid, pid uint16) (knownProbe, bool) {
	for _, known := range knownCMSISDAPProbes {
		if known.VendorID == vid && known.ProductID == pid {
			return known, true
		}
	}
	return knownProbe{}, false
}
