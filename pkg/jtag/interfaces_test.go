package jtag

import "testing"

func TestLookupProbe(t *testing.T) {
	known, ok := lookupProbe(VendorIDRaspberryPi, ProductIDCMSISDAP)
	if !ok {
		t.Fatalf("Raspberry Pi probe not recognised")
	}
	if known.Description == "" {
		t.Fatalf("expected a description")
	}
	if _, ok := lookupProbe(0x1234, 0x5678); ok {
		t.Fatalf("unexpected match for unknown VID/PID")
	}
}

func TestInterfaceInfoLabel(t *testing.T) {
	if got := (InterfaceInfo{Description: "probe"}).Label(); got != "probe" {
		t.Fatalf("Label() = %q, want probe", got)
	}
	got := (InterfaceInfo{Kind: InterfaceKindCMSISDAP, VendorID: 0x2E8A, ProductID: 0x000C}).Label()
	if got != "cmsis-dap (2E8A:000C)" {
		t.Fatalf("Label() = %q", got)
	}
}
