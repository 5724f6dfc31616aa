package flash

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eraseCall struct{ first, last int }

type writeCall struct {
	offset uint32
	n      int
}

// fakeDriver lays out eight 0x100-byte sectors at 0x1000 on probe.
type fakeDriver struct {
	probed   bool
	probes   int
	probeErr error
	writeErr error
	erases   []eraseCall
	writes   []writeCall
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) Probe(bank *Bank) error {
	d.probes++
	if d.probeErr != nil {
		d.probed = false
		bank.Sectors = nil
		return d.probeErr
	}
	bank.Base, bank.Size = 0x1000, 0x800
	bank.Sectors = make([]Sector, 8)
	for i := range bank.Sectors {
		bank.Sectors[i] = Sector{Offset: uint32(i) * 0x100, Size: 0x100, Erased: Unknown, Protected: Unknown}
	}
	d.probed = true
	return nil
}

func (d *fakeDriver) AutoProbe(bank *Bank) error {
	if !d.probed {
		return ErrBankNotProbed
	}
	return nil
}

func (d *fakeDriver) Erase(bank *Bank, first, last int) error {
	d.erases = append(d.erases, eraseCall{first, last})
	return nil
}

func (d *fakeDriver) Write(bank *Bank, buf []byte, offset uint32) error {
	d.writes = append(d.writes, writeCall{offset, len(buf)})
	return d.writeErr
}

func (d *fakeDriver) EraseCheck(*Bank) error { return nil }
func (d *fakeDriver) ProtectCheck(*Bank) error { return nil }
func (d *fakeDriver) Protect(*Bank, bool, int, int) error { return nil }
func (d *fakeDriver) Info(bank *Bank) (string, error) {
	return fmt.Sprintf("fake %d sectors", len(bank.Sectors)), nil
}

func newTestManager(t *testing.T) (*Manager, *fakeDriver) {
	t.Helper()
	drv := &fakeDriver{}
	m := NewManager()
	require.NoError(t, m.Add(&Bank{
		Name:       "flash0",
		DriverName: "fake",
		Target:     NewStaticTarget("cpu0", TargetRunning),
		Driver:     drv,
	}))
	return m, drv
}

func TestManagerAddAndLookup(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.Add(&Bank{Name: "flash0", Driver: &fakeDriver{}})
	assert.ErrorIs(t, err, ErrBankInvalid)
	assert.ErrorIs(t, m.Add(&Bank{Name: "nodriver"}), ErrBankInvalid)

	require.NoError(t, m.Add(&Bank{Name: "flash1", Driver: &fakeDriver{}}))
	banks := m.Banks()
	require.Len(t, banks, 2)
	assert.Equal(t, "flash0", banks[0].Name)
	assert.Equal(t, "flash1", banks[1].Name)

	_, err = m.Bank("missing")
	assert.ErrorIs(t, err, ErrUnknownBank)
	assert.ErrorIs(t, m.Probe("missing"), ErrUnknownBank)
}

func TestManagerAutoProbeProbesOnce(t *testing.T) {
	m, drv := newTestManager(t)

	require.NoError(t, m.AutoProbe("flash0"))
	require.NoError(t, m.AutoProbe("flash0"))
	assert.Equal(t, 1, drv.probes)

	info, err := m.Info("flash0")
	require.NoError(t, err)
	assert.Equal(t, "fake 8 sectors", info)
}

func TestManagerProbeFailure(t *testing.T) {
	m, drv := newTestManager(t)
	drv.probeErr = ErrBankInvalid

	assert.ErrorIs(t, m.Probe("flash0"), ErrBankInvalid)
	assert.ErrorIs(t, m.Erase("flash0", 0, 0), ErrBankInvalid)
	assert.Empty(t, drv.erases)
}

func TestManagerEraseAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    uint32
		length  uint32
		want    []eraseCall
		wantErr error
	}{
		{name: "one sector", addr: 0x1000, length: 0x100, want: []eraseCall{{0, 0}}},
		{name: "middle run", addr: 0x1200, length: 0x300, want: []eraseCall{{2, 4}}},
		{name: "whole bank", addr: 0x1000, length: 0x800, want: []eraseCall{{0, 7}}},
		{name: "unaligned start", addr: 0x1010, length: 0xF0, wantErr: ErrSectorRange},
		{name: "unaligned end", addr: 0x1000, length: 0x180, wantErr: ErrSectorRange},
		{name: "below bank", addr: 0x0F00, length: 0x100, wantErr: ErrSectorRange},
		{name: "past bank", addr: 0x1700, length: 0x200, wantErr: ErrSectorRange},
		{name: "empty", addr: 0x1000, length: 0, wantErr: ErrSectorRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, drv := newTestManager(t)
			err := m.EraseAddress("flash0", tt.addr, tt.length)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, drv.erases)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, drv.erases)
		})
	}
}

func TestManagerEraseRange(t *testing.T) {
	m, drv := newTestManager(t)
	assert.ErrorIs(t, m.Erase("flash0", 3, 2), ErrSectorRange)
	assert.ErrorIs(t, m.Erase("flash0", 0, 8), ErrSectorRange)
	require.NoError(t, m.Erase("flash0", 0, 7))
	assert.Equal(t, []eraseCall{{0, 7}}, drv.erases)
}

func TestManagerWriteImageAutoErase(t *testing.T) {
	m, drv := newTestManager(t)

	// Sector 3 is already erased, so the image covering 2..5 needs two runs.
	require.NoError(t, m.Erase("flash0", 3, 3))
	drv.erases = nil

	require.NoError(t, m.WriteImage("flash0", 0x1280, make([]byte, 0x300), true))
	assert.Equal(t, []eraseCall{{2, 2}, {4, 5}}, drv.erases)
	assert.Equal(t, []writeCall{{0x280, 0x300}}, drv.writes)

	// The written sectors are dirty again.
	drv.erases = nil
	require.NoError(t, m.WriteImage("flash0", 0x1300, make([]byte, 4), true))
	assert.Equal(t, []eraseCall{{3, 3}}, drv.erases)
}

func TestManagerWriteImageWithoutErase(t *testing.T) {
	m, drv := newTestManager(t)

	require.NoError(t, m.WriteImage("flash0", 0x1000, []byte{1, 2, 3}, false))
	assert.Empty(t, drv.erases)
	assert.Equal(t, []writeCall{{0, 3}}, drv.writes)

	require.NoError(t, m.WriteImage("flash0", 0x1000, nil, true))
	assert.Len(t, drv.writes, 1)

	err := m.WriteImage("flash0", 0x17FF, []byte{1, 2}, false)
	assert.ErrorIs(t, err, ErrSectorRange)
}

func TestManagerWriteFailureMarksDirty(t *testing.T) {
	m, drv := newTestManager(t)
	require.NoError(t, m.Erase("flash0", 0, 0))

	drv.writeErr = ErrOperationFailed
	err := m.WriteImage("flash0", 0x1000, []byte{0}, true)
	assert.True(t, errors.Is(err, ErrOperationFailed))

	drv.writeErr = nil
	drv.erases = nil
	require.NoError(t, m.WriteImage("flash0", 0x1000, []byte{0}, true))
	assert.Equal(t, []eraseCall{{0, 0}}, drv.erases)
}
