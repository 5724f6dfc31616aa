package loadersim_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/config"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/dcc"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/flash"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/ocl"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/ocl/loadersim"
)

// TestFullStackOverEmbeddedICE drives the loader through the simulated JTAG
// adapter and EmbeddedICE scan chain rather than calling it directly.
func TestFullStackOverEmbeddedICE(t *testing.T) {
	loader := loadersim.New(loadersim.DefaultProfile())
	link, err := dcc.NewEmbeddedICE(dcc.NewEmbeddedICESim(loader), dcc.WithPollInterval(50*time.Microsecond))
	require.NoError(t, err)

	id, err := link.IDCode()
	require.NoError(t, err)
	assert.Equal(t, uint32(dcc.SimIDCode), id)

	script, err := config.ParseString("flash bank flash0 ocl 0 0 0 0 cpu0\n")
	require.NoError(t, err)
	cfg, ok := script.Bank("flash0")
	require.True(t, ok)

	bank, err := ocl.NewBank(cfg, flash.NewStaticTarget("cpu0", flash.TargetRunning), link)
	require.NoError(t, err)

	mgr := flash.NewManager()
	require.NoError(t, mgr.Add(bank))
	require.NoError(t, mgr.Probe("flash0"))
	assert.Equal(t, uint32(0x08000000), bank.Base)
	assert.Len(t, bank.Sectors, 16)

	image := make([]byte, 5000)
	for i := range image {
		image[i] = byte(i ^ i>>8)
	}
	require.NoError(t, mgr.WriteImage("flash0", 0x08000102, image, true))
	assert.Equal(t, image, loader.Memory(0x102, uint32(len(image))))

	var erased, frames int
	for _, rec := range loader.Records() {
		switch rec.Op {
		case ocl.OpEraseBlock:
			erased++
			assert.Equal(t, uint32(0), rec.First)
			assert.Equal(t, uint32(1), rec.Last)
		case ocl.OpFlashBlock:
			frames++
		}
	}
	assert.Equal(t, 1, erased)
	assert.Equal(t, 20, frames)

	require.NoError(t, mgr.EraseAddress("flash0", 0x08000000, 0x10000))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, loader.Memory(0x102, 4))
}

func TestFullStackLoaderSilent(t *testing.T) {
	loader := loadersim.New(loadersim.DefaultProfile())
	link, err := dcc.NewEmbeddedICE(dcc.NewEmbeddedICESim(loader), dcc.WithPollInterval(50*time.Microsecond))
	require.NoError(t, err)

	bank, err := ocl.NewBank(config.Bank{Name: "f", Driver: "ocl", Target: "cpu0", Args: config.BankArgs},
		flash.NewStaticTarget("cpu0", flash.TargetRunning), link, ocl.WithTimeout(5*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, bank.Driver.Probe(bank))

	loader.SetSilent(true)
	err = bank.Driver.Erase(bank, 0, 15)
	assert.ErrorIs(t, err, dcc.ErrTimeout)
}
