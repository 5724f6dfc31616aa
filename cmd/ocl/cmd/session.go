package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/config"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/dcc"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/flash"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/ocl"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/ocl/loadersim"
)

// defaultScript is used when no --config is given. The zero base and size
// are replaced by whatever the loader reports on probe.
const defaultScript = `
adapter speed 1000
flash bank flash0 ocl 0 0 0 0 arm7.cpu
`

const defaultSpeedKHz = 1000

// session is one connection to a target: adapter, debug channel and the
// flash bank selected on the command line.
type session struct {
	adapter jtag.Adapter
	link    *dcc.EmbeddedICE
	bank    *flash.Bank
	manager *flash.Manager
	loader  *loadersim.Loader
}

func loadScript() (*config.Script, error) {
	if configPath == "" {
		return config.ParseString(defaultScript)
	}
	return config.ParseFile(configPath)
}

// openSession connects to the target. Options are passed to the OCL driver.
func openSession(opts ...ocl.Option) (*session, error) {
	script, err := loadScript()
	if err != nil {
		return nil, err
	}
	cfg, ok := script.Bank(bankName)
	if !ok {
		if bankName == "" {
			return nil, fmt.Errorf("no flash bank configured")
		}
		return nil, fmt.Errorf("flash bank %q not configured", bankName)
	}

	s := &session{}
	if err := s.openAdapter(); err != nil {
		return nil, err
	}

	khz := speedKHz
	if khz == 0 {
		khz = script.AdapterSpeedKHz
	}
	if khz == 0 {
		khz = defaultSpeedKHz
	}
	if err := s.adapter.SetSpeed(khz * 1000); err != nil {
		s.Close()
		return nil, err
	}
	logger.Debugf("adapter %s at %d kHz", adapterType, khz)

	s.link, err = dcc.NewEmbeddedICE(s.adapter)
	if err != nil {
		s.Close()
		return nil, err
	}

	target := flash.NewStaticTarget(cfg.Target, flash.TargetRunning)
	s.bank, err = ocl.NewBank(cfg, target, s.link, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.manager = flash.NewManager()
	if err := s.manager.Add(s.bank); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// openLink connects to the target without configuring a bank.
func openLink() (*session, error) {
	s := &session{}
	if err := s.openAdapter(); err != nil {
		return nil, err
	}
	var err error
	s.link, err = dcc.NewEmbeddedICE(s.adapter)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) openAdapter() error {
	switch adapterType {
	case "simulator", "sim":
		profile := loadersim.DefaultProfile()
		if simProfile != "" {
			var err error
			profile, err = loadersim.LoadProfileFile(simProfile)
			if err != nil {
				return err
			}
		}
		s.loader = loadersim.New(profile)
		s.adapter = dcc.NewEmbeddedICESim(s.loader)
		return nil

	case "cmsisdap", "cmsis-dap":
		a, err := jtag.NewCMSISDAPAdapter(jtag.VendorIDRaspberryPi, jtag.ProductIDCMSISDAP)
		if err != nil {
			return fmt.Errorf("failed to open CMSIS-DAP adapter: %w", err)
		}
		s.adapter = a
		return nil

	default:
		return fmt.Errorf("unknown adapter type: %s (supported: simulator, cmsisdap)", adapterType)
	}
}

// Close releases the adapter if it holds a device.
func (s *session) Close() {
	if c, ok := s.adapter.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			logger.Warnf("closing adapter: %v", err)
		}
	}
}
