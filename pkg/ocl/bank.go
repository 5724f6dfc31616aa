package ocl

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/config"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/dcc"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/flash"
)

// NewBank builds an OCL flash bank from a "flash bank" configuration line.
// The line must carry every positional argument; the geometry is filled in
// by the first probe.
func NewBank(cfg config.Bank, target flash.Target, link dcc.Transport, opts ...Option) (*flash.Bank, error) {
	if cfg.Driver != DriverName {
		return nil, fmt.Errorf("%w: bank %s uses driver %q, not %s", flash.ErrBankInvalid, cfg.Name, cfg.Driver, DriverName)
	}
	if !cfg.Complete() {
		logger.Error("incomplete flash bank ocl configuration")
		return nil, fmt.Errorf("%w: incomplete flash bank ocl configuration", flash.ErrBankInvalid)
	}
	if link == nil {
		return nil, fmt.Errorf("%w: bank %s has no debug channel", flash.ErrBankInvalid, cfg.Name)
	}
	if target != nil && target.Name() != cfg.Target {
		return nil, fmt.Errorf("%w: bank %s targets %q, have %q", flash.ErrBankInvalid, cfg.Name, cfg.Target, target.Name())
	}

	return &flash.Bank{
		Name:       cfg.Name,
		DriverName: DriverName,
		Base:       cfg.Base,
		Size:       cfg.Size,
		ChipWidth:  cfg.ChipWidth,
		BusWidth:   cfg.BusWidth,
		Target:     target,
		Driver:     NewDriver(link, opts...),
	}, nil
}
