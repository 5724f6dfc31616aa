package flash

import "errors"

var (
	// ErrBankNotProbed is returned by operations that need the bank geometry
	// before a successful probe.
	ErrBankNotProbed = errors.New("flash: bank not probed")
	// ErrTargetNotRunning is returned when the owning target is not running
	// the code that services the flash channel.
	ErrTargetNotRunning = errors.New("flash: target not running")
	// ErrOperationFailed reports a device-side failure: a timeout or a
	// negative acknowledgement.
	ErrOperationFailed = errors.New("flash: operation failed")
	// ErrBankInvalid reports unusable bank configuration or geometry.
	ErrBankInvalid = errors.New("flash: invalid bank configuration")
	ErrSectorRange = errors.New("flash: sector range out of bounds")
	ErrUnknownBank = errors.New("flash: unknown bank")
)
