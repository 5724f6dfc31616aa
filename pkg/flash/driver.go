package flash

// Driver programs one kind of flash device. Drivers keep per-bank state in
// the value stored in Bank.Driver and receive the bank on every call.
type Driver interface {
	Name() string
	// Probe reads the device geometry and fills bank.Base, bank.Size and
	// bank.Sectors.
	Probe(bank *Bank) error
	// AutoProbe succeeds without I/O when an earlier probe is still valid.
	AutoProbe(bank *Bank) error
	Erase(bank *Bank, first, last int) error
	// Write programs buf at offset bytes from the bank base.
	Write(bank *Bank, buf []byte, offset uint32) error
	EraseCheck(bank *Bank) error
	ProtectCheck(bank *Bank) error
	Protect(bank *Bank, set bool, first, last int) error
	// Info returns a one-line description of the bank.
	Info(bank *Bank) (string, error)
}
