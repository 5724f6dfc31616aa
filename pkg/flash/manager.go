package flash

import (
	"errors"
	"fmt"

	"github.com/boljen/go-bitmap"

	"github.com/OpenTraceLab/OpenTraceOCL/internal/syncutil"
)

// Manager owns the configured banks. Every operation on a bank holds that
// bank's lock for its whole duration, so one caller at a time talks to the
// device behind it.
type Manager struct {
	mu    syncutil.RWMutex
	banks map[string]*managedBank
	order []string
}

type managedBank struct {
	mu   syncutil.Mutex
	bank *Bank
	// erased marks sectors erased during this session and not written since.
	erased  bitmap.Bitmap
	sectors int
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{banks: make(map[string]*managedBank)}
}

// Add registers bank under its name.
func (m *Manager) Add(bank *Bank) error {
	if bank == nil || bank.Name == "" || bank.Driver == nil {
		return fmt.Errorf("%w: bank needs a name and a driver", ErrBankInvalid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.banks[bank.Name]; ok {
		return fmt.Errorf("%w: duplicate bank %q", ErrBankInvalid, bank.Name)
	}
	m.banks[bank.Name] = &managedBank{bank: bank}
	m.order = append(m.order, bank.Name)
	logger.Debugf("flash bank %s registered with driver %s", bank.Name, bank.Driver.Name())
	return nil
}

// Bank returns the bank registered under name.
func (m *Manager) Bank(name string) (*Bank, error) {
	mb, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return mb.bank, nil
}

// Banks returns every bank in registration order.
func (m *Manager) Banks() []*Bank {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Bank, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.banks[name].bank)
	}
	return out
}

func (m *Manager) lookup(name string) (*managedBank, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mb, ok := m.banks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBank, name)
	}
	return mb, nil
}

// with runs fn with the bank locked.
func (m *Manager) with(name string, fn func(mb *managedBank) error) error {
	mb, err := m.lookup(name)
	if err != nil {
		return err
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return fn(mb)
}

// Probe reads the geometry of the named bank.
func (m *Manager) Probe(name string) error {
	return m.with(name, func(mb *managedBank) error {
		return mb.probe()
	})
}

// AutoProbe probes the named bank unless an earlier probe is still valid.
func (m *Manager) AutoProbe(name string) error {
	return m.with(name, func(mb *managedBank) error {
		return mb.autoProbe()
	})
}

// Erase erases sectors first through last inclusive.
func (m *Manager) Erase(name string, first, last int) error {
	return m.with(name, func(mb *managedBank) error {
		if err := mb.autoProbe(); err != nil {
			return err
		}
		return mb.erase(first, last)
	})
}

// EraseAddress erases the sectors covering [addr, addr+length). The range
// must start and end on sector boundaries.
func (m *Manager) EraseAddress(name string, addr, length uint32) error {
	return m.with(name, func(mb *managedBank) error {
		if err := mb.autoProbe(); err != nil {
			return err
		}
		b := mb.bank
		first, last, err := b.SectorSpan(addr, length)
		if err != nil {
			return err
		}
		start := b.Base + b.Sectors[first].Offset
		end := b.Base + b.Sectors[last].Offset + b.Sectors[last].Size
		if addr != start || addr+length != end {
			return fmt.Errorf("%w: 0x%08x+0x%x is not sector aligned (sectors %d..%d span 0x%08x..0x%08x)",
				ErrSectorRange, addr, length, first, last, start, end)
		}
		return mb.erase(first, last)
	})
}

// WriteImage programs data at absolute address addr. With autoErase set,
// covered sectors not erased earlier in this session are erased first.
func (m *Manager) WriteImage(name string, addr uint32, data []byte, autoErase bool) error {
	if len(data) == 0 {
		return nil
	}
	return m.with(name, func(mb *managedBank) error {
		if err := mb.autoProbe(); err != nil {
			return err
		}
		b := mb.bank
		first, last, err := b.SectorSpan(addr, uint32(len(data)))
		if err != nil {
			return err
		}

		if autoErase {
			if err := mb.eraseDirty(first, last); err != nil {
				return err
			}
		}

		logger.Infof("writing %d bytes to %s at 0x%08x", len(data), b.Name, addr)
		err = b.Driver.Write(b, data, addr-b.Base)
		// A failed write may still have programmed part of the range.
		for i := first; i <= last; i++ {
			mb.erased.Set(i, false)
		}
		return err
	})
}

// Info returns the driver's description of the named bank.
func (m *Manager) Info(name string) (string, error) {
	var info string
	err := m.with(name, func(mb *managedBank) error {
		if err := mb.autoProbe(); err != nil {
			return err
		}
		var err error
		info, err = mb.bank.Driver.Info(mb.bank)
		return err
	})
	return info, err
}

func (mb *managedBank) probe() error {
	b := mb.bank
	if err := b.Driver.Probe(b); err != nil {
		mb.resetErased(0)
		return err
	}
	mb.resetErased(len(b.Sectors))
	logger.Infof("flash bank %s probed: %s", b.Name, b)
	return nil
}

func (mb *managedBank) autoProbe() error {
	b := mb.bank
	err := b.Driver.AutoProbe(b)
	if errors.Is(err, ErrBankNotProbed) {
		return mb.probe()
	}
	if err == nil && mb.sectors != len(b.Sectors) {
		mb.resetErased(len(b.Sectors))
	}
	return err
}

func (mb *managedBank) resetErased(sectors int) {
	mb.erased = bitmap.New(sectors)
	mb.sectors = sectors
}

func (mb *managedBank) erase(first, last int) error {
	b := mb.bank
	if first < 0 || first > last || last >= len(b.Sectors) {
		return fmt.Errorf("%w: sectors %d..%d of %d", ErrSectorRange, first, last, len(b.Sectors))
	}
	logger.Infof("erasing sectors %d..%d of %s", first, last, b.Name)
	if err := b.Driver.Erase(b, first, last); err != nil {
		return err
	}
	for i := first; i <= last; i++ {
		mb.erased.Set(i, true)
	}
	return nil
}

// eraseDirty erases each maximal run of sectors in [first, last] that is not
// marked erased.
func (mb *managedBank) eraseDirty(first, last int) error {
	for i := first; i <= last; {
		if mb.erased.Get(i) {
			i++
			continue
		}
		j := i
		for j+1 <= last && !mb.erased.Get(j+1) {
			j++
		}
		if err := mb.erase(i, j); err != nil {
			return err
		}
		i = j + 1
	}
	return nil
}
