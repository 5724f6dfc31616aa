package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// BankArgs is the number of positional arguments of a complete
// "flash bank" line: name, driver, base, size, chip width, bus width and
// target.
const BankArgs = 7

// ErrInvalidCommand reports a command this package understands but whose
// arguments are wrong.
var ErrInvalidCommand = errors.New("config: invalid command")

// Bank is one "flash bank" line. Fields beyond Args are zero.
type Bank struct {
	Name      string
	Driver    string
	Base      uint32
	Size      uint32
	ChipWidth int
	BusWidth  int
	Target    string
	// Options holds driver-specific arguments after the target.
	Options []string
	// Args counts the positional arguments present, options excluded.
	Args int
	Line int
}

// Complete reports whether every positional argument was given.
func (b Bank) Complete() bool {
	return b.Args >= BankArgs
}

// Script is the interpreted content of a configuration script.
type Script struct {
	Banks           []Bank
	AdapterSpeedKHz int
	AdapterDriver   string
	Transport       string
	Vars            map[string]string
	// Other lists commands that were parsed but not interpreted.
	Other []string
}

// Bank returns the bank called name, or the first bank when name is empty.
func (s *Script) Bank(name string) (Bank, bool) {
	for _, b := range s.Banks {
		if name == "" || b.Name == name {
			return b, true
		}
	}
	return Bank{}, false
}

var varRef = regexp.MustCompile(`\$(?:\{(\w+)\}|(\w+))`)

func interpret(file *File) (*Script, error) {
	s := &Script{Vars: make(map[string]string)}
	for _, cmd := range file.Commands {
		args, err := s.expand(cmd)
		if err != nil {
			return nil, err
		}
		if err := s.apply(cmd, args); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", cmd.Pos, cmd.Name, err)
		}
	}
	return s, nil
}

// expand substitutes $VAR and ${VAR} references with values from earlier
// "set" commands.
func (s *Script) expand(cmd *Command) ([]string, error) {
	args := make([]string, len(cmd.Args))
	for i, a := range cmd.Args {
		var missing string
		args[i] = varRef.ReplaceAllStringFunc(a.Value(), func(ref string) string {
			m := varRef.FindStringSubmatch(ref)
			name := m[1] + m[2]
			v, ok := s.Vars[name]
			if !ok && missing == "" {
				missing = name
			}
			return v
		})
		if missing != "" {
			return nil, fmt.Errorf("%s: %w: undefined variable %q", cmd.Pos, ErrInvalidCommand, missing)
		}
	}
	return args, nil
}

func (s *Script) apply(cmd *Command, args []string) error {
	switch cmd.Name {
	case "set":
		if len(args) != 2 {
			return fmt.Errorf("%w: want set <name> <value>", ErrInvalidCommand)
		}
		s.Vars[args[0]] = args[1]
		return nil

	case "flash":
		if len(args) > 0 && args[0] == "bank" {
			b, err := parseBank(args[1:])
			if err != nil {
				return err
			}
			b.Line = cmd.Pos.Line
			s.Banks = append(s.Banks, b)
			return nil
		}

	case "adapter":
		if len(args) == 2 && args[0] == "speed" {
			khz, err := strconv.Atoi(args[1])
			if err != nil || khz <= 0 {
				return fmt.Errorf("%w: bad speed %q", ErrInvalidCommand, args[1])
			}
			s.AdapterSpeedKHz = khz
			return nil
		}
		if len(args) == 2 && args[0] == "driver" {
			s.AdapterDriver = args[1]
			return nil
		}

	case "adapter_khz", "jtag_khz":
		if len(args) == 1 {
			return s.apply(&Command{Pos: cmd.Pos, Name: "adapter"}, []string{"speed", args[0]})
		}

	case "interface":
		if len(args) == 1 {
			s.AdapterDriver = args[0]
			return nil
		}

	case "transport":
		if len(args) == 2 && args[0] == "select" {
			s.Transport = args[1]
			return nil
		}
	}

	line := strings.TrimSpace(cmd.Name + " " + strings.Join(args, " "))
	logger.Debugf("config: %s: not interpreted: %s", cmd.Pos, line)
	s.Other = append(s.Other, line)
	return nil
}

// parseBank reads "<name> <driver> <base> <size> <chip> <bus> <target>
// [options...]". Trailing positional arguments may be missing; drivers
// decide whether that is acceptable.
func parseBank(args []string) (Bank, error) {
	if len(args) < 2 {
		return Bank{}, fmt.Errorf("%w: want flash bank <name> <driver> ...", ErrInvalidCommand)
	}
	b := Bank{Name: args[0], Driver: args[1]}
	b.Args = len(args)
	if b.Args > BankArgs {
		b.Args = BankArgs
		b.Options = append([]string(nil), args[BankArgs:]...)
	}

	nums := []struct {
		name string
		set  func(uint32)
	}{
		{"base", func(v uint32) { b.Base = v }},
		{"size", func(v uint32) { b.Size = v }},
		{"chip_width", func(v uint32) { b.ChipWidth = int(v) }},
		{"bus_width", func(v uint32) { b.BusWidth = int(v) }},
	}
	for i, n := range nums {
		if 2+i >= len(args) {
			break
		}
		v, err := ParseNumber(args[2+i])
		if err != nil {
			return Bank{}, fmt.Errorf("%w: %s: %v", ErrInvalidCommand, n.name, err)
		}
		n.set(v)
	}
	if len(args) > 6 {
		b.Target = args[6]
	}
	return b, nil
}

// ParseNumber accepts decimal, 0x hex and 0 octal 32-bit values.
func ParseNumber(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return uint32(v), nil
}
