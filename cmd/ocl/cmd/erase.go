package cmd

import (
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/config"
	"github.com/spf13/cobra"
)

var (
	eraseFirst   int
	eraseLast    int
	eraseAddress string
	eraseLength  string
)

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase flash sectors",
	Long: `Erase a range of sectors, selected either by index or by address. With no
range the whole bank is erased.

Examples:
  ocl erase                                  # Whole bank
  ocl erase --first 2 --last 5               # Sectors 2 through 5
  ocl erase --address 0x08001000 --length 0x2000`,
	Args: cobra.NoArgs,
	RunE: runErase,
}

func init() {
	rootCmd.AddCommand(eraseCmd)

	eraseCmd.Flags().IntVar(&eraseFirst, "first", -1, "first sector to erase")
	eraseCmd.Flags().IntVar(&eraseLast, "last", -1, "last sector to erase (default: last sector of the bank)")
	eraseCmd.Flags().StringVar(&eraseAddress, "address", "", "start address of the range (must be sector aligned)")
	eraseCmd.Flags().StringVar(&eraseLength, "length", "", "length of the address range in bytes")
	eraseCmd.MarkFlagsMutuallyExclusive("first", "address")
	eraseCmd.MarkFlagsMutuallyExclusive("last", "address")
	eraseCmd.MarkFlagsRequiredTogether("address", "length")
}

func runErase(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	name := s.bank.Name
	if err := s.manager.AutoProbe(name); err != nil {
		return reportFail(os.Stdout, err)
	}

	if eraseAddress != "" {
		addr, err := config.ParseNumber(eraseAddress)
		if err != nil {
			return fmt.Errorf("invalid --address: %w", err)
		}
		length, err := config.ParseNumber(eraseLength)
		if err != nil {
			return fmt.Errorf("invalid --length: %w", err)
		}
		if err := s.manager.EraseAddress(name, addr, length); err != nil {
			return reportFail(os.Stdout, err)
		}
		reportOK(os.Stdout, "erased 0x%08x..0x%08x", addr, uint64(addr)+uint64(length))
		return nil
	}

	first, last := eraseFirst, eraseLast
	if first < 0 {
		first = 0
	}
	if last < 0 {
		last = len(s.bank.Sectors) - 1
	}
	if err := s.manager.Erase(name, first, last); err != nil {
		return reportFail(os.Stdout, err)
	}
	reportOK(os.Stdout, "erased sectors %d..%d of %s", first, last, name)
	return nil
}
