package cmd

import (
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/ocl"
	"github.com/spf13/cobra"
)

var probeSectors bool

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Query the loader for the flash geometry",
	Long: `Ask the OCL loader on the target for base, size, sector count and buffer
layout, and fill the bank's sector table.

Examples:
  ocl probe
  ocl probe --sectors -c board.cfg --bank flash0`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().BoolVar(&probeSectors, "sectors", false, "list every sector")
}

func runProbe(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.manager.Probe(s.bank.Name); err != nil {
		return reportFail(os.Stdout, err)
	}

	b := s.bank
	reportOK(os.Stdout, "%s", b)
	if d, ok := b.Driver.(*ocl.Driver); ok {
		if g, ok := d.Geometry(); ok {
			fmt.Printf("Geometry: %s\n", g)
			fmt.Printf("Sector size: %d bytes\n", g.SectorSize())
		}
	}

	if probeSectors {
		fmt.Println("Sectors:")
		for i, sec := range b.Sectors {
			fmt.Printf("  #%-3d 0x%08x  %6d bytes  erased=%s protected=%s\n",
				i, b.Base+sec.Offset, sec.Size, sec.Erased, sec.Protected)
		}
	}
	return nil
}
