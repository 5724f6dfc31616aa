package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/idcode"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Reset the TAP and identify the core",
	Long: `Reset the TAP, read the IDCODE register and name the core it belongs to.

Examples:
  ocl scan
  ocl scan --adapter cmsisdap --speed 500`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	s, err := openLink()
	if err != nil {
		return err
	}
	defer s.Close()

	raw, err := s.link.IDCode()
	if err != nil {
		return fmt.Errorf("failed to read IDCODE: %w", err)
	}
	fmt.Printf("IDCODE: %s\n", idcode.Describe(raw))

	core, ok := idcode.LookupCore(raw)
	if ok && !core.EmbeddedICE {
		logger.Warnf("%s has no EmbeddedICE comms channel", core.Name)
	}
	return nil
}
