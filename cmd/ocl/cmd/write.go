package cmd

import (
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/config"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/ocl"
	"github.com/spf13/cobra"
)

var (
	writeOffset string
	writeErase  bool
)

var writeCmd = &cobra.Command{
	Use:   "write <file>",
	Short: "Program a binary image into flash",
	Long: `Program a raw binary image. The offset is relative to the bank base.
With --erase, sectors the image touches are erased first unless they were
already erased in this run.

Examples:
  ocl write firmware.bin --erase
  ocl write patch.bin --offset 0x4000`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func init() {
	rootCmd.AddCommand(writeCmd)

	writeCmd.Flags().StringVarP(&writeOffset, "offset", "o", "0", "offset from the bank base")
	writeCmd.Flags().BoolVarP(&writeErase, "erase", "e", false, "erase covered sectors before writing")
}

func runWrite(cmd *cobra.Command, args []string) error {
	offset, err := config.ParseNumber(writeOffset)
	if err != nil {
		return fmt.Errorf("invalid --offset: %w", err)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("image %s is empty", args[0])
	}

	progress := func(written, total int) {
		logger.Debugf("written %d/%d bytes", written, total)
	}
	s, err := openSession(ocl.WithProgress(progress))
	if err != nil {
		return err
	}
	defer s.Close()

	name := s.bank.Name
	if err := s.manager.AutoProbe(name); err != nil {
		return reportFail(os.Stdout, err)
	}

	addr := s.bank.Base + offset
	if err := s.manager.WriteImage(name, addr, data, writeErase); err != nil {
		return reportFail(os.Stdout, err)
	}
	reportOK(os.Stdout, "wrote %d bytes to %s at 0x%08x", len(data), name, addr)
	return nil
}
