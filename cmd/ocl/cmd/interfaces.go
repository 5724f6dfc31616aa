package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/jtag"
	"github.com/spf13/cobra"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List available JTAG adapters",
	Long: `List CMSIS-DAP probes attached over USB. The simulator is always listed.

Examples:
  ocl interfaces`,
	Args: cobra.NoArgs,
	RunE: runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ifaces, err := jtag.DiscoverInterfaces(ctx)
	if err != nil {
		return fmt.Errorf("interface discovery failed: %w", err)
	}

	fmt.Println("Detected JTAG interfaces:")
	for i, iface := range ifaces {
		fmt.Printf("  [%d] %s", i, iface.Label())
		if iface.Serial != "" {
			fmt.Printf(" serial=%s", iface.Serial)
		}
		fmt.Println()
	}
	return nil
}
