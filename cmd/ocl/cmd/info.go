package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the flash driver description of the bank",
	Long: `Probe the bank if needed and print what the driver reports about it.

Examples:
  ocl info
  ocl info -c board.cfg --bank flash1`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := s.manager.Info(s.bank.Name)
	if err != nil {
		return reportFail(os.Stdout, err)
	}
	fmt.Printf("%s: %s\n", s.bank.Name, info)
	return nil
}
