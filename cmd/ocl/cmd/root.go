package cmd

import (
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/config"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/dcc"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/flash"
	"github.com/OpenTraceLab/OpenTraceOCL/pkg/ocl"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	// Global flags
	verbose     bool
	adapterType string
	configPath  string
	bankName    string
	speedKHz    int
	simProfile  string

	logger = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "ocl",
	Short: "Flash programmer for the OCL loader over ARM7 EmbeddedICE",
	Long: `Program on-chip flash through a loader running on the target that talks
over the EmbeddedICE debug communications channel.

Examples:
  ocl scan                                       # Read the core IDCODE
  ocl probe                                      # Query the loader geometry
  ocl write firmware.bin --erase                 # Erase as needed and program
  ocl erase --first 0 --last 3 -c board.cfg      # Erase sectors 0-3 of the configured bank
  ocl info --adapter cmsisdap                    # Use a CMSIS-DAP probe`,
	Version: "0.3.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&adapterType, "adapter", "a", "simulator",
		"JTAG adapter type (simulator, cmsisdap)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"configuration script with a \"flash bank\" line")
	rootCmd.PersistentFlags().StringVarP(&bankName, "bank", "b", "",
		"flash bank name (default: first bank in the script)")
	rootCmd.PersistentFlags().IntVar(&speedKHz, "speed", 0,
		"TCK speed in kHz (default: script setting or 1000)")
	rootCmd.PersistentFlags().StringVar(&simProfile, "sim-profile", "",
		"simulator: YAML file describing the loader geometry")
}

func initLogger() {
	logger.SetFormatter(&prefixed.TextFormatter{
		TimestampFormat: "15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	})
	logger.SetOutput(os.Stderr)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	config.SetLogger(logger)
	dcc.SetLogger(logger)
	flash.SetLogger(logger)
	ocl.SetLogger(logger)
}
