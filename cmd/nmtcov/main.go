// Command nmtcov computes mode-coupling workspaces, covariance workspaces and
// Gaussian covariance matrices of masked-sky power spectra.
//
// Masks are text files: one value per line for HEALPix RING maps, one row
// of pixels per line for flat patches (--flat).
package main

import (
	"fmt"
	"os"

	"github.com/gfabbian/NaMaster/internal/logging"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "nmtcov",
		Short:         "Gaussian covariance of masked-sky power spectra",
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	log = logging.Log()

	// Global flags
	verbose    *int
	configFile *string
)

func init() {
	verbose = rootCmd.PersistentFlags().IntP("verbose", "v", 0, "Verbosity for logging")
	configFile = rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (yaml or toml)")
	rootCmd.PersistentFlags().Int("nlb", 16, "Multipoles per band on the sphere")
	rootCmd.PersistentFlags().Bool("flat", false, "Fields are flat rectangular patches")
	rootCmd.PersistentFlags().Float64("lx", 0, "Patch width in degrees (flat)")
	rootCmd.PersistentFlags().Float64("ly", 0, "Patch height in degrees (flat)")
	rootCmd.PersistentFlags().String("edges", "", "Comma-separated band edges in wavenumber (flat)")
	bindFlags(rootCmd.PersistentFlags())

	cobra.OnInitialize(func() { logging.Init(*verbose) }) // After flags are parsed
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "nmtcov:", err)
		os.Exit(1)
	}
}
