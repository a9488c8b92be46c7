package main

import (
	"fmt"

	"github.com/gfabbian/NaMaster/covar"
	"github.com/gfabbian/NaMaster/spectra"
	"github.com/spf13/cobra"
)

var sampleCmd = &cobra.Command{
	Use:   "sample SIMS OUT",
	Short: "Compute the sample covariance of simulated bandpowers.",
	Long: `Compute the sample covariance of bandpower vectors, one simulation per
row of SIMS, for comparison with a Gaussian covariance.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := spectra.LoadRows(args[0])
		if err != nil {
			return err
		}
		total := covar.NewTotal(len(rows[0]))
		for _, x := range rows {
			total.Add(x)
		}
		p, err := covar.Normalize(total)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		log.V(1).Info("save sample covariance", "file", args[1], "sims", total.N)
		return spectra.SaveMatrixExt(args[1], p.Covar)
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare A B",
	Short: "Check that two matrices agree within a relative tolerance.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := spectra.LoadMatrixExt(args[0])
		if err != nil {
			return err
		}
		b, err := spectra.LoadMatrixExt(args[1])
		if err != nil {
			return err
		}
		if !spectra.AllClose(a, b, *rtol) {
			return fmt.Errorf("%s and %s differ by more than %g", args[0], args[1], *rtol)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

var rtol *float64

func init() {
	rtol = compareCmd.Flags().Float64("rtol", 1e-4, "relative tolerance")
	rootCmd.AddCommand(sampleCmd, compareCmd)
}
