package main

import (
	"fmt"

	"github.com/gfabbian/NaMaster/covar"
	"github.com/gfabbian/NaMaster/internal/wsio"
	"github.com/gfabbian/NaMaster/mcm"
	"github.com/gfabbian/NaMaster/spectra"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var covarCmd = &cobra.Command{
	Use:   "covar CW MCM CLS OUT",
	Short: "Compute the Gaussian covariance of spin-0 bandpowers.",
	Long: `Compute the Gaussian covariance of the decoupled bandpowers of spin-0
fields from a covariance workspace CW and a mode-coupling workspace MCM.

CLS is a whitespace table whose first column is the multipole; the theory
spectrum is the sum of the columns given by --cols. The covariance is
written as (i, j, value) records if OUT ends in .csv and as rows of
numbers otherwise.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cwFile, mcmFile, clsFile, out := args[0], args[1], args[2], args[3]
		kind, err := wsio.Kind(cwFile)
		if err != nil {
			return err
		}
		cols, err := spectra.LoadColumns(clsFile)
		if err != nil {
			return err
		}
		ell, cl, err := sumColumns(cols, *covarCols)
		if err != nil {
			return fmt.Errorf("%s: %w", clsFile, err)
		}
		cls := [][]float64{cl}
		var spins covar.SpinCombination

		var cov *mat.Dense
		switch kind {
		case "cw":
			var cw covar.Workspace
			if err := cw.ReadFrom(cwFile); err != nil {
				return err
			}
			var w mcm.Workspace
			if err := w.ReadFrom(mcmFile); err != nil {
				return err
			}
			if n := cw.LMax() + 1; len(cl) > n {
				cls = [][]float64{cl[:n]}
			}
			if cov, err = covar.GaussianCovariance(&cw, spins, cls, cls, cls, cls, &w, nil); err != nil {
				return err
			}
		case "cw-flat":
			var cw covar.FlatWorkspace
			if err := cw.ReadFrom(cwFile); err != nil {
				return err
			}
			var w mcm.FlatWorkspace
			if err := w.ReadFrom(mcmFile); err != nil {
				return err
			}
			if cov, err = covar.GaussianCovarianceFlat(&cw, spins, ell, cls, cls, cls, cls, &w, nil); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: %s is not a covariance workspace", cwFile, kind)
		}
		r, c := cov.Dims()
		log.V(1).Info("save covariance", "file", out, "rows", r, "cols", c)
		return spectra.SaveMatrixExt(out, cov)
	},
}

var covarCols *[]int

func init() {
	covarCols = covarCmd.Flags().IntSlice("cols", []int{1}, "columns of CLS summed into the theory spectrum")
	rootCmd.AddCommand(covarCmd)
}

// sumColumns returns the first column and the sum of the selected columns.
func sumColumns(cols [][]float64, sel []int) (ell, cl []float64, err error) {
	if len(sel) == 0 {
		return nil, nil, fmt.Errorf("no spectrum column selected")
	}
	cl = make([]float64, len(cols[0]))
	for _, i := range sel {
		if i <= 0 || i >= len(cols) {
			return nil, nil, fmt.Errorf("column %d out of range [1, %d)", i, len(cols))
		}
		floats.Add(cl, cols[i])
	}
	return cols[0], cl, nil
}
