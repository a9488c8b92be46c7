package main

import (
	"fmt"
	"math"

	"github.com/gfabbian/NaMaster/bins"
	"github.com/gfabbian/NaMaster/covar"
	"github.com/gfabbian/NaMaster/field"
	"github.com/gfabbian/NaMaster/mcm"
	"github.com/gfabbian/NaMaster/spectra"
	"github.com/spf13/cobra"
)

var mcmCmd = &cobra.Command{
	Use:   "mcm MASK [MASK2] OUT",
	Short: "Compute the mode-coupling workspace of one or two masks.",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		masks, out := append([]string(nil), args[:len(args)-1]...), args[len(args)-1]
		if len(masks) == 1 {
			masks = append(masks, masks[0])
		}
		spins, err := spinFlag(*mcmSpins, 2)
		if err != nil {
			return err
		}
		if c.Flat {
			fs, b, err := loadFlat(c, masks, spins)
			if err != nil {
				return err
			}
			var w mcm.FlatWorkspace
			if err := w.Compute(fs[0], fs[1], b); err != nil {
				return err
			}
			log.V(1).Info("save workspace", "file", out)
			return w.WriteTo(out)
		}
		fs, err := loadSphere(masks, spins)
		if err != nil {
			return err
		}
		b, err := bins.NewLinear(fs[0].NSide, c.NLB)
		if err != nil {
			return err
		}
		var w mcm.Workspace
		if err := w.Compute(fs[0], fs[1], b); err != nil {
			return err
		}
		log.V(1).Info("save workspace", "file", out)
		return w.WriteTo(out)
	},
}

var cwCmd = &cobra.Command{
	Use:   "cw MASK [MASK2 [MASK3 MASK4]] OUT",
	Short: "Compute the covariance workspace of two spectra.",
	Long: `Compute the covariance workspace between the spectrum of MASK and MASK2
and the spectrum of MASK3 and MASK4. MASK2 defaults to MASK, and the
second spectrum defaults to the first.`,
	Args: func(cmd *cobra.Command, args []string) error {
		switch len(args) {
		case 2, 3, 5:
			return nil
		}
		return fmt.Errorf("want 1, 2 or 4 masks and an output file, got %d arguments", len(args))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		masks, out := append([]string(nil), args[:len(args)-1]...), args[len(args)-1]
		if len(masks) == 1 {
			masks = append(masks, masks[0])
		}
		if len(masks) == 2 {
			masks = append(masks, masks...)
		}
		spins, err := spinFlag(*cwSpins, 4)
		if err != nil {
			return err
		}
		if c.Flat {
			fs, b, err := loadFlat(c, masks, spins)
			if err != nil {
				return err
			}
			var cw covar.FlatWorkspace
			if err := cw.Compute(fs[0], fs[1], b, covar.WithSecondPair(fs[2], fs[3], b)); err != nil {
				return err
			}
			return cw.WriteTo(out)
		}
		fs, err := loadSphere(masks, spins)
		if err != nil {
			return err
		}
		b, err := bins.NewLinear(fs[0].NSide, c.NLB)
		if err != nil {
			return err
		}
		var cw covar.Workspace
		if err := cw.Compute(fs[0], fs[1], b, covar.WithSecondPair(fs[2], fs[3], b)); err != nil {
			return err
		}
		return cw.WriteTo(out)
	},
}

var mcmSpins, cwSpins *[]int

func init() {
	mcmSpins = mcmCmd.Flags().IntSlice("spin", []int{0, 0}, "spins of the two fields")
	cwSpins = cwCmd.Flags().IntSlice("spin", []int{0, 0, 0, 0}, "spins of the four fields")
	rootCmd.AddCommand(mcmCmd, cwCmd)
}

func spinFlag(spins []int, n int) ([]int, error) {
	if len(spins) != n {
		return nil, fmt.Errorf("want %d spins, got %d", n, len(spins))
	}
	return spins, nil
}

func loadSphere(masks []string, spins []int) ([]*field.Field, error) {
	fs := make([]*field.Field, len(masks))
	for i, name := range masks {
		log.V(1).Info("load mask", "file", name)
		m, err := spectra.LoadVector(name)
		if err != nil {
			return nil, err
		}
		if fs[i], err = field.NewMaskOnly(m, spins[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return fs, nil
}

func loadFlat(c config, masks []string, spins []int) ([]*field.Flat, *bins.FlatBins, error) {
	edges, err := parseEdges(c.Edges)
	if err != nil {
		return nil, nil, err
	}
	b, err := bins.NewFlatFromEdges(edges)
	if err != nil {
		return nil, nil, err
	}
	lx, ly := c.LX*math.Pi/180, c.LY*math.Pi/180
	fs := make([]*field.Flat, len(masks))
	for i, name := range masks {
		log.V(1).Info("load mask", "file", name)
		m, err := spectra.LoadRows(name)
		if err != nil {
			return nil, nil, err
		}
		if fs[i], err = field.NewFlatMaskOnly(lx, ly, m, spins[i]); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return fs, b, nil
}
