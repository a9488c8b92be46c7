package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gfabbian/NaMaster/covar"
	"github.com/gfabbian/NaMaster/internal/wsio"
	"github.com/gfabbian/NaMaster/mcm"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info FILE...",
	Short: "Describe workspace files.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "FILE\tKIND\tLMAX\tBANDS\tSPINS")
		for _, name := range args {
			row, err := describe(name, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintln(w, row)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// describe returns a table row for a workspace file. Unknown kinds get a
// warning on stderr and an empty row.
func describe(name string, stderr io.Writer) (string, error) {
	kind, err := wsio.Kind(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	switch kind {
	case "mcm":
		var w mcm.Workspace
		if err := w.ReadFrom(name); err != nil {
			return "", err
		}
		s1, s2 := w.Spins()
		return fmt.Sprintf("%s\t%s\t%d\t%d\t%d,%d", name, kind, w.LMax(), w.NBands(), s1, s2), nil
	case "mcm-flat":
		var w mcm.FlatWorkspace
		if err := w.ReadFrom(name); err != nil {
			return "", err
		}
		s1, s2 := w.Spins()
		return fmt.Sprintf("%s\t%s\t-\t%d\t%d,%d", name, kind, w.NBands(), s1, s2), nil
	case "cw":
		var cw covar.Workspace
		if err := cw.ReadFrom(name); err != nil {
			return "", err
		}
		s := cw.Spins()
		return fmt.Sprintf("%s\t%s\t%d\t%d\t%d,%d,%d,%d", name, kind, cw.LMax(), cw.NBands(), s.A1, s.A2, s.B1, s.B2), nil
	case "cw-flat":
		var cw covar.FlatWorkspace
		if err := cw.ReadFrom(name); err != nil {
			return "", err
		}
		s := cw.Spins()
		return fmt.Sprintf("%s\t%s\t-\t%d\t%d,%d,%d,%d", name, kind, cw.NBands(), s.A1, s.A2, s.B1, s.B2), nil
	}
	fmt.Fprintf(stderr, "%s: unknown workspace kind %q\n", name, kind)
	return fmt.Sprintf("%s\t%s\t-\t-\t-", name, kind), nil
}
