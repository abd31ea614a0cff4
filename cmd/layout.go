// =============================================================================
// SPED Toolkit - Layout Command
// =============================================================================
//
// Shows what the layout descriptor declares: every record type with its
// field count, or the fields of one record type with their positions.
// Suggested filter fields (filter_fields in the config) are marked with *.
//
// COMMAND USAGE:
//   sped layout
//   sped layout C170
//
// =============================================================================

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sped-toolkit/internal/layout"
	"github.com/ginjaninja78/sped-toolkit/internal/session"
)

var layoutCmd = &cobra.Command{
	Use:   "layout [TYPE]",
	Short: "Show the record types and fields of the layout descriptor",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.LayoutPath == "" {
			return session.ErrNoLayout
		}
		reg, err := layout.Cached(cfg.LayoutPath)
		if err != nil {
			return err
		}
		for _, warning := range reg.Warnings() {
			logger.Warnf("%s: %s", reg.Source(), warning)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

		if len(args) == 0 {
			fmt.Fprintln(w, "TYPE\tFIELDS")
			for _, t := range reg.Types() {
				fm, _ := reg.Fields(t)
				fmt.Fprintf(w, "%s\t%d\n", t, fm.Len())
			}
			return w.Flush()
		}

		fm, ok := reg.Fields(args[0])
		if !ok {
			return fmt.Errorf("record type %s is not declared in %s", args[0], reg.Source())
		}

		suggested := make(map[string]bool, len(cfg.FilterFields))
		for _, f := range cfg.FilterFields {
			suggested[f] = true
		}

		fmt.Fprintln(w, "POS\tFIELD\t")
		for _, name := range fm.Names() {
			pos, _ := fm.Position(name)
			mark := ""
			if suggested[name] {
				mark = "*"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", pos, name, mark)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(layoutCmd)
}
