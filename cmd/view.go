// =============================================================================
// SPED Toolkit - View and Types Commands
// =============================================================================
//
// These commands only read the file. 'view' prints raw lines with their
// line numbers and works without a layout. 'types' counts the record types
// and marks the ones the layout declares.
//
// COMMAND USAGE:
//   sped view FILE [--from N] [--count N] [--signature]
//   sped types FILE
//
// =============================================================================

package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	viewFrom      int
	viewCount     int
	viewSignature bool
)

var viewCmd = &cobra.Command{
	Use:   "view FILE",
	Short: "Print raw lines with their line numbers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}

		lines := s.Body()
		if viewSignature {
			lines = s.Lines()
		}

		from := viewFrom
		if from < 1 {
			from = 1
		}
		count := viewCount
		if count <= 0 {
			count = cfg.ItemsPerPage
		}

		out := cmd.OutOrStdout()
		start := from - 1
		end := start + count
		if end > len(lines) {
			end = len(lines)
		}
		for i := start; i < end; i++ {
			fmt.Fprintf(out, "%7d  %s\n", i+1, lines[i])
		}

		doc := s.Document()
		fmt.Fprintf(out, "\n%d body lines", len(s.Body()))
		if doc.HasSignature() {
			fmt.Fprintf(out, ", signature from line %d (%d lines)", doc.SignatureStart(), len(doc.Signature()))
		}
		fmt.Fprintln(out)
		return nil
	},
}

var typesCmd = &cobra.Command{
	Use:   "types FILE",
	Short: "Count the record types present in a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}

		reg, regErr := s.Registry()
		if regErr != nil {
			logger.WithError(regErr).Warn("Record types cannot be checked against the layout")
		}

		counts := s.Counts()
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tLINES\tLAYOUT")
		for _, name := range names {
			status := "-"
			switch {
			case reg == nil:
				status = "?"
			case reg.Has(name):
				status = "yes"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", name, counts[name], status)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(viewCmd, typesCmd)

	viewCmd.Flags().IntVar(&viewFrom, "from", 1, "First line to print (1-based)")
	viewCmd.Flags().IntVar(&viewCount, "count", 0, "Number of lines to print (default items_per_page)")
	viewCmd.Flags().BoolVar(&viewSignature, "signature", false, "Include the signature block")
}
