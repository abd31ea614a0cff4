// =============================================================================
// SPED Toolkit - Summary Command
// =============================================================================
//
// Aggregates the records of interest (by default C100, C170 and D100):
// record counts, amount totals, and the configured amounts grouped by
// classification code (CFOP) and by operation direction.
//
// The report is rendered as Markdown. On a terminal it is styled with
// glamour; --plain prints the Markdown source instead. --xlsx also writes
// the report as a workbook.
//
// COMMAND USAGE:
//   sped summary FILE
//   sped summary FILE --plain > resumo.md
//   sped summary FILE --xlsx resumo.xlsx
//
// =============================================================================

package cmd

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sped-toolkit/internal/export"
	"github.com/ginjaninja78/sped-toolkit/internal/summary"
)

var (
	summaryPlain bool
	summaryXLSX  string
)

var summaryCmd = &cobra.Command{
	Use:   "summary FILE",
	Short: "Summarize amounts by CFOP and by operation direction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}

		rep, err := s.Summary()
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"rows":      rep.Rows,
			"direction": rep.DirectionBasis,
		}).Debug("Summary computed")

		md, err := summary.RenderMarkdown("Summary of "+s.Name(), rep, cfg.Currency)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if summaryPlain {
			fmt.Fprint(out, md)
		} else {
			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(100),
			)
			if err != nil {
				return fmt.Errorf("failed to set up the terminal renderer: %w", err)
			}
			styled, err := r.Render(md)
			if err != nil {
				return fmt.Errorf("failed to render the summary: %w", err)
			}
			fmt.Fprint(out, styled)
		}

		if summaryXLSX == "" {
			return nil
		}
		var buf bytes.Buffer
		if err := export.WriteSummaryXLSX(&buf, rep); err != nil {
			return err
		}
		fm := fileManager()
		target := fm.OutputPath(summaryXLSX, args[0], nil, ".xlsx")
		if _, err := fm.WriteOutput(target, buf.Bytes()); err != nil {
			return err
		}
		logger.WithField("path", target).Info("Summary workbook written")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().BoolVar(&summaryPlain, "plain", false, "Print the Markdown source without terminal styling")
	summaryCmd.Flags().StringVar(&summaryXLSX, "xlsx", "", "Also write the summary to this workbook")
}
