// =============================================================================
// SPED Toolkit - Export Command
// =============================================================================
//
// Exports the current file in one of two formats:
//
//   xlsx : one sheet per record type, columns named after the layout fields.
//          Record types missing from the layout are left out (and logged).
//   csv  : every line, signature included, with "|" replaced by ";". Needs
//          no layout. Written in the file's own encoding.
//
// COMMAND USAGE:
//   sped export FILE --format xlsx [--output efd.xlsx]
//   sped export FILE --format csv
//
// =============================================================================

package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sped-toolkit/internal/export"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Export records to Excel or semicolon separated text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(exportFormat)
		if format != "xlsx" && format != "csv" {
			return fmt.Errorf("unsupported export format %q (use xlsx or csv)", exportFormat)
		}

		s, err := openSession(args[0])
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		switch format {
		case "xlsx":
			p, err := s.Project()
			if err != nil {
				return err
			}
			if err := export.WriteXLSX(&buf, p); err != nil {
				return err
			}
			for recordType, n := range p.Skipped {
				logger.Warnf("%d %s lines not exported: record type not in the layout", n, recordType)
			}
		case "csv":
			if err := s.WriteFlat(&buf); err != nil {
				return err
			}
		}

		fm := fileManager()
		target := fm.OutputPath(exportOutput, args[0], map[string]string{"type": format}, "."+format)
		backup, err := fm.WriteOutput(target, buf.Bytes())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if backup != "" {
			fmt.Fprintf(out, "Previous %s saved as %s\n", target, backup)
		}
		fmt.Fprintf(out, "Wrote %s\n", target)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "xlsx", "Export format: xlsx or csv")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default from output_name_format)")
}
