// =============================================================================
// SPED Toolkit - Filter and Edit Commands
// =============================================================================
//
// 'filter' lists the records of one type that match field filters and/or a
// free-text search, one page at a time.
//
// 'edit' changes one field on records picked from the same filter, either
// by line number (--lines) or all at once (--all), and writes the result:
// the edited body followed by the untouched signature block, in the
// original encoding and line endings.
//
// COMMAND USAGE:
//   sped filter FILE --type C170 --where CFOP=5102 [--text S] [--page N]
//   sped edit FILE --type C170 --where CFOP=5102 --set CFOP=5405 --all
//   sped edit FILE --type C100 --set IND_OPER=1 --lines 12,40 --dry-run
//
// EDIT SAFETY:
//   - Lines that are not among the filtered matches are skipped
//   - Values containing "|" or line breaks are refused
//   - --dry-run prints what would change and writes nothing
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sped-toolkit/internal/record"
	"github.com/ginjaninja78/sped-toolkit/internal/session"
	"github.com/ginjaninja78/sped-toolkit/internal/types"
	"github.com/ginjaninja78/sped-toolkit/pkg/utils"
)

// query flags shared by filter and edit.
var (
	queryType  string
	queryWhere []string
	queryText  string
)

var filterPage int

var (
	editSet         []string
	editLines       []int
	editAll         bool
	editOutput      string
	editDryRun      bool
	editWarningsLog bool
)

func buildQuery() (session.Query, error) {
	where, err := parseAssignments("where", queryWhere)
	if err != nil {
		return session.Query{}, err
	}
	return session.Query{RecordType: queryType, Where: where, Text: queryText}, nil
}

func printMatches(out io.Writer, matches []types.Match) {
	for _, m := range matches {
		fmt.Fprintf(out, "%7d  %s\n", m.LineNumber(), m.Line)
	}
}

func logWarnings(warnings []types.Warning) {
	for _, w := range warnings {
		logger.WithField("line", w.Line).Warn(w.Reason)
	}
}

// =============================================================================
// FILTER COMMAND
// =============================================================================

var filterCmd = &cobra.Command{
	Use:   "filter FILE",
	Short: "List the records of one type matching field filters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildQuery()
		if err != nil {
			return err
		}
		s, err := openSession(args[0])
		if err != nil {
			return err
		}

		page, warnings, err := s.Page(q, filterPage)
		if err != nil {
			return err
		}
		logWarnings(warnings)

		out := cmd.OutOrStdout()
		printMatches(out, page.Items)
		fmt.Fprintf(out, "\nPage %d of %d, %d matching %s records\n", page.Number, page.Pages, page.TotalItems, q.RecordType)
		return nil
	},
}

// =============================================================================
// EDIT COMMAND
// =============================================================================

var editCmd = &cobra.Command{
	Use:   "edit FILE",
	Short: "Set a field on filtered records and write the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdit(cmd.OutOrStdout(), args[0])
	},
}

func runEdit(out io.Writer, path string) error {
	if len(editSet) != 1 {
		return errors.New("--set takes exactly one NAME=VALUE")
	}
	if _, err := parseAssignments("set", editSet); err != nil {
		return err
	}
	field, value, _ := strings.Cut(editSet[0], "=")
	field = strings.TrimSpace(field)
	if editAll == (len(editLines) > 0) {
		return errors.New("choose either --lines or --all")
	}

	q, err := buildQuery()
	if err != nil {
		return err
	}
	s, err := openSession(path)
	if err != nil {
		return err
	}

	matches, warnings, err := s.Filter(q)
	if err != nil {
		return err
	}

	matched := make(map[int]bool, len(matches))
	for _, m := range matches {
		matched[m.Index] = true
	}
	sel := s.Selection(q.RecordType)
	for _, n := range editLines {
		if !matched[n-1] {
			warnings = append(warnings, types.Warnf(n, "not among the filtered %s records; skipped", q.RecordType))
			continue
		}
		sel.Add(n - 1)
	}

	logWarnings(warnings)

	change := session.Change{
		RecordType: q.RecordType,
		Field:      field,
		Value:      value,
		Indices:    record.Targets(editAll, sel, matches),
	}
	if len(change.Indices) == 0 {
		return fmt.Errorf("no %s records selected", q.RecordType)
	}

	var res record.EditResult
	if editDryRun {
		res, err = s.Preview(change)
	} else {
		res, err = s.Apply(change)
	}
	if err != nil {
		return err
	}
	if editDryRun {
		// Apply logs its own warnings.
		logWarnings(res.Warnings)
	}
	warnings = append(warnings, res.Warnings...)

	printMatches(out, res.Changed)
	fmt.Fprintf(out, "\n%d of %d selected %s records changed (%s=%q)\n",
		res.Modified, len(change.Indices), q.RecordType, field, value)

	fm := fileManager()
	if editWarningsLog {
		logPath, err := utils.WriteWarningLog(utils.WarningLog{
			FileName:  s.Name(),
			Operation: fmt.Sprintf("edit %s.%s=%s", q.RecordType, field, value),
			Warnings:  warnings,
		}, cfg.OutputDir)
		if err != nil {
			return err
		}
		if logPath != "" {
			fmt.Fprintf(out, "Warnings written to %s\n", logPath)
		}
	}

	if editDryRun {
		fmt.Fprintln(out, "Dry run: nothing written")
		return nil
	}
	if res.Modified == 0 {
		fmt.Fprintln(out, "Nothing changed: nothing written")
		return nil
	}

	data, err := s.Bytes()
	if err != nil {
		return err
	}
	target := fm.OutputPath(editOutput, path, map[string]string{"type": q.RecordType}, ".txt")
	backup, err := fm.WriteOutput(target, data)
	if err != nil {
		return err
	}
	if backup != "" {
		fmt.Fprintf(out, "Previous %s saved as %s\n", target, backup)
	}
	fmt.Fprintf(out, "Wrote %s\n", target)
	return nil
}

func init() {
	rootCmd.AddCommand(filterCmd, editCmd)

	for _, c := range []*cobra.Command{filterCmd, editCmd} {
		c.Flags().StringVarP(&queryType, "type", "t", "", "Record type, e.g. C170")
		c.Flags().StringArrayVarP(&queryWhere, "where", "w", nil, "Field filter NAME=VALUE (substring match, repeatable)")
		c.Flags().StringVar(&queryText, "text", "", "Text that must appear anywhere in the line")
		c.MarkFlagRequired("type")
	}

	filterCmd.Flags().IntVarP(&filterPage, "page", "p", 1, "Page to show")

	editCmd.Flags().StringArrayVar(&editSet, "set", nil, "Field to change, NAME=VALUE")
	editCmd.Flags().IntSliceVar(&editLines, "lines", nil, "Line numbers to change (from 'filter')")
	editCmd.Flags().BoolVar(&editAll, "all", false, "Change every filtered record")
	editCmd.Flags().StringVarP(&editOutput, "output", "o", "", "Output file (default from output_name_format)")
	editCmd.Flags().BoolVar(&editDryRun, "dry-run", false, "Show what would change without writing")
	editCmd.Flags().BoolVar(&editWarningsLog, "warnings-log", false, "Write skipped lines to a warning log in output_dir")
	editCmd.MarkFlagRequired("set")
}
