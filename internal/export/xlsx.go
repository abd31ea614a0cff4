package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sped-toolkit/internal/summary"
)

// MaxSheetNameLength is the longest sheet name Excel accepts.
const MaxSheetNameLength = 31

const defaultSheet = "Sheet1"

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// SheetName turns a record type into a valid, unused sheet name and marks
// it used. Names are compared case-insensitively, like Excel does.
func SheetName(recordType string, used map[string]bool) string {
	base := truncateRunes(sheetNameReplacer.Replace(recordType), MaxSheetNameLength)
	if base == "" {
		base = "Sheet"
	}

	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := "_" + strconv.Itoa(n)
		name = truncateRunes(base, MaxSheetNameLength-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// =============================================================================
// WORKBOOK HELPERS
// =============================================================================

// workbook wraps an excelize file that receives sheets in order.
type workbook struct {
	f      *excelize.File
	used   map[string]bool
	sheets int
	bold   int
	money  int
}

func newWorkbook() (*workbook, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	// Built-in format 4 is "#,##0.00".
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create amount style: %w", err)
	}

	return &workbook{f: f, used: make(map[string]bool), bold: bold, money: money}, nil
}

// addSheet creates the next sheet. The first one reuses the default sheet.
func (wb *workbook) addSheet(title string) (string, error) {
	name := SheetName(title, wb.used)
	wb.sheets++
	if wb.sheets == 1 {
		if err := wb.f.SetSheetName(defaultSheet, name); err != nil {
			return "", fmt.Errorf("failed to rename sheet %s: %w", name, err)
		}
		return name, nil
	}
	if _, err := wb.f.NewSheet(name); err != nil {
		return "", fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	return name, nil
}

func (wb *workbook) write(w io.Writer) error {
	defer wb.f.Close()
	if err := wb.f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func columnWidth(header string) float64 {
	width := float64(utf8.RuneCountInString(header) + 4)
	if width < 12 {
		width = 12
	}
	return width
}

// =============================================================================
// PROJECTION WORKBOOK
// =============================================================================

// WriteXLSX writes one sheet per table: a bold header row with the column
// names followed by one row per line. Null cells are left empty.
func WriteXLSX(w io.Writer, p *Projection) error {
	wb, err := newWorkbook()
	if err != nil {
		return err
	}

	for _, t := range p.Tables {
		if err := wb.writeTable(t); err != nil {
			wb.f.Close()
			return err
		}
	}

	return wb.write(w)
}

func (wb *workbook) writeTable(t *Table) error {
	sheet, err := wb.addSheet(t.RecordType)
	if err != nil {
		return err
	}

	sw, err := wb.f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", sheet, err)
	}

	for i, col := range t.Columns {
		if err := sw.SetColWidth(i+1, i+1, columnWidth(col)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	header := make([]interface{}, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: wb.bold}); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}

	for r, row := range t.Rows {
		values := make([]interface{}, len(row))
		for i, c := range row {
			if !c.Null {
				values[i] = c.Value
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", r+2, sheet, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %s: %w", sheet, err)
	}
	return nil
}

// =============================================================================
// SUMMARY WORKBOOK
// =============================================================================

// Summary sheet titles.
const (
	TotalsSheet    = "Totals"
	DirectionSheet = "By direction"
)

// WriteSummaryXLSX writes a report as three sheets: overall totals, the
// classification grouping and the direction grouping. Amounts are numeric
// cells with two decimals.
func WriteSummaryXLSX(w io.Writer, rep summary.Report) error {
	wb, err := newWorkbook()
	if err != nil {
		return err
	}

	steps := []func() error{
		func() error { return wb.writeTotals(rep) },
		func() error {
			return wb.writeGroups("By "+rep.ClassificationField, rep.ClassificationField, rep.GroupFields, rep.ByClassification)
		},
		func() error {
			return wb.writeGroups(DirectionSheet, "Direction ("+string(rep.DirectionBasis)+")", rep.GroupFields, rep.ByDirection)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			wb.f.Close()
			return err
		}
	}

	return wb.write(w)
}

func (wb *workbook) writeTotals(rep summary.Report) error {
	sheet, err := wb.addSheet(TotalsSheet)
	if err != nil {
		return err
	}

	rows := [][]interface{}{{"Field", "Amount"}}
	for _, f := range rep.TotalFields {
		rows = append(rows, []interface{}{f, rep.Totals[f].InexactFloat64()})
	}
	if err := wb.setRows(sheet, rows, 2); err != nil {
		return err
	}

	cell, _ := excelize.CoordinatesToCellName(1, len(rows)+2)
	if err := wb.f.SetSheetRow(sheet, cell, &[]interface{}{"Records", rep.Rows}); err != nil {
		return fmt.Errorf("failed to write record count: %w", err)
	}
	return wb.f.SetColWidth(sheet, "A", "B", 16)
}

func (wb *workbook) writeGroups(title, keyHeader string, fields []string, groups []summary.Group) error {
	sheet, err := wb.addSheet(title)
	if err != nil {
		return err
	}

	header := []interface{}{keyHeader, "Count"}
	for _, f := range fields {
		header = append(header, f)
	}
	rows := [][]interface{}{header}
	for _, g := range groups {
		row := []interface{}{g.Key, g.Count}
		for _, f := range fields {
			row = append(row, g.Totals[f].InexactFloat64())
		}
		rows = append(rows, row)
	}

	if err := wb.setRows(sheet, rows, 3); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	return wb.f.SetColWidth(sheet, "A", last, 16)
}

// setRows writes rows from A1, bolds the first one and applies the amount
// style from column firstAmountCol on.
func (wb *workbook) setRows(sheet string, rows [][]interface{}, firstAmountCol int) error {
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, sheet, err)
		}
	}

	width := len(rows[0])
	lastCol, _ := excelize.CoordinatesToCellName(width, 1)
	if err := wb.f.SetCellStyle(sheet, "A1", lastCol, wb.bold); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", sheet, err)
	}

	if len(rows) > 1 && firstAmountCol <= width {
		from, _ := excelize.CoordinatesToCellName(firstAmountCol, 2)
		to, _ := excelize.CoordinatesToCellName(width, len(rows))
		if err := wb.f.SetCellStyle(sheet, from, to, wb.money); err != nil {
			return fmt.Errorf("failed to style amounts of %s: %w", sheet, err)
		}
	}
	return nil
}
