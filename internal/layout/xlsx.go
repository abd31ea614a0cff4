// =============================================================================
// SPED Toolkit - XLSX Layout Descriptor
// =============================================================================
//
// Some teams maintain the SPED layout as a workbook instead of the text
// descriptor. This file reads that form.
//
// WORKBOOK STRUCTURE (first sheet unless XLSXOptions.Sheet is set):
//
//   | Column A | Column B | Column C | Column D | ...
//   |----------|----------|----------|----------|
//   | C100     | IND_OPER | IND_EMIT | COD_PART | ...
//   | C170     | NUM_ITEM | COD_ITEM | ...      |
//
//   Column A holds the record type; every following column holds one field
//   name. Column B maps to position 2, column C to position 3, and so on,
//   matching the text descriptor. Empty cells get no position.
//
// =============================================================================

package layout

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXOptions selects where the declarations live inside a workbook.
type XLSXOptions struct {
	// Sheet is the sheet to read. Empty means the first sheet.
	Sheet string

	// DataStartRow is the 0-based row where declarations begin. Rows above
	// it (titles, headers) are ignored.
	DataStartRow int
}

// LoadXLSX reads a workbook descriptor with default options.
func LoadXLSX(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open layout workbook: %w", err)
	}
	defer f.Close()

	return ParseXLSX(f, path, XLSXOptions{})
}

// ParseXLSX reads a workbook descriptor.
//
// PARAMETERS:
//   - r: The workbook bytes.
//   - source: A name for the workbook, used in messages.
//   - opts: Sheet and start row selection.
//
// RETURNS:
//   - The loaded registry.
//   - An error if the workbook cannot be read or declares no record type.
func ParseXLSX(r io.Reader, source string, opts XLSXOptions) (*Registry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open layout workbook %s: %w", source, err)
	}
	defer f.Close()

	sheetName := opts.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("layout workbook %s has no sheets", source)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err)
	}

	reg := &Registry{source: source, records: make(map[string]*FieldMap)}

	for i := opts.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		names := make([]string, 0, len(row))
		for _, cell := range row[1:] {
			names = append(names, strings.TrimSpace(cell))
		}
		reg.declare(i+1, strings.TrimSpace(row[0]), names)
	}

	if len(reg.records) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrEmptyLayout)
	}
	return reg, nil
}

// isRowEmpty checks if all cells in a row are empty.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
