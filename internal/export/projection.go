// =============================================================================
// SPED Toolkit - Export Projection
// =============================================================================
//
// This module turns a document body into tables, one per record type, so
// it can be written to a workbook, and into a flat semicolon separated text
// for tools that cannot read the pipe format.
//
// TABLE SHAPE:
//   - Tables appear in the order their record type first appears in the
//     body.
//   - Columns are the field names of the record type, in the order the
//     layout declares them.
//   - Every row has exactly one cell per column. A line too short for a
//     column yields a null cell, not an empty string.
//   - Record types the layout does not declare are counted in Skipped and
//     produce no table.
//
// =============================================================================

package export

import (
	"github.com/ginjaninja78/sped-toolkit/internal/layout"
	"github.com/ginjaninja78/sped-toolkit/internal/record"
	"github.com/ginjaninja78/sped-toolkit/internal/types"
)

// Cell is one projected value.
type Cell struct {
	Value string
	Null  bool
}

// Table holds every line of one record type.
type Table struct {
	RecordType string
	Columns    []string

	// Lines are the 1-based body line numbers of the rows.
	Lines []int

	Rows [][]Cell
}

// Projection is the tabular view of a body.
type Projection struct {
	Tables []*Table

	// Skipped counts lines whose record type has no layout.
	Skipped map[string]int
}

// Table returns the table of a record type.
func (p *Projection) Table(recordType string) (*Table, bool) {
	for _, t := range p.Tables {
		if t.RecordType == recordType {
			return t, true
		}
	}
	return nil, false
}

// ProjectByType builds the tables of every declared record type in body.
// With a nil registry no type is declared and every line is counted in
// Skipped.
func ProjectByType(body types.Body, reg *layout.Registry) *Projection {
	p := &Projection{Skipped: make(map[string]int)}
	index := make(map[string]*Table)
	positions := make(map[string][]int)

	for idx, line := range body {
		recordType, ok := record.TypeOf(line)
		if !ok {
			continue
		}

		t, ok := index[recordType]
		if !ok {
			var fm *layout.FieldMap
			declared := false
			if reg != nil {
				fm, declared = reg.Fields(recordType)
			}
			if !declared {
				p.Skipped[recordType]++
				continue
			}
			t = &Table{RecordType: recordType, Columns: fm.Names()}
			pos := make([]int, len(t.Columns))
			for i, name := range t.Columns {
				pos[i], _ = fm.Position(name)
			}
			index[recordType] = t
			positions[recordType] = pos
			p.Tables = append(p.Tables, t)
		}

		parts := record.Fields(line)
		row := make([]Cell, len(t.Columns))
		for i, pos := range positions[recordType] {
			if pos < len(parts) {
				row[i] = Cell{Value: parts[pos]}
			} else {
				row[i] = Cell{Null: true}
			}
		}
		t.Rows = append(t.Rows, row)
		t.Lines = append(t.Lines, idx+1)
	}

	return p
}
