// =============================================================================
// SPED Toolkit - Aggregation Engine
// =============================================================================
//
// This module scans the body for the records of interest, reads a fixed
// set of fields from each of them and produces grouped totals.
//
// PIPELINE:
//   1. Collect: one Row per matching line, amounts coerced to decimals,
//      codes kept as trimmed strings.
//   2. Group: by classification code (CFOP) and by operation direction
//      (entry / exit), with counts and summed amounts.
//
// Missing fields never abort a row: amounts default to zero and codes to
// the empty string.
//
// =============================================================================

package summary

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sped-toolkit/internal/layout"
	"github.com/ginjaninja78/sped-toolkit/internal/record"
	"github.com/ginjaninja78/sped-toolkit/internal/types"
)

// Interest lists, per record type, the fields to read.
type Interest map[string][]string

// DefaultInterest covers goods documents (C100), their items (C170) and
// transport documents (D100).
func DefaultInterest() Interest {
	return Interest{
		"C100": {"IND_OPER", "VL_DOC", "VL_BC_ICMS", "VL_ICMS"},
		"C170": {"CFOP", "VL_ITEM", "VL_BC_ICMS", "VL_ICMS"},
		"D100": {"IND_OPER", "VL_DOC", "VL_BC_ICMS", "VL_ICMS", "CFOP"},
	}
}

// DefaultAmountPrefixes marks field names holding monetary values.
var DefaultAmountPrefixes = []string{"VL_"}

// DefaultGroupAmounts are the tax base and tax amount of ICMS.
var DefaultGroupAmounts = []string{"VL_BC_ICMS", "VL_ICMS"}

// =============================================================================
// ROW
// =============================================================================

// Row holds the values read from one record line.
type Row struct {
	// RecordType of the source line.
	RecordType string

	// Line is the 1-based line number in the body.
	Line int

	// Amounts holds the monetary fields requested for this record type.
	Amounts map[string]decimal.Decimal

	// Codes holds the other requested fields.
	Codes map[string]string
}

// Has reports whether the field was requested for this row's record type.
func (r Row) Has(field string) bool {
	if _, ok := r.Amounts[field]; ok {
		return true
	}
	_, ok := r.Codes[field]
	return ok
}

// Amount returns a monetary field, zero when absent.
func (r Row) Amount(field string) decimal.Decimal {
	return r.Amounts[field]
}

// Code returns a non-monetary field, empty when absent.
func (r Row) Code(field string) string {
	return r.Codes[field]
}

// =============================================================================
// COLLECT
// =============================================================================

// Options tunes how rows are read and grouped.
type Options struct {
	// AmountPrefixes identify monetary fields by name prefix.
	// Empty means DefaultAmountPrefixes.
	AmountPrefixes []string

	// ClassificationField is the code rows are grouped by. Empty means
	// "CFOP".
	ClassificationField string

	// GroupAmounts are the monetary fields summed per group. Empty means
	// DefaultGroupAmounts.
	GroupAmounts []string

	// Direction decides entry / exit classification.
	Direction DirectionPolicy
}

// DefaultOptions returns the ICMS report options.
func DefaultOptions() Options {
	return Options{
		AmountPrefixes:      DefaultAmountPrefixes,
		ClassificationField: "CFOP",
		GroupAmounts:        DefaultGroupAmounts,
		Direction:           DefaultDirectionPolicy(),
	}
}

func (o Options) withDefaults() Options {
	if len(o.AmountPrefixes) == 0 {
		o.AmountPrefixes = DefaultAmountPrefixes
	}
	if o.ClassificationField == "" {
		o.ClassificationField = "CFOP"
	}
	if len(o.GroupAmounts) == 0 {
		o.GroupAmounts = DefaultGroupAmounts
	}
	o.Direction = o.Direction.withDefaults()
	return o
}

// IsAmountField reports whether a field name holds a monetary value.
func (o Options) IsAmountField(field string) bool {
	for _, p := range o.withDefaults().AmountPrefixes {
		if strings.HasPrefix(field, p) {
			return true
		}
	}
	return false
}

// Collect reads the fields of interest from every matching body line.
//
// PARAMETERS:
//   - body: The document body.
//   - reg: The layout used to resolve field names. A nil registry resolves
//     nothing, so every field takes its default.
//   - interest: The record types and fields to read.
//   - opts: Amount field detection (only AmountPrefixes is used).
//
// RETURNS:
//   - One Row per line whose record type is in interest, in body order.
func Collect(body types.Body, reg *layout.Registry, interest Interest, opts Options) []Row {
	opts = opts.withDefaults()

	var rows []Row
	for idx, line := range body {
		recordType, ok := record.TypeOf(line)
		if !ok {
			continue
		}
		fields, ok := interest[recordType]
		if !ok {
			continue
		}

		parts := record.Fields(line)
		row := Row{
			RecordType: recordType,
			Line:       idx + 1,
			Amounts:    make(map[string]decimal.Decimal),
			Codes:      make(map[string]string),
		}

		for _, name := range fields {
			raw, found := "", false
			if reg != nil {
				if pos, ok := reg.Position(recordType, name); ok && pos < len(parts) {
					raw, found = parts[pos], true
				}
			}

			if opts.IsAmountField(name) {
				amount := decimal.Zero
				if found {
					amount = ParseAmount(raw)
				}
				row.Amounts[name] = amount
			} else {
				row.Codes[name] = strings.TrimSpace(raw)
			}
		}

		rows = append(rows, row)
	}
	return rows
}
