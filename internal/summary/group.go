package summary

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// NoCode is the group key for rows with a missing or empty classification
// code.
const NoCode = "N/A"

// Group is one bucket of a grouping.
type Group struct {
	Key    string
	Count  int
	Totals map[string]decimal.Decimal
}

func newGroup(key string, fields []string) *Group {
	g := &Group{Key: key, Totals: make(map[string]decimal.Decimal, len(fields))}
	for _, f := range fields {
		g.Totals[f] = decimal.Zero
	}
	return g
}

func (g *Group) add(r Row, fields []string) {
	g.Count++
	for _, f := range fields {
		g.Totals[f] = g.Totals[f].Add(r.Amount(f))
	}
}

// Totals sums the given fields over all rows. Every field is present in
// the result, zero when no row carries it.
func Totals(rows []Row, fields []string) map[string]decimal.Decimal {
	g := newGroup("", fields)
	for _, r := range rows {
		g.add(r, fields)
	}
	return g.Totals
}

// ByClassification groups rows by the value of field. Once any row
// carries the field every row is grouped, and rows without it or with an
// empty value go to NoCode, so group counts add up to len(rows). When no
// row carries the field there is nothing to group and the result is nil.
//
// Groups are ordered by count, largest first, then by key.
func ByClassification(rows []Row, field string, amountFields []string) []Group {
	present := false
	for _, r := range rows {
		if r.Has(field) {
			present = true
			break
		}
	}
	if !present {
		return nil
	}

	index := make(map[string]*Group)
	for _, r := range rows {
		key := r.Code(field)
		if key == "" {
			key = NoCode
		}
		g, ok := index[key]
		if !ok {
			g = newGroup(key, amountFields)
			index[key] = g
		}
		g.add(r, amountFields)
	}

	out := make([]Group, 0, len(index))
	for _, g := range index {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// =============================================================================
// DIRECTION
// =============================================================================

// Direction of a fiscal operation.
type Direction string

const (
	Entry Direction = "Entry"
	Exit  Direction = "Exit"
	Other Direction = "Other"
)

var directionOrder = []Direction{Entry, Exit, Other}

// Basis tells which rule ByDirection applied.
type Basis string

const (
	// BasisExplicit means the explicit indicator field was used.
	BasisExplicit Basis = "explicit"

	// BasisCode means the first digit of the classification code was used.
	BasisCode Basis = "code"
)

// DirectionPolicy decides whether a row is an entry or an exit.
//
// RULES:
//   - Explicit: Field holds EntryValue or ExitValue; anything else is Other.
//   - Code: the first digit of CodeField is looked up in EntryDigits and
//     ExitDigits; anything else is Other.
type DirectionPolicy struct {
	Field      string
	EntryValue string
	ExitValue  string

	CodeField   string
	EntryDigits string
	ExitDigits  string
}

// DefaultDirectionPolicy reads IND_OPER (0 entry, 1 exit) and falls back to
// the CFOP first digit (1-3 entry, 5-7 exit).
func DefaultDirectionPolicy() DirectionPolicy {
	return DirectionPolicy{
		Field:       "IND_OPER",
		EntryValue:  "0",
		ExitValue:   "1",
		CodeField:   "CFOP",
		EntryDigits: "123",
		ExitDigits:  "567",
	}
}

func (p DirectionPolicy) withDefaults() DirectionPolicy {
	d := DefaultDirectionPolicy()
	if p.Field == "" {
		p.Field, p.EntryValue, p.ExitValue = d.Field, d.EntryValue, d.ExitValue
	}
	if p.CodeField == "" {
		p.CodeField = d.CodeField
	}
	if p.EntryDigits == "" && p.ExitDigits == "" {
		p.EntryDigits, p.ExitDigits = d.EntryDigits, d.ExitDigits
	}
	return p
}

// Explicit classifies a row by the indicator field.
func (p DirectionPolicy) Explicit(r Row) Direction {
	switch r.Code(p.Field) {
	case p.EntryValue:
		return Entry
	case p.ExitValue:
		return Exit
	}
	return Other
}

// ByCode classifies a row by the first digit of its classification code.
func (p DirectionPolicy) ByCode(r Row) Direction {
	code := r.Code(p.CodeField)
	if code == "" {
		return Other
	}
	switch first := code[:1]; {
	case strings.Contains(p.EntryDigits, first):
		return Entry
	case strings.Contains(p.ExitDigits, first):
		return Exit
	}
	return Other
}

// ByDirection groups rows into Entry, Exit and Other.
//
// The explicit field is used only when every row carries it; otherwise
// every row is classified by code so the two rules are never mixed in one
// report. Groups come back in the order Entry, Exit, Other and only
// non-empty groups are returned.
func ByDirection(rows []Row, policy DirectionPolicy, amountFields []string) ([]Group, Basis) {
	policy = policy.withDefaults()

	basis := BasisExplicit
	for _, r := range rows {
		if !r.Has(policy.Field) {
			basis = BasisCode
			break
		}
	}

	classify := policy.Explicit
	if basis == BasisCode {
		classify = policy.ByCode
	}

	index := make(map[Direction]*Group)
	for _, r := range rows {
		d := classify(r)
		g, ok := index[d]
		if !ok {
			g = newGroup(string(d), amountFields)
			index[d] = g
		}
		g.add(r, amountFields)
	}

	var out []Group
	for _, d := range directionOrder {
		if g, ok := index[d]; ok {
			out = append(out, *g)
		}
	}
	return out, basis
}

// =============================================================================
// REPORT
// =============================================================================

// Report is the complete summary of a set of rows.
type Report struct {
	// Rows is the number of records aggregated.
	Rows int

	// CountByType counts the aggregated records per record type.
	CountByType map[string]int

	// TotalFields lists the monetary fields in Totals, sorted.
	TotalFields []string

	// Totals sums every monetary field over all rows.
	Totals map[string]decimal.Decimal

	// GroupFields lists the monetary fields summed per group.
	GroupFields []string

	// ClassificationField is the code ByClassification grouped on.
	ClassificationField string

	ByClassification []Group
	ByDirection      []Group
	DirectionBasis   Basis
}

// Summarize builds the full report for rows.
func Summarize(rows []Row, opts Options) Report {
	opts = opts.withDefaults()

	seen := make(map[string]struct{})
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.RecordType]++
		for f := range r.Amounts {
			seen[f] = struct{}{}
		}
	}
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	byDirection, basis := ByDirection(rows, opts.Direction, opts.GroupAmounts)

	return Report{
		Rows:                len(rows),
		CountByType:         counts,
		TotalFields:         fields,
		Totals:              Totals(rows, fields),
		GroupFields:         opts.GroupAmounts,
		ClassificationField: opts.ClassificationField,
		ByClassification:    ByClassification(rows, opts.ClassificationField, opts.GroupAmounts),
		ByDirection:         byDirection,
		DirectionBasis:      basis,
	}
}
