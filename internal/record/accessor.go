// =============================================================================
// SPED Toolkit - Record Accessor
// =============================================================================
//
// This module reads records out of a document body: which record types are
// present, which lines of a type pass a set of field filters, and the value
// of a field at a given position.
//
// POSITIONS:
//   Positions are the indices produced by splitting a line on "|":
//
//     |C100|0|1|PART01|...
//     ^    ^ ^
//     0    1 2
//
//   Index 0 is the empty leading field and index 1 the record type, so the
//   first real field is at position 2. This matches the positions assigned
//   by the layout registry.
//
// =============================================================================

package record

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/sped-toolkit/internal/layout"
	"github.com/ginjaninja78/sped-toolkit/internal/types"
)

// FirstFieldPosition is the position of the first field after the record
// type code.
const FirstFieldPosition = 2

// TypeOf returns the record type of a line. Lines that do not start with
// the delimiter are not records.
func TypeOf(line string) (string, bool) {
	if !strings.HasPrefix(line, types.Delimiter) {
		return "", false
	}
	parts := strings.SplitN(line, types.Delimiter, 3)
	if len(parts) < 2 {
		return "", false
	}
	return parts[1], true
}

// Prefix returns the line prefix that identifies a record type.
func Prefix(recordType string) string {
	return types.Delimiter + recordType + types.Delimiter
}

// Fields splits a line into its positional fields.
func Fields(line string) []string {
	return strings.Split(line, types.Delimiter)
}

// Value returns the field at a position, or false if the line is too short.
func Value(line string, position int) (string, bool) {
	parts := Fields(line)
	if position < 0 || position >= len(parts) {
		return "", false
	}
	return parts[position], true
}

// =============================================================================
// RECORD TYPES
// =============================================================================

// ListTypesPresent returns the record types that occur in the body and are
// declared in the registry, sorted. Types unknown to the registry are left
// out because nothing can be resolved by name for them. A nil registry
// declares nothing.
func ListTypesPresent(body types.Body, reg *layout.Registry) []string {
	seen := make(map[string]struct{})
	for _, line := range body {
		t, ok := TypeOf(line)
		if !ok || reg == nil || !reg.Has(t) {
			continue
		}
		seen[t] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CountByType counts the lines of each record type, known or not.
func CountByType(body types.Body) map[string]int {
	counts := make(map[string]int)
	for _, line := range body {
		if t, ok := TypeOf(line); ok {
			counts[t]++
		}
	}
	return counts
}

// =============================================================================
// FILTERING
// =============================================================================

// Criteria selects lines of one record type.
type Criteria struct {
	// RecordType is matched against the "|TYPE|" line prefix.
	RecordType string

	// Fields maps a position to a substring the field must contain.
	Fields map[int]string

	// Text, when set, must appear anywhere in the raw line.
	Text string
}

// FieldCriteria resolves field-name filters to positions using the field
// map of the record type. Empty filter values are dropped.
//
// RETURNS:
//   - The position-keyed filters.
//   - An error naming the first field the layout does not declare.
func FieldCriteria(fm *layout.FieldMap, byName map[string]string) (map[int]string, error) {
	out := make(map[int]string, len(byName))
	for name, value := range byName {
		if value == "" {
			continue
		}
		pos, ok := fm.Position(name)
		if !ok {
			return nil, fmt.Errorf("field %s is not declared for this record type", name)
		}
		out[pos] = value
	}
	return out, nil
}

// Filter returns the lines of the body that match the criteria, in body
// order, with their original indices.
//
// MATCHING RULES:
//   - The line must start with "|TYPE|".
//   - Every field filter must reference an existing position and the field
//     must contain the filter value (substring match, case-sensitive).
//   - The free text filter must be contained in the raw line.
//
// A line too short for one of the referenced positions is skipped and
// reported as a warning.
func Filter(body types.Body, c Criteria) ([]types.Match, []types.Warning) {
	var (
		matches  []types.Match
		warnings []types.Warning
	)

	prefix := Prefix(c.RecordType)
	positions := sortedPositions(c.Fields)

	for idx, line := range body {
		if !strings.HasPrefix(line, prefix) {
			continue
		}

		parts := Fields(line)
		ok := true
		for _, pos := range positions {
			if pos < 0 || pos >= len(parts) {
				warnings = append(warnings, types.Warnf(idx+1,
					"record %s has %d fields, filter references position %d; line skipped",
					c.RecordType, len(parts), pos))
				ok = false
				break
			}
			if !strings.Contains(parts[pos], c.Fields[pos]) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		if c.Text != "" && !strings.Contains(line, c.Text) {
			continue
		}

		matches = append(matches, types.Match{Index: idx, Line: line})
	}

	return matches, warnings
}

// sortedPositions gives filters a stable evaluation order so the warning
// for a short line always names the same position.
func sortedPositions(fields map[int]string) []int {
	out := make([]int, 0, len(fields))
	for pos := range fields {
		out = append(out, pos)
	}
	sort.Ints(out)
	return out
}
