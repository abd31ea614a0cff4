package record

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/sped-toolkit/internal/types"
)

var (
	// ErrInvalidPosition is returned for positions that do not address a
	// data field (the leading empty field or the record type).
	ErrInvalidPosition = errors.New("position does not address a data field")

	// ErrUnsafeValue is returned for values that would change the line
	// structure of the document.
	ErrUnsafeValue = errors.New("value contains a delimiter or line break")
)

// Edit describes one field change applied to a set of lines.
type Edit struct {
	// RecordType the targeted lines are expected to have.
	RecordType string

	// Indices are 0-based body indices, usually taken from a filter pass.
	Indices []int

	// Position of the field to change.
	Position int

	// Value is the new field content.
	Value string
}

// EditResult is the outcome of ApplyEdit.
type EditResult struct {
	// Body is the new body. It is a fresh slice; the input body is never
	// modified.
	Body types.Body

	// Modified counts the lines whose field actually changed.
	Modified int

	// Changed lists the modified lines as they read after the edit.
	Changed []types.Match

	// Warnings lists the indices that were skipped and why.
	Warnings []types.Warning
}

// ApplyEdit sets a field on every targeted line and returns the new body.
//
// PER-LINE RULES:
//   - An index outside the body is skipped with a warning.
//   - A line that no longer starts with "|TYPE|" (for instance because the
//     indices came from a stale view) is skipped with a warning.
//   - A line without a field at the position is skipped with a warning.
//   - A line whose field already holds the value is left as is and is not
//     counted.
//
// RETURNS:
//   - The edit result. Discarding it is a complete rollback.
//   - ErrInvalidPosition or ErrUnsafeValue when the edit as a whole is
//     refused; no line is touched in that case.
func ApplyEdit(body types.Body, e Edit) (EditResult, error) {
	if e.Position < FirstFieldPosition {
		return EditResult{}, fmt.Errorf("%w: %d", ErrInvalidPosition, e.Position)
	}
	if strings.ContainsAny(e.Value, types.Delimiter+"\r\n") {
		return EditResult{}, fmt.Errorf("%w: %q", ErrUnsafeValue, e.Value)
	}

	result := EditResult{Body: body.Clone()}
	prefix := Prefix(e.RecordType)

	for _, idx := range e.Indices {
		if idx < 0 || idx >= len(result.Body) {
			result.Warnings = append(result.Warnings, types.Warnf(idx+1,
				"index out of range (body has %d lines); skipped", len(result.Body)))
			continue
		}

		line := result.Body[idx]
		if !strings.HasPrefix(line, prefix) {
			result.Warnings = append(result.Warnings, types.Warnf(idx+1,
				"line is no longer a %s record; skipped", e.RecordType))
			continue
		}

		parts := Fields(line)
		if e.Position >= len(parts) {
			result.Warnings = append(result.Warnings, types.Warnf(idx+1,
				"no field at position %d (line has %d fields); skipped", e.Position, len(parts)))
			continue
		}

		if parts[e.Position] == e.Value {
			continue
		}

		parts[e.Position] = e.Value
		updated := strings.Join(parts, types.Delimiter)
		result.Body[idx] = updated
		result.Modified++
		result.Changed = append(result.Changed, types.Match{Index: idx, Line: updated})
	}

	return result, nil
}
