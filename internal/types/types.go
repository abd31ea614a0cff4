// =============================================================================
// SPED Toolkit - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - document
//   - record
//   - summary
//   - export
//   - session
//
// =============================================================================

package types

import "fmt"

// =============================================================================
// DOCUMENT LINES
// =============================================================================

// Delimiter separates fields inside a SPED line.
const Delimiter = "|"

// Body is an ordered sequence of raw SPED lines.
//
// A Body is treated as an immutable value: operations that change lines
// return a new Body and leave the receiver untouched, so a previous
// snapshot stays valid for preview or rollback.
type Body []string

// Clone returns a shallow copy of the body. Strings are immutable, so the
// copy shares the line text with the original but not the backing array.
func (b Body) Clone() Body {
	if b == nil {
		return nil
	}
	out := make(Body, len(b))
	copy(out, b)
	return out
}

// Match is a line selected by a filter pass.
type Match struct {
	// Index is the 0-based position of the line in the body it was read from.
	Index int

	// Line is the raw line text at the time of the match.
	Line string
}

// LineNumber returns the 1-based line number used in user-facing messages.
func (m Match) LineNumber() int { return m.Index + 1 }

// =============================================================================
// WARNINGS
// =============================================================================

// Warning is a recoverable, per-line condition collected during a batch
// operation. The line that caused it was skipped; the rest of the batch
// was processed normally.
type Warning struct {
	// Line is the 1-based line number, or 0 when the warning is not tied
	// to a specific line.
	Line int

	// Reason describes why the line was skipped.
	Reason string
}

// Warnf builds a Warning for a 1-based line number.
func Warnf(line int, format string, args ...interface{}) Warning {
	return Warning{Line: line, Reason: fmt.Sprintf(format, args...)}
}

// String formats the warning for logs and terminal output.
func (w Warning) String() string {
	if w.Line <= 0 {
		return w.Reason
	}
	return fmt.Sprintf("line %d: %s", w.Line, w.Reason)
}
