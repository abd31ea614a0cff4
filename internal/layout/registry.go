// =============================================================================
// SPED Toolkit - Layout Registry
// =============================================================================
//
// This module loads the field layout of every SPED record type from an
// external descriptor. Record types are never hard-coded: supporting a new
// record only requires a new line in the descriptor.
//
// DESCRIPTOR FORMAT (text):
//   |C100|IND_OPER|IND_EMIT|COD_PART|...|VL_ICMS||
//   |C170|NUM_ITEM|COD_ITEM|DESCR_COMPL|...||
//
//   Each line names a record type followed by its fields in column order and
//   ends with a double delimiter. Field N of the declaration (0-based) maps
//   to position N+2, which is the index of that field after splitting a
//   record line on "|" (index 0 is the empty leading field, index 1 is the
//   record type).
//
// DESCRIPTOR FORMAT (xlsx):
//   See xlsx.go.
//
// =============================================================================

package layout

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ginjaninja78/sped-toolkit/internal/types"
)

// ErrEmptyLayout is returned when a descriptor yields no usable record type.
var ErrEmptyLayout = errors.New("layout descriptor has no valid record types")

// firstFieldPosition is the split index of the first field after the
// record type code.
const firstFieldPosition = 2

// utf8BOM is stripped from the first descriptor line when present.
const utf8BOM = "\ufeff"

// =============================================================================
// FIELD MAP
// =============================================================================

// FieldMap maps the field names of one record type to their 1-based
// positions. Names keep their declaration order.
type FieldMap struct {
	names     []string
	positions map[string]int
}

func newFieldMap() *FieldMap {
	return &FieldMap{positions: make(map[string]int)}
}

// set records a field. A repeated name keeps its first column order but
// takes the later position.
func (f *FieldMap) set(name string, position int) bool {
	_, dup := f.positions[name]
	if !dup {
		f.names = append(f.names, name)
	}
	f.positions[name] = position
	return dup
}

// Names returns the field names in declaration order.
func (f *FieldMap) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Position returns the 1-based position of a field.
func (f *FieldMap) Position(name string) (int, bool) {
	p, ok := f.positions[name]
	return p, ok
}

// NameAt returns the field declared at a position.
func (f *FieldMap) NameAt(position int) (string, bool) {
	for _, name := range f.names {
		if f.positions[name] == position {
			return name, true
		}
	}
	return "", false
}

// Len returns the number of named fields.
func (f *FieldMap) Len() int { return len(f.names) }

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds the field layout of every record type declared by a
// descriptor. A Registry is immutable once built and may be shared freely
// between goroutines.
type Registry struct {
	source   string
	records  map[string]*FieldMap
	warnings []types.Warning
}

// Source identifies where the registry was loaded from.
func (r *Registry) Source() string { return r.source }

// Has reports whether the record type is declared.
func (r *Registry) Has(recordType string) bool {
	_, ok := r.records[recordType]
	return ok
}

// Fields returns the field map of a record type.
func (r *Registry) Fields(recordType string) (*FieldMap, bool) {
	fm, ok := r.records[recordType]
	return fm, ok
}

// Position resolves a field name of a record type to its position.
func (r *Registry) Position(recordType, field string) (int, bool) {
	fm, ok := r.records[recordType]
	if !ok {
		return 0, false
	}
	return fm.Position(field)
}

// Types returns every declared record type, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.records))
	for t := range r.records {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of declared record types.
func (r *Registry) Len() int { return len(r.records) }

// Warnings returns the descriptor lines that were skipped or overridden
// while loading.
func (r *Registry) Warnings() []types.Warning {
	out := make([]types.Warning, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// LoadFile loads a registry from a descriptor on disk. Files with an
// .xlsx extension are read as workbooks; anything else is read as the
// pipe-delimited text descriptor.
//
// RETURNS:
//   - The loaded registry.
//   - An error if the file cannot be read or declares no record type
//     (wrapping ErrEmptyLayout in the latter case).
func LoadFile(path string) (*Registry, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open layout descriptor: %w", err)
	}
	defer f.Close()

	return Parse(f, path)
}

// Parse reads a text descriptor.
//
// PARAMETERS:
//   - r: The descriptor content (UTF-8).
//   - source: A name for the descriptor, used in messages.
//
// PARSING RULES:
//   - Blank lines and lines not starting with "|" are ignored.
//   - Lines with fewer than 4 segments are skipped as malformed.
//   - Field names are the segments between the record type and the
//     closing "||"; empty names get no position.
//   - A record type with no field names is kept.
func Parse(r io.Reader, source string) (*Registry, error) {
	reg := &Registry{source: source, records: make(map[string]*FieldMap)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if lineNum == 1 {
			line = strings.TrimPrefix(line, utf8BOM)
		}
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, types.Delimiter) {
			continue
		}

		parts := strings.Split(line, types.Delimiter)
		if len(parts) < 4 {
			reg.warn(lineNum, "malformed declaration (%d segments): %s", len(parts), preview(line))
			continue
		}

		reg.declare(lineNum, parts[1], parts[2:len(parts)-2])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read layout descriptor %s: %w", source, err)
	}

	if len(reg.records) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrEmptyLayout)
	}
	return reg, nil
}

// declare registers a record type with its field names in column order.
// names[i] maps to position i+2.
func (r *Registry) declare(lineNum int, recordType string, names []string) {
	if recordType == "" {
		r.warn(lineNum, "declaration without record type")
		return
	}
	if _, exists := r.records[recordType]; exists {
		r.warn(lineNum, "record type %s declared again, previous declaration replaced", recordType)
	}

	fm := newFieldMap()
	for i, name := range names {
		if name == "" {
			continue
		}
		if fm.set(name, i+firstFieldPosition) {
			r.warn(lineNum, "field %s repeated in %s, last position kept", name, recordType)
		}
	}
	r.records[recordType] = fm
}

func (r *Registry) warn(lineNum int, format string, args ...interface{}) {
	r.warnings = append(r.warnings, types.Warnf(lineNum, format, args...))
}

// preview shortens a line for messages.
func preview(line string) string {
	const max = 50
	if len(line) <= max {
		return line
	}
	return line[:max] + "..."
}
