package export

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/sped-toolkit/internal/document"
	"github.com/ginjaninja78/sped-toolkit/internal/types"
)

// FlatSeparator replaces the pipe delimiter in flattened output.
const FlatSeparator = ";"

// Flatten renders lines as semicolon separated text. One leading and one
// trailing pipe are removed from each line; the remaining pipes become
// semicolons. Lines are joined with "\n".
func Flatten(lines types.Body) string {
	out := make([]string, len(lines))
	for i, line := range lines {
		line = strings.TrimPrefix(line, types.Delimiter)
		line = strings.TrimSuffix(line, types.Delimiter)
		out[i] = strings.ReplaceAll(line, types.Delimiter, FlatSeparator)
	}
	return strings.Join(out, "\n")
}

// WriteFlat writes Flatten(lines) in the given encoding. Characters the
// encoding cannot represent are replaced rather than failing the export.
func WriteFlat(w io.Writer, lines types.Body, enc *charmap.Charmap) error {
	data, err := document.EncodeLenient(Flatten(lines), enc)
	if err != nil {
		return fmt.Errorf("failed to encode flat export: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write flat export: %w", err)
	}
	return nil
}
