// =============================================================================
// SPED Toolkit - Document Model
// =============================================================================
//
// This module turns the raw bytes of a SPED file into a Document: the body
// (every record before the closing block) and the signature (the trailing
// block "9" lines, kept byte-for-byte and never edited).
//
// ENCODING:
//   SPED files are single-byte encoded (ISO-8859-1 by default). Decoding
//   through a charmap maps every byte to exactly one rune, so
//   Recombine(Split(b)) reproduces b exactly. Charmaps with unassigned
//   slots (windows-1252 leaves 0x81, 0x8D, 0x8F, 0x90 and 0x9D empty) are
//   accepted, but Split refuses a file that uses such a byte.
//
// LINE ENDINGS:
//   The line ending (LF, CRLF or CR) and whether the file ends with one are
//   detected on Split and restored on Recombine.
//
// =============================================================================

package document

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/ginjaninja78/sped-toolkit/internal/types"
)

var (
	// ErrNotSingleByte is returned when the requested encoding is not a
	// single-byte charmap.
	ErrNotSingleByte = errors.New("encoding is not a single-byte charmap")

	// ErrUnencodable is returned when a line holds a character the
	// document encoding cannot represent.
	ErrUnencodable = errors.New("text not representable in document encoding")

	// ErrUndecodable is returned by Split when the file holds a byte the
	// document encoding leaves unassigned.
	ErrUndecodable = errors.New("byte not assigned in document encoding")
)

// DefaultEncoding is the encoding used when none is configured.
var DefaultEncoding = charmap.ISO8859_1

// closingBlockPrefix starts every record of block 9.
const closingBlockPrefix = "|9"

// =============================================================================
// FORMAT
// =============================================================================

// Format describes how a document's lines are laid out as bytes.
type Format struct {
	// Encoding is the single-byte charmap of the file.
	Encoding *charmap.Charmap

	// LineEnding separates lines: "\n", "\r\n" or "\r".
	LineEnding string

	// FinalNewline reports whether the last line is followed by LineEnding.
	FinalNewline bool
}

func (f Format) withDefaults() Format {
	if f.Encoding == nil {
		f.Encoding = DefaultEncoding
	}
	if f.LineEnding == "" {
		f.LineEnding = "\n"
	}
	return f
}

// LookupEncoding resolves an IANA or MIME name such as "ISO-8859-1" or
// "windows-1252" to a single-byte charmap. An empty name yields the
// default encoding.
func LookupEncoding(name string) (*charmap.Charmap, error) {
	if strings.TrimSpace(name) == "" {
		return DefaultEncoding, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		enc, err = ianaindex.MIME.Encoding(name)
	}
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}

	cm, ok := enc.(*charmap.Charmap)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotSingleByte)
	}
	return cm, nil
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a parsed SPED file. A Document is never modified after it is
// created; WithBody returns a new Document sharing the same signature.
type Document struct {
	body      types.Body
	signature types.Body
	format    Format
}

// Body returns a copy of the body lines.
func (d *Document) Body() types.Body { return d.body.Clone() }

// Signature returns a copy of the signature lines.
func (d *Document) Signature() types.Body { return d.signature.Clone() }

// Format returns the byte layout of the document.
func (d *Document) Format() Format { return d.format }

// HasSignature reports whether a closing block was detected.
func (d *Document) HasSignature() bool { return len(d.signature) > 0 }

// SignatureStart returns the 1-based line number where the signature
// begins, or 0 when there is none.
func (d *Document) SignatureStart() int {
	if !d.HasSignature() {
		return 0
	}
	return len(d.body) + 1
}

// Len returns the total number of lines.
func (d *Document) Len() int { return len(d.body) + len(d.signature) }

// WithBody returns a document holding body in place of the current one.
// The signature and format are kept.
func (d *Document) WithBody(body types.Body) *Document {
	return &Document{
		body:      body.Clone(),
		signature: d.signature,
		format:    d.format,
	}
}

// Bytes re-serializes the document.
func (d *Document) Bytes() ([]byte, error) {
	return Recombine(d.body, d.signature, d.format)
}

// =============================================================================
// SPLIT / RECOMBINE
// =============================================================================

// Open reads and splits a file.
func Open(path string, enc *charmap.Charmap) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SPED file: %w", err)
	}
	doc, err := Split(raw, enc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Split decodes raw bytes and separates the body from the signature.
//
// PARAMETERS:
//   - raw: The file content.
//   - enc: The single-byte encoding; nil selects DefaultEncoding.
//
// SIGNATURE DETECTION:
//   The signature starts at the first line that opens block 9 and is
//   followed only by block 9 records up to the end of the file. Lines that
//   are not records (blank lines, trailers) do not interrupt the block.
//   When no such line exists the whole file is body.
//
// RETURNS:
//   - ErrUndecodable when a byte is unassigned in enc, since such a file
//     could not be written back unchanged.
func Split(raw []byte, enc *charmap.Charmap) (*Document, error) {
	format := Format{Encoding: enc}.withDefaults()

	if err := checkDecodable(raw, format.Encoding); err != nil {
		return nil, err
	}

	decoded, err := format.Encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	text := string(decoded)

	format.LineEnding = detectLineEnding(text)
	lines, final := splitLines(text, format.LineEnding)
	format.FinalNewline = final

	boundary := signatureBoundary(lines)
	if boundary < 0 {
		return &Document{body: lines, signature: types.Body{}, format: format}, nil
	}
	return &Document{
		body:      lines[:boundary:boundary],
		signature: lines[boundary:],
		format:    format,
	}, nil
}

// Recombine joins body and signature back into encoded bytes. It is the
// exact inverse of Split when neither sequence was changed.
func Recombine(body, signature types.Body, format Format) ([]byte, error) {
	format = format.withDefaults()

	lines := make([]string, 0, len(body)+len(signature))
	lines = append(lines, body...)
	lines = append(lines, signature...)

	text := strings.Join(lines, format.LineEnding)
	if format.FinalNewline && len(lines) > 0 {
		text += format.LineEnding
	}

	out, err := format.Encoding.NewEncoder().String(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return []byte(out), nil
}

// EncodeLenient encodes text with enc, replacing characters it cannot
// represent instead of failing.
func EncodeLenient(text string, enc *charmap.Charmap) ([]byte, error) {
	if enc == nil {
		enc = DefaultEncoding
	}
	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).String(text)
	if err != nil {
		return nil, fmt.Errorf("failed to encode text: %w", err)
	}
	return []byte(out), nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// checkDecodable fails on the first byte that enc cannot decode to a rune
// that encodes back to the same byte.
func checkDecodable(raw []byte, enc *charmap.Charmap) error {
	var bad [256]bool
	for i := range bad {
		r := enc.DecodeByte(byte(i))
		back, ok := enc.EncodeRune(r)
		bad[i] = r == utf8.RuneError || !ok || back != byte(i)
	}

	line := 1
	for _, b := range raw {
		if bad[b] {
			return fmt.Errorf("%w: 0x%02X on line %d", ErrUndecodable, b, line)
		}
		if b == '\n' {
			line++
		}
	}
	return nil
}

// detectLineEnding picks CRLF when every LF is preceded by CR, LF when any
// LF exists, and lone CR otherwise.
func detectLineEnding(text string) string {
	lf := strings.Count(text, "\n")
	switch {
	case lf > 0 && strings.Count(text, "\r\n") == lf:
		return "\r\n"
	case lf > 0:
		return "\n"
	case strings.Contains(text, "\r"):
		return "\r"
	default:
		return "\n"
	}
}

// splitLines splits on sep and reports whether text ended with sep.
func splitLines(text, sep string) (types.Body, bool) {
	if text == "" {
		return types.Body{}, false
	}
	lines := strings.Split(text, sep)
	if lines[len(lines)-1] == "" {
		return types.Body(lines[:len(lines)-1]), true
	}
	return types.Body(lines), false
}

// signatureBoundary returns the index of the first line that opens the
// closing block, or -1.
func signatureBoundary(lines types.Body) int {
	for i, line := range lines {
		if !opensClosingBlock(line) {
			continue
		}
		if onlyClosingRecordsAfter(lines[i+1:]) {
			return i
		}
	}
	return -1
}

func opensClosingBlock(line string) bool {
	if !strings.HasPrefix(line, closingBlockPrefix) {
		return false
	}
	parts := strings.Split(line, types.Delimiter)
	return len(parts) > 2 && strings.HasPrefix(parts[1], "9")
}

func onlyClosingRecordsAfter(rest types.Body) bool {
	for _, line := range rest {
		if strings.HasPrefix(line, types.Delimiter) && !strings.HasPrefix(line, closingBlockPrefix) {
			return false
		}
	}
	return true
}
