// =============================================================================
// SPED Toolkit - Session Module
// =============================================================================
//
// This module ties the pieces together for one open SPED file. A session
// owns the current document snapshot and its edit history, resolves the
// layout on first use, and keeps the pending selection of every record
// type.
//
// EDIT FLOW:
//   1. Filter the body of one record type (by field values and/or text)
//   2. Select lines from the matches, or target every match
//   3. Edit: build the new body without touching the session
//   4. Commit: the new body becomes the current snapshot, the previous one
//      goes to the history and the selection of that type is cleared
//
// LAYOUT FAILURES:
//   A missing or broken layout only disables the operations that address
//   fields by name. Viewing, counting, re-serializing and flat exports keep
//   working.
//
// CONCURRENCY:
//   A session is not safe for concurrent use. Each session owns its own
//   snapshot; the layout registry is shared read-only between sessions.
//
// =============================================================================

package session

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/sped-toolkit/internal/config"
	"github.com/ginjaninja78/sped-toolkit/internal/document"
	"github.com/ginjaninja78/sped-toolkit/internal/export"
	"github.com/ginjaninja78/sped-toolkit/internal/layout"
	"github.com/ginjaninja78/sped-toolkit/internal/record"
	"github.com/ginjaninja78/sped-toolkit/internal/summary"
	"github.com/ginjaninja78/sped-toolkit/internal/types"
)

// ErrNoLayout is returned by field-addressed operations when no layout
// descriptor is configured.
var ErrNoLayout = errors.New("no layout descriptor configured")

// ErrNothingToUndo is returned by Undo on a session without history.
var ErrNothingToUndo = errors.New("nothing to undo")

// =============================================================================
// SESSION STRUCTURE
// =============================================================================

// Session is one open SPED file.
type Session struct {
	id   string
	name string

	cfg *config.MainConfig
	enc *charmap.Charmap

	doc     *document.Document
	history []*document.Document

	registry    *layout.Registry
	registryErr error
	resolved    bool

	selections record.Selections

	log logrus.FieldLogger
}

// Open reads a SPED file and starts a session on it.
//
// PARAMETERS:
//   - path: The SPED file.
//   - cfg: The configuration. Nil means config.Default().
//   - logger: Where session events go. Nil means a standard logrus logger.
//
// RETURNS:
//   - The session.
//   - An error if the encoding is invalid or the file cannot be read.
func Open(path string, cfg *config.MainConfig, logger logrus.FieldLogger) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	enc, err := document.LookupEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	doc, err := document.Open(path, enc)
	if err != nil {
		return nil, err
	}

	s := New(filepath.Base(path), doc, cfg, logger)
	s.log.WithFields(logrus.Fields{
		"lines":     doc.Len(),
		"signature": doc.HasSignature(),
		"encoding":  cfg.Encoding,
	}).Info("Opened SPED file")
	return s, nil
}

// New starts a session on a document that is already in memory.
func New(name string, doc *document.Document, cfg *config.MainConfig, logger logrus.FieldLogger) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logrus.New()
	}

	enc := doc.Format().Encoding
	if enc == nil {
		enc = document.DefaultEncoding
	}

	id := uuid.New().String()
	return &Session{
		id:         id,
		name:       name,
		cfg:        cfg,
		enc:        enc,
		doc:        doc,
		selections: record.Selections{},
		log:        logger.WithFields(logrus.Fields{"session": id, "file": name}),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Name returns the base name of the file the session was opened from.
func (s *Session) Name() string { return s.name }

// Document returns the current snapshot.
func (s *Session) Document() *document.Document { return s.doc }

// Body returns a copy of the current body.
func (s *Session) Body() types.Body { return s.doc.Body() }

// Lines returns the body followed by the signature block.
func (s *Session) Lines() types.Body {
	return append(s.doc.Body(), s.doc.Signature()...)
}

// Versions returns how many committed edits can be undone.
func (s *Session) Versions() int { return len(s.history) }

// =============================================================================
// LAYOUT
// =============================================================================

// Registry returns the layout registry, loading it on first use. The
// outcome, success or failure, is remembered for the life of the session.
func (s *Session) Registry() (*layout.Registry, error) {
	if s.resolved {
		return s.registry, s.registryErr
	}
	s.resolved = true

	if s.cfg.LayoutPath == "" {
		s.registryErr = ErrNoLayout
		return nil, s.registryErr
	}

	reg, err := layout.Cached(s.cfg.LayoutPath)
	if err != nil {
		s.registryErr = fmt.Errorf("failed to load layout: %w", err)
		s.log.WithError(err).Warn("Layout unavailable, field operations disabled")
		return nil, s.registryErr
	}

	for _, w := range reg.Warnings() {
		s.log.WithField("line", w.Line).Debugf("Layout: %s", w.Reason)
	}
	s.log.WithFields(logrus.Fields{"layout": reg.Source(), "record_types": reg.Len()}).Debug("Layout loaded")

	s.registry = reg
	return reg, nil
}

// UseRegistry sets the registry directly instead of loading LayoutPath.
func (s *Session) UseRegistry(reg *layout.Registry) {
	s.registry, s.registryErr, s.resolved = reg, nil, true
}

// Fields returns the field map of a record type.
func (s *Session) Fields(recordType string) (*layout.FieldMap, error) {
	reg, err := s.Registry()
	if err != nil {
		return nil, err
	}
	fm, ok := reg.Fields(recordType)
	if !ok {
		return nil, fmt.Errorf("record type %s is not declared in %s", recordType, reg.Source())
	}
	return fm, nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Types lists the record types present in the body that the layout
// declares.
func (s *Session) Types() ([]string, error) {
	reg, err := s.Registry()
	if err != nil {
		return nil, err
	}
	return record.ListTypesPresent(s.doc.Body(), reg), nil
}

// Counts counts every record type in the body, declared or not.
func (s *Session) Counts() map[string]int {
	return record.CountByType(s.doc.Body())
}

// Query selects lines of one record type.
type Query struct {
	RecordType string

	// Where maps field names to substrings; empty values are ignored.
	Where map[string]string

	// Text must appear anywhere in the line.
	Text string
}

// Filter returns the lines matching q together with per-line warnings.
func (s *Session) Filter(q Query) ([]types.Match, []types.Warning, error) {
	c := record.Criteria{RecordType: q.RecordType, Text: q.Text}

	if len(q.Where) > 0 {
		fm, err := s.Fields(q.RecordType)
		if err != nil {
			return nil, nil, err
		}
		if c.Fields, err = record.FieldCriteria(fm, q.Where); err != nil {
			return nil, nil, err
		}
	}

	matches, warnings := record.Filter(s.doc.Body(), c)
	s.log.WithFields(logrus.Fields{
		"record_type": q.RecordType,
		"matches":     len(matches),
		"warnings":    len(warnings),
	}).Debug("Filtered records")
	return matches, warnings, nil
}

// Page filters and returns one page of the matches, using the configured
// page size.
func (s *Session) Page(q Query, page int) (record.Page, []types.Warning, error) {
	matches, warnings, err := s.Filter(q)
	if err != nil {
		return record.Page{}, nil, err
	}
	return record.Paginate(matches, page, s.cfg.ItemsPerPage), warnings, nil
}

// Selection returns the pending selection of a record type.
func (s *Session) Selection(recordType string) *record.Selection {
	return s.selections.For(recordType)
}

// =============================================================================
// EDITS
// =============================================================================

// Change is a pending field change.
type Change struct {
	RecordType string
	Field      string
	Value      string

	// Indices are the body lines to change. When empty, the selection of
	// RecordType is used.
	Indices []int
}

// Preview computes the result of a change without applying it.
func (s *Session) Preview(c Change) (record.EditResult, error) {
	fm, err := s.Fields(c.RecordType)
	if err != nil {
		return record.EditResult{}, err
	}
	pos, ok := fm.Position(c.Field)
	if !ok {
		return record.EditResult{}, fmt.Errorf("field %s is not declared for %s", c.Field, c.RecordType)
	}

	indices := c.Indices
	if len(indices) == 0 {
		indices = s.Selection(c.RecordType).Indices()
	}

	return record.ApplyEdit(s.doc.Body(), record.Edit{
		RecordType: c.RecordType,
		Indices:    indices,
		Position:   pos,
		Value:      c.Value,
	})
}

// Apply previews a change and commits it.
func (s *Session) Apply(c Change) (record.EditResult, error) {
	res, err := s.Preview(c)
	if err != nil {
		return res, err
	}
	s.Commit(c.RecordType, res)

	entry := s.log.WithFields(logrus.Fields{
		"record_type": c.RecordType,
		"field":       c.Field,
		"modified":    res.Modified,
	})
	for _, w := range res.Warnings {
		entry.WithField("line", w.Line).Warn(w.Reason)
	}
	entry.Info("Applied edit")
	return res, nil
}

// Commit makes the body of res the current snapshot and clears the
// selection of recordType. A result that modified nothing leaves the
// snapshot and history untouched.
func (s *Session) Commit(recordType string, res record.EditResult) {
	s.Selection(recordType).Clear()
	if res.Modified == 0 {
		return
	}
	s.history = append(s.history, s.doc)
	s.doc = s.doc.WithBody(res.Body)
}

// Undo restores the snapshot before the last commit.
func (s *Session) Undo() error {
	if len(s.history) == 0 {
		return ErrNothingToUndo
	}
	last := len(s.history) - 1
	s.doc, s.history = s.history[last], s.history[:last]
	s.log.Info("Reverted last edit")
	return nil
}

// =============================================================================
// OUTPUTS
// =============================================================================

// Bytes serializes the current snapshot, signature included, in the
// original encoding and line endings.
func (s *Session) Bytes() ([]byte, error) {
	return s.doc.Bytes()
}

// Summary aggregates the configured records of interest.
func (s *Session) Summary() (summary.Report, error) {
	reg, err := s.Registry()
	if err != nil {
		return summary.Report{}, err
	}
	opts := s.cfg.SummaryOptions()
	rows := summary.Collect(s.doc.Body(), reg, s.cfg.Interest(), opts)
	return summary.Summarize(rows, opts), nil
}

// Project builds the per-record-type tables of the body.
func (s *Session) Project() (*export.Projection, error) {
	reg, err := s.Registry()
	if err != nil {
		return nil, err
	}
	p := export.ProjectByType(s.doc.Body(), reg)
	for recordType, n := range p.Skipped {
		s.log.WithFields(logrus.Fields{"record_type": recordType, "lines": n}).Debug("Record type not in layout, left out of the projection")
	}
	return p, nil
}

// WriteFlat writes every line, signature included, as semicolon separated
// text in the document encoding.
func (s *Session) WriteFlat(w io.Writer) error {
	return export.WriteFlat(w, s.Lines(), s.enc)
}
