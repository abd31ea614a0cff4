package session

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ginjaninja78/sped-toolkit/internal/config"
	"github.com/ginjaninja78/sped-toolkit/internal/summary"
)

const testDescriptor = `|C100|IND_OPER|VL_DOC|VL_BC_ICMS|VL_ICMS||
|C170|NUM_ITEM|CFOP|VL_ITEM|VL_BC_ICMS|VL_ICMS||
`

const testSPED = "|0000|017|0|\r\n" +
	"|C100|0|1.000,00|1.000,00|180,00|\r\n" +
	"|C170|1|1102|1.000,00|1.000,00|180,00|\r\n" +
	"|C100|1|500,00|500,00|90,00|\r\n" +
	"|C170|1|5102|500,00|500,00|90,00|\r\n" +
	"|9001|0|\r\n" +
	"|9999|7|\r\n"

func setup(t *testing.T, withLayout bool) (*Session, *test.Hook) {
	t.Helper()
	dir := t.TempDir()

	spedPath := filepath.Join(dir, "efd.txt")
	if err := os.WriteFile(spedPath, []byte(testSPED), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := config.Default()
	if withLayout {
		cfg.LayoutPath = filepath.Join(dir, "layout.txt")
		if err := os.WriteFile(cfg.LayoutPath, []byte(testDescriptor), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	s, err := Open(spedPath, cfg, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, hook
}

func TestOpen_RoundTrip(t *testing.T) {
	s, hook := setup(t, false)

	got, err := s.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(got, []byte(testSPED)) {
		t.Fatalf("round trip changed the file:\n%q", got)
	}
	if len(s.Body()) != 5 || len(s.Lines()) != 7 {
		t.Errorf("body=%d lines=%d want 5 and 7", len(s.Body()), len(s.Lines()))
	}

	if e := hook.LastEntry(); e == nil || e.Data["session"] != s.ID() {
		t.Errorf("log entries should carry the session id, got=%v", e)
	}
}

func TestWithoutLayout(t *testing.T) {
	s, _ := setup(t, false)

	if _, err := s.Types(); !errors.Is(err, ErrNoLayout) {
		t.Errorf("Types err got=%v want ErrNoLayout", err)
	}
	if _, err := s.Summary(); !errors.Is(err, ErrNoLayout) {
		t.Errorf("Summary err got=%v want ErrNoLayout", err)
	}

	// Raw operations keep working.
	if want := map[string]int{"0000": 1, "C100": 2, "C170": 2}; !reflect.DeepEqual(s.Counts(), want) {
		t.Errorf("Counts got=%v want=%v", s.Counts(), want)
	}
	matches, _, err := s.Filter(Query{RecordType: "C170", Text: "5102"})
	if err != nil || len(matches) != 1 {
		t.Errorf("text filter got=%v err=%v", matches, err)
	}
	var buf bytes.Buffer
	if err := s.WriteFlat(&buf); err != nil {
		t.Fatalf("WriteFlat: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "0000;017;0\n") || !strings.HasSuffix(buf.String(), "9999;7") {
		t.Errorf("flat export got=%q", buf.String())
	}
}

func TestBrokenLayout(t *testing.T) {
	s, hook := setup(t, false)
	s.cfg.LayoutPath = filepath.Join(t.TempDir(), "missing.txt")

	if _, err := s.Types(); err == nil {
		t.Fatalf("expected a layout error")
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Errorf("a broken layout should be logged as a warning")
	}
	if _, err := s.Bytes(); err != nil {
		t.Errorf("Bytes should not depend on the layout: %v", err)
	}
}

func TestEditCommitUndo(t *testing.T) {
	s, _ := setup(t, true)

	present, err := s.Types()
	if err != nil {
		t.Fatalf("Types: %v", err)
	}
	if want := []string{"C100", "C170"}; !reflect.DeepEqual(present, want) {
		t.Errorf("Types got=%v want=%v", present, want)
	}

	page, _, err := s.Page(Query{RecordType: "C170", Where: map[string]string{"CFOP": "5"}}, 1)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if page.TotalItems != 1 || page.Items[0].Index != 4 {
		t.Fatalf("page got=%+v", page)
	}

	s.Selection("C170").SetPage(page, true)
	res, err := s.Apply(Change{RecordType: "C170", Field: "CFOP", Value: "6102"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Modified != 1 {
		t.Fatalf("Modified got=%d want=1", res.Modified)
	}
	if s.Selection("C170").Len() != 0 {
		t.Errorf("commit should clear the selection")
	}
	if s.Versions() != 1 {
		t.Errorf("Versions got=%d want=1", s.Versions())
	}

	got, _ := s.Bytes()
	want := strings.Replace(testSPED, "|5102|", "|6102|", 1)
	if string(got) != want {
		t.Fatalf("edited file got=%q want=%q", got, want)
	}

	if err := s.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got, _ := s.Bytes(); string(got) != testSPED {
		t.Errorf("undo did not restore the original")
	}
	if err := s.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("second Undo err got=%v", err)
	}
}

func TestPreviewDoesNotCommit(t *testing.T) {
	s, _ := setup(t, true)

	res, err := s.Preview(Change{RecordType: "C100", Field: "IND_OPER", Value: "1", Indices: []int{1}})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if res.Modified != 1 || s.Versions() != 0 {
		t.Errorf("Modified=%d Versions=%d", res.Modified, s.Versions())
	}
	if s.Body()[1] != "|C100|0|1.000,00|1.000,00|180,00|" {
		t.Errorf("preview changed the session body")
	}

	if _, err := s.Preview(Change{RecordType: "C100", Field: "NOPE", Value: "1"}); err == nil {
		t.Errorf("expected an error for an undeclared field")
	}
}

func TestSummary(t *testing.T) {
	s, _ := setup(t, true)

	rep, err := s.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if rep.Rows != 4 {
		t.Errorf("Rows got=%d want=4", rep.Rows)
	}
	if rep.DirectionBasis != summary.BasisCode {
		t.Errorf("DirectionBasis got=%s", rep.DirectionBasis)
	}
	if !rep.Totals["VL_ICMS"].Equal(decimal.NewFromInt(540)) {
		t.Errorf("VL_ICMS total got=%s want=540", rep.Totals["VL_ICMS"])
	}
}

func TestProject(t *testing.T) {
	s, _ := setup(t, true)

	p, err := s.Project()
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(p.Tables) != 2 || p.Skipped["0000"] != 1 {
		t.Errorf("projection got tables=%d skipped=%v", len(p.Tables), p.Skipped)
	}
}
