package layout

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const sampleDescriptor = `|0000|REG|COD_VER|COD_FIN||
|C100|IND_OPER|VL_DOC||
|C170|NUM_ITEM|COD_ITEM||CFOP|VL_ITEM||
|9999|QTD_LIN||
`

func TestParse_Positions(t *testing.T) {
	reg, err := Parse(strings.NewReader("|C100|IND_OPER|VL_DOC||"), "inline")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got, ok := reg.Fields("C100")
	if !ok {
		t.Fatalf("C100 not declared")
	}
	if p, _ := got.Position("IND_OPER"); p != 2 {
		t.Errorf("IND_OPER position got=%d want=2", p)
	}
	if p, _ := got.Position("VL_DOC"); p != 3 {
		t.Errorf("VL_DOC position got=%d want=3", p)
	}
	if got.Len() != 2 {
		t.Errorf("field count got=%d want=2", got.Len())
	}
}

func TestParse_SkipsEmptyFieldNames(t *testing.T) {
	reg, err := Parse(strings.NewReader(sampleDescriptor), "sample")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	fm, _ := reg.Fields("C170")
	if want := []string{"NUM_ITEM", "COD_ITEM", "CFOP", "VL_ITEM"}; !reflect.DeepEqual(fm.Names(), want) {
		t.Fatalf("names got=%v want=%v", fm.Names(), want)
	}
	// The empty column between COD_ITEM and CFOP still consumes a position.
	if p, _ := fm.Position("CFOP"); p != 5 {
		t.Errorf("CFOP position got=%d want=5", p)
	}
	if name, ok := fm.NameAt(4); ok {
		t.Errorf("position 4 should be unnamed, got %q", name)
	}
}

func TestParse_RecordWithoutFieldsIsKept(t *testing.T) {
	reg, err := Parse(strings.NewReader("|9990|||\n"), "sample")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fm, ok := reg.Fields("9990")
	if !ok {
		t.Fatalf("9990 should be declared")
	}
	if fm.Len() != 0 {
		t.Errorf("field count got=%d want=0", fm.Len())
	}
}

func TestParse_SkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"# comment",
		"",
		"|X|",
		"||IND_OPER||",
		"|C100|IND_OPER||",
	}, "\n")

	reg, err := Parse(strings.NewReader(input), "sample")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := []string{"C100"}; !reflect.DeepEqual(reg.Types(), want) {
		t.Fatalf("types got=%v want=%v", reg.Types(), want)
	}
	if len(reg.Warnings()) != 2 {
		t.Errorf("warnings got=%v want 2 entries", reg.Warnings())
	}
}

func TestParse_EmptyDescriptor(t *testing.T) {
	_, err := Parse(strings.NewReader("nothing here\n|X|\n"), "empty")
	if !errors.Is(err, ErrEmptyLayout) {
		t.Fatalf("err got=%v want ErrEmptyLayout", err)
	}
}

func TestParse_BOMAndCRLF(t *testing.T) {
	input := "\ufeff|C100|IND_OPER|VL_DOC||\r\n|D100|IND_OPER||\r\n"
	reg, err := Parse(strings.NewReader(input), "bom")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := []string{"C100", "D100"}; !reflect.DeepEqual(reg.Types(), want) {
		t.Fatalf("types got=%v want=%v", reg.Types(), want)
	}
	if p, ok := reg.Position("C100", "VL_DOC"); !ok || p != 3 {
		t.Errorf("VL_DOC position got=%d,%v want=3,true", p, ok)
	}
}

func TestParse_Idempotent(t *testing.T) {
	a, err := Parse(strings.NewReader(sampleDescriptor), "a")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	b, err := Parse(strings.NewReader(sampleDescriptor), "a")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("loading twice produced different registries")
	}
}

func TestParse_RepeatedDeclarations(t *testing.T) {
	input := "|C100|A|B||\n|C100|X|Y|X||\n"
	reg, err := Parse(strings.NewReader(input), "dup")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fm, _ := reg.Fields("C100")
	if want := []string{"X", "Y"}; !reflect.DeepEqual(fm.Names(), want) {
		t.Fatalf("names got=%v want=%v", fm.Names(), want)
	}
	if p, _ := fm.Position("X"); p != 4 {
		t.Errorf("X position got=%d want=4", p)
	}
	if len(reg.Warnings()) != 2 {
		t.Errorf("warnings got=%v want 2 entries", reg.Warnings())
	}
}

func TestParseXLSX(t *testing.T) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]interface{}{
		{"C100", "IND_OPER", "VL_DOC"},
		{},
		{"C170", "NUM_ITEM", "", "CFOP"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	reg, err := ParseXLSX(&buf, "layout.xlsx", XLSXOptions{})
	if err != nil {
		t.Fatalf("ParseXLSX: %v", err)
	}
	if p, _ := reg.Position("C100", "VL_DOC"); p != 3 {
		t.Errorf("C100.VL_DOC got=%d want=3", p)
	}
	if p, _ := reg.Position("C170", "CFOP"); p != 4 {
		t.Errorf("C170.CFOP got=%d want=4", p)
	}
	if reg.Len() != 2 {
		t.Errorf("record types got=%d want=2", reg.Len())
	}
}

func TestCached(t *testing.T) {
	ResetCache()
	t.Cleanup(ResetCache)

	path := filepath.Join(t.TempDir(), "layout.txt")
	if err := os.WriteFile(path, []byte(sampleDescriptor), 0644); err != nil {
		t.Fatal(err)
	}

	first, err := Cached(path)
	if err != nil {
		t.Fatalf("Cached: %v", err)
	}
	// Later edits on disk are not seen until the cache is reset.
	if err := os.WriteFile(path, []byte("|Z999|A||\n"), 0644); err != nil {
		t.Fatal(err)
	}
	second, err := Cached(path)
	if err != nil {
		t.Fatalf("Cached: %v", err)
	}
	if first != second {
		t.Fatalf("expected the cached registry to be reused")
	}
}

func TestCached_MissingFileNotCached(t *testing.T) {
	ResetCache()
	t.Cleanup(ResetCache)

	path := filepath.Join(t.TempDir(), "later.txt")
	if _, err := Cached(path); err == nil {
		t.Fatalf("expected an error for a missing descriptor")
	}
	if err := os.WriteFile(path, []byte(sampleDescriptor), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Cached(path); err != nil {
		t.Fatalf("Cached after creating the file: %v", err)
	}
}
