package export

import (
	"bytes"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/sped-toolkit/internal/layout"
	"github.com/ginjaninja78/sped-toolkit/internal/summary"
	"github.com/ginjaninja78/sped-toolkit/internal/types"
)

const testDescriptor = `|C100|IND_OPER|VL_DOC|VL_BC_ICMS|VL_ICMS||
|C170|NUM_ITEM|CFOP|VL_ITEM||
`

func testRegistry(t *testing.T) *layout.Registry {
	t.Helper()
	reg, err := layout.Parse(strings.NewReader(testDescriptor), "test")
	if err != nil {
		t.Fatalf("layout.Parse: %v", err)
	}
	return reg
}

var testBody = types.Body{
	"|0000|017|0|",
	"|C170|1|5102|100,00|",
	"|C100|0|500,00|500,00|90,00|",
	"|C170|2|",
	"|C100|1|250,00|",
}

func TestProjectByType_NilRegistry(t *testing.T) {
	p := ProjectByType(testBody, nil)

	if len(p.Tables) != 0 {
		t.Errorf("tables got=%v want none", p.Tables)
	}
	if want := map[string]int{"0000": 1, "C170": 2, "C100": 2}; !reflect.DeepEqual(p.Skipped, want) {
		t.Errorf("Skipped got=%v want=%v", p.Skipped, want)
	}
}

func TestProjectByType(t *testing.T) {
	p := ProjectByType(testBody, testRegistry(t))

	if len(p.Tables) != 2 || p.Tables[0].RecordType != "C170" || p.Tables[1].RecordType != "C100" {
		t.Fatalf("tables should follow first appearance, got=%v", p.Tables)
	}
	if want := map[string]int{"0000": 1}; !reflect.DeepEqual(p.Skipped, want) {
		t.Errorf("Skipped got=%v want=%v", p.Skipped, want)
	}

	c170, ok := p.Table("C170")
	if !ok {
		t.Fatalf("C170 table missing")
	}
	if want := []string{"NUM_ITEM", "CFOP", "VL_ITEM"}; !reflect.DeepEqual(c170.Columns, want) {
		t.Errorf("columns got=%v want=%v", c170.Columns, want)
	}
	if want := []int{2, 4}; !reflect.DeepEqual(c170.Lines, want) {
		t.Errorf("lines got=%v want=%v", c170.Lines, want)
	}

	// "|C170|2|" splits into ["", "C170", "2", ""]: CFOP is present but
	// empty, VL_ITEM is beyond the line.
	want := []Cell{{Value: "2"}, {Value: ""}, {Null: true}}
	if !reflect.DeepEqual(c170.Rows[1], want) {
		t.Errorf("short row got=%v want=%v", c170.Rows[1], want)
	}

	for _, tbl := range p.Tables {
		for i, row := range tbl.Rows {
			if len(row) != len(tbl.Columns) {
				t.Errorf("%s row %d has %d cells, want %d", tbl.RecordType, i, len(row), len(tbl.Columns))
			}
		}
	}
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		lines types.Body
		want  string
	}{
		{types.Body{"|C100|0|1,00|"}, "C100;0;1,00"},
		{types.Body{"|A|", "|B||"}, "A\nB;"},
		{types.Body{"no pipes"}, "no pipes"},
		{types.Body{"||"}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Flatten(tt.lines); got != tt.want {
			t.Errorf("Flatten(%q) got=%q want=%q", tt.lines, got, tt.want)
		}
	}
}

func TestWriteFlat_ReplacesUnencodable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFlat(&buf, types.Body{"|0150|ação|€|"}, charmap.ISO8859_1); err != nil {
		t.Fatalf("WriteFlat: %v", err)
	}
	got := buf.Bytes()
	want := append([]byte("0150;a"), 0xE7, 0xE3)
	want = append(want, []byte("o;")...)
	if !bytes.HasPrefix(got, want) {
		t.Fatalf("got=%q want prefix %q", got, want)
	}
	if len(got) != len(want)+1 {
		t.Fatalf("euro sign should become a single replacement byte, got=%q", got)
	}
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	tests := []struct {
		in, want string
	}{
		{"C100", "C100"},
		{"c100", "c100_2"},
		{"A/B:C", "A_B_C"},
		{"[x]*?\\", "_x____"},
		{"", "Sheet"},
		{strings.Repeat("X", 40), strings.Repeat("X", 31)},
		{strings.Repeat("X", 40), strings.Repeat("X", 29) + "_2"},
	}
	for _, tt := range tests {
		if got := SheetName(tt.in, used); got != tt.want {
			t.Errorf("SheetName(%q) got=%q want=%q", tt.in, got, tt.want)
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	p := ProjectByType(testBody, testRegistry(t))

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, p); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if want := []string{"C170", "C100"}; !reflect.DeepEqual(f.GetSheetList(), want) {
		t.Fatalf("sheets got=%v want=%v", f.GetSheetList(), want)
	}

	rows, err := f.GetRows("C100")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows got=%d want=3", len(rows))
	}
	if want := []string{"IND_OPER", "VL_DOC", "VL_BC_ICMS", "VL_ICMS"}; !reflect.DeepEqual(rows[0], want) {
		t.Errorf("header got=%v want=%v", rows[0], want)
	}
	if len(rows[2]) < 2 || rows[2][0] != "1" || rows[2][1] != "250,00" {
		t.Errorf("short row got=%v", rows[2])
	}
	for _, v := range rows[2][2:] {
		if v != "" {
			t.Errorf("short row should end with empty cells, got=%v", rows[2])
		}
	}
}

func TestWriteSummaryXLSX(t *testing.T) {
	reg := testRegistry(t)
	rows := summary.Collect(testBody, reg, summary.DefaultInterest(), summary.Options{})
	rep := summary.Summarize(rows, summary.Options{})

	var buf bytes.Buffer
	if err := WriteSummaryXLSX(&buf, rep); err != nil {
		t.Fatalf("WriteSummaryXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if want := []string{TotalsSheet, "By CFOP", DirectionSheet}; !reflect.DeepEqual(f.GetSheetList(), want) {
		t.Fatalf("sheets got=%v want=%v", f.GetSheetList(), want)
	}

	dir, err := f.GetRows(DirectionSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(dir) < 2 || dir[0][1] != "Count" {
		t.Fatalf("direction rows got=%v", dir)
	}

	count, err := f.GetCellValue(TotalsSheet, "B"+strconv.Itoa(len(rep.TotalFields)+3))
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if count != strconv.Itoa(rep.Rows) {
		t.Errorf("record count got=%q want=%d", count, rep.Rows)
	}
}
