package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.Encoding != "ISO-8859-1" || c.Currency != "BRL" || c.ItemsPerPage != 50 {
		t.Errorf("defaults got encoding=%q currency=%q per page=%d", c.Encoding, c.Currency, c.ItemsPerPage)
	}
	if _, ok := c.Summary.Interest["C170"]; !ok {
		t.Errorf("default interest should include C170, got=%v", c.Summary.Interest)
	}
	if err := validateMainConfig(c); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMainConfig(t *testing.T) {
	path := writeConfig(t, `
layout_path: ./layout.txt
encoding: windows-1252
items_per_page: 20
summary:
  interest:
    C190: [CFOP, VL_OPR]
  direction:
    entry_digits: "12"
    exit_digits: "56"
`)

	c, err := LoadMainConfig(path)
	if err != nil {
		t.Fatalf("LoadMainConfig: %v", err)
	}
	if c.LayoutPath != "./layout.txt" || c.ItemsPerPage != 20 {
		t.Errorf("got layout=%q per page=%d", c.LayoutPath, c.ItemsPerPage)
	}
	if want := map[string][]string{"C190": {"CFOP", "VL_OPR"}}; !reflect.DeepEqual(c.Summary.Interest, want) {
		t.Errorf("interest got=%v want=%v", c.Summary.Interest, want)
	}

	opts := c.SummaryOptions()
	if opts.Direction.EntryDigits != "12" || opts.Direction.Field != "IND_OPER" || opts.Direction.CodeField != "CFOP" {
		t.Errorf("direction got=%+v", opts.Direction)
	}
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"multi-byte encoding", "encoding: UTF-8\n", "encoding"},
		{"unknown encoding", "encoding: nope\n", "encoding"},
		{"log level", "log_level: loud\n", "log_level"},
		{"negative page size", "items_per_page: -1\n", "items_per_page"},
		{"overlapping digits", "summary:\n  direction:\n    entry_digits: \"15\"\n    exit_digits: \"5\"\n", "both entry and exit"},
		{"non digit", "summary:\n  direction:\n    entry_digits: \"a\"\n", "not a digit"},
		{"same values", "summary:\n  direction:\n    entry_value: \"1\"\n", "entry_value"},
		{"bad yaml", "encoding: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMainConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err got=%v want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(wd)

	c, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("missing default config should not fail: %v", err)
	}
	if c.Encoding != "ISO-8859-1" {
		t.Errorf("Encoding got=%q", c.Encoding)
	}

	if _, err := LoadOrDefault(filepath.Join(dir, "other.yaml")); err == nil {
		t.Fatalf("missing explicit config should fail")
	}
}
