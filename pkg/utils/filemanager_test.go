package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/sped-toolkit/internal/types"
)

func TestGenerateOutputFileName(t *testing.T) {
	tests := []struct {
		format string
		params map[string]string
		ext    string
		want   string
	}{
		{"sped_{type}_alterado", map[string]string{"type": "C170"}, ".txt", "sped_C170_alterado.txt"},
		{"sped_{type}_alterado", nil, ".txt", "sped_{type}_alterado.txt"},
		{"sped_{type}_{original}", map[string]string{"type": "", "original": "efd"}, ".xlsx", "sped_efd.xlsx"},
		{"report.TXT", nil, ".txt", "report.TXT"},
		{"{type}", map[string]string{"type": ""}, ".csv", "sped.csv"},
	}
	for _, tt := range tests {
		if got := GenerateOutputFileName(tt.format, tt.params, tt.ext); got != tt.want {
			t.Errorf("GenerateOutputFileName(%q, %v) got=%q want=%q", tt.format, tt.params, got, tt.want)
		}
	}

	name := GenerateOutputFileName("{uuid}", nil, ".txt")
	if len(name) != 36+len(".txt") {
		t.Errorf("uuid name got=%q", name)
	}
}

func TestOutputPath(t *testing.T) {
	fm := NewFileManager("out", "sped_{original}_{type}")

	if got := fm.OutputPath("explicit.txt", "in/efd.txt", nil, ".txt"); got != "explicit.txt" {
		t.Errorf("explicit got=%q", got)
	}
	want := filepath.Join("out", "sped_efd_C100.txt")
	if got := fm.OutputPath("", "in/efd.txt", map[string]string{"type": "C100"}, ".txt"); got != want {
		t.Errorf("generated got=%q want=%q", got, want)
	}
}

func TestWriteOutput_BacksUpExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")
	fm := NewFileManager(dir, "{original}")

	backup, err := fm.WriteOutput(path, []byte("first"))
	if err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}
	if backup != "" {
		t.Errorf("first write should not back up, got=%q", backup)
	}

	backup, err = fm.WriteOutput(path, []byte("second"))
	if err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}
	if backup != path+".bak" {
		t.Fatalf("backup got=%q want=%q", backup, path+".bak")
	}

	got, _ := os.ReadFile(path)
	old, _ := os.ReadFile(backup)
	if string(got) != "second" || string(old) != "first" {
		t.Errorf("contents got=%q backup=%q", got, old)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestWriteWarningLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteWarningLog(WarningLog{FileName: "efd.txt"}, dir)
	if err != nil || path != "" {
		t.Fatalf("empty log got=%q err=%v", path, err)
	}

	path, err = WriteWarningLog(WarningLog{
		FileName:  "efd.txt",
		Operation: "edit C170.CFOP",
		Warnings:  []types.Warning{types.Warnf(12, "line is no longer a C170 record; skipped")},
	}, dir)
	if err != nil {
		t.Fatalf("WriteWarningLog: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for _, want := range []string{"efd.txt", "edit C170.CFOP", "Warnings:  1", "line 12: line is no longer a C170 record"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log missing %q:\n%s", want, data)
		}
	}
}
