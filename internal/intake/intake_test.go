package intake_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wordxl/internal/intake"
	"wordxl/internal/testsupport"
)

func TestAccepts(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.docx", true},
		{"REPORT.DOCX", true},
		{"legacy.Doc", true},
		{"notes.rtf", true},
		{"sheet.odt", true},
		{"archive.zip", false},
		{"docx", false},
		{"image.docx.png", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := intake.Accepts(tt.name); got != tt.want {
			t.Fatalf("Accepts(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPickFiltersFilesAndNamesByBase(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "a.docx")
	txt := filepath.Join(dir, "b.txt")
	testsupport.WriteFile(t, doc, 128)
	testsupport.WriteFile(t, txt, 16)

	got, err := intake.Pick(doc, txt)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one candidate, got %d", len(got))
	}
	if got[0].Name != "a.docx" || got[0].Size != 128 {
		t.Fatalf("unexpected candidate %+v", got[0])
	}
	if !filepath.IsAbs(got[0].Path) {
		t.Fatalf("expected absolute path, got %q", got[0].Path)
	}
}

func TestPickFolderUsesRelativeNames(t *testing.T) {
	root := filepath.Join(t.TempDir(), "reports")
	testsupport.WriteFile(t, filepath.Join(root, "q1.docx"), 10)
	testsupport.WriteFile(t, filepath.Join(root, "2024", "q2.ODT"), 10)
	testsupport.WriteFile(t, filepath.Join(root, "2024", "chart.png"), 10)

	got, err := intake.Pick(root)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	names := make([]string, 0, len(got))
	for _, c := range got {
		names = append(names, c.Name)
	}
	want := []string{"reports/2024/q2.ODT", "reports/q1.docx"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("names = %v, want %v", names, want)
	}
}

func TestDropSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	folder := filepath.Join(dir, "folder.docx")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(folder, "inner.docx"), 10)
	file := filepath.Join(dir, "memo.rtf")
	testsupport.WriteFile(t, file, 10)

	got, err := intake.Drop(folder, file)
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if len(got) != 1 || got[0].Name != "memo.rtf" {
		t.Fatalf("expected only memo.rtf, got %+v", got)
	}
}

func TestPickMissingPathIsValidationError(t *testing.T) {
	_, err := intake.Pick(filepath.Join(t.TempDir(), "missing.docx"))
	if err == nil {
		t.Fatal("expected error for missing path")
	}
	if !strings.Contains(err.Error(), "missing.docx") {
		t.Fatalf("expected path in error, got %v", err)
	}
}

func TestPickNormalizesNamesToNFC(t *testing.T) {
	dir := t.TempDir()
	decomposed := "Re\u0301sume\u0301.docx"
	testsupport.WriteFile(t, filepath.Join(dir, decomposed), 4)

	got, err := intake.Drop(filepath.Join(dir, decomposed))
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one candidate, got %d", len(got))
	}
	if got[0].Name != "R\u00e9sum\u00e9.docx" {
		t.Fatalf("expected NFC name, got %q", got[0].Name)
	}
}

func TestStageIDsAreUniquePerOrder(t *testing.T) {
	c := intake.Candidate{Name: "a.docx", Size: 10, ModTime: time.UnixMilli(1700000000000)}
	first := intake.Stage(c, 0)
	second := intake.Stage(c, 1)
	if first.ID == second.ID {
		t.Fatalf("expected distinct IDs, both %q", first.ID)
	}
	if first.ID != "a.docx-10-1700000000000-0" {
		t.Fatalf("unexpected ID %q", first.ID)
	}
	if first.Status != intake.StatusPending {
		t.Fatalf("expected pending, got %s", first.Status)
	}
}

func TestSummarize(t *testing.T) {
	files := []intake.StagedFile{
		{Status: intake.StatusPending, Size: 1000},
		{Status: intake.StatusConverting, Size: 1000},
		{Status: intake.StatusSuccess, Size: 500},
		{Status: intake.StatusError},
	}
	s := intake.Summarize(files)
	if s.Total != 4 || s.Pending != 1 || s.Converting != 1 || s.Succeeded != 1 || s.Failed != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Bytes != 2500 || s.BytesLabel() != "2.5 kB" {
		t.Fatalf("unexpected bytes %d (%s)", s.Bytes, s.BytesLabel())
	}
}
