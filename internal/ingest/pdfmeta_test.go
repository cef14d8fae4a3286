package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/bookdesk/internal/media"
)

const minimalPDF = `%PDF-1.4
1 0 obj
<< /Type /Catalog /Pages 2 0 R >>
endobj
2 0 obj
<< /Type /Pages /Kids [] /Count 0 >>
endobj
4 0 obj
<<
/Title (Physics \(Class 11\))
/Author (R. Sharma)
/Subject <FEFF004E0043004500520054>
>>
endobj
trailer
<< /Size 5 /Root 1 0 R /Info 4 0 R >>
%%EOF`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

// --- ReadPDFInfo ---

func TestReadPDFInfo(t *testing.T) {
	info, err := ReadPDFInfo(writeFile(t, "doc.pdf", minimalPDF))
	if err != nil {
		t.Fatalf("ReadPDFInfo: %v", err)
	}
	if info.Title != "Physics (Class 11)" {
		t.Errorf("Title = %q, want %q", info.Title, "Physics (Class 11)")
	}
	if info.Author != "R. Sharma" {
		t.Errorf("Author = %q, want %q", info.Author, "R. Sharma")
	}
	if info.Subject != "NCERT" {
		t.Errorf("Subject = %q, want %q", info.Subject, "NCERT")
	}
}

func TestReadPDFInfo_Tail(t *testing.T) {
	body := "%PDF-1.4\n" + strings.Repeat("%padding\n", 4000) + "<< /Title (At the end) >>\n%%EOF"
	info, err := ReadPDFInfo(writeFile(t, "long.pdf", body))
	if err != nil {
		t.Fatalf("ReadPDFInfo: %v", err)
	}
	if info.Title != "At the end" {
		t.Errorf("Title = %q, want %q", info.Title, "At the end")
	}
}

func TestReadPDFInfo_Missing(t *testing.T) {
	if _, err := ReadPDFInfo(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

// --- DefaultPDFName ---

func TestDefaultPDFName_UsesTitle(t *testing.T) {
	if got := DefaultPDFName(media.File{Path: writeFile(t, "x.pdf", minimalPDF)}); got != "Physics (Class 11)" {
		t.Errorf("DefaultPDFName = %q, want %q", got, "Physics (Class 11)")
	}
}

func TestDefaultPDFName_FallsBackToFilename(t *testing.T) {
	p := writeFile(t, "chemistry-notes.pdf", "%PDF-1.4\n%%EOF")
	if got := DefaultPDFName(media.File{Path: p}); got != "chemistry-notes" {
		t.Errorf("DefaultPDFName = %q, want %q", got, "chemistry-notes")
	}
}

func TestDefaultPDFName_PrefersDeclaredName(t *testing.T) {
	p := writeFile(t, "01J0000000-syllabus.pdf", "%PDF-1.4\n%%EOF")
	if got := DefaultPDFName(media.File{Path: p, Name: "syllabus.pdf"}); got != "syllabus" {
		t.Errorf("DefaultPDFName = %q, want %q", got, "syllabus")
	}
}

// --- decodeHex ---

func TestDecodeHex(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"48656C6C6F", "Hello"},
		{"FEFF00480069", "Hi"},
		{"FE FF 00 4F 00 4B", "OK"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := decodeHex(tt.in); got != tt.want {
			t.Errorf("decodeHex(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnescapeLiteral(t *testing.T) {
	if got := unescapeLiteral(`a\(b\)\\c`); got != `a(b)\c` {
		t.Errorf("unescapeLiteral = %q, want %q", got, `a(b)\c`)
	}
}
