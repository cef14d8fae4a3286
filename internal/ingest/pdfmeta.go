package ingest

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/blackwell-systems/bookdesk/internal/media"
)

// PDFInfo is the document information dictionary of a PDF.
type PDFInfo struct {
	Title   string
	Author  string
	Subject string
}

// chunk is how much of the head and tail of a PDF is scanned; the info
// dictionary normally sits in one of them.
const chunk = 16 << 10

var infoPatterns = map[string][2]*regexp.Regexp{}

func init() {
	for _, key := range []string{"Title", "Author", "Subject"} {
		infoPatterns[key] = [2]*regexp.Regexp{
			regexp.MustCompile(`/` + key + `\s*\(((?:\\.|[^\\)])*)\)`),
			regexp.MustCompile(`/` + key + `\s*<([0-9A-Fa-f\s]+)>`),
		}
	}
}

// ReadPDFInfo extracts the info dictionary from an unencrypted PDF. Fields
// that cannot be found are left empty; compressed object streams are not
// inflated.
func ReadPDFInfo(path string) (PDFInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return PDFInfo{}, err
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return PDFInfo{}, err
	}
	head := make([]byte, min(fi.Size(), chunk))
	if _, err := io.ReadFull(f, head); err != nil {
		return PDFInfo{}, err
	}
	text := string(head)
	if fi.Size() > chunk {
		tail := make([]byte, min(fi.Size()-chunk, chunk))
		if _, err := f.ReadAt(tail, fi.Size()-int64(len(tail))); err != nil && err != io.EOF {
			return PDFInfo{}, err
		}
		text += string(tail)
	}

	return PDFInfo{
		Title:   infoField(text, "Title"),
		Author:  infoField(text, "Author"),
		Subject: infoField(text, "Subject"),
	}, nil
}

// DefaultPDFName is the name a PDF upload gets when none is given: the
// document title, else the file name without extension. A downloaded file
// keeps the name it had on the server.
func DefaultPDFName(f media.File) string {
	if info, err := ReadPDFInfo(f.Path); err == nil && info.Title != "" {
		return info.Title
	}
	name := f.Name
	if name == "" {
		name = filepath.Base(f.Path)
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func infoField(text, key string) string {
	p := infoPatterns[key]
	if m := p[0].FindStringSubmatch(text); m != nil {
		return unescapeLiteral(m[1])
	}
	if m := p[1].FindStringSubmatch(text); m != nil {
		return decodeHex(m[1])
	}
	return ""
}

var literalEscapes = strings.NewReplacer(
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\(`, "(",
	`\)`, ")",
	`\\`, `\`,
)

func unescapeLiteral(s string) string {
	return strings.TrimSpace(literalEscapes.Replace(s))
}

// decodeHex decodes a hex string, as UTF-16BE when it carries a BOM.
func decodeHex(h string) string {
	h = strings.Join(strings.Fields(h), "")
	if len(h)%2 == 1 {
		h += "0"
	}
	raw := make([]byte, len(h)/2)
	for i := range raw {
		raw[i] = nibble(h[2*i])<<4 | nibble(h[2*i+1])
	}
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		raw = raw[2:]
		u := make([]uint16, len(raw)/2)
		for i := range u {
			u[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
		}
		return strings.TrimSpace(string(utf16.Decode(u)))
	}
	return strings.TrimSpace(string(raw))
}

func nibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
