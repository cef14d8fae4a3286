package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Form is a multipart/form-data request body. Fields and files are written
// in the order they were added.
type Form struct {
	parts []formPart
}

type formPart struct {
	name        string
	value       string
	filename    string
	contentType string
	open        func() (io.ReadCloser, error)
}

// NewForm returns an empty multipart body.
func NewForm() *Form {
	return &Form{}
}

// Set appends a text field. Repeated names are sent as repeated parts.
func (f *Form) Set(name, value string) *Form {
	f.parts = append(f.parts, formPart{name: name, value: value})
	return f
}

// SetJSON appends a field holding the JSON encoding of v. List fields such
// as "books" and "subjects" travel this way.
func (f *Form) SetJSON(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	f.Set(name, string(b))
	return nil
}

// AddFile appends a file part read from path. The content type is sniffed
// from the file when contentType is empty.
func (f *Form) AddFile(field, path, contentType string) *Form {
	f.parts = append(f.parts, formPart{
		name:        field,
		filename:    filepath.Base(path),
		contentType: contentType,
		open:        func() (io.ReadCloser, error) { return os.Open(path) },
	})
	return f
}

// Values returns the text values for a field.
func (f *Form) Values(name string) []string {
	var out []string
	for _, p := range f.parts {
		if p.open == nil && p.name == name {
			out = append(out, p.value)
		}
	}
	return out
}

// Files returns the filenames attached under a field.
func (f *Form) Files(field string) []string {
	var out []string
	for _, p := range f.parts {
		if p.open != nil && p.name == field {
			out = append(out, p.filename)
		}
	}
	return out
}

// HasFiles reports whether any file part is attached.
func (f *Form) HasFiles() bool {
	for _, p := range f.parts {
		if p.open != nil {
			return true
		}
	}
	return false
}

// encode streams the form through a pipe so large videos are never held
// in memory. The returned content type carries the boundary.
func (f *Form) encode() (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(f.write(mw))
	}()
	return pr, mw.FormDataContentType()
}

func (f *Form) write(mw *multipart.Writer) error {
	for _, p := range f.parts {
		if p.open == nil {
			if err := mw.WriteField(p.name, p.value); err != nil {
				return err
			}
			continue
		}
		if err := writeFile(mw, p); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFile(mw *multipart.Writer, p formPart) error {
	rc, err := p.open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", p.filename, err)
	}
	defer rc.Close()

	ct := p.contentType
	var r io.Reader = rc
	if ct == "" {
		// Sniff from the head of the stream, then replay it.
		head := make([]byte, 3072)
		n, err := io.ReadFull(rc, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return fmt.Errorf("reading %s: %w", p.filename, err)
		}
		head = head[:n]
		ct = mimetype.Detect(head).String()
		r = io.MultiReader(bytes.NewReader(head), rc)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(p.name), escapeQuotes(p.filename)))
	h.Set("Content-Type", ct)
	w, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
