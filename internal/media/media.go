// Package media stages local files against a draft's media slots. A slot is
// either persisted (remote URL) or pending (local file plus a preview
// handle). Every preview handle acquired here is released exactly once.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Category is the kind of file a slot accepts.
type Category string

const (
	Image Category = "image"
	Video Category = "video"
	PDF   Category = "pdf"
)

// Accepts reports whether a MIME type belongs to the category.
func (c Category) Accepts(mimeType string) bool {
	mt, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mimeType)), ";")
	switch c {
	case Image:
		return strings.HasPrefix(mt, "image/")
	case Video:
		return strings.HasPrefix(mt, "video/")
	case PDF:
		return mt == "application/pdf"
	}
	return false
}

func (c Category) noun() string {
	if c == PDF {
		return "PDF"
	}
	return string(c)
}

// Limits bounds one media field.
type Limits struct {
	Max      int   // slot count, persisted and pending together
	MaxBytes int64 // 0 means unlimited
	Category Category
}

// Code identifies which constraint a file broke.
type Code string

const (
	CodeTooMany  Code = "too_many"
	CodeTooLarge Code = "too_large"
	CodeBadType  Code = "bad_type"
)

// ErrConstraint matches every *ConstraintError with errors.Is.
var ErrConstraint = errors.New("file constraint")

// ErrReleased is returned when a preview handle is released twice or was
// never issued.
var ErrReleased = errors.New("preview already released")

// ErrClosed is returned by Stage after the stager was closed.
var ErrClosed = errors.New("stager closed")

// ConstraintError is a file rejected at selection time.
type ConstraintError struct {
	Code    Code
	File    string
	Message string
}

func (e *ConstraintError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrConstraint) true.
func (e *ConstraintError) Is(target error) bool { return target == ErrConstraint }

// File is a local file offered for staging. Size and MIMEType are the
// declared values; Describe fills them from disk when missing.
type File struct {
	Name     string
	Path     string
	Size     int64
	MIMEType string
}

// Describe fills Name, Size and MIMEType from the file on disk where they
// are unset.
func Describe(f File) (File, error) {
	if f.Name == "" {
		f.Name = filepath.Base(f.Path)
	}
	if f.Size <= 0 || f.MIMEType == "" {
		fi, err := os.Stat(f.Path)
		if err != nil {
			return f, fmt.Errorf("reading %q: %w", f.Path, err)
		}
		if fi.IsDir() {
			return f, fmt.Errorf("%q is a directory", f.Path)
		}
		if f.Size <= 0 {
			f.Size = fi.Size()
		}
	}
	if f.MIMEType == "" {
		mt, err := mimetype.DetectFile(f.Path)
		if err != nil {
			return f, fmt.Errorf("detecting type of %q: %w", f.Path, err)
		}
		f.MIMEType = mt.String()
	}
	return f, nil
}

// Preview is a locally generated view of a pending file.
type Preview struct {
	Handle string
	URL    string
}

// Slot is one media attachment.
type Slot struct {
	URL     string // persisted only
	Alt     string
	File    *File // pending only
	Preview Preview
}

// Pending reports whether the slot holds a local file.
func (s Slot) Pending() bool { return s.File != nil }

func tooMany(l Limits) *ConstraintError {
	noun := l.Category.noun()
	if l.Max != 1 {
		noun += "s"
	}
	return &ConstraintError{Code: CodeTooMany, Message: fmt.Sprintf("Maximum %d %s allowed", l.Max, noun)}
}

func tooLarge(l Limits, f File) *ConstraintError {
	noun := l.Category.noun()
	if noun != "PDF" {
		noun = strings.ToUpper(noun[:1]) + noun[1:]
	}
	return &ConstraintError{
		Code:    CodeTooLarge,
		File:    f.Name,
		Message: fmt.Sprintf("%s size should be less than %s", noun, humanBytes(l.MaxBytes)),
	}
}

func badType(l Limits, f File) *ConstraintError {
	return &ConstraintError{
		Code:    CodeBadType,
		File:    f.Name,
		Message: fmt.Sprintf("Please upload only %s files", l.Category.noun()),
	}
}

func humanBytes(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%.1fMB", float64(n)/mb)
}
