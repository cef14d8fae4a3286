package ingest

import (
	"fmt"
	"io"
)

// Reader counts bytes in flight and fails once more than max bytes have
// been read. A max of 0 disables the cap.
type Reader struct {
	r    io.Reader
	max  int64
	size int64
}

// NewReader wraps r.
func NewReader(r io.Reader, max int64) *Reader {
	return &Reader{r: r, max: max}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.size += int64(n)
	if r.max > 0 && r.size > r.max {
		return n, fmt.Errorf("%w (%d bytes)", ErrTooLarge, r.max)
	}
	return n, err
}

// Size returns the bytes read so far.
func (r *Reader) Size() int64 { return r.size }
