package shell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blackwell-systems/bookdesk/internal/form"
)

var (
	// ErrBusy is returned when a form is opened while another is open.
	ErrBusy = errors.New("another form is already open")

	// ErrInFlight is returned when a submit or delete is already running.
	// No request is sent.
	ErrInFlight = errors.New("operation already in progress")

	// ErrConfirmationAborted is returned when the user declines a
	// destructive action. Callers treat it as a no-op.
	ErrConfirmationAborted = errors.New("confirmation declined")

	// ErrNoDraft is returned by draft operations when no form is open.
	ErrNoDraft = errors.New("no form is open")

	// ErrUnsupported is returned for operations the dashboard does not offer.
	ErrUnsupported = errors.New("operation not supported by this dashboard")

	// ErrInvalid matches every *ValidationError.
	ErrInvalid = errors.New("validation failed")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("dashboard closed")

	// ErrNotFound is returned when an ID is not in the loaded list.
	ErrNotFound = errors.New("record not in list")
)

// ValidationError carries a failed draft validation. It is never the
// result of a network call.
type ValidationError struct {
	Result form.Result
	Order  []string // failing fields in schema order
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Order))
	for _, f := range e.Order {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Result.Errors[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInvalid) true.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }
