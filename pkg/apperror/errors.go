package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds. Every error leaving a usecase wraps exactly one of these.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store failure")
	ErrProvider   = errors.New("provider failure")
)

// Error carries the failing operation alongside its kind
type Error struct {
	Op   string // Operation that failed, e.g. "task.Create"
	Kind error  // One of the Err* kinds above
	Msg  string // Human readable detail
	Err  error  // Underlying error, may be nil
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 && e.Kind != nil {
		return e.Kind.Error()
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Validation reports a missing or malformed request field
func Validation(op, format string, args ...interface{}) error {
	return &Error{Op: op, Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports that a referenced document does not exist
func NotFound(op, format string, args ...interface{}) error {
	return &Error{Op: op, Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Store wraps a failed database operation. Errors that already carry a kind pass through.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if hasKind(err) {
		return err
	}
	return &Error{Op: op, Kind: ErrStore, Err: err}
}

// Provider wraps a failed LLM call
func Provider(op string, err error) error {
	if err == nil {
		return nil
	}
	if hasKind(err) {
		return err
	}
	return &Error{Op: op, Kind: ErrProvider, Err: err}
}

func hasKind(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStore) || errors.Is(err, ErrProvider)
}

// HTTPStatus maps an error onto the status code the API answers with.
// Store and provider failures both answer 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text placed in the {error: ...} response body
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(appErr.Kind, ErrValidation), errors.Is(appErr.Kind, ErrNotFound):
			if appErr.Msg != "" {
				return appErr.Msg
			}
		case errors.Is(appErr.Kind, ErrStore), errors.Is(appErr.Kind, ErrProvider):
			return "internal server error"
		}
	}
	if errors.Is(err, ErrStore) || errors.Is(err, ErrProvider) {
		return "internal server error"
	}
	return err.Error()
}
