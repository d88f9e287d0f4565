package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for translation at the HTTP boundary.
type Kind int

const (
	KindInfrastructure Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindInvariant
	KindConflict
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindInvariant:
		return "invariant"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	default:
		return "infrastructure"
	}
}

// HTTPStatus returns the response status for errors of this kind.
// Conflicts answer 400, which existing clients rely on.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInvariant, KindConflict:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is comparisons by kind.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrAuth           = &Error{Kind: KindAuth}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrInvariant      = &Error{Kind: KindInvariant}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrForbidden      = &Error{Kind: KindForbidden}
	ErrInfrastructure = &Error{Kind: KindInfrastructure}
)

// Error carries a kind, a client-facing message and an optional cause.
type Error struct {
	Op      string // Operation that failed (e.g. "dao.FindProduct")
	Kind    Kind
	Message string // Human-readable message, safe to return to clients
	Err     error  // Underlying error for wrapping
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels above.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Op == "" && t.Kind == e.Kind
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Auth(msg string) error {
	return &Error{Kind: KindAuth, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Invariant(msg string) error {
	return &Error{Kind: KindInvariant, Message: msg}
}

func Invariantf(format string, args ...any) error {
	return &Error{Kind: KindInvariant, Message: fmt.Sprintf(format, args...)}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Forbidden rejects an authenticated caller lacking the required role.
func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Infrastructure wraps a store or driver failure. The message stays generic.
func Infrastructure(op string, err error) error {
	return &Error{Op: op, Kind: KindInfrastructure, Message: "Database query failed", Err: err}
}

// KindOf reports the kind of err. Errors outside this package are infrastructure failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	return KindOf(err).HTTPStatus()
}

// PublicMessage returns the text that may be shown to a client.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInfrastructure && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariant)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
