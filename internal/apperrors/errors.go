// Package apperrors defines the small error taxonomy shared by the document-access
// layer and the HTTP layer that maps it to responses.
package apperrors

import (
	"errors"
	"fmt"
	"regexp"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindDuplicated
	KindResolution
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDuplicated:
		return "duplicated"
	case KindResolution:
		return "resolution"
	case KindAuth:
		return "auth"
	}
	return "unknown"
}

// Error carries a kind and a human readable detail. Err is the optional cause.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrDuplicated = &Error{Kind: KindDuplicated}
	ErrResolution = &Error{Kind: KindResolution}
	ErrAuth       = &Error{Kind: KindAuth}
)

func Validation(detail string) *Error { return &Error{Kind: KindValidation, Detail: detail} }

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func NotFound(detail string) *Error { return &Error{Kind: KindNotFound, Detail: detail} }

func NotFoundf(format string, args ...any) *Error {
	return NotFound(fmt.Sprintf(format, args...))
}

func Duplicated(detail string) *Error { return &Error{Kind: KindDuplicated, Detail: detail} }

func Resolution(detail string, cause error) *Error {
	return &Error{Kind: KindResolution, Detail: detail, Err: cause}
}

func Auth(detail string) *Error { return &Error{Kind: KindAuth, Detail: detail} }

// Wrap attaches a cause to a new error of the given kind; the detail is the cause's text.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Detail: err.Error(), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// dupKeyPattern matches the key part of a MongoDB E11000 message:
// `... index: name_1 dup key: { name: "A" }`.
var dupKeyPattern = regexp.MustCompile(`dup key: \{\s*(.*?)\s*\}`)

// DuplicateDetail reduces a duplicate-key message to its `field: value` part. The
// message is returned unchanged when it does not carry one.
func DuplicateDetail(msg string) string {
	m := dupKeyPattern.FindStringSubmatch(msg)
	if len(m) < 2 || m[1] == "" {
		return msg
	}
	return m[1] + " already exists"
}
