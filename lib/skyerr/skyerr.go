// Package skyerr holds the error kinds surfaced by the skyward extraction pipeline.
//
// Every failure that a caller may want to branch on carries a Kind, errors.Is matches
// on the kind alone so callers can compare against the Err* sentinels regardless of
// the cause text or the wrapped error.
package skyerr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// ExtractionNotFound means the embedded data assignment was absent from the document,
	// this is not necessarily fatal to the caller.
	ExtractionNotFound
	ExtractionParseFailure
	GridKeyNotFound
	EmptyTable
	// SessionInvalid is always surfaced distinctly so the auth collaborator can
	// re-authenticate and retry.
	SessionInvalid
	ReconciliationInputInvalid
)

func (k Kind) String() string {
	switch k {
	case ExtractionNotFound:
		return "extraction not found"
	case ExtractionParseFailure:
		return "extraction parse failure"
	case GridKeyNotFound:
		return "grid key not found"
	case EmptyTable:
		return "empty table"
	case SessionInvalid:
		return "session invalid"
	case ReconciliationInputInvalid:
		return "reconciliation input invalid"
	}
	return "unknown"
}

type Error struct {
	Kind Kind
	// Cause is a short human readable explanation, never a document dump.
	Cause string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Cause != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Cause)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrExtractionNotFound         = &Error{Kind: ExtractionNotFound}
	ErrExtractionParseFailure     = &Error{Kind: ExtractionParseFailure}
	ErrGridKeyNotFound            = &Error{Kind: GridKeyNotFound}
	ErrEmptyTable                 = &Error{Kind: EmptyTable}
	ErrSessionInvalid             = &Error{Kind: SessionInvalid}
	ErrReconciliationInputInvalid = &Error{Kind: ReconciliationInputInvalid}
)

func New(kind Kind, cause string) *Error {
	return &Error{Kind: kind, Cause: cause}
}

func Wrap(kind Kind, cause string, err error) *Error {
	return &Error{Kind: kind, Cause: cause, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}
