package core

import "errors"

type ErrorKind string

const (
	KindMissingContent ErrorKind = "missing_content"
	KindInvalidQuery   ErrorKind = "invalid_query"
)

// Error carries a machine-matchable kind so callers can branch on the
// failure class without string inspection.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrMissingContent = &Error{Kind: KindMissingContent, Msg: "document has no content to chunk"}
	ErrInvalidQuery   = &Error{Kind: KindInvalidQuery, Msg: "invalid query representation"}
)

// KindOf returns the error kind, or "" for errors outside this taxonomy.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
