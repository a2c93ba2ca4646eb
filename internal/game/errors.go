package game

import (
	"errors"
	"fmt"
)

// Kind classifies a game error for the wire result code.
type Kind int

const (
	KindInternal Kind = iota
	KindBadCommand
	KindResourceNotFound
	KindAccessDenied
	KindNotReady
	KindTimeout
)

// Error is a game-layer failure with a client-visible reason.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// KindOf extracts the error kind; unclassified errors are internal.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}

func errBadCommand(format string, args ...any) *Error {
	return &Error{Kind: KindBadCommand, Msg: fmt.Sprintf(format, args...)}
}

func errNotFound(format string, args ...any) *Error {
	return &Error{Kind: KindResourceNotFound, Msg: fmt.Sprintf(format, args...)}
}

func errAccessDenied(format string, args ...any) *Error {
	return &Error{Kind: KindAccessDenied, Msg: fmt.Sprintf(format, args...)}
}

func errNotReady(format string, args ...any) *Error {
	return &Error{Kind: KindNotReady, Msg: fmt.Sprintf(format, args...)}
}

func errTimeout(format string, args ...any) *Error {
	return &Error{Kind: KindTimeout, Msg: fmt.Sprintf(format, args...)}
}
