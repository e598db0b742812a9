// Package lerrors are a unified errors package for compiling and running lox so
// that they can be formatted in a unified way and handled in a unified way.
package lerrors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type (
	// ErrorKind is an enum to describe where the error originates from.
	ErrorKind int
	// Error captures all errors in the loxvm. It distinguishes between compile
	// and runtime errors and will format them accordingly. Compile errors never
	// reach the vm, runtime errors carry a traceback of every active call frame.
	Error struct {
		Line      int64
		Column    int64
		Kind      ErrorKind
		Err       error
		Filename  string
		Traceback []string
	}
)

const (
	// RuntimeErr is an error that originates from the runtime.
	RuntimeErr ErrorKind = iota
	// CompileErr is an error that originates from the lexer or compiler.
	CompileErr
)

func (kind ErrorKind) String() string {
	switch kind {
	case RuntimeErr:
		return "runtime error"
	case CompileErr:
		return "compile error"
	default:
		return "error"
	}
}

func (err *Error) Error() string {
	switch err.Kind {
	case RuntimeErr:
		return fmt.Sprintf("%v\n%v", err.Err, strings.Join(err.Traceback, "\n"))
	case CompileErr:
		return fmt.Sprintf("%v:%v:%v: %v", err.Filename, err.Line, err.Column, err.Err)
	default:
		return err.Err.Error()
	}
}

// Unwrap allows errors.Is and errors.As to see the underlying cause.
func (err *Error) Unwrap() error {
	return err.Err
}

// KindOf reports the kind of the first lerrors.Error found in the chain of err.
// The second return value is false if err carries no lerrors.Error.
func KindOf(err error) (ErrorKind, bool) {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind, true
	}
	return 0, false
}
