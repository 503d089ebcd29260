// Package errs defines the tagged error type shared by the bookmark and history
// stores and the table that maps error kinds to process exit codes.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for exit-code translation
type Kind int

const (
	// KindInternal covers unexpected failures: I/O, corrupt state files
	KindInternal Kind = iota
	// KindUsage covers malformed arguments and invalid keys
	KindUsage
	// KindSelection covers unresolvable identifiers and impossible navigation
	KindSelection
)

var kindNames = map[Kind]string{
	KindInternal:  "internal",
	KindUsage:     "usage",
	KindSelection: "selection",
}

// exitCodes is the only place exit codes are defined
var exitCodes = map[Kind]int{
	KindUsage:     64,
	KindSelection: 2,
	KindInternal:  70,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a failure tagged with its Kind
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg == "" {
			return e.Err.Error()
		}
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Usage returns a usage error
func Usage(format string, args ...any) error {
	return &Error{Kind: KindUsage, Msg: fmt.Sprintf(format, args...)}
}

// Selection returns an invalid-selection error
func Selection(format string, args ...any) error {
	return &Error{Kind: KindSelection, Msg: fmt.Sprintf(format, args...)}
}

// Internal wraps err as an internal error
func Internal(err error, format string, args ...any) error {
	return &Error{Kind: KindInternal, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first tagged error in err's chain.
// Untagged errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ExitCode maps err to the process exit code; nil maps to 0
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return exitCodes[KindOf(err)]
}
