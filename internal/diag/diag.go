// Package diag implements the error taxonomy of the compiler: parse,
// unbound/uninitialized, arity/kind, OOM, and internal-invariant errors,
// plus the structured logger every other package reports through.
package diag

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Kind is a member of the compiler's error taxonomy.
type Kind int

const (
	KindParse Kind = iota
	KindUnbound
	KindUninitialized
	KindArity
	KindOOM
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindUnbound:
		return "unbound"
	case KindUninitialized:
		return "uninitialized"
	case KindArity:
		return "arity"
	case KindOOM:
		return "oom"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the compiler's wrapped error value. It always carries a Kind
// so the driver can apply the right propagation policy.
type Error struct {
	Kind Kind
	msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error with no underlying cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and message to an existing error, preserving it
// as the cause via github.com/pkg/errors.WithStack, so formatting the
// Err field with %+v prints a stack trace (*Error itself has no Format
// method and prints only its message).
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), Err: errors.WithStack(cause)}
}

// Fatal reports whether an error of this kind must abort the current
// compilation unit rather than lower the offending sub-expression to
// Nil and continue.
func (k Kind) Fatal() bool {
	return k == KindOOM
}

// Log is the package-wide structured logger. The driver may swap its
// level or output; analyses and the evaluator only ever call through
// this handle so every diagnostic carries consistent fields.
var Log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Report logs a compiler diagnostic with component context: fatal
// kinds are logged at Error level, everything else at Warn. Report
// only logs; whether to stop after a Fatal kind is the caller's
// decision.
func Report(component string, err *Error) {
	entry := Log.WithField("component", component)
	if err.Kind.Fatal() {
		entry.WithField("kind", err.Kind.String()).Error(err.Error())
		return
	}
	entry.WithField("kind", err.Kind.String()).Warn(err.Error())
}
