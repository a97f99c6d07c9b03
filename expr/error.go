package expr

import (
	"errors"
	"fmt"
	"log/slog"
)

// Positioned is implemented by errors that carry a source position.
type Positioned interface {
	Position() Pos
}

// Error is an input-related failure annotated with the position it relates
// to. It renders the way compilers do, as "file:line: message".
type Error struct {
	msg string
	pos Pos
	err error
}

// NewError creates an error with the given message and position.
func NewError(pos Pos, msg string) *Error {
	return &Error{msg: msg, pos: pos}
}

// Errorf creates an error with a formatted message and position.
func Errorf(pos Pos, format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...), pos: pos}
}

func (e *Error) Error() string {
	msg := e.msg
	if msg == "" && e.err != nil {
		msg = e.err.Error()
	}
	if e.pos.IsValid() {
		return e.pos.String() + ": " + msg
	}

	return msg
}

// Position returns the source position the error relates to.
func (e *Error) Position() Pos { return e.pos }

func (e *Error) Unwrap() error { return e.err }

// LogValue renders the error as a structured group for logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 2)
	attrs = append(attrs, slog.String("error", e.msg))
	if e.pos.IsValid() {
		attrs = append(attrs, slog.String("pos", e.pos.String()))
	}

	return slog.GroupValue(attrs...)
}

// WithPos attaches pos to err if it does not already carry a position.
// Errors without position information are wrapped; positioned errors are
// returned unchanged. A nil err yields nil.
//
// This is used to decorate errors raised deep inside expression evaluation
// with at least coarse location information (e.g. the target being
// processed).
func WithPos(err error, pos Pos) error {
	if err == nil || !pos.IsValid() {
		return err
	}

	var positioned Positioned
	if errors.As(err, &positioned) && positioned.Position().IsValid() {
		return err
	}

	return &Error{err: err, pos: pos}
}

// PosOf extracts the source position from err, or the zero Pos if it has
// none.
func PosOf(err error) Pos {
	var positioned Positioned
	if errors.As(err, &positioned) {
		return positioned.Position()
	}

	return Pos{}
}

// NonConstError reports an attempt to evaluate an expression that has no
// constant value at generation time, such as one referencing a user
// setting.
type NonConstError struct {
	Expr Expr
	pos  Pos
}

// NewNonConstError creates a NonConstError for the given expression.
func NewNonConstError(e Expr) *NonConstError {
	return &NonConstError{Expr: e, pos: e.Position()}
}

func (e *NonConstError) Error() string {
	msg := fmt.Sprintf("expression %q must evaluate to a constant", e.Expr)
	if e.pos.IsValid() {
		return e.pos.String() + ": " + msg
	}

	return msg
}

// Position returns the source position the error relates to.
func (e *NonConstError) Position() Pos { return e.pos }

// CannotDetermineError reports that some property of an expression, such
// as equality with another one, cannot be reliably determined at
// generation time.
type CannotDetermineError struct {
	msg string
	pos Pos
}

// NewCannotDetermineError creates a CannotDetermineError with the given
// message.
func NewCannotDetermineError(pos Pos, format string, args ...any) *CannotDetermineError {
	return &CannotDetermineError{msg: fmt.Sprintf(format, args...), pos: pos}
}

func (e *CannotDetermineError) Error() string {
	if e.pos.IsValid() {
		return e.pos.String() + ": " + e.msg
	}

	return e.msg
}

// Position returns the source position the error relates to.
func (e *CannotDetermineError) Position() Pos { return e.pos }

// IsNonConst reports whether err signals a value that cannot be computed
// at generation time. This covers both [NonConstError] and
// [CannotDetermineError]; callers use it to fall back to emitting the
// expression symbolically instead of as a resolved value.
func IsNonConst(err error) bool {
	var nonConst *NonConstError
	if errors.As(err, &nonConst) {
		return true
	}

	var cannot *CannotDetermineError

	return errors.As(err, &cannot)
}
