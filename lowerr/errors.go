package lowerr

import (
	"fmt"
	"strings"
)

// ErrorType defines the category of the error.
type ErrorType string

const (
	TypeInputShape        ErrorType = "InputShapeError"
	TypeResourceExhausted ErrorType = "ResourceExhaustedError"
	TypeProgramInvariant  ErrorType = "ProgramInvariantError"
)

// LoweringError is the interface for all errors raised while lowering a program.
// Every one of them is fatal: there is no degraded output mode.
type LoweringError interface {
	error
	Type() ErrorType
}

// Location identifies a position in a source unit.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	switch {
	case l.Line <= 0 && l.File == "":
		return ""
	case l.Line <= 0:
		return l.File
	case l.File == "":
		return fmt.Sprintf("line %d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// BaseError provides common fields for lowering errors.
type BaseError struct {
	Msg     string
	ErrType ErrorType
	Loc     Location
}

func (e *BaseError) Error() string {
	if loc := e.Loc.String(); loc != "" {
		return fmt.Sprintf("[%s] %s %s", e.ErrType, loc, e.Msg)
	}
	return fmt.Sprintf("[%s] %s", e.ErrType, e.Msg)
}

func (e *BaseError) Type() ErrorType {
	return e.ErrType
}

// ShapeError reports input the lowering rules cannot accept: a missing scope
// frame, a construct without a rule, a bad named argument.
type ShapeError struct {
	BaseError
}

// ExhaustionError reports a bounded resource running out inside one function.
type ExhaustionError struct {
	BaseError
}

// InvariantError reports a violated program-wide invariant.
type InvariantError struct {
	BaseError
}

// MultiError collects multiple lowering errors.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) occurred:\n", len(m.Errors)))
	for _, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("- %v\n", err))
	}
	return sb.String()
}

func (m *MultiError) Type() ErrorType {
	if len(m.Errors) > 0 {
		if le, ok := m.Errors[0].(LoweringError); ok {
			return le.Type()
		}
	}
	return "MultiError"
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// NewShapeError creates a ShapeError without a position.
func NewShapeError(msg string) *ShapeError {
	return &ShapeError{BaseError{Msg: msg, ErrType: TypeInputShape}}
}

// NewShapeErrorAt creates a ShapeError at loc.
func NewShapeErrorAt(loc Location, msg string) *ShapeError {
	return &ShapeError{BaseError{Msg: msg, ErrType: TypeInputShape, Loc: loc}}
}

// NewExhaustionErrorAt creates an ExhaustionError at loc.
func NewExhaustionErrorAt(loc Location, msg string) *ExhaustionError {
	return &ExhaustionError{BaseError{Msg: msg, ErrType: TypeResourceExhausted, Loc: loc}}
}

// NewInvariantError creates an InvariantError without a position.
func NewInvariantError(msg string) *InvariantError {
	return &InvariantError{BaseError{Msg: msg, ErrType: TypeProgramInvariant}}
}

// NewInvariantErrorAt creates an InvariantError at loc.
func NewInvariantErrorAt(loc Location, msg string) *InvariantError {
	return &InvariantError{BaseError{Msg: msg, ErrType: TypeProgramInvariant, Loc: loc}}
}
