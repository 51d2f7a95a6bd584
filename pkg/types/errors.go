package types

import "fmt"

// ErrorCode represents a pipelens error code.
type ErrorCode string

// Error codes. S-codes are raised while parsing, C-codes while building
// instrumentation (compile/transform time), T/D/U-codes at evaluation time.
const (
	// S0xxx: Parser/Syntax errors
	ErrStringNotClosed  ErrorCode = "S0101"
	ErrNumberOutOfRange ErrorCode = "S0102"
	ErrInvalidEscape    ErrorCode = "S0103"
	ErrUnexpectedEnd    ErrorCode = "S0104"
	ErrCommentNotClosed ErrorCode = "S0106"
	ErrSyntaxError      ErrorCode = "S0201"
	ErrExpectedToken    ErrorCode = "S0202"

	// C0xxx: Instrumentation configuration errors
	ErrUnknownOption      ErrorCode = "C0301"
	ErrUnsupportedColor   ErrorCode = "C0302"
	ErrUnsupportedUnit    ErrorCode = "C0303"
	ErrInvalidOptionValue ErrorCode = "C0304"

	// T0xxx: Type errors
	ErrArgumentCountMismatch ErrorCode = "T0410"
	ErrTypeMismatch          ErrorCode = "T2001"

	// D0xxx: Evaluation errors
	ErrNumberTooLarge    ErrorCode = "D1001"
	ErrInvokeNonFunction ErrorCode = "D1002"
	ErrDivisionByZero    ErrorCode = "D1003"

	// U0xxx: Runtime errors
	ErrUndefinedVariable ErrorCode = "U1001"
	ErrUndefinedFunction ErrorCode = "U1002"
)

// Error represents a structured pipelens error.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Token    string
	Err      error
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: position,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}
