package errors

import (
	stderrors "errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Error represents a PostgreSQL-compatible error with SQLSTATE code
type Error struct {
	Code    string // SQLSTATE code
	Message string // Primary error message
	Detail  string // Optional detailed error message
	Hint    string // Optional hint message
	Where   string // Context where error occurred
	Schema  string // Schema name if applicable
	Table   string // Table name if applicable
	Column  string // Column name if applicable
	// Fatal marks errors that must abort the whole plan build.
	Fatal bool
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (SQLSTATE %s)", e.Message, e.Code)
	if e.Where != "" {
		msg = e.Where + ": " + msg
	}
	if e.Detail != "" {
		msg += " DETAIL: " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and message
func New(code string, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message
func Newf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail adds detail to the error
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithDetailf adds formatted detail to the error
func (e *Error) WithDetailf(format string, args ...interface{}) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint adds a hint to the error
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithTable sets the table name
func (e *Error) WithTable(schema, table string) *Error {
	e.Schema = schema
	e.Table = table
	return e
}

// WithColumn sets the column name
func (e *Error) WithColumn(column string) *Error {
	e.Column = column
	return e
}

// WithWhere sets the context where the error occurred
func (e *Error) WithWhere(where string) *Error {
	e.Where = where
	return e
}

// WithCause records the underlying error
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// IsError checks if an error is a cfplan Error with a specific code
func IsError(err error, code string) bool {
	var qErr *Error
	if stderrors.As(err, &qErr) {
		return qErr.Code == code
	}
	return false
}

// GetError attempts to extract an Error from any error
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	var qErr *Error
	if stderrors.As(err, &qErr) {
		return qErr
	}
	// Wrap generic errors as internal errors
	return InternalErrorf("%v", err).WithCause(err)
}

// IsFatal reports whether err, or any error it wraps, aborts plan building.
func IsFatal(err error) bool {
	var qErr *Error
	for err != nil {
		if !stderrors.As(err, &qErr) {
			return false
		}
		if qErr.Fatal {
			return true
		}
		err = qErr.Cause
	}
	return false
}

// IsRetryable reports whether the operation that produced err may be
// retried. Plan building is deterministic over in-memory state, so no
// error it produces is retryable.
func IsRetryable(err error) bool {
	return false
}

// FatalError wraps an error raised by a collaborator at a point where no
// failure is expected. The cause keeps a stack trace of the wrap site.
func FatalError(where string, err error) *Error {
	e := New(InternalError, "unexpected failure during plan construction").
		WithWhere(where).
		WithCause(pkgerrors.WithStack(err))
	e.Fatal = true
	return e
}

// InternalErrorf creates an internal error
func InternalErrorf(format string, args ...interface{}) *Error {
	return Newf(InternalError, format, args...)
}

// FeatureNotSupportedError creates a feature not supported error
func FeatureNotSupportedError(feature string) *Error {
	return Newf(FeatureNotSupported, "%s is not supported", feature)
}

// QueryCanceledError creates a query canceled error
func QueryCanceledError() *Error {
	return New(QueryCanceled, "canceling statement due to user request")
}

// UndefinedTableError creates an undefined table error
func UndefinedTableError(tableName string) *Error {
	return Newf(UndefinedTable, "relation \"%s\" does not exist", tableName).
		WithTable("", tableName)
}

// DuplicateTableError creates a duplicate table error
func DuplicateTableError(tableName string) *Error {
	return Newf(DuplicateTable, "relation \"%s\" already exists", tableName).
		WithTable("", tableName)
}

// DivisionByZeroError creates a division by zero error
func DivisionByZeroError() *Error {
	return New(DivisionByZero, "division by zero")
}

// NumericOverflowError reports an integer result outside the BIGINT range.
func NumericOverflowError(op string) *Error {
	return Newf(NumericValueOutOfRange, "bigint out of range in %s", op)
}

// DataTypeMismatchError creates a data type mismatch error
func DataTypeMismatchError(expected, actual string) *Error {
	return Newf(DatatypeMismatch, "column is of type %s but expression is of type %s", expected, actual).
		WithHint("You will need to rewrite or cast the expression.")
}
