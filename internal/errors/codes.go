package errors

// SQLSTATE codes used by the plan builder.
// Based on PostgreSQL error codes: https://www.postgresql.org/docs/current/errcodes-appendix.html

// Class 0A - Feature Not Supported
const (
	FeatureNotSupported = "0A000"
)

// Class 21 - Cardinality Violation
const (
	CardinalityViolation = "21000"
)

// Class 22 - Data Exception
const (
	DataException          = "22000"
	InvalidParameterValue  = "22023"
	NumericValueOutOfRange = "22003"
	DivisionByZero         = "22012"
)

// Class 42 - Syntax Error or Access Rule Violation
const (
	GroupingError          = "42803"
	DatatypeMismatch       = "42804"
	UndefinedColumn        = "42703"
	UndefinedTable         = "42P01"
	UndefinedObject        = "42704"
	DuplicateColumn        = "42701"
	DuplicateTable         = "42P07"
	DuplicateObject        = "42710"
	DuplicateAlias         = "42712"
	InvalidColumnReference = "42P10"
	InvalidTableDefinition = "42P16"
)

// Class 55 - Object Not In Prerequisite State
const (
	ObjectNotInPrerequisiteState = "55000"
)

// Class 57 - Operator Intervention
const (
	QueryCanceled = "57014"
)

// Class F0 - Configuration File Error
const (
	ConfigFileError = "F0000"
)

// Class XX - Internal Error
const (
	InternalError = "XX000"
	DataCorrupted = "XX001"
)
