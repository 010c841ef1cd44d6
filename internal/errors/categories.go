package errors

// Category-specific error constructors for plan construction

// ColumnIndexOutOfRangeError reports a visible column index that does not
// resolve to a physical column of the table.
func ColumnIndexOutOfRangeError(tableName string, index, position, columnCount int) *Error {
	return Newf(InvalidColumnReference, "column index %d out of range", index).
		WithTable("", tableName).
		WithDetailf("Physical position %d, table has %d columns.", position, columnCount)
}

// UndefinedCorrelateVariableError reports a correlate variable that no
// enclosing correlate operator has defined.
func UndefinedCorrelateVariableError(variableID string) *Error {
	return Newf(UndefinedObject, "correlate variable \"%s\" is not defined", variableID).
		WithHint("Correlate variables are defined by the enclosing correlate operator before its right input is built.")
}

// CorrelateVariableNotBoundError reports evaluation of a correlate variable
// before any outer row has been bound to it.
func CorrelateVariableNotBoundError(variableID string) *Error {
	return Newf(ObjectNotInPrerequisiteState, "correlate variable \"%s\" has no current row", variableID)
}

// ContextStackUnderflowError reports a pop or peek on an empty
// implementor context stack.
func ContextStackUnderflowError(op string) *Error {
	e := Newf(InternalError, "implementor context stack is empty").
		WithWhere(op)
	e.Fatal = true
	return e
}

// NoCurrentTableError reports an operation that needs a current table
// before any scan or projection has set one.
func NoCurrentTableError(op string) *Error {
	e := New(InternalError, "no current table").WithWhere(op)
	e.Fatal = true
	return e
}

// SchemaInconsistencyError reports a projected table definition that does
// not agree with its source.
func SchemaInconsistencyError(tableName, format string, args ...interface{}) *Error {
	return Newf(InvalidTableDefinition, format, args...).
		WithTable("", tableName)
}

// DuplicateColumnError reports two columns with the same name in one table.
func DuplicateColumnError(columnName, tableName string) *Error {
	return Newf(DuplicateColumn, "column \"%s\" specified more than once", columnName).
		WithTable("", tableName).
		WithColumn(columnName)
}

// DuplicateAliasError reports two inputs of one join exposing the same
// table alias.
func DuplicateAliasError(alias string) *Error {
	return Newf(DuplicateAlias, "table name \"%s\" specified more than once", alias).
		WithHint("give each scan of the same table its own alias")
}

// ColumnNotFoundError reports an unknown column name.
func ColumnNotFoundError(columnName, tableName string) *Error {
	if tableName != "" {
		return Newf(UndefinedColumn, "column %s.%s does not exist", tableName, columnName).
			WithTable("", tableName).
			WithColumn(columnName)
	}
	return Newf(UndefinedColumn, "column \"%s\" does not exist", columnName).
		WithColumn(columnName)
}

// TypeMismatchError reports an expression whose type does not match what
// the consumer requires.
func TypeMismatchError(expected, actual string, context string) *Error {
	return Newf(DatatypeMismatch, "type mismatch in %s: expected %s, got %s", context, expected, actual)
}

// SubqueryMultipleRowsError reports a single-value subquery producing more
// than one row.
func SubqueryMultipleRowsError() *Error {
	return New(CardinalityViolation, "more than one row returned by a subquery used as an expression")
}

// InvalidConfigurationError reports a bad configuration parameter.
func InvalidConfigurationError(parameter, value string) *Error {
	return Newf(ConfigFileError, "invalid value for parameter \"%s\": \"%s\"", parameter, value)
}

// StorageCorruptionError reports a stored row that cannot be decoded.
func StorageCorruptionError(details string) *Error {
	return New(DataCorrupted, "data corruption detected").
		WithDetail(details)
}
