package db

import "errors"

var (
	// Returned by the parameterless Execute and Iterate of a ParametrizedHandle
	// and of the Handle it wraps, and by ExecuteWith when no populate function
	// is given.
	ErrParametersRequired = errors.New("parametrized handle has to be executed with parameters")

	// Returned when a helper is called with an argument it can never work with,
	// e.g. a blank id column name. Nothing has been sent to the database.
	ErrInvalidArgument = errors.New("invalid argument")

	// Returned when a binder reads a Param that the populate step did not set.
	// The statement has not been executed.
	ErrUninitializedParameter = errors.New("parameter was not initialized")

	// Returned by any execution on a handle after Close.
	ErrHandleClosed = errors.New("handle is closed")
)
