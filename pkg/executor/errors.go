package executor

import "errors"

var (
	// ErrExecutionFailure is returned when hardware reports a fault
	// while applying a command. The command is never retried.
	ErrExecutionFailure = errors.New("executor: execution failure")

	// ErrShuttingDown is returned for commands submitted after
	// shutdown has begun. In-flight commands still complete.
	ErrShuttingDown = errors.New("executor: shutting down")
)
