package queue

import "fmt"

// LogicError signals a programming invariant violation: a state the code
// believes can never happen given its own locking and bookkeeping rules
// (spec §7, "Programming invariants"). It is always a bug in this package
// or a caller, never a transient or data condition — callers should not
// try to recover from it, only log it and either abort (for the handful of
// cases spec.md calls genuinely unrecoverable) or propagate it upward as a
// loud diagnostic.
type LogicError struct {
	Op  string // the operation that detected the violation
	Msg string
}

func (e *LogicError) Error() string {
	return fmt.Sprintf("queue: logic error in %s: %s", e.Op, e.Msg)
}

func newLogicError(op, format string, args ...any) *LogicError {
	return &LogicError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// fatalHook is called for the one genuinely unrecoverable condition spec.md
// names: in-memory state failing to stamp after a coordination-service
// multi-write has already committed (§4.1 step 5, §7). It is a variable
// (not a direct os.Exit) so tests can observe the abort path without
// killing the test binary.
var fatalHook = func(format string, args ...any) {
	panic(fmt.Sprintf("queue: FATAL (process must terminate): "+format, args...))
}
