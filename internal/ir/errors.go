package ir

import "github.com/pkg/errors"

// The six client-visible error classes named in the core's external
// interface. Callers compare against these with errors.Is; well-formedness
// errors (spec §7) are wrapped with github.com/pkg/errors so a TypeMismatch
// surfaced from deep inside phi normalization still carries a stack-annotated
// cause back to the API boundary.
var (
	ErrInvalidOpcode           = errors.New("ir: invalid opcode")
	ErrInvalidArity            = errors.New("ir: invalid arity")
	ErrUseInvalidated          = errors.New("ir: use invalidated")
	ErrVariableNotInScope      = errors.New("ir: variable not in scope")
	ErrTypeMismatch            = errors.New("ir: type mismatch")
	ErrPhiHasNoSuchPredecessor = errors.New("ir: phi has no such predecessor")
)

// wellFormed wraps cause with a contextual message, preserving it as the
// errors.Is-comparable chain root. Used for the recoverable API-boundary
// failures of spec §7 ("Well-formedness errors"); the partial state that led
// to the failure is never committed by the caller.
func wellFormed(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(cause, format, args...)
}
