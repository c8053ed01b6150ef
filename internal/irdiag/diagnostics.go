package irdiag

import (
	"fmt"
)

// DiagnosticBuilder provides a fluent interface for building a
// CompilerError with suggestions, notes, and help text attached
// incrementally.
type DiagnosticBuilder struct {
	err CompilerError
}

// NewDiagnostic starts a new error-level diagnostic.
func NewDiagnostic(code, message string, pos Position) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		err: CompilerError{Level: Error, Code: code, Message: message, Position: pos, Length: 1},
	}
}

// NewDiagnosticWarning starts a new warning-level diagnostic.
func NewDiagnosticWarning(code, message string, pos Position) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		err: CompilerError{Level: Warning, Code: code, Message: message, Position: pos, Length: 1},
	}
}

func (b *DiagnosticBuilder) WithLength(length int) *DiagnosticBuilder {
	b.err.Length = length
	return b
}

func (b *DiagnosticBuilder) WithSuggestion(message string) *DiagnosticBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

func (b *DiagnosticBuilder) WithNote(note string) *DiagnosticBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

func (b *DiagnosticBuilder) WithHelp(help string) *DiagnosticBuilder {
	b.err.HelpText = help
	return b
}

func (b *DiagnosticBuilder) Build() CompilerError {
	return b.err
}

// Diagnostic constructors for the core's own error classes, positioned
// against the static textual form (the only thing with a notion of source
// position). internal/irparser and cmd/octave-ir-cli do not call them; they
// report their errors directly.

// UnknownOpcode reports a textual-form token that isn't a registered
// opcode name, suggesting the closest registered name if any is close
// enough to plausibly be a typo.
func UnknownOpcode(name string, pos Position, known []string) CompilerError {
	builder := NewDiagnostic(ErrorInvalidOpcode, fmt.Sprintf("unknown opcode %q", name), pos).WithLength(len(name))
	if similar := findSimilarNames(name, known); len(similar) > 0 {
		builder = builder.WithSuggestion(fmt.Sprintf("did you mean %q?", similar[0]))
	}
	return builder.Build()
}

// ArityMismatch reports an operand-count mismatch caught while parsing or
// constructing an instruction.
func ArityMismatch(opcode string, want, got int, pos Position) CompilerError {
	return NewDiagnostic(ErrorInvalidArity,
		fmt.Sprintf("opcode %q expects %d operand(s), found %d", opcode, want, got), pos).
		WithHelp("check the opcode's arity in the instruction reference").
		Build()
}

// PhiMissingPredecessor reports a phi operand naming a block that is not
// actually a predecessor of the phi's own block.
func PhiMissingPredecessor(variable, block string, pos Position) CompilerError {
	return NewDiagnostic(ErrorPhiNoSuchPredecessor,
		fmt.Sprintf("phi for %q names %q, which is not a predecessor of this block", variable, block), pos).
		WithNote("a phi must have exactly one operand per predecessor, naming only actual predecessors").
		Build()
}

// TypeMismatch reports two types sharing no common ancestor where one was
// required — a phi whose operands disagree past what the type lattice can
// reconcile, or a convert with no legal source/target pair.
func TypeMismatch(a, b string, pos Position) CompilerError {
	return NewDiagnostic(ErrorTypeMismatch,
		fmt.Sprintf("types %q and %q share no common ancestor", a, b), pos).
		WithSuggestion("insert an explicit convert to a shared ancestor type").
		Build()
}

// CompoundSizeTooSmall reports a compound type registration whose declared
// size cannot hold the sum of its members' sizes.
func CompoundSizeTooSmall(name string, declared, needed int, pos Position) CompilerError {
	return NewDiagnostic(ErrorCompoundSizeTooSmall,
		fmt.Sprintf("compound type %q declares size %d but members need %d", name, declared, needed), pos).
		WithSuggestion(fmt.Sprintf("declare %q with size >= %d", name, needed)).
		Build()
}

// UndefinedVariableTrap reports where the determinator pass injected a
// trap for a read that might observe an undefined variable — used when
// printing a lowered program's diagnostics, not at construction time.
func UndefinedVariableTrap(variable string, pos Position) CompilerError {
	return NewDiagnostic(TrapUndefinedVariable,
		fmt.Sprintf("%q may be read before it is ever assigned on this path", variable), pos).
		WithHelp("assign the variable on every path that reaches this read").
		Build()
}

// findSimilarNames returns candidates within Levenshtein distance 2 of
// target, favoring closer matches first.
func findSimilarNames(target string, candidates []string) []string {
	var similar []string
	for _, candidate := range candidates {
		if levenshteinDistance(target, candidate) <= 2 && len(candidate) > 2 {
			similar = append(similar, candidate)
		}
	}
	return similar
}

// levenshteinDistance is a standard dynamic-programming edit distance,
// used only to rank "did you mean" suggestions.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}
	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min3(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}
	return matrix[len(a)][len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
