package irdiag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorReporter(t *testing.T) {
	source := `func main(v0: int) -> (v1: int) entry(0) {
  block 0 "entry":
    v1#0 = fetch(v2#?)
    ret(v1#0)
}`

	reporter := NewErrorReporter("test.oir", source)

	err := UnknownOpcode("phii", Position{Line: 3, Column: 12}, []string{"phi", "fetch", "convert"})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "error["+ErrorInvalidOpcode+"]")
	assert.Contains(t, formatted, "unknown opcode")
	assert.Contains(t, formatted, "phii")
	assert.Contains(t, formatted, "test.oir:3:12")
	assert.Contains(t, formatted, "did you mean")
	assert.Contains(t, formatted, "phi")
}

func TestUnknownOpcodeError(t *testing.T) {
	pos := Position{Line: 1, Column: 5}

	err := UnknownOpcode("fetc", pos, []string{"fetch"})
	assert.Equal(t, ErrorInvalidOpcode, err.Code)
	assert.Contains(t, err.Message, "fetc")
	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0].Message, `did you mean "fetch"`)

	err = UnknownOpcode("xyz", pos, []string{"fetch", "convert"})
	assert.Empty(t, err.Suggestions)
}

func TestArityMismatchError(t *testing.T) {
	pos := Position{Line: 1, Column: 5}

	err := ArityMismatch("convert", 1, 2, pos)
	assert.Equal(t, ErrorInvalidArity, err.Code)
	assert.Contains(t, err.Message, "expects 1 operand")
	assert.Contains(t, err.Message, "found 2")
}

func TestPhiMissingPredecessorError(t *testing.T) {
	pos := Position{Line: 1, Column: 5}

	err := PhiMissingPredecessor("x", "block.7", pos)
	assert.Equal(t, ErrorPhiNoSuchPredecessor, err.Code)
	assert.Contains(t, err.Message, `"x"`)
	assert.Contains(t, err.Message, `"block.7"`)
	assert.Len(t, err.Notes, 1)
}

func TestTypeMismatchError(t *testing.T) {
	pos := Position{Line: 1, Column: 5}

	err := TypeMismatch("int", "string", pos)
	assert.Equal(t, ErrorTypeMismatch, err.Code)
	assert.Contains(t, err.Message, `"int"`)
	assert.Contains(t, err.Message, `"string"`)
	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0].Message, "convert")
}

func TestCompoundSizeTooSmallError(t *testing.T) {
	pos := Position{Line: 1, Column: 5}

	err := CompoundSizeTooSmall("pair", 4, 8, pos)
	assert.Equal(t, ErrorCompoundSizeTooSmall, err.Code)
	assert.Contains(t, err.Message, "declares size 4")
	assert.Contains(t, err.Message, "need 8")
}

func TestWarningFormatting(t *testing.T) {
	source := `v0 := 42`
	reporter := NewErrorReporter("test.oir", source)

	err := NewDiagnosticWarning(WarningRedundantGuard, "guard is provably never taken", Position{Line: 1, Column: 1}).Build()
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "warning["+WarningRedundantGuard+"]")
	assert.Contains(t, formatted, "never taken")
}

func TestErrorMarkerCreation(t *testing.T) {
	source := `let variable = value;`
	reporter := NewErrorReporter("test.oir", source)

	marker := reporter.createMarker(5, 8, Error) // "variable" is 8 chars at column 5

	spaces := strings.Count(marker, " ")
	assert.Equal(t, 4, spaces) // column 5 means 4 spaces before
	carets := strings.Count(marker, "^")
	assert.Equal(t, 8, carets) // 8 character length
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("hello", "hello"))
	assert.Equal(t, 1, levenshteinDistance("hello", "hallo"))
	assert.Equal(t, 1, levenshteinDistance("hello", "helo")) // deletion is 1, not 2
	assert.Equal(t, 5, levenshteinDistance("hello", ""))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}

func TestSimilarNameFinding(t *testing.T) {
	candidates := []string{"fetch", "convert", "phi", "assign", "xyz"}

	similar := findSimilarNames("fetc", candidates)
	assert.Contains(t, similar, "fetch")
	assert.NotContains(t, similar, "xyz")

	similar = findSimilarNames("verydifferent", candidates)
	assert.Empty(t, similar)
}

func TestErrorLevels(t *testing.T) {
	source := `test`
	reporter := NewErrorReporter("test.oir", source)
	pos := Position{Line: 1, Column: 1}

	errorErr := CompilerError{Level: Error, Message: "test error", Position: pos}
	warningErr := CompilerError{Level: Warning, Message: "test warning", Position: pos}

	errorFormatted := reporter.FormatError(errorErr)
	warningFormatted := reporter.FormatError(warningErr)

	assert.Contains(t, errorFormatted, "error:")
	assert.Contains(t, warningFormatted, "warning:")
}
