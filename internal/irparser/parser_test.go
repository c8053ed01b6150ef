package irparser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gharveymn/octave-ir-sub000/internal/ir"
	"github.com/gharveymn/octave-ir-sub000/internal/irparser"
)

// printSingle is a small test fixture since ir.Print works over a whole
// *ir.StaticUnit — wrap the one function being exercised.
func printSingle(fn *ir.StaticFunction) string {
	return ir.Print(&ir.StaticUnit{Functions: []*ir.StaticFunction{fn}})
}

func straightLineFunction(t *testing.T) *ir.StaticFunction {
	t.Helper()
	p := ir.NewProgram(8)
	intType := p.Types().RegisterPrimitive("int", 8, true, nil)
	entry := ir.NewBlock("entry")

	x := p.NewVariable("x", intType, entry)
	_, err := p.Emit(entry, ir.OpAssign, x, []ir.Operand{ir.Constant{Typ: intType, Value: 1}})
	require.NoError(t, err)

	fn, err := p.DeclareFunction("main", entry, false)
	require.NoError(t, err)
	fn.SetRets([]*ir.Variable{x})

	unit, err := ir.Lower(p)
	require.NoError(t, err)
	return unit.Functions[0]
}

func mergeFunction(t *testing.T) *ir.StaticFunction {
	t.Helper()
	p := ir.NewProgram(8)
	intType := p.Types().RegisterPrimitive("int", 8, true, nil)
	boolType := p.Types().RegisterPrimitive("bool", 1, true, nil)

	condBlock := ir.NewBlock("cond")
	thenBlock := ir.NewBlock("then")
	elseBlock := ir.NewBlock("else")
	joinBlock := ir.NewBlock("join")
	fork := ir.NewFork(condBlock, thenBlock, elseBlock)
	body := ir.NewSequence(fork, joinBlock)

	cond := p.NewVariable("cond", boolType, condBlock)
	x := p.NewVariable("x", intType, fork)

	_, err := p.Emit(condBlock, ir.OpAssign, cond, []ir.Operand{ir.Constant{Typ: boolType, Value: true}})
	require.NoError(t, err)
	condBlock.SetCondition(cond)
	_, err = p.Emit(thenBlock, ir.OpAssign, x, []ir.Operand{ir.Constant{Typ: intType, Value: 1}})
	require.NoError(t, err)
	_, err = p.Emit(elseBlock, ir.OpAssign, x, []ir.Operand{ir.Constant{Typ: intType, Value: 2}})
	require.NoError(t, err)

	useOp, err := p.ReadOperand(joinBlock, x)
	require.NoError(t, err)
	y := p.NewVariable("y", intType, joinBlock)
	_, err = p.Emit(joinBlock, ir.OpAssign, y, []ir.Operand{useOp})
	require.NoError(t, err)

	fn, err := p.DeclareFunction("pick", body, false)
	require.NoError(t, err)
	fn.SetRets([]*ir.Variable{y})

	unit, err := ir.Lower(p)
	require.NoError(t, err)
	return unit.Functions[0]
}

// undefinedReadFunction builds scenario 4 (a join that may read x before it
// is ever assigned), the case that exercises the guard/trap blocks' "br",
// "ubr", bare-call and "unreachable" forms all in the same round trip.
func undefinedReadFunction(t *testing.T) *ir.StaticFunction {
	t.Helper()
	p := ir.NewProgram(8)
	intType := p.Types().RegisterPrimitive("int", 8, true, nil)
	boolType := p.Types().RegisterPrimitive("bool", 1, true, nil)

	condBlock := ir.NewBlock("cond")
	thenBlock := ir.NewBlock("then")
	elseBlock := ir.NewBlock("else")
	joinBlock := ir.NewBlock("join")
	fork := ir.NewFork(condBlock, thenBlock, elseBlock)
	body := ir.NewSequence(fork, joinBlock)

	cond := p.NewVariable("cond", boolType, condBlock)
	x := p.NewVariable("x", intType, fork)

	_, err := p.Emit(condBlock, ir.OpAssign, cond, []ir.Operand{ir.Constant{Typ: boolType, Value: true}})
	require.NoError(t, err)
	condBlock.SetCondition(cond)
	_, err = p.Emit(thenBlock, ir.OpAssign, x, []ir.Operand{ir.Constant{Typ: intType, Value: 1}})
	require.NoError(t, err)

	useOp, err := p.ReadOperand(joinBlock, x)
	require.NoError(t, err)
	y := p.NewVariable("y", intType, joinBlock)
	_, err = p.Emit(joinBlock, ir.OpAssign, y, []ir.Operand{useOp})
	require.NoError(t, err)

	fn, err := p.DeclareFunction("maybe", body, false)
	require.NoError(t, err)
	fn.SetRets([]*ir.Variable{y})

	unit, err := ir.Lower(p)
	require.NoError(t, err)
	return unit.Functions[0]
}

func TestRoundTripStraightLine(t *testing.T) {
	fn := straightLineFunction(t)
	text := printSingle(fn)

	types := ir.NewTypeRegistry(8)
	parsed, err := irparser.ParseFunction("main", text, types)
	require.NoError(t, err)

	assert.Equal(t, text, printSingle(parsed))
}

func TestRoundTripMerge(t *testing.T) {
	fn := mergeFunction(t)
	text := printSingle(fn)

	types := ir.NewTypeRegistry(8)
	parsed, err := irparser.ParseFunction("pick", text, types)
	require.NoError(t, err)

	assert.Equal(t, text, printSingle(parsed))
	require.NoError(t, ir.ValidateUnit(&ir.StaticUnit{Functions: []*ir.StaticFunction{parsed}}))
}

func TestRoundTripUndefinedRead(t *testing.T) {
	fn := undefinedReadFunction(t)
	text := printSingle(fn)

	types := ir.NewTypeRegistry(8)
	parsed, err := irparser.ParseFunction("maybe", text, types)
	require.NoError(t, err)

	assert.Equal(t, text, printSingle(parsed))
}

func TestParseRejectsBadPhiPredecessor(t *testing.T) {
	text := "BLOCK0:\nubr BLOCK1\nBLOCK1:\ny0 = phi (x1 : BLOCK7)\nreturn y0\n"
	types := ir.NewTypeRegistry(8)
	_, err := irparser.ParseFunction("bad", text, types)
	assert.Error(t, err)
}
