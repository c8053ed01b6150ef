package ir

import "testing"

// newTestProgram returns a program with an int primitive registered, plus
// the type itself, for scenario tests that don't need anything richer.
func newTestProgram(t *testing.T) (*Program, *Type) {
	t.Helper()
	p := NewProgram(8)
	intType := p.Types().RegisterPrimitive("int", 8, true, nil)
	return p, intType
}

func blockByID(fn *StaticFunction, id int) *StaticBlock {
	for _, b := range fn.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// TestStraightLineLowering covers scenario 1: a single block, no branches,
// assigning a constant and returning it — the case that pins down assign's
// bare "d = value" printed form with no opcode keyword.
func TestStraightLineLowering(t *testing.T) {
	p, intType := newTestProgram(t)
	entry := NewBlock("entry")

	x := p.NewVariable("x", intType, entry)
	if _, err := p.Emit(entry, OpAssign, x, []Operand{Constant{Typ: intType, Value: 1}}); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	fn, err := p.DeclareFunction("main", entry, false)
	if err != nil {
		t.Fatalf("DeclareFunction: %v", err)
	}
	fn.SetRets([]*Variable{x})

	unit, err := Lower(p)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	got := Print(unit)
	want := "BLOCK0:\nx0 = 1\nreturn x0\n"
	if got != want {
		t.Fatalf("Print() = %q, want %q", got, want)
	}
}

// buildMergeProgram builds an if/else that both branches assign x in, then
// join on a block that reads x — the scenario 2 shape (join producing a
// phi with one operand per predecessor). The whole tree, including every
// instruction, is built before DeclareFunction is ever called, matching the
// front-end's "build everything, then declare" discipline.
func buildMergeProgram(t *testing.T) (*Program, *Function, *Block, *Variable) {
	t.Helper()
	p, intType := newTestProgram(t)
	boolType := p.Types().RegisterPrimitive("bool", 1, true, nil)

	condBlock := NewBlock("cond")
	thenBlock := NewBlock("then")
	elseBlock := NewBlock("else")
	joinBlock := NewBlock("join")
	fork := NewFork(condBlock, thenBlock, elseBlock)
	body := NewSequence(fork, joinBlock)

	cond := p.NewVariable("cond", boolType, condBlock)
	x := p.NewVariable("x", intType, fork)

	if _, err := p.Emit(condBlock, OpAssign, cond, []Operand{Constant{Typ: boolType, Value: true}}); err != nil {
		t.Fatalf("Emit cond: %v", err)
	}
	condBlock.SetCondition(cond)
	if _, err := p.Emit(thenBlock, OpAssign, x, []Operand{Constant{Typ: intType, Value: 1}}); err != nil {
		t.Fatalf("Emit then: %v", err)
	}
	if _, err := p.Emit(elseBlock, OpAssign, x, []Operand{Constant{Typ: intType, Value: 2}}); err != nil {
		t.Fatalf("Emit else: %v", err)
	}

	useOp, err := p.ReadOperand(joinBlock, x)
	if err != nil {
		t.Fatalf("ReadOperand: %v", err)
	}
	y := p.NewVariable("y", intType, joinBlock)
	if _, err := p.Emit(joinBlock, OpAssign, y, []Operand{useOp}); err != nil {
		t.Fatalf("Emit join use of x: %v", err)
	}

	fn, err := p.DeclareFunction("pick", body, false)
	if err != nil {
		t.Fatalf("DeclareFunction: %v", err)
	}
	fn.SetRets([]*Variable{y})
	return p, fn, joinBlock, x
}

// TestMergeSealsPhi exercises a real two-predecessor merge and proves
// Block.Seal, now wired into DeclareFunction, actually finalizes the join
// block's phi with one operand per predecessor instead of leaving it empty
// forever.
func TestMergeSealsPhi(t *testing.T) {
	p, fn, joinBlock, _ := buildMergeProgram(t)

	if !joinBlock.Sealed() {
		t.Fatalf("join block was not sealed by DeclareFunction")
	}

	unit, err := Lower(p)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	sfn := unit.Functions[0]
	joinID := realIDOf(fn, joinBlock)
	joinSB := blockByID(sfn, joinID)
	if joinSB == nil {
		t.Fatalf("join block %d not found in lowered output", joinID)
	}
	if len(joinSB.Instructions) != 2 {
		t.Fatalf("expected the phi plus y's assign in join block, got %d instructions", len(joinSB.Instructions))
	}
	phi := joinSB.Instructions[0]
	if phi.Opcode != OpPhi {
		t.Fatalf("expected join block's first instruction to be a phi, got %v", phi.Opcode)
	}
	if len(phi.Operands) != 2 {
		t.Fatalf("phi has %d operands, want 2 (one per predecessor)", len(phi.Operands))
	}
	if len(phi.PhiBlocks) != 2 {
		t.Fatalf("phi has %d PhiBlocks entries, want 2", len(phi.PhiBlocks))
	}

	if err := ValidateUnit(unit); err != nil {
		t.Fatalf("ValidateUnit rejected Lower's own output: %v", err)
	}
}

// realIDOf recomputes the dense id lowering assigned to target, by
// re-running the same structural enumeration lowerFunction uses.
func realIDOf(fn *Function, target *Block) int {
	for i, b := range AllBlocks(fn.Body()) {
		if b == target {
			return i
		}
	}
	return -1
}

// TestUndefinedReadTraps covers scenario 4: a variable read on a path where
// it was never assigned synthesizes a guard/trap pair rather than silently
// reading garbage.
func TestUndefinedReadTraps(t *testing.T) {
	p, intType := newTestProgram(t)
	boolType := p.Types().RegisterPrimitive("bool", 1, true, nil)

	condBlock := NewBlock("cond")
	thenBlock := NewBlock("then")
	elseBlock := NewBlock("else")
	joinBlock := NewBlock("join")
	fork := NewFork(condBlock, thenBlock, elseBlock)
	body := NewSequence(fork, joinBlock)

	cond := p.NewVariable("cond", boolType, condBlock)
	x := p.NewVariable("x", intType, fork)

	if _, err := p.Emit(condBlock, OpAssign, cond, []Operand{Constant{Typ: boolType, Value: true}}); err != nil {
		t.Fatalf("Emit cond: %v", err)
	}
	condBlock.SetCondition(cond)
	if _, err := p.Emit(thenBlock, OpAssign, x, []Operand{Constant{Typ: intType, Value: 1}}); err != nil {
		t.Fatalf("Emit then: %v", err)
	}
	// elseBlock never assigns x: the join's read of x may observe "undefined".

	useOp, err := p.ReadOperand(joinBlock, x)
	if err != nil {
		t.Fatalf("ReadOperand: %v", err)
	}
	y := p.NewVariable("y", intType, joinBlock)
	if _, err := p.Emit(joinBlock, OpAssign, y, []Operand{useOp}); err != nil {
		t.Fatalf("Emit use of x: %v", err)
	}

	fn, err := p.DeclareFunction("maybe", body, false)
	if err != nil {
		t.Fatalf("DeclareFunction: %v", err)
	}
	fn.SetRets([]*Variable{y})

	unit, err := Lower(p)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	sfn := unit.Functions[0]
	var sawGuard, sawTrap bool
	for _, b := range sfn.Blocks {
		if b.Terminator.Opcode == OpCBranch && len(b.Instructions) == 0 {
			sawGuard = true
		}
		if b.Terminator.Opcode == OpUnreachable {
			sawTrap = true
			if len(b.Instructions) != 1 || b.Instructions[0].Opcode != OpCall {
				t.Fatalf("trap block should hold exactly one call instruction")
			}
		}
	}
	if !sawGuard {
		t.Fatalf("expected a guard block testing the anchor before the join block's content")
	}
	if !sawTrap {
		t.Fatalf("expected a trap block diverted to when the anchor is false")
	}

	if err := ValidateUnit(unit); err != nil {
		t.Fatalf("ValidateUnit rejected Lower's own output: %v", err)
	}
}

// TestDeclareFunctionRejectsOutOfScopeVariable proves ErrVariableNotInScope
// is reachable: a variable scoped to one branch of a fork but defined in
// the other is rejected at DeclareFunction time.
func TestDeclareFunctionRejectsOutOfScopeVariable(t *testing.T) {
	p, intType := newTestProgram(t)
	boolType := p.Types().RegisterPrimitive("bool", 1, true, nil)

	condBlock := NewBlock("cond")
	cond := p.NewVariable("cond", boolType, condBlock)
	if _, err := p.Emit(condBlock, OpAssign, cond, []Operand{Constant{Typ: boolType, Value: true}}); err != nil {
		t.Fatalf("Emit cond: %v", err)
	}
	condBlock.SetCondition(cond)

	thenBlock := NewBlock("then")
	elseBlock := NewBlock("else")
	fork := NewFork(condBlock, thenBlock, elseBlock)

	// x is scoped to elseBlock but defined in thenBlock.
	x := p.NewVariable("x", intType, elseBlock)
	if _, err := p.Emit(thenBlock, OpAssign, x, []Operand{Constant{Typ: intType, Value: 1}}); err != nil {
		t.Fatalf("Emit x: %v", err)
	}

	_, err := p.DeclareFunction("bad", fork, false)
	if err == nil {
		t.Fatalf("expected DeclareFunction to reject an out-of-scope def")
	}
	if got := rootCause(err); got != ErrVariableNotInScope {
		t.Fatalf("expected ErrVariableNotInScope, got %v", got)
	}
}

// TestValidateUnitRejectsBadPhiPredecessor proves ErrPhiHasNoSuchPredecessor
// is reachable directly against a hand-built StaticUnit, the shape a
// corrupted textual form parses back into.
func TestValidateUnitRejectsBadPhiPredecessor(t *testing.T) {
	unit := &StaticUnit{Functions: []*StaticFunction{{
		Name: "bad",
		Blocks: []*StaticBlock{
			{ID: 0, Terminator: &StaticInstruction{Opcode: OpUCBranch, Targets: []int{1}}},
			{
				ID: 1,
				Instructions: []*StaticInstruction{{
					Opcode:     OpPhi,
					VariableID: 0,
					DefID:      0,
					Operands:   []StaticOperand{StaticUse{VariableID: 0, DefID: 0}},
					PhiBlocks:  []int{7}, // 7 is not a predecessor of block 1
				}},
				Terminator: &StaticInstruction{Opcode: OpRet},
			},
		},
	}}}

	err := ValidateUnit(unit)
	if err == nil {
		t.Fatalf("expected ValidateUnit to reject a phi naming a non-predecessor")
	}
	if got := rootCause(err); got != ErrPhiHasNoSuchPredecessor {
		t.Fatalf("expected ErrPhiHasNoSuchPredecessor, got %v", got)
	}
}

// TestSealIsIdempotent proves a second Seal call on an already-sealed block
// is a harmless no-op, as resolve.go's doc comment promises.
func TestSealIsIdempotent(t *testing.T) {
	p, fn, joinBlock, _ := buildMergeProgram(t)
	_ = fn
	if err := joinBlock.Seal(p); err != nil {
		t.Fatalf("second Seal call returned an error: %v", err)
	}
}

// rootCause unwraps err down to the sentinel errors.go declares, the way a
// caller comparing with errors.Is would.
func rootCause(err error) error {
	type causer interface{ Cause() error }
	for {
		c, ok := err.(causer)
		if !ok {
			return err
		}
		err = c.Cause()
	}
}
