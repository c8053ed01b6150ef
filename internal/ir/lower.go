package ir

import (
	"fmt"
	"sort"

	"github.com/iancoleman/strcase"
)

// StaticOperand is the sum type StaticConstant | StaticUse that a lowered
// instruction's operand list is built from — the static-form analog of
// Operand, with every Use replaced by the plain (variable id, def id) pair
// it resolved to.
type StaticOperand interface{ isStaticOperand() }

// StaticConstant is a lowered literal operand.
type StaticConstant struct {
	Typ   *Type
	Value interface{}
}

func (StaticConstant) isStaticOperand() {}

// StaticUse is a lowered variable read: a dense variable id and the def id
// it was resolved to (UndefinedDefID if the variable is read without ever
// having been assigned on the path taken).
type StaticUse struct {
	VariableID int
	DefID      int
}

func (StaticUse) isStaticOperand() {}

// StaticVariable is a lowered variable: just an id, a name (for
// diagnostics and the textual form), and the type it carried at the def
// site(s) it participates in.
type StaticVariable struct {
	ID   int
	Name string
	Type *Type
}

// StaticInstruction is a lowered instruction. Targets is populated only for
// the branch opcodes (OpUCBranch: one target; OpCBranch: [target, ...])
// and holds dense StaticBlock ids; Operands never contains block ids, only
// values.
type StaticInstruction struct {
	Opcode     Opcode
	DefID      int
	VariableID int
	Operands   []StaticOperand
	Targets    []int

	// PhiBlocks is populated only for OpPhi: PhiBlocks[i] is the dense
	// (natural) id of the predecessor block Operands[i] was contributed by.
	// It has the same length as, and index-correspondence with, Operands,
	// since both are built from the same Predecessors(block) call that
	// resolve.go's mergeDefs used to construct the phi in the first place.
	PhiBlocks []int
}

// StaticBlock is a lowered basic block: a flat instruction list (phis still
// ordered first, matching the source Block) followed by exactly one
// explicit terminator, synthesized from the source component tree's
// successor relationship. A guard block is synthesized ahead of a source
// block that has one or more potentially-undefined reads, testing each
// tracked variable's determinator anchor before letting control reach the
// block's own content; a trap block is synthesized per guard, holding the
// diagnostic call taken when the anchor is false.
type StaticBlock struct {
	ID           int
	Name         string
	Instructions []*StaticInstruction
	Terminator   *StaticInstruction
}

// StaticFunction is a lowered function: its argument/return variable lists,
// every variable referenced in its body (dense ids 0..len-1), and its
// blocks (dense ids, guard and trap blocks interleaved ahead of the real
// blocks they protect).
type StaticFunction struct {
	Name         string
	External     bool
	Args         []*StaticVariable
	Rets         []*StaticVariable
	Variables    []*StaticVariable
	Blocks       []*StaticBlock
	EntryBlockID int
}

// StaticUnit groups every function lowered from one Program, mirroring the
// source's natural "one unit per translation" grouping.
type StaticUnit struct {
	Functions []*StaticFunction
}

// Lower performs static lowering over every declared function in p.
func Lower(p *Program) (*StaticUnit, error) {
	unit := &StaticUnit{}
	for _, fn := range p.Functions() {
		sfn, err := lowerFunction(p, fn)
		if err != nil {
			return nil, err
		}
		unit.Functions = append(unit.Functions, sfn)
	}
	if err := ValidateUnit(unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// lowerFunction assigns every block a dense id (a guarded block's natural
// id belongs to the first guard in its chain; its own content is pushed to
// a freshly allocated id that only that chain's last guard ever targets),
// lowers each block's content, and appends the guard and trap blocks the
// determinator's injections require.
func lowerFunction(p *Program, fn *Function) (*StaticFunction, error) {
	if fn.External() {
		return &StaticFunction{Name: fn.Name(), External: true}, nil
	}

	blocks := AllBlocks(fn.Body())

	varID := make(map[*Variable]int)
	var staticVars []*StaticVariable
	intern := func(v *Variable) int {
		if id, ok := varID[v]; ok {
			return id
		}
		id := len(staticVars)
		varID[v] = id
		staticVars = append(staticVars, &StaticVariable{ID: id, Name: v.Name(), Type: v.Type()})
		return id
	}

	det := NewDeterminator(p, fn)
	injections, err := det.Run()
	if err != nil {
		return nil, err
	}

	// Group injections by the block they guard, preserving the order Run()
	// discovered them in so a block with more than one guarded variable gets
	// a deterministic chain.
	byBlock := make(map[*Block][]*GuardInjection)
	var guardedOrder []*Block
	for _, inj := range injections {
		if _, seen := byBlock[inj.Block]; !seen {
			guardedOrder = append(guardedOrder, inj.Block)
		}
		byBlock[inj.Block] = append(byBlock[inj.Block], inj)
	}

	realID := make(map[*Block]int, len(blocks))
	counter := 0
	for _, b := range blocks {
		realID[b] = counter
		counter++
	}
	contentID := make(map[*Block]int, len(blocks))
	for _, b := range blocks {
		if len(byBlock[b]) == 0 {
			contentID[b] = realID[b]
			continue
		}
		contentID[b] = counter
		counter++
	}

	var guardBlocks []*StaticBlock
	var trapBlocks []*StaticBlock
	for _, b := range guardedOrder {
		injs := byBlock[b]
		ids := make([]int, len(injs))
		for i := range injs {
			if i == 0 {
				ids[i] = realID[b]
				continue
			}
			ids[i] = counter
			counter++
		}

		for i, inj := range injs {
			anchorUse, aerr := p.resolveAt(inj.Block, inj.Anchor, 0)
			if aerr != nil {
				return nil, aerr
			}
			anchorDef, aerr := anchorUse.Def()
			if aerr != nil {
				return nil, aerr
			}

			trapID := counter
			counter++
			trapBlocks = append(trapBlocks, buildTrapBlock(p, trapID, b.Name(), inj.Variable.Name()))

			trueTarget := contentID[b]
			if i+1 < len(injs) {
				trueTarget = ids[i+1]
			}

			guardBlocks = append(guardBlocks, &StaticBlock{
				ID:   ids[i],
				Name: "guard." + strcase.ToSnake(b.Name()) + "." + strcase.ToSnake(inj.Variable.Name()),
				Terminator: &StaticInstruction{
					Opcode:   OpCBranch,
					Operands: []StaticOperand{StaticUse{VariableID: intern(inj.Anchor), DefID: anchorDef.ID()}},
					Targets:  []int{trueTarget, trapID},
				},
			})
		}
	}

	leaves := make(map[*Block]bool)
	for _, l := range Leaves(fn.Body()) {
		leaves[l] = true
	}

	var realBlocks []*StaticBlock
	for _, b := range blocks {
		sb := &StaticBlock{ID: contentID[b], Name: b.Name()}
		for _, instr := range b.Instructions() {
			sb.Instructions = append(sb.Instructions, lowerInstruction(instr, realID, intern))
		}

		term, terr := lowerTerminator(p, fn, b, leaves[b], realID, intern)
		if terr != nil {
			return nil, terr
		}
		sb.Terminator = term
		realBlocks = append(realBlocks, sb)
	}

	allBlocks := append(realBlocks, guardBlocks...)
	allBlocks = append(allBlocks, trapBlocks...)
	sort.Slice(allBlocks, func(i, j int) bool { return allBlocks[i].ID < allBlocks[j].ID })

	sfn := &StaticFunction{
		Name:         fn.Name(),
		EntryBlockID: realID[EntryBlock(fn.Body())],
		Blocks:       allBlocks,
	}
	for _, a := range fn.Args() {
		sfn.Args = append(sfn.Args, staticVars[intern(a)])
	}
	for _, r := range fn.Rets() {
		sfn.Rets = append(sfn.Rets, staticVars[intern(r)])
	}
	sfn.Variables = staticVars
	return sfn, nil
}

// buildTrapBlock synthesizes the block a guard diverts to when its anchor
// is false: a diagnostic call naming the variable, followed by unreachable.
// The call's callee is carried as its first operand (a string constant)
// rather than a dedicated field, matching how front-end-authored OpCall
// instructions already carry a called name ahead of their argument list.
func buildTrapBlock(p *Program, id int, blockName, variableName string) *StaticBlock {
	str := stringType(p)
	msg := fmt.Sprintf("The variable `%s` was uninitialized at this time.", variableName)
	return &StaticBlock{
		ID:   id,
		Name: "trap." + strcase.ToSnake(blockName) + "." + strcase.ToSnake(variableName),
		Instructions: []*StaticInstruction{{
			Opcode:     OpCall,
			DefID:      UndefinedDefID,
			VariableID: -1,
			Operands: []StaticOperand{
				StaticConstant{Typ: str, Value: "print_error"},
				StaticConstant{Typ: str, Value: msg},
			},
		}},
		Terminator: &StaticInstruction{Opcode: OpUnreachable},
	}
}

// stringType returns the program's registered "string" type, registering it
// on first use against the "any" root. The determinator and lowering are
// the only parts of the core that need a string-typed constant of their
// own — front-end-authored programs carry their own string type under
// whatever name the source language gave it.
func stringType(p *Program) *Type {
	if t, ok := p.Types().Lookup("string"); ok {
		return t
	}
	return p.Types().RegisterPrimitive("string", p.Types().pointerSize, false, nil)
}

func lowerInstruction(instr *Instruction, realID map[*Block]int, intern func(*Variable) int) *StaticInstruction {
	si := &StaticInstruction{Opcode: instr.Opcode(), DefID: UndefinedDefID, VariableID: -1}
	if d := instr.Def(); d != nil {
		si.VariableID = intern(d.Variable())
		si.DefID = d.ID()
	}
	for _, operand := range instr.Operands() {
		si.Operands = append(si.Operands, lowerOperand(operand, intern))
	}
	if instr.IsPhi() {
		for _, pred := range Predecessors(instr.Block()) {
			si.PhiBlocks = append(si.PhiBlocks, realID[pred])
		}
	}
	return si
}

func lowerOperand(op Operand, intern func(*Variable) int) StaticOperand {
	switch v := op.(type) {
	case Constant:
		return StaticConstant{Typ: v.Typ, Value: v.Value}
	case UseOperand:
		d, err := v.Def()
		if err != nil {
			return StaticUse{VariableID: -1, DefID: UndefinedDefID}
		}
		return StaticUse{VariableID: intern(d.Variable()), DefID: d.ID()}
	default:
		panic("ir: unknown operand kind")
	}
}

// lowerTerminator synthesizes b's explicit terminator from the component
// tree's successor relationship: no successors and a function leaf means
// ret, no successors elsewhere means unreachable, one successor means an
// unconditional branch, and more than one means a conditional branch on
// b's condition variable. Every target names a successor's natural (real)
// id — when that successor has a guard chain, its natural id is the
// chain's first guard, which is exactly where control must enter it.
func lowerTerminator(p *Program, fn *Function, b *Block, isLeaf bool, realID map[*Block]int, intern func(*Variable) int) (*StaticInstruction, error) {
	succs := Successors(b)

	switch {
	case len(succs) == 0 && isLeaf:
		term := &StaticInstruction{Opcode: OpRet}
		for _, r := range fn.Rets() {
			use, err := p.resolveAtEnd(b, r)
			if err != nil {
				return nil, err
			}
			d, err := use.Def()
			if err != nil {
				return nil, err
			}
			term.Operands = append(term.Operands, StaticUse{VariableID: intern(r), DefID: d.ID()})
		}
		return term, nil
	case len(succs) == 0:
		return &StaticInstruction{Opcode: OpUnreachable}, nil
	case len(succs) == 1:
		return &StaticInstruction{Opcode: OpUCBranch, Targets: []int{realID[succs[0]]}}, nil
	default:
		var condOperand StaticOperand = StaticUse{VariableID: -1, DefID: UndefinedDefID}
		if cond := b.Condition(); cond != nil {
			use, err := p.resolveAtEnd(b, cond)
			if err != nil {
				return nil, err
			}
			d, err := use.Def()
			if err != nil {
				return nil, err
			}
			condOperand = StaticUse{VariableID: intern(cond), DefID: d.ID()}
		}
		targets := make([]int, len(succs))
		for i, s := range succs {
			targets[i] = realID[s]
		}
		return &StaticInstruction{Opcode: OpCBranch, Operands: []StaticOperand{condOperand}, Targets: targets}, nil
	}
}
