package ir

import (
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	"github.com/segmentio/ksuid"
)

// Program is the top-level unit: it owns the type registry, the variable
// id-space, and the declared function list. The core's contract (spec §5) is
// single-threaded per Program. DeclareFunction, NewVariable, Functions and
// LookupFunction take the guard mutex; Emit and EmitAt do not. go-deadlock
// is a drop-in sync.Mutex that additionally detects an accidental second
// caller holding it across a goroutine boundary, which is exactly the
// misuse this contract forbids silently corrupting state over.
type Program struct {
	mu deadlock.Mutex

	id    ksuid.KSUID
	types *TypeRegistry

	functions []*Function
	byName    map[string]*Function

	nextVarID int
}

// NewProgram creates an empty program with its own type registry.
// pointerSize is forwarded to NewTypeRegistry.
func NewProgram(pointerSize int) *Program {
	return &Program{
		id:     ksuid.New(),
		types:  NewTypeRegistry(pointerSize),
		byName: make(map[string]*Function),
	}
}

// ID returns a stable, sortable identifier stamped at program creation —
// useful as a correlation id in diagnostics and logs, never interpreted by
// the core itself.
func (p *Program) ID() string { return p.id.String() }

// Types returns the program's type registry.
func (p *Program) Types() *TypeRegistry { return p.types }

// Functions returns the declared functions, in declaration order.
func (p *Program) Functions() []*Function {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Function, len(p.functions))
	copy(out, p.functions)
	return out
}

// LookupFunction finds a previously declared function by name.
func (p *Program) LookupFunction(name string) (*Function, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn, ok := p.byName[name]
	return fn, ok
}

// DeclareFunction registers a new function rooted at body. external marks a
// function with no body of its own (an imported symbol resolved elsewhere),
// mirroring the distinction call resolution needs at lowering time.
//
// For a non-external function this is also where the front-end's
// construction discipline is closed out: the caller is expected to have
// already built the entire component tree (every block, every
// instruction, every Sequence/Fork/Loop wiring) before calling
// DeclareFunction, so this is the first point a fully-wired tree coincides
// with a *Program to finalize it against. Two passes run over
// AllBlocks(body), in order:
//
//  1. every block is sealed (Block.Seal), finalizing whatever incomplete
//     phis resolution left pending. Sealing in structural order is safe
//     regardless of a block's position in the tree: querying a not-yet-sealed
//     predecessor mid-pass only ever yields another incomplete phi, which is
//     itself finalized once that block's own turn comes later in the same
//     pass (see resolve.go).
//  2. every def-producing instruction is checked against its variable's
//     declared scope, catching a front-end that defined a variable inside a
//     component its own scope doesn't cover.
func (p *Program) DeclareFunction(name string, body Component, external bool) (*Function, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byName[name]; exists {
		return nil, errors.Errorf("ir: function %q already declared", name)
	}
	fn := NewFunction(name, body)
	fn.SetExternal(external)

	if !external {
		blocks := AllBlocks(body)
		for _, block := range blocks {
			if err := block.Seal(p); err != nil {
				return nil, err
			}
		}
		for _, block := range blocks {
			for _, instr := range block.Instructions() {
				def := instr.Def()
				if def == nil || instr.IsPhi() {
					continue
				}
				if !IsSubcomponentOf(def.Variable().Scope(), block) {
					return nil, wellFormed(ErrVariableNotInScope,
						"variable %q is scoped outside the block it is defined in", def.Variable().Name())
				}
			}
		}
	}

	p.functions = append(p.functions, fn)
	p.byName[name] = fn
	return fn, nil
}

// NewVariable allocates a variable with a program-unique id, scoped to the
// given component.
func (p *Program) NewVariable(name string, typ *Type, scope Component) *Variable {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextVarID
	p.nextVarID++
	return newVariable(id, name, typ, scope)
}

// Emit appends a non-phi instruction to the end of block's body, allocating
// a fresh def (and recording it in the block's def-timeline for v) when the
// opcode produces one. v is ignored for defless opcodes and required
// otherwise.
func (p *Program) Emit(block *Block, op Opcode, v *Variable, operands []Operand) (*Instruction, error) {
	m := MetadataOf(op)
	if m.HasDef && v == nil {
		return nil, wellFormed(ErrInvalidArity, "opcode %q requires a destination variable", m.Name)
	}

	instr, err := newInstruction(op, block, nil, operands)
	if err != nil {
		return nil, err
	}
	block.appendBody(instr)
	for _, operand := range operands {
		if uo, ok := operand.(UseOperand); ok {
			uo.Use.bindInstruction(instr)
		}
	}

	if m.HasDef {
		def := v.CreateDef(instr)
		instr.def = def
		block.timelineFor(v).emplaceLocalDef(def, instr.pos)
	}
	return instr, nil
}

// EmitAt splices a non-phi instruction into block's body at index pos,
// after the variable-graph's SSA shape has already been finalized for
// every variable that already has content in this block. Only the
// determinator pass uses this, to wire a boolean companion variable's defs
// at exact positions relative to the variable they track; ordinary
// front-end construction always goes through Emit, which only ever
// appends.
func (p *Program) EmitAt(block *Block, pos int, op Opcode, v *Variable, operands []Operand) (*Instruction, error) {
	m := MetadataOf(op)
	if m.HasDef && v == nil {
		return nil, wellFormed(ErrInvalidArity, "opcode %q requires a destination variable", m.Name)
	}

	instr, err := newInstruction(op, block, nil, operands)
	if err != nil {
		return nil, err
	}
	block.insertBody(pos, instr)
	for _, operand := range operands {
		if uo, ok := operand.(UseOperand); ok {
			uo.Use.bindInstruction(instr)
		}
	}

	if m.HasDef {
		def := v.CreateDef(instr)
		instr.def = def
		block.timelineFor(v).emplaceLocalDef(def, instr.pos)
	}
	return instr, nil
}

// ReadOperand resolves the value v holds immediately before the next
// instruction appended to block would run, wrapping it as an Operand ready
// to be passed to Emit. It delegates to the resolution engine in resolve.go.
func (p *Program) ReadOperand(block *Block, v *Variable) (Operand, error) {
	use, err := p.resolveAtEnd(block, v)
	if err != nil {
		return nil, err
	}
	return UseOperand{use}, nil
}
