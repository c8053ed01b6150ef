package ir

import (
	"github.com/iancoleman/strcase"

	"github.com/gharveymn/octave-ir-sub000/internal/irlog"
)

var determinatorLog = irlog.For("determinator")

// Determinator finds every read that might observe "no reaching
// definition" and, for each variable that needs one, materializes a
// boolean companion variable (the *anchor*) tracking whether the original
// has been assigned: false at the function's entry, true immediately
// after every real def. The anchor is wired into the dynamic IR through
// the program's ordinary Emit/EmitAt, so its own cross-block merging is
// resolved by the exact same phi machinery that resolves the variable it
// tracks — no separate shadow dataflow analysis is needed. The
// determinator never touches the instruction each flagged read appears
// in; it returns a replay list of GuardInjections recording where static
// lowering (lower.go) must test the anchor and divert to a trap, applied
// only at lowering time.
type Determinator struct {
	prog    *Program
	fn      *Function
	anchors map[*Variable]*Variable
	guarded map[blockVarKey]bool
}

type blockVarKey struct {
	block *Block
	v     *Variable
}

// NewDeterminator creates a determinator pass over fn.
func NewDeterminator(p *Program, fn *Function) *Determinator {
	return &Determinator{
		prog:    p,
		fn:      fn,
		anchors: make(map[*Variable]*Variable),
		guarded: make(map[blockVarKey]bool),
	}
}

// GuardInjection records one point in the program where a read might
// observe an undefined variable: Before is the instruction the read
// appears in, Def is the (possibly-undefined) reaching def, and Anchor is
// the boolean companion variable lowering should test before letting
// control reach Before. Since a read flagged this way is always, by
// construction, fed by a phi or the bare undefined sentinel rather than a
// same-block local def (any local def would have resolved the read
// directly, never reaching a phi), the anchor's value at the start of
// Block is exactly the value it carries immediately before Before too —
// lowering tests it once, at block entry, and every later flagged read in
// the same block reuses that same test.
type GuardInjection struct {
	Block    *Block
	Before   *Instruction
	Variable *Variable
	Anchor   *Variable
	Def      *Def
}

// Anchors returns every anchor variable synthesized so far, keyed by the
// original variable it tracks.
func (d *Determinator) Anchors() map[*Variable]*Variable {
	out := make(map[*Variable]*Variable, len(d.anchors))
	for k, v := range d.anchors {
		out[k] = v
	}
	return out
}

// Run walks every block in the function's component tree, flags every
// read that might observe an undefined def, materializes that def's
// variable's anchor on first encounter, and returns one GuardInjection per
// (block, variable) pair that needs a guard.
func (d *Determinator) Run() ([]*GuardInjection, error) {
	var out []*GuardInjection
	for _, block := range AllBlocks(d.fn.Body()) {
		for _, instr := range block.Instructions() {
			for _, operand := range instr.Operands() {
				uo, ok := operand.(UseOperand)
				if !ok {
					continue
				}
				def, err := uo.Def()
				if err != nil {
					continue
				}
				if !d.classify(def, make(map[*Def]bool)) {
					continue
				}
				inj, err := d.injectGuard(block, instr, def)
				if err != nil {
					return nil, err
				}
				if inj != nil {
					out = append(out, inj)
				}
			}
		}
	}
	return out, nil
}

// classify reports whether def is determinate (always backed by a real
// computation on every path) or potentially undefined (the sentinel
// itself, or a phi with at least one potentially-undefined operand).
// Operands that are themselves a cyclic self-reference (a loop-carried phi
// reading its own prior value) are assumed determinate on the cycle-closing
// edge, matching the same optimistic simplification resolve.go already
// makes for self-referential phis — a full fixpoint over the whole
// dataflow lattice is not attempted.
func (d *Determinator) classify(def *Def, visiting map[*Def]bool) bool {
	if def.IsUndefined() {
		return true
	}
	instr := def.Instruction()
	if instr == nil || !instr.IsPhi() {
		return false
	}
	if visiting[def] {
		return false
	}
	visiting[def] = true
	for _, operand := range instr.Operands() {
		uo, ok := operand.(UseOperand)
		if !ok {
			continue
		}
		opDef, err := uo.Def()
		if err != nil {
			continue
		}
		if d.classify(opDef, visiting) {
			return true
		}
	}
	return false
}

// injectGuard returns a new GuardInjection for (block, def.Variable()), or
// nil if that pair was already guarded by an earlier read in the same
// block.
func (d *Determinator) injectGuard(block *Block, instr *Instruction, def *Def) (*GuardInjection, error) {
	v := def.Variable()
	key := blockVarKey{block: block, v: v}
	if d.guarded[key] {
		return nil, nil
	}
	d.guarded[key] = true

	anchor, err := d.anchorFor(v)
	if err != nil {
		return nil, err
	}
	determinatorLog.Debugf("guarding possibly-undefined read of %q in block %q", v.Name(), block.Name())
	return &GuardInjection{
		Block:    block,
		Before:   instr,
		Variable: v,
		Anchor:   anchor,
		Def:      def,
	}, nil
}

// anchorFor returns (materializing into the dynamic IR on first use) the
// boolean companion variable tracking whether v has been assigned.
func (d *Determinator) anchorFor(v *Variable) (*Variable, error) {
	if a, ok := d.anchors[v]; ok {
		return a, nil
	}

	boolType, ok := d.prog.Types().Lookup("bool")
	if !ok {
		boolType = d.prog.Types().RegisterPrimitive("bool", 1, true, nil)
	}
	name := strcase.ToSnake(v.Name()) + "_is_defined"
	// Scoped to the whole function, not v.Scope(): the false-init below
	// always lands at the function's entry block, which may sit outside a
	// more narrowly scoped v. Matches insertConvertDef's convention for the
	// same reason.
	a := d.prog.NewVariable(name, boolType, d.fn)
	d.anchors[v] = a

	entry := EntryBlock(d.fn.Body())
	falseConst := Constant{Typ: boolType, Value: false}
	if _, err := d.prog.EmitAt(entry, 0, OpAssign, a, []Operand{falseConst}); err != nil {
		return nil, err
	}

	trueConst := Constant{Typ: boolType, Value: true}
	for _, block := range AllBlocks(d.fn.Body()) {
		for _, instr := range append([]*Instruction(nil), block.Body()...) {
			def := instr.Def()
			if def == nil || def.Variable() != v || instr.IsPhi() {
				continue
			}
			if _, err := d.prog.EmitAt(block, instr.Position()+1, OpAssign, a, []Operand{trueConst}); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}
