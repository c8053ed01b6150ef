package ir

// UndefinedDefID is the sentinel def-id reported for a variable that has no
// reaching definition on some path. It is not an error by itself; the
// determinator pass (determinator.go) is what turns a read of an undefined
// def into a runtime trap.
const UndefinedDefID = -1

// Variable owns a name, a mutable type, the component that scopes it, and a
// monotonically increasing def-id counter. It outlives every Def and Use
// that references it.
type Variable struct {
	id           int
	name         string
	typ          *Type
	scope        Component
	nextDefID    int
	undefinedDef *Def
}

// newVariable creates a variable with a stable id unique within its owning
// Program (see Program.NewVariable, which is the usual construction path).
func newVariable(id int, name string, typ *Type, scope Component) *Variable {
	return &Variable{id: id, name: name, typ: typ, scope: scope}
}

func (v *Variable) ID() int          { return v.id }
func (v *Variable) Name() string     { return v.name }
func (v *Variable) Type() *Type      { return v.typ }
func (v *Variable) Scope() Component { return v.scope }

// SetType changes the variable's type. The type is deliberately mutable: a
// variable's declared type can be refined as more of the program is seen.
func (v *Variable) SetType(t *Type) { v.typ = t }

// CreateDef allocates a new Def for this variable, bound to instr, with the
// next def-id in sequence. The def's result type is snapshotted from the
// variable's current type: Variable.Type is mutable (SetType), but a def
// already on the books must keep reporting the type it was produced under,
// so that phi construction over defs spanning a type refinement can still
// tell them apart and coalesce via LCA.
func (v *Variable) CreateDef(instr *Instruction) *Def {
	id := v.nextDefID
	v.nextDefID++
	return &Def{variable: v, instr: instr, id: id, resultType: v.typ}
}

// UndefinedDef returns the sentinel Def representing "no reaching
// definition" for this variable. It is stable per-variable so that two
// unresolved reads of the same variable compare equal.
func (v *Variable) UndefinedDef() *Def {
	if v.undefinedDef == nil {
		v.undefinedDef = &Def{variable: v, id: UndefinedDefID}
	}
	return v.undefinedDef
}

// Def is owned 1:1 by the instruction that produces it; destroying the
// instruction destroys the def. A def keeps no direct list of users — users
// are reached indirectly through the use-timeline that originates from it.
type Def struct {
	variable   *Variable
	instr      *Instruction
	id         int
	resultType *Type
}

func (d *Def) Variable() *Variable       { return d.variable }
func (d *Def) Instruction() *Instruction { return d.instr }
func (d *Def) ID() int                   { return d.id }

// ResultType returns the type this def's value was produced under, which
// may differ from d.Variable().Type() if the variable's declared type was
// later refined.
func (d *Def) ResultType() *Type {
	if d.resultType == nil {
		return d.variable.typ
	}
	return d.resultType
}

// IsUndefined reports whether this def is the "no reaching definition"
// sentinel rather than a real instruction result.
func (d *Def) IsUndefined() bool { return d.id == UndefinedDefID }

// Use is an operand slot reading a variable's value. It reports into exactly
// one use-timeline; when that timeline's origin def is destroyed, the use is
// invalidated rather than left dangling.
type Use struct {
	instr    *Instruction
	timeline *UseTimeline
}

// newUse creates a use against timeline on behalf of instr and registers it
// in the timeline's ordered use list.
func newUse(instr *Instruction, timeline *UseTimeline) *Use {
	u := &Use{instr: instr, timeline: timeline}
	timeline.uses = append(timeline.uses, u)
	return u
}

func (u *Use) Instruction() *Instruction { return u.instr }

// Timeline returns the use-timeline this use reports into, or nil if the use
// has been invalidated.
func (u *Use) Timeline() *UseTimeline { return u.timeline }

// Def returns the def this use observes. It fails with ErrUseInvalidated if
// the originating def was erased out from under this use.
func (u *Use) Def() (*Def, error) {
	if u.timeline == nil {
		return nil, ErrUseInvalidated
	}
	return u.timeline.originDef, nil
}

// invalidate detaches this use from its timeline. Called when the timeline's
// origin def is erased.
func (u *Use) invalidate() { u.timeline = nil }

// bindInstruction records which instruction this use is an operand of. Use
// resolution (resolve.go) constructs uses before the consuming instruction
// exists — Program.Emit calls this immediately after, so that by the time
// any later local def of the same variable needs to split this timeline's
// use list by position, every use's instruction (and therefore position) is
// already known.
func (u *Use) bindInstruction(instr *Instruction) { u.instr = instr }

// UseTimeline is a per-(block, variable, origin-def) run of uses, in
// instruction-sequence order. All uses in one timeline see the same
// reaching def. An empty defPos (see isIncoming) denotes an "incoming"
// timeline whose def lives in a phi or is externally undefined.
type UseTimeline struct {
	block      *Block
	variable   *Variable
	originDef  *Def
	defPos     int // position of the defining instruction; incomingPos if incoming
	isIncoming bool
	uses       []*Use
}

// incomingPos is the defPos recorded for an incoming use-timeline: it must
// sort before every local defPos, which starts at 0.
const incomingPos = -1

func newUseTimeline(block *Block, v *Variable, originDef *Def, defPos int, incoming bool) *UseTimeline {
	return &UseTimeline{block: block, variable: v, originDef: originDef, defPos: defPos, isIncoming: incoming}
}

func (ut *UseTimeline) Block() *Block       { return ut.block }
func (ut *UseTimeline) Variable() *Variable { return ut.variable }
func (ut *UseTimeline) OriginDef() *Def     { return ut.originDef }
func (ut *UseTimeline) DefPosition() int    { return ut.defPos }
func (ut *UseTimeline) IsIncoming() bool    { return ut.isIncoming }
func (ut *UseTimeline) Uses() []*Use        { return ut.uses }

// invalidateAll detaches every use currently chained on this timeline. It is
// called when the timeline's origin def is erased.
func (ut *UseTimeline) invalidateAll() {
	for _, u := range ut.uses {
		u.invalidate()
	}
	ut.uses = nil
}

// splitAt partitions this timeline's uses into those at or before pos
// (retained on ut) and those strictly after pos (returned, to be relinked
// onto a newly inserted timeline). Uses are identified by the position of
// the instruction they appear in.
func (ut *UseTimeline) splitAt(pos int) []*Use {
	keep := ut.uses[:0:0]
	var after []*Use
	for _, u := range ut.uses {
		if u.instr.pos <= pos {
			keep = append(keep, u)
		} else {
			after = append(after, u)
		}
	}
	ut.uses = keep
	return after
}
