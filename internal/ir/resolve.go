package ir

import "github.com/gharveymn/octave-ir-sub000/internal/irlog"

var resolveLog = irlog.For("resolve")

// This file implements def-resolution: given a read of variable v at some
// position in some block, find (or synthesize) the def that reaches it.
// Local reads are a direct lookup against the block's own DefTimeline.
// Cross-block reads ascend the predecessor graph (component.go's
// Predecessors), caching the answer as an IncomingNode so a hot variable in
// a hot block is resolved once.
//
// The one hazard is a block whose predecessor set is not yet fully known —
// a loop's condition block, specifically, is missing its back-edge
// predecessor until the loop's update component exists. Resolving such a
// block eagerly would recurse into the not-yet-built update and loop
// forever. Instead an unsealed block answers every read with a placeholder
// phi (an "incomplete phi") immediately, and the placeholder is only wired
// up to real predecessor operands once Block.Seal is called — by which
// point every predecessor, including the back edge, exists. This is the
// sealed-blocks-and-incomplete-phis construction discipline;
// Program.DeclareFunction calls Seal on every block of a function once its
// whole component tree has been built.

// resolveAtEnd resolves the value v holds after every instruction currently
// in block's body has run.
func (p *Program) resolveAtEnd(block *Block, v *Variable) (*Use, error) {
	return p.resolveAt(block, v, block.nextBodyPos)
}

// resolveAt resolves the value v holds at body position pos: the latest
// local def at or before pos (a def made by the instruction at pos itself
// counts), or, if there is none, the value reaching the block's entry.
func (p *Program) resolveAt(block *Block, v *Variable, pos int) (*Use, error) {
	dt := block.timelineFor(v)
	if lt := dt.timelineAt(pos); lt != nil {
		return newUse(nil, lt), nil
	}

	node, err := p.incomingFor(dt)
	if err != nil {
		return nil, err
	}
	if dt.incomingTimeline == nil {
		dt.incomingTimeline = newUseTimeline(block, v, node.def, incomingPos, true)
	}
	return newUse(nil, dt.incomingTimeline), nil
}

// incomingFor computes (or returns the cached) IncomingNode describing what
// reaches the entry of dt's block for dt's variable.
func (p *Program) incomingFor(dt *DefTimeline) (*IncomingNode, error) {
	if dt.incoming != nil {
		return dt.incoming, nil
	}

	block := dt.block
	v := dt.variable

	if !block.sealed {
		phi, phiDef := p.newPhi(block, v)
		node := newIncomingNode(block, v, phiDef, phi, nil)
		dt.incoming = node
		block.incompletePhis[v] = phi
		return node, nil
	}

	preds := Predecessors(block)
	var node *IncomingNode
	switch len(preds) {
	case 0:
		node = newIncomingNode(block, v, v.UndefinedDef(), nil, nil)
	case 1:
		use, err := p.resolveAtEnd(preds[0], v)
		if err != nil {
			return nil, err
		}
		def, err := use.Def()
		if err != nil {
			return nil, err
		}
		node = newIncomingNode(block, v, def, nil, []*DefTimeline{preds[0].timelineFor(v)})
	default:
		phi, phiDef := p.newPhi(block, v)
		var err error
		node, err = p.mergeDefs(block, v, phi, phiDef, preds)
		if err != nil {
			return nil, err
		}
	}
	dt.incoming = node
	return node, nil
}

// newPhi appends a fresh phi instruction (with no operands yet) to block and
// allocates the def it produces.
func (p *Program) newPhi(block *Block, v *Variable) (*Instruction, *Def) {
	instr := &Instruction{op: OpPhi, block: block}
	block.appendPhi(instr)
	def := v.CreateDef(instr)
	instr.def = def
	return instr, def
}

func removePhiInstruction(block *Block, phi *Instruction) {
	for i, existing := range block.phis {
		if existing == phi {
			block.phis = append(block.phis[:i], block.phis[i+1:]...)
			return
		}
	}
}

// mergeDefs resolves every predecessor's reaching def for v and either
// collapses phi into the single value they agree on (discarding phi) or
// finalizes phi with one operand per predecessor, normalizing types to
// their least common ancestor and inserting an explicit convert in any
// predecessor whose contributed value doesn't already have that type.
func (p *Program) mergeDefs(block *Block, v *Variable, phi *Instruction, phiDef *Def, preds []*Block) (*IncomingNode, error) {
	defs := make([]*Def, len(preds))
	timelines := make([]*UseTimeline, len(preds))
	for i, pred := range preds {
		use, err := p.resolveAtEnd(pred, v)
		if err != nil {
			return nil, err
		}
		d, err := use.Def()
		if err != nil {
			return nil, err
		}
		defs[i] = d
		timelines[i] = use.Timeline()
	}

	sources := make([]*DefTimeline, len(preds))
	for i, pred := range preds {
		sources[i] = pred.timelineFor(v)
	}

	if trivial, same := tryTrivialPhi(phiDef, defs); trivial {
		removePhiInstruction(block, phi)
		return newIncomingNode(block, v, same, nil, sources), nil
	}

	phiType, err := p.phiResultType(v, defs, phiDef)
	if err != nil {
		return nil, err
	}
	phiDef.resultType = phiType

	operands := make([]Operand, len(preds))
	for i, pred := range preds {
		d := defs[i]
		srcTL := timelines[i]
		if !d.IsUndefined() && d.ResultType() != phiType {
			convDef, convTL, cerr := p.insertConvertDef(pred, srcTL, phiType)
			if cerr != nil {
				return nil, cerr
			}
			d = convDef
			srcTL = convTL
		}
		operands[i] = UseOperand{newUse(phi, srcTL)}
	}
	phi.operands = operands

	return newIncomingNode(block, v, phiDef, phi, sources), nil
}

// tryTrivialPhi implements the Braun/Buchwald trivial-phi check: a phi whose
// operands are either its own def (a self-reference through a back edge) or
// all equal to one other def carries no information and can be replaced by
// that def everywhere.
func tryTrivialPhi(self *Def, defs []*Def) (bool, *Def) {
	var same *Def
	for _, d := range defs {
		if d == self {
			continue
		}
		if same != nil && d != same {
			return false, nil
		}
		same = d
	}
	if same == nil {
		same = self.Variable().UndefinedDef()
	}
	return true, same
}

// phiResultType computes the least common ancestor type across every
// non-self, non-undefined contributing def, returning ErrTypeMismatch if two
// or more contributing types share no ancestor.
func (p *Program) phiResultType(v *Variable, defs []*Def, self *Def) (*Type, error) {
	var result *Type
	contributors := 0
	for _, d := range defs {
		if d == self || d.IsUndefined() {
			continue
		}
		t := d.ResultType()
		if result == nil {
			result = t
		} else if t != result {
			result = LCA(result, t)
		}
		contributors++
	}
	if result == nil {
		return v.Type(), nil
	}
	if contributors > 1 && result == result.void() {
		return nil, wellFormed(ErrTypeMismatch, "phi for variable %q has no common ancestor type among its predecessors", v.Name())
	}
	return result, nil
}

// insertConvertDef appends an explicit convert instruction to the end of
// pred's body, converting the value on srcTimeline to target, and returns
// the fresh def (owned by a synthetic temporary variable) along with the
// UseTimeline it was emplaced on.
func (p *Program) insertConvertDef(pred *Block, srcTimeline *UseTimeline, target *Type) (*Def, *UseTimeline, error) {
	fn := functionOf(pred)
	// Allocated inline rather than through NewVariable: this also runs from
	// Seal while DeclareFunction already holds p.mu, which is not reentrant.
	id := p.nextVarID
	p.nextVarID++
	tmp := newVariable(id, "%conv", target, fn)

	operand := UseOperand{newUse(nil, srcTimeline)}
	instr, err := newInstruction(OpConvert, pred, nil, []Operand{operand})
	if err != nil {
		return nil, nil, err
	}
	pred.appendBody(instr)
	operand.Use.bindInstruction(instr)

	def := tmp.CreateDef(instr)
	instr.def = def
	ut := pred.timelineFor(tmp).emplaceLocalDef(def, instr.pos)
	return def, ut, nil
}

// functionOf walks c's parent chain to the owning Function root.
func functionOf(c Component) *Function {
	for cur := c; cur != nil; cur = cur.Parent() {
		if fn, ok := cur.(*Function); ok {
			return fn
		}
	}
	return nil
}

// Seal finalizes every incomplete phi created while b's predecessor set was
// still open, by resolving each one's real predecessors (now all known) and
// either collapsing it to the single value they agree on or completing its
// operand list. Seal is idempotent; Program.DeclareFunction calls it on
// every block once the function's whole component tree is built, so a
// loop's condition block already has its back-edge predecessor.
func (b *Block) Seal(p *Program) error {
	if b.sealed {
		return nil
	}
	b.sealed = true

	pending := b.incompletePhis
	b.incompletePhis = make(map[*Variable]*Instruction)
	resolveLog.Debugf("sealing block %q, finalizing %d incomplete phi(s)", b.Name(), len(pending))

	for v, phi := range pending {
		dt := b.timelineFor(v)
		node, err := p.mergeDefs(b, v, phi, phi.def, Predecessors(b))
		if err != nil {
			return err
		}
		dt.incoming = node
		if dt.incomingTimeline != nil {
			dt.incomingTimeline.originDef = node.def
		}
	}
	return nil
}
