package ir

// Component is the structured control-flow tree the front-end hands the
// core: a Block, a Sequence, a Fork, a Loop, or the root Function. Every
// non-Function component has a back-reference to its parent; the tree shape
// itself is what the def-resolution engine (resolve.go) walks to find
// predecessors and successors, rather than any explicit edge list.
type Component interface {
	// Parent returns the structural parent, or nil for the Function root.
	Parent() Component

	setParent(Component)
}

// Block owns an instruction list partitioned into a phi prefix and a body
// suffix, a map from variable to that variable's def-timeline in this block,
// and an optional condition variable set iff the block's (lowering-time
// synthesized) terminator is a conditional branch.
type Block struct {
	name      string
	parent    Component
	phis      []*Instruction
	body      []*Instruction
	timelines map[*Variable]*DefTimeline
	condition *Variable

	sealed         bool
	incompletePhis map[*Variable]*Instruction

	nextBodyPos int
	nextPhiPos  int
}

// NewBlock creates an empty, unsealed block. Program.DeclareFunction seals
// it once the function containing it is declared (see resolve.go).
func NewBlock(name string) *Block {
	return &Block{
		name:           name,
		timelines:      make(map[*Variable]*DefTimeline),
		incompletePhis: make(map[*Variable]*Instruction),
		nextPhiPos:     -1,
	}
}

func (b *Block) Parent() Component      { return b.parent }
func (b *Block) setParent(p Component)  { b.parent = p }
func (b *Block) Name() string           { return b.name }
func (b *Block) Phis() []*Instruction   { return b.phis }
func (b *Block) Body() []*Instruction   { return b.body }
func (b *Block) Condition() *Variable   { return b.condition }
func (b *Block) SetCondition(v *Variable) { b.condition = v }
func (b *Block) Sealed() bool           { return b.sealed }

// Instructions returns the phi prefix followed by the body suffix — the
// block's full, in-order instruction list.
func (b *Block) Instructions() []*Instruction {
	out := make([]*Instruction, 0, len(b.phis)+len(b.body))
	out = append(out, b.phis...)
	out = append(out, b.body...)
	return out
}

func (b *Block) appendBody(instr *Instruction) {
	instr.block = b
	instr.pos = b.nextBodyPos
	b.nextBodyPos++
	b.body = append(b.body, instr)
}

func (b *Block) appendPhi(instr *Instruction) {
	instr.block = b
	instr.pos = b.nextPhiPos
	instr.isPhi = true
	b.nextPhiPos--
	b.phis = append(b.phis, instr)
}

// insertBody splices instr into the body at index pos (0 <= pos <=
// len(body)), renumbering every instruction's position from pos onward and
// refreshing every local use-timeline's recorded def-position to match.
// Used only by the determinator pass (determinator.go) to wire a boolean
// companion variable's defs alongside a variable's own, after that
// variable's own SSA shape is already final — ordinary front-end
// construction always appends and never needs this.
func (b *Block) insertBody(pos int, instr *Instruction) {
	instr.block = b
	b.body = append(b.body, nil)
	copy(b.body[pos+1:], b.body[pos:])
	b.body[pos] = instr
	for i := pos; i < len(b.body); i++ {
		b.body[i].pos = i
	}
	b.nextBodyPos = len(b.body)

	for _, dt := range b.timelines {
		for _, ut := range dt.timelines {
			if !ut.isIncoming {
				ut.defPos = ut.originDef.Instruction().Position()
			}
		}
	}
}

// Sequence is an ordered list of subcomponents; the first element contains
// the entry block.
type Sequence struct {
	parent   Component
	children []Component
}

// NewSequence builds a sequence and adopts each child.
func NewSequence(children ...Component) *Sequence {
	s := &Sequence{children: children}
	for _, c := range children {
		c.setParent(s)
	}
	return s
}

func (s *Sequence) Parent() Component     { return s.parent }
func (s *Sequence) setParent(p Component) { s.parent = p }
func (s *Sequence) Children() []Component { return s.children }

func indexOfChild(s *Sequence, c Component) int {
	for i, ch := range s.children {
		if ch == c {
			return i
		}
	}
	return -1
}

// Fork is a two-or-more-way branch: a condition subcomponent plus the case
// subcomponents it selects among.
type Fork struct {
	parent    Component
	condition Component
	cases     []Component
}

// NewFork builds a fork and adopts its condition and cases. The condition's
// leaf block(s) carry the branch's condition variable (Block.SetCondition);
// the caller may set it before or after assembling the fork, since it is
// only read when lowering synthesizes the conditional branch.
func NewFork(condition Component, cases ...Component) *Fork {
	f := &Fork{condition: condition, cases: cases}
	condition.setParent(f)
	for _, c := range cases {
		c.setParent(f)
	}
	return f
}

func (f *Fork) Parent() Component     { return f.parent }
func (f *Fork) setParent(p Component) { f.parent = p }
func (f *Fork) Condition() Component  { return f.condition }
func (f *Fork) Cases() []Component    { return f.cases }

func (f *Fork) isCondition(c Component) bool { return c == f.condition }

// Loop is start -> condition -> body -> update, with update feeding back
// into condition.
type Loop struct {
	parent                             Component
	start, condition, body, update Component
}

// NewLoop builds a loop and adopts its four subcomponents.
func NewLoop(start, condition, body, update Component) *Loop {
	l := &Loop{start: start, condition: condition, body: body, update: update}
	start.setParent(l)
	condition.setParent(l)
	body.setParent(l)
	update.setParent(l)
	return l
}

func (l *Loop) Parent() Component     { return l.parent }
func (l *Loop) setParent(p Component) { l.parent = p }
func (l *Loop) Start() Component      { return l.start }
func (l *Loop) Condition() Component  { return l.condition }
func (l *Loop) Body() Component       { return l.body }
func (l *Loop) Update() Component     { return l.update }

// Function is the root component: it owns argument and return variable
// lists and has no parent.
type Function struct {
	name     string
	external bool
	create   bool
	args     []*Variable
	rets     []*Variable
	body     Component
}

// NewFunction builds a function rooted at body.
func NewFunction(name string, body Component) *Function {
	fn := &Function{name: name, body: body}
	body.setParent(fn)
	return fn
}

func (fn *Function) Parent() Component     { return nil }
func (fn *Function) setParent(Component)   {}
func (fn *Function) Name() string          { return fn.name }
func (fn *Function) Body() Component       { return fn.body }
func (fn *Function) Args() []*Variable     { return fn.args }
func (fn *Function) Rets() []*Variable     { return fn.rets }
func (fn *Function) SetArgs(args []*Variable) { fn.args = args }
func (fn *Function) SetRets(rets []*Variable) { fn.rets = rets }
func (fn *Function) External() bool        { return fn.external }
func (fn *Function) SetExternal(v bool)    { fn.external = v }

// EntryBlock recursively resolves the first leaf block of c.
func EntryBlock(c Component) *Block {
	switch v := c.(type) {
	case *Block:
		return v
	case *Sequence:
		return EntryBlock(v.children[0])
	case *Fork:
		return EntryBlock(v.condition)
	case *Loop:
		return EntryBlock(v.start)
	case *Function:
		return EntryBlock(v.body)
	default:
		panic("ir: unknown component kind")
	}
}

// Leaves returns the set of blocks whose terminators leave c.
func Leaves(c Component) []*Block {
	switch v := c.(type) {
	case *Block:
		return []*Block{v}
	case *Sequence:
		return Leaves(v.children[len(v.children)-1])
	case *Fork:
		var out []*Block
		for _, cs := range v.cases {
			out = append(out, Leaves(cs)...)
		}
		return out
	case *Loop:
		// Only the condition block can branch out of a loop; start, body,
		// and update all flow internally.
		return Leaves(v.condition)
	case *Function:
		return Leaves(v.body)
	default:
		panic("ir: unknown component kind")
	}
}

// Predecessors returns the leaf blocks that flow into c, per the parent-kind
// semantics of spec §4.D.
func Predecessors(c Component) []*Block {
	parent := c.Parent()
	if parent == nil {
		return nil
	}
	switch p := parent.(type) {
	case *Sequence:
		idx := indexOfChild(p, c)
		if idx == 0 {
			return Predecessors(p)
		}
		return Leaves(p.children[idx-1])
	case *Fork:
		if p.isCondition(c) {
			return Predecessors(p)
		}
		return Leaves(p.condition)
	case *Loop:
		switch c {
		case p.start:
			return Predecessors(p)
		case p.condition:
			preds := append([]*Block{}, Leaves(p.start)...)
			preds = append(preds, Leaves(p.update)...)
			return preds
		case p.body:
			return Leaves(p.condition)
		case p.update:
			return Leaves(p.body)
		}
	case *Function:
		return nil
	}
	return nil
}

// Successors returns the entry blocks that c flows into, per the
// parent-kind semantics of spec §4.D.
func Successors(c Component) []*Block {
	parent := c.Parent()
	if parent == nil {
		return nil
	}
	switch p := parent.(type) {
	case *Sequence:
		idx := indexOfChild(p, c)
		if idx == len(p.children)-1 {
			return Successors(p)
		}
		return []*Block{EntryBlock(p.children[idx+1])}
	case *Fork:
		if p.isCondition(c) {
			var out []*Block
			for _, cs := range p.cases {
				out = append(out, EntryBlock(cs))
			}
			return out
		}
		return Successors(p)
	case *Loop:
		switch c {
		case p.start:
			return []*Block{EntryBlock(p.condition)}
		case p.condition:
			out := []*Block{EntryBlock(p.body)}
			out = append(out, Successors(p)...)
			return out
		case p.body:
			return []*Block{EntryBlock(p.update)}
		case p.update:
			return []*Block{EntryBlock(p.condition)}
		}
	case *Function:
		return nil
	}
	return nil
}

// IsEntry reports whether c is reached directly from its parent's own
// predecessors, rather than from a sibling.
func IsEntry(c Component) bool {
	p := c.Parent()
	if p == nil {
		return true
	}
	switch pp := p.(type) {
	case *Sequence:
		return indexOfChild(pp, c) == 0
	case *Fork:
		return pp.isCondition(c)
	case *Loop:
		return c == pp.start
	case *Function:
		return true
	}
	return false
}

// IsSubcomponentOf reports whether sub is parent, or nested anywhere inside
// it.
func IsSubcomponentOf(parent, sub Component) bool {
	for cur := sub; cur != nil; cur = cur.Parent() {
		if cur == parent {
			return true
		}
	}
	return false
}

// BlockCount returns the number of blocks reachable under c, mirroring the
// original's small single-purpose "block counter" inspector as a plain
// function instead of a visitor object.
func BlockCount(c Component) int {
	switch v := c.(type) {
	case *Block:
		return 1
	case *Sequence:
		n := 0
		for _, ch := range v.children {
			n += BlockCount(ch)
		}
		return n
	case *Fork:
		n := BlockCount(v.condition)
		for _, cs := range v.cases {
			n += BlockCount(cs)
		}
		return n
	case *Loop:
		return BlockCount(v.start) + BlockCount(v.condition) + BlockCount(v.body) + BlockCount(v.update)
	case *Function:
		return BlockCount(v.body)
	default:
		panic("ir: unknown component kind")
	}
}

// AllBlocks returns every block reachable under c, in structural
// (depth-first, left-to-right) order — the same order static lowering uses
// to assign dense block ids.
func AllBlocks(c Component) []*Block {
	var out []*Block
	var walk func(Component)
	walk = func(comp Component) {
		switch v := comp.(type) {
		case *Block:
			out = append(out, v)
		case *Sequence:
			for _, ch := range v.children {
				walk(ch)
			}
		case *Fork:
			walk(v.condition)
			for _, cs := range v.cases {
				walk(cs)
			}
		case *Loop:
			walk(v.start)
			walk(v.condition)
			walk(v.body)
			walk(v.update)
		case *Function:
			walk(v.body)
		default:
			panic("ir: unknown component kind")
		}
	}
	walk(c)
	return out
}
