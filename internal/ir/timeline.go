package ir

import "sort"

// DefTimeline is the per-(block, variable) ledger the resolution engine
// (resolve.go) consults and mutates: an ordered run of local UseTimelines
// (one per local def, sorted by the position of the defining instruction)
// plus a lazily-computed IncomingNode describing what reaches the block's
// entry from its predecessors.
type DefTimeline struct {
	block            *Block
	variable         *Variable
	incoming         *IncomingNode
	incomingTimeline *UseTimeline
	timelines        []*UseTimeline
}

func newDefTimeline(block *Block, v *Variable) *DefTimeline {
	return &DefTimeline{block: block, variable: v}
}

func (dt *DefTimeline) Block() *Block             { return dt.block }
func (dt *DefTimeline) Variable() *Variable       { return dt.variable }
func (dt *DefTimeline) Incoming() *IncomingNode     { return dt.incoming }
func (dt *DefTimeline) IncomingTimeline() *UseTimeline { return dt.incomingTimeline }
func (dt *DefTimeline) UseTimelines() []*UseTimeline { return dt.timelines }

// resetIncoming discards a cached incoming resolution so it is recomputed
// on next read, invalidating every use on the incoming use-timeline. No
// code in this package calls it; Seal overwrites the cached node in place
// instead.
func (dt *DefTimeline) resetIncoming() {
	if dt.incomingTimeline != nil {
		dt.incomingTimeline.invalidateAll()
	}
	dt.incoming = nil
	dt.incomingTimeline = nil
}

// timelineFor returns (creating if absent) the def-timeline variable owns in
// block b.
func (b *Block) timelineFor(v *Variable) *DefTimeline {
	dt, ok := b.timelines[v]
	if !ok {
		dt = newDefTimeline(b, v)
		b.timelines[v] = dt
	}
	return dt
}

// emplaceLocalDef records a new local def for this timeline's variable at
// instruction position pos, splitting whichever existing local UseTimeline
// currently spans pos so its later uses (those after pos) are relinked onto
// the freshly inserted timeline. This is the core bookkeeping operation
// behind "define a variable partway through a block": every use recorded
// before the def keeps observing the old value; every use recorded after
// observes the new one, with no re-walk of the instruction list required.
func (dt *DefTimeline) emplaceLocalDef(originDef *Def, pos int) *UseTimeline {
	idx := sort.Search(len(dt.timelines), func(i int) bool { return dt.timelines[i].defPos > pos })

	nt := newUseTimeline(dt.block, dt.variable, originDef, pos, false)
	if idx > 0 {
		prev := dt.timelines[idx-1]
		after := prev.splitAt(pos)
		for _, u := range after {
			u.timeline = nt
		}
		nt.uses = append(nt.uses, after...)
	}

	dt.timelines = append(dt.timelines, nil)
	copy(dt.timelines[idx+1:], dt.timelines[idx:])
	dt.timelines[idx] = nt
	return nt
}

// timelineAt returns the local UseTimeline in effect at instruction position
// pos — the latest local def at or before pos — or nil if no local def
// precedes pos, in which case the caller must resolve through Incoming.
func (dt *DefTimeline) timelineAt(pos int) *UseTimeline {
	idx := sort.Search(len(dt.timelines), func(i int) bool { return dt.timelines[i].defPos > pos }) - 1
	if idx < 0 {
		return nil
	}
	return dt.timelines[idx]
}

// latestTimeline returns the last local UseTimeline recorded for this
// variable in this block (the def a read at the end of the block would
// see), or nil if the variable has no local def in this block at all.
func (dt *DefTimeline) latestTimeline() *UseTimeline {
	if len(dt.timelines) == 0 {
		return nil
	}
	return dt.timelines[len(dt.timelines)-1]
}

// invalidateFrom invalidates every local UseTimeline from idx onward,
// detaching their uses. Used when a cached resolution built on top of this
// timeline's defs must be torn down (e.g. a predecessor's incoming node is
// recomputed and the old phi it fed no longer applies).
func (dt *DefTimeline) invalidateFrom(idx int) {
	for _, ut := range dt.timelines[idx:] {
		ut.invalidateAll()
	}
	dt.timelines = dt.timelines[:idx]
}

// IncomingNode is the cached resolution of "what value does variable carry
// on entry to block" — either a def forwarded transparently from a single
// predecessor chain, or a phi def synthesized in this block because two or
// more predecessors disagreed. It records the predecessor def-timelines it
// was computed from (Sources). The link is one-way: a predecessor
// def-timeline keeps no pointer back to the nodes built from it, and a
// later local def inserted upstream does not invalidate a cached node.
type IncomingNode struct {
	block    *Block
	variable *Variable
	def      *Def
	phi      *Instruction
	sources  []*DefTimeline
}

func newIncomingNode(block *Block, v *Variable, def *Def, phi *Instruction, sources []*DefTimeline) *IncomingNode {
	return &IncomingNode{block: block, variable: v, def: def, phi: phi, sources: sources}
}

func (n *IncomingNode) Block() *Block         { return n.block }
func (n *IncomingNode) Variable() *Variable   { return n.variable }
func (n *IncomingNode) Def() *Def             { return n.def }
func (n *IncomingNode) IsPhi() bool           { return n.phi != nil }
func (n *IncomingNode) Phi() *Instruction     { return n.phi }
func (n *IncomingNode) Sources() []*DefTimeline { return n.sources }
