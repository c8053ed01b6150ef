// Package irparser mirrors internal/ir's static textual form back into a
// *ir.StaticFunction, the way grammar/parser.go mirrors kanso source into an
// AST: a participle-built parser over a small stateful lexer. It is deliberately
// scoped to a single function's worth of blocks — the textual form carries no
// function-header syntax at all (see internal/ir/printer.go), so there is no
// delimiter a parser could use to split a multi-function unit back apart.
package irparser

import (
	"github.com/alecthomas/participle/v2"

	"github.com/gharveymn/octave-ir-sub000/internal/ir"
	"github.com/gharveymn/octave-ir-sub000/internal/irlog"
)

var (
	textParser = buildParser()
	parseLog   = irlog.For("parse")
)

func buildParser() *participle.Parser[unitNode] {
	p, err := participle.Build[unitNode](
		participle.Lexer(textLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(4),
	)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseFunction parses source (as produced by ir.Print for a single
// function) into an *ir.StaticFunction named name. types supplies the Any
// type every parsed variable and constant is registered against, since the
// textual form itself carries no type annotations.
//
// The returned error is, on a syntax failure, the raw participle.Error —
// callers that want the caret-style rendering cmd/kanso-cli uses can type-
// assert it directly, same as grammar.ParseFile's callers do.
func ParseFunction(name, source string, types *ir.TypeRegistry) (*ir.StaticFunction, error) {
	unit, err := textParser.ParseString(name, source)
	if err != nil {
		parseLog.Errorf("failed to parse %q: %s", name, err)
		return nil, err
	}

	b := newBuilder(types)
	var blocks []*ir.StaticBlock
	for _, bn := range unit.Blocks {
		sb, err := b.block(bn)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, sb)
	}

	fn := &ir.StaticFunction{Name: name, Blocks: blocks, Variables: b.vars}
	if len(blocks) > 0 {
		// Print always emits a function's lowest-id block first and it is
		// always the entry (guard/trap ids are allocated only after every
		// real block's id), so the first parsed block recovers it exactly.
		fn.EntryBlockID = blocks[0].ID
	}

	if err := ir.ValidateUnit(&ir.StaticUnit{Functions: []*ir.StaticFunction{fn}}); err != nil {
		parseLog.Errorf("parsed %q but it failed validation: %s", name, err)
		return nil, err
	}
	parseLog.Infof("parsed function %q (%d blocks, %d variables)", name, len(fn.Blocks), len(fn.Variables))
	return fn, nil
}
