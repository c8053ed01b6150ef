package irparser

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/gharveymn/octave-ir-sub000/internal/ir"
)

// ErrMalformedInstruction reports a parsed line whose shape participle
// accepted but that does not correspond to any real instruction: an
// expression with both a unary and a binary operator, an unknown operator
// or bare word, a binary operator with no right operand, a node that
// matched no alternative, or a block with no terminator.
var ErrMalformedInstruction = errors.New("irparser: malformed instruction")

// builder accumulates the dense variable table a parsed function needs
// while converting each blockNode/instrNode pair into its *ir.Static form.
// Variables are interned in first-encounter order, the same convention
// lower.go's intern closure uses.
type builder struct {
	types *ir.TypeRegistry
	varID map[string]int
	vars  []*ir.StaticVariable
}

func newBuilder(types *ir.TypeRegistry) *builder {
	return &builder{types: types, varID: make(map[string]int)}
}

// internVar returns name's dense id, registering it against types.Any() on
// first sight. The textual form carries no type annotations on variables or
// constants, so every parsed value gets the registry's root type — callers
// that need precise types have no business round-tripping through text.
func (b *builder) internVar(name string) int {
	if id, ok := b.varID[name]; ok {
		return id
	}
	id := len(b.vars)
	b.varID[name] = id
	b.vars = append(b.vars, &ir.StaticVariable{ID: id, Name: name, Type: b.types.Any()})
	return id
}

func parseBlockID(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(raw, "BLOCK"))
	if err != nil {
		return 0, errors.Wrapf(err, "irparser: malformed block reference %q", raw)
	}
	return n, nil
}

// parseVarRef splits a def or use token into its declared name and def id,
// the reverse of printer.go's printDef/printOperand: a trailing "??" marks
// an undefined read, otherwise the trailing run of digits is the def id.
func parseVarRef(raw string) (name string, defID int, undefined bool) {
	if strings.HasSuffix(raw, "??") {
		return strings.TrimSuffix(raw, "??"), ir.UndefinedDefID, true
	}
	i := len(raw)
	for i > 0 && raw[i-1] >= '0' && raw[i-1] <= '9' {
		i--
	}
	id, _ := strconv.Atoi(raw[i:])
	return raw[:i], id, false
}

func (b *builder) operand(n operandNode) (ir.StaticOperand, error) {
	switch {
	case n.Str != nil:
		v, err := strconv.Unquote(*n.Str)
		if err != nil {
			return nil, errors.Wrapf(err, "irparser: malformed string literal %s", *n.Str)
		}
		return ir.StaticConstant{Typ: b.types.Any(), Value: v}, nil
	case n.Ch != nil:
		inner := strings.Trim(*n.Ch, "'")
		var r rune
		if rs := []rune(inner); len(rs) > 0 {
			r = rs[0]
		}
		return ir.StaticConstant{Typ: b.types.Any(), Value: r}, nil
	case n.Num != nil:
		if strings.Contains(*n.Num, ".") {
			f, err := strconv.ParseFloat(*n.Num, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "irparser: malformed number %s", *n.Num)
			}
			return ir.StaticConstant{Typ: b.types.Any(), Value: f}, nil
		}
		i, err := strconv.Atoi(*n.Num)
		if err != nil {
			return nil, errors.Wrapf(err, "irparser: malformed number %s", *n.Num)
		}
		return ir.StaticConstant{Typ: b.types.Any(), Value: i}, nil
	case n.Ref != nil:
		switch *n.Ref {
		case "true":
			return ir.StaticConstant{Typ: b.types.Any(), Value: true}, nil
		case "false":
			return ir.StaticConstant{Typ: b.types.Any(), Value: false}, nil
		}
		name, defID, _ := parseVarRef(*n.Ref)
		return ir.StaticUse{VariableID: b.internVar(name), DefID: defID}, nil
	default:
		return nil, errors.Wrap(ErrMalformedInstruction, "irparser: operand matched no alternative")
	}
}

func (b *builder) operands(ns []operandNode) ([]ir.StaticOperand, error) {
	out := make([]ir.StaticOperand, 0, len(ns))
	for _, n := range ns {
		op, err := b.operand(n)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}

func (b *builder) block(n *blockNode) (*ir.StaticBlock, error) {
	id, err := parseBlockID(n.ID)
	if err != nil {
		return nil, err
	}
	sb := &ir.StaticBlock{ID: id}
	for i, in := range n.Body {
		si, isTerm, err := b.instruction(in)
		if err != nil {
			return nil, errors.Wrapf(err, "irparser: block %d, line %d", id, i+1)
		}
		if isTerm {
			sb.Terminator = si
			continue
		}
		sb.Instructions = append(sb.Instructions, si)
	}
	if sb.Terminator == nil {
		return nil, errors.Wrapf(ErrMalformedInstruction, "irparser: block %d has no terminator", id)
	}
	return sb, nil
}

// instruction converts one line, reporting whether it is the block's
// terminator (br/ubr/return/terminate/unreachable) as opposed to an
// ordinary body instruction (phi, call, or an assigning expr).
func (b *builder) instruction(n *instrNode) (*ir.StaticInstruction, bool, error) {
	switch {
	case n.Br != nil:
		cond, err := b.operand(n.Br.Cond)
		if err != nil {
			return nil, false, err
		}
		targets, err := b.blockIDs(n.Br.Targets)
		if err != nil {
			return nil, false, err
		}
		return &ir.StaticInstruction{Opcode: ir.OpCBranch, DefID: ir.UndefinedDefID, VariableID: -1,
			Operands: []ir.StaticOperand{cond}, Targets: targets}, true, nil

	case n.Ubr != nil:
		target, err := parseBlockID(n.Ubr.Target)
		if err != nil {
			return nil, false, err
		}
		return &ir.StaticInstruction{Opcode: ir.OpUCBranch, DefID: ir.UndefinedDefID, VariableID: -1,
			Targets: []int{target}}, true, nil

	case n.Ret != nil:
		ops, err := b.operands(n.Ret.Values)
		if err != nil {
			return nil, false, err
		}
		return &ir.StaticInstruction{Opcode: ir.OpRet, DefID: ir.UndefinedDefID, VariableID: -1, Operands: ops}, true, nil

	case n.Bare != nil:
		op, ok := ir.OpcodeByName(n.Bare.Word, ir.Nullary)
		if !ok {
			return nil, false, errors.Wrapf(ErrMalformedInstruction, "irparser: unknown bare word %q", n.Bare.Word)
		}
		return &ir.StaticInstruction{Opcode: op, DefID: ir.UndefinedDefID, VariableID: -1}, true, nil

	case n.Assign != nil:
		name, defID, _ := parseVarRef(n.Assign.Def)
		si, err := b.rhs(n.Assign.RHS)
		if err != nil {
			return nil, false, err
		}
		si.VariableID = b.internVar(name)
		si.DefID = defID
		return si, false, nil

	case n.Call != nil:
		si, err := b.call(n.Call)
		if err != nil {
			return nil, false, err
		}
		return si, false, nil

	default:
		return nil, false, errors.Wrap(ErrMalformedInstruction, "irparser: instruction matched no alternative")
	}
}

func (b *builder) blockIDs(raw []string) ([]int, error) {
	out := make([]int, len(raw))
	for i, r := range raw {
		id, err := parseBlockID(r)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func (b *builder) call(n *callNode) (*ir.StaticInstruction, error) {
	args, err := b.operands(n.Args)
	if err != nil {
		return nil, err
	}
	operands := append([]ir.StaticOperand{ir.StaticConstant{Typ: b.types.Any(), Value: n.Name}}, args...)
	return &ir.StaticInstruction{Opcode: ir.OpCall, DefID: ir.UndefinedDefID, VariableID: -1, Operands: operands}, nil
}

func (b *builder) rhs(n rhsNode) (*ir.StaticInstruction, error) {
	switch {
	case n.Phi != nil:
		return b.phi(n.Phi)
	case n.Call != nil:
		return b.call(n.Call)
	case n.Expr != nil:
		return b.expr(n.Expr)
	default:
		return nil, errors.Wrap(ErrMalformedInstruction, "irparser: rhs matched no alternative")
	}
}

func (b *builder) phi(n *phiNode) (*ir.StaticInstruction, error) {
	entries := append([]phiOperandNode{n.First}, n.Rest...)
	si := &ir.StaticInstruction{Opcode: ir.OpPhi}
	for _, e := range entries {
		op, err := b.operand(e.Value)
		if err != nil {
			return nil, err
		}
		blockID, err := parseBlockID(e.Block)
		if err != nil {
			return nil, err
		}
		si.Operands = append(si.Operands, op)
		si.PhiBlocks = append(si.PhiBlocks, blockID)
	}
	return si, nil
}

func (b *builder) expr(n *exprNode) (*ir.StaticInstruction, error) {
	if n.UnaryOp != "" && n.BinOp != "" {
		return nil, errors.Wrapf(ErrMalformedInstruction,
			"irparser: expression carries both a unary operator %q and a binary one %q", n.UnaryOp, n.BinOp)
	}

	left, err := b.operand(n.Left)
	if err != nil {
		return nil, err
	}

	switch {
	case n.UnaryOp != "":
		op, ok := ir.OpcodeByName(n.UnaryOp, ir.Unary)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedInstruction, "irparser: unknown unary operator %q", n.UnaryOp)
		}
		return &ir.StaticInstruction{Opcode: op, Operands: []ir.StaticOperand{left}}, nil

	case n.BinOp != "":
		if n.Right == nil {
			return nil, errors.Wrapf(ErrMalformedInstruction, "irparser: binary operator %q with no right operand", n.BinOp)
		}
		right, err := b.operand(*n.Right)
		if err != nil {
			return nil, err
		}
		op, ok := ir.OpcodeByName(n.BinOp, ir.Binary)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedInstruction, "irparser: unknown binary operator %q", n.BinOp)
		}
		return &ir.StaticInstruction{Opcode: op, Operands: []ir.StaticOperand{left, right}}, nil

	default:
		return &ir.StaticInstruction{Opcode: ir.OpAssign, Operands: []ir.StaticOperand{left}}, nil
	}
}
