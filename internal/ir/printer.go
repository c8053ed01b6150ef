package ir

import (
	"fmt"
	"strings"
)

// Print renders unit as the static textual form: a flat, deterministic
// listing of blocks and instructions with no surrounding function header —
// the form internal/irparser mirrors back into an equivalent StaticUnit.
// Multiple functions are separated by a blank line; an external function
// contributes nothing, since it carries no blocks of its own.
func Print(unit *StaticUnit) string {
	var b strings.Builder
	first := true
	for _, fn := range unit.Functions {
		if fn.External {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		first = false
		printFunction(&b, fn)
	}
	return b.String()
}

func printFunction(b *strings.Builder, fn *StaticFunction) {
	names := variableNames(fn)
	for _, block := range fn.Blocks {
		printBlock(b, block, names)
	}
}

// variableNames maps a function's dense variable ids to their declared
// names, the form use-operands print under (spec's textual form names
// variables, not ids).
func variableNames(fn *StaticFunction) []string {
	names := make([]string, len(fn.Variables))
	for _, v := range fn.Variables {
		names[v.ID] = v.Name
	}
	return names
}

func printBlock(b *strings.Builder, block *StaticBlock, names []string) {
	fmt.Fprintf(b, "BLOCK%d:\n", block.ID)
	for _, instr := range block.Instructions {
		b.WriteString(printInstruction(instr, names))
		b.WriteByte('\n')
	}
	b.WriteString(printInstruction(block.Terminator, names))
	b.WriteByte('\n')
}

func printInstruction(instr *StaticInstruction, names []string) string {
	m := MetadataOf(instr.Opcode)
	def := ""
	if instr.VariableID >= 0 {
		def = printDef(instr.VariableID, instr.DefID, names) + " = "
	}

	switch instr.Opcode {
	case OpAssign:
		return def + printOperand(instr.Operands[0], names)
	case OpNeg, OpLNot, OpBNot:
		return def + m.Name + printOperand(instr.Operands[0], names)
	case OpPhi:
		parts := make([]string, len(instr.Operands))
		for i, op := range instr.Operands {
			parts[i] = fmt.Sprintf("%s : BLOCK%d", printOperand(op, names), instr.PhiBlocks[i])
		}
		return def + "phi (" + strings.Join(parts, " | ") + ")"
	case OpCall:
		fname := instr.Operands[0].(StaticConstant).Value.(string)
		args := make([]string, len(instr.Operands)-1)
		for i, op := range instr.Operands[1:] {
			args[i] = printOperand(op, names)
		}
		return def + fmt.Sprintf("%s (%s)", fname, strings.Join(args, ", "))
	case OpCBranch:
		parts := make([]string, len(instr.Targets))
		for i, t := range instr.Targets {
			parts[i] = fmt.Sprintf("BLOCK%d", t)
		}
		return fmt.Sprintf("br %s ? %s", printOperand(instr.Operands[0], names), strings.Join(parts, " : "))
	case OpUCBranch:
		return fmt.Sprintf("ubr BLOCK%d", instr.Targets[0])
	case OpRet:
		if len(instr.Operands) == 0 {
			return "return"
		}
		parts := make([]string, len(instr.Operands))
		for i, op := range instr.Operands {
			parts[i] = printOperand(op, names)
		}
		return "return " + strings.Join(parts, " ")
	case OpTerminate, OpUnreachable:
		return m.Name
	}

	switch len(instr.Operands) {
	case 1:
		return def + m.Name + " " + printOperand(instr.Operands[0], names)
	case 2:
		return def + fmt.Sprintf("%s %s %s", printOperand(instr.Operands[0], names), m.Name, printOperand(instr.Operands[1], names))
	default:
		return def + m.Name
	}
}

func printDef(variableID, defID int, names []string) string {
	return fmt.Sprintf("%s%d", names[variableID], defID)
}

func printOperand(op StaticOperand, names []string) string {
	switch v := op.(type) {
	case StaticUse:
		if v.DefID == UndefinedDefID {
			return names[v.VariableID] + "??"
		}
		return names[v.VariableID] + fmt.Sprintf("%d", v.DefID)
	case StaticConstant:
		return printConstantValue(v.Value)
	default:
		panic("ir: unknown static operand kind")
	}
}

func printConstantValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case rune:
		return fmt.Sprintf("'%c'", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", v)
	}
}
