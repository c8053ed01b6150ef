package ir

// ValidateUnit checks structural invariants of a lowered unit that the
// builders in lower.go cannot violate by construction, but a unit
// reconstructed from the static textual form (internal/irparser) could: in
// particular, every phi operand must name a block that is an actual
// predecessor of the phi's own block in the synthesized terminator graph.
// Lower calls this on its own output as a self-check; irparser calls it
// again after parsing so a hand-edited or corrupted textual form is
// rejected rather than silently accepted.
func ValidateUnit(unit *StaticUnit) error {
	for _, fn := range unit.Functions {
		if fn.External {
			continue
		}
		if err := validateFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func validateFunction(fn *StaticFunction) error {
	preds := make(map[int]map[int]bool, len(fn.Blocks))
	for _, block := range fn.Blocks {
		for _, target := range block.Terminator.Targets {
			if preds[target] == nil {
				preds[target] = make(map[int]bool)
			}
			preds[target][block.ID] = true
		}
	}

	for _, block := range fn.Blocks {
		for _, instr := range block.Instructions {
			if instr.Opcode != OpPhi {
				continue
			}
			for _, src := range instr.PhiBlocks {
				if !preds[block.ID][src] {
					return wellFormed(ErrPhiHasNoSuchPredecessor,
						"function %q: phi in block %d names block %d, which is not one of its predecessors",
						fn.Name, block.ID, src)
				}
			}
		}
	}
	return nil
}
