package spirv

// Opcodes only needed for operand classification.
const (
	opCopyMemory        Opcode = 63
	opCopyMemorySized   Opcode = 64
	opControlBarrier    Opcode = 224
	opMemoryBarrier     Opcode = 225
	opAtomicStore       Opcode = 228
	opBranch            Opcode = 249
	opBranchConditional Opcode = 250
	opKill              Opcode = 252
	opUnreachable       Opcode = 255
)

// resultLayout reports whether op produces a result type operand and a
// result id operand.
func resultLayout(op Opcode) (hasType, hasResult bool) {
	switch op {
	case OpNop, OpSource, OpName, OpMemberName, OpLine, OpNoLine, OpExtension,
		OpMemoryModel, OpEntryPoint, OpExecutionMode, OpExecutionModeID,
		OpCapability, OpStore, OpDecorate, OpMemberDecorate, OpGroupDecorate,
		OpGroupMemberDecorate, OpDecorateID, OpDecorateString,
		OpMemberDecorateString, OpFunctionEnd, OpLoopMerge, OpSelectionMerge,
		OpSwitch, OpReturn, OpReturnValue, OpModuleProcessed,
		OpTypeForwardPointer, opCopyMemory, opCopyMemorySized,
		opControlBarrier, opMemoryBarrier, opAtomicStore, opBranch,
		opBranchConditional, opKill, opUnreachable, OpLifetimeStart,
		OpLifetimeStop:
		return false, false
	case OpString, OpExtInstImport, OpLabel, OpDecorationGroup,
		OpTypePipeStorage, OpTypeNamedBarrier, OpTypeUntypedPointerKHR:
		return false, true
	}
	if op >= OpTypeVoid && op <= OpTypePipe {
		return false, true
	}
	return true, true
}

// IsTypeDeclaration reports whether op declares a type.
func IsTypeDeclaration(op Opcode) bool {
	switch op {
	case OpTypePipeStorage, OpTypeNamedBarrier, OpTypeForwardPointer, OpTypeUntypedPointerKHR:
		return true
	}
	return op >= OpTypeVoid && op <= OpTypePipe
}

// ResultID returns the id defined by the instruction, if any.
func (i Instruction) ResultID() (uint32, bool) {
	hasType, hasResult := resultLayout(i.Opcode)
	if !hasResult {
		return 0, false
	}
	idx := 0
	if hasType {
		idx = 1
	}
	return i.Operand(idx)
}

// ResultType returns the result type id, if the instruction has one.
func (i Instruction) ResultType() (uint32, bool) {
	hasType, _ := resultLayout(i.Opcode)
	if !hasType {
		return 0, false
	}
	return i.Operand(0)
}

// Refs returns the operands that may name an id, excluding the result id.
// Literal operands of the opcodes the front end knows are skipped; for
// everything else every operand is treated as a potential reference, so
// callers err towards seeing more uses than exist.
func (i Instruction) Refs() []uint32 {
	hasType, hasResult := resultLayout(i.Opcode)
	resultIdx := -1
	if hasResult {
		resultIdx = 0
		if hasType {
			resultIdx = 1
		}
	}
	lit := i.literals()
	refs := make([]uint32, 0, len(i.Operands))
	for idx, v := range i.Operands {
		if idx == resultIdx || lit(idx) {
			continue
		}
		refs = append(refs, v)
	}
	return refs
}

// References reports whether any id operand of the instruction is id.
func (i Instruction) References(id uint32) bool {
	for _, ref := range i.Refs() {
		if ref == id {
			return true
		}
	}
	return false
}

func from(n int) func(int) bool {
	return func(idx int) bool { return idx >= n }
}

func at(ns ...int) func(int) bool {
	return func(idx int) bool {
		for _, n := range ns {
			if idx == n {
				return true
			}
		}
		return false
	}
}

func none(int) bool { return false }

// literals returns a predicate over operand indices that are literals.
func (i Instruction) literals() func(int) bool {
	switch i.Opcode {
	case OpSource, OpExtension, OpCapability, OpModuleProcessed, OpMemoryModel:
		return from(0)
	case OpTypeInt, OpTypeFloat, OpString, OpExtInstImport, OpTypeOpaque:
		return from(1)
	case OpName, OpMemberName, OpLine, OpExecutionMode, OpDecorate,
		OpMemberDecorate, OpDecorateString, OpMemberDecorateString:
		return from(1)
	case OpExecutionModeID, OpDecorateID, OpLifetimeStart, OpLifetimeStop:
		return at(1)
	case OpGroupMemberDecorate:
		return func(idx int) bool { return idx > 0 && idx%2 == 0 }
	case OpEntryPoint:
		_, n, _ := decodeLiteral(i.Operands[min(2, len(i.Operands)):])
		return func(idx int) bool { return idx == 0 || (idx >= 2 && idx < 2+n) }
	case OpTypeVector, OpTypeMatrix:
		return at(2)
	case OpTypeImage:
		return from(2)
	case OpTypePointer, OpTypePipe, OpTypeForwardPointer, OpTypeUntypedPointerKHR:
		return at(1)
	case OpConstant, OpSpecConstant, OpConstantSampler:
		return from(2)
	case OpSpecConstantOp, OpFunction, OpVariable, OpUntypedVariableKHR:
		return at(2)
	case OpExtInst, OpGenericCastToPtrExplicit:
		return at(3)
	case OpLoad, opCopyMemorySized, OpCompositeExtract:
		return from(3)
	case OpStore, opCopyMemory, OpLoopMerge:
		return from(2)
	case OpSelectionMerge:
		return from(1)
	case OpVectorShuffle, OpCompositeInsert:
		return from(4)
	case OpSwitch:
		return func(idx int) bool { return idx >= 2 && (idx-2)%2 == 0 }
	}
	return none
}

// ResultLayout reports whether op takes a result type operand and whether it
// defines a result id. For opcodes with both, the result type comes first.
func ResultLayout(op Opcode) (hasType, hasResult bool) {
	return resultLayout(op)
}
