package spirv_test

import (
	"testing"

	"github.com/wippyai/spvkernel/spirv"
)

func TestResultLayout(t *testing.T) {
	tests := []struct {
		op        spirv.Opcode
		hasType   bool
		hasResult bool
	}{
		{spirv.OpTypeInt, false, true},
		{spirv.OpTypePipeStorage, false, true},
		{spirv.OpLabel, false, true},
		{spirv.OpVariable, true, true},
		{spirv.OpFunction, true, true},
		{spirv.OpStore, false, false},
		{spirv.OpDecorate, false, false},
		{spirv.OpTypeForwardPointer, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			hasType, hasResult := spirv.ResultLayout(tt.op)
			if hasType != tt.hasType || hasResult != tt.hasResult {
				t.Errorf("ResultLayout = %v, %v; want %v, %v", hasType, hasResult, tt.hasType, tt.hasResult)
			}
		})
	}
}

func TestRefs(t *testing.T) {
	entry := []uint32{uint32(spirv.ModelKernel), 9}
	entry = append(entry, spirv.EncodeString("kern")...)
	entry = append(entry, 12, 13)

	tests := []struct {
		name string
		inst spirv.Instruction
		want []uint32
	}{
		{
			"int_type_literals",
			spirv.Instruction{Opcode: spirv.OpTypeInt, Operands: []uint32{5, 32, 0}},
			nil,
		},
		{
			"pointer_storage_class",
			spirv.Instruction{Opcode: spirv.OpTypePointer, Operands: []uint32{6, 4, 5}},
			[]uint32{5},
		},
		{
			"variable",
			spirv.Instruction{Opcode: spirv.OpVariable, Operands: []uint32{6, 7, 4}},
			[]uint32{6},
		},
		{
			"constant_literal",
			spirv.Instruction{Opcode: spirv.OpConstant, Operands: []uint32{5, 8, 7}},
			[]uint32{5},
		},
		{
			"entry_point_interface",
			spirv.Instruction{Opcode: spirv.OpEntryPoint, Operands: entry},
			[]uint32{9, 12, 13},
		},
		{
			"store_memory_operands",
			spirv.Instruction{Opcode: spirv.OpStore, Operands: []uint32{7, 8, 2, 4}},
			[]uint32{7, 8},
		},
		{
			"lifetime_size_literal",
			spirv.Instruction{Opcode: spirv.OpLifetimeStart, Operands: []uint32{9, 7}},
			[]uint32{9},
		},
		{
			"lifetime_stop_size_literal",
			spirv.Instruction{Opcode: spirv.OpLifetimeStop, Operands: []uint32{9, 7}},
			[]uint32{9},
		},
		{
			"explicit_cast_storage_class",
			spirv.Instruction{Opcode: spirv.OpGenericCastToPtrExplicit, Operands: []uint32{5, 10, 9, 4}},
			[]uint32{5, 9},
		},
		{
			"decorate_id",
			spirv.Instruction{Opcode: spirv.OpDecorateID, Operands: []uint32{9, 46, 11}},
			[]uint32{9, 11},
		},
		{
			"group_member_decorate_members",
			spirv.Instruction{Opcode: spirv.OpGroupMemberDecorate, Operands: []uint32{3, 9, 0, 10, 1}},
			[]uint32{3, 9, 10},
		},
		{
			"unknown_opcode_all_operands",
			spirv.Instruction{Opcode: 0x7ffe, Operands: []uint32{1, 2, 3}},
			[]uint32{1, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.inst.Refs()
			if len(got) != len(tt.want) {
				t.Fatalf("Refs = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Refs = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestReferences(t *testing.T) {
	load := spirv.Instruction{Opcode: spirv.OpLoad, Operands: []uint32{5, 10, 7, 2, 7}}
	if !load.References(7) {
		t.Error("OpLoad should reference its pointer")
	}
	if load.References(10) {
		t.Error("the result id is not a reference")
	}
	if load.References(2) {
		t.Error("memory access literal is not a reference")
	}
}

func TestResultIDAndType(t *testing.T) {
	v := spirv.Instruction{Opcode: spirv.OpVariable, Operands: []uint32{6, 7, 4}}
	if id, ok := v.ResultID(); !ok || id != 7 {
		t.Errorf("ResultID = %d, %v", id, ok)
	}
	if rt, ok := v.ResultType(); !ok || rt != 6 {
		t.Errorf("ResultType = %d, %v", rt, ok)
	}
	typ := spirv.Instruction{Opcode: spirv.OpTypeVoid, Operands: []uint32{3}}
	if id, ok := typ.ResultID(); !ok || id != 3 {
		t.Errorf("type ResultID = %d, %v", id, ok)
	}
	if _, ok := typ.ResultType(); ok {
		t.Error("types have no result type")
	}
	if !spirv.IsTypeDeclaration(spirv.OpTypeNamedBarrier) || spirv.IsTypeDeclaration(spirv.OpConstant) {
		t.Error("IsTypeDeclaration misclassifies")
	}
}
