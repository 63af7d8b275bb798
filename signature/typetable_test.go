package signature

import (
	"errors"
	"testing"

	spverrors "github.com/wippyai/spvkernel/errors"
	"github.com/wippyai/spvkernel/spirv"
)

func declare(t *testing.T, tt *TypeTable, op spirv.Opcode, ops ...uint32) {
	t.Helper()
	if err := tt.Declare(spirv.Instruction{Opcode: op, Operands: ops}); err != nil {
		t.Fatalf("declare %s %v: %v", op, ops, err)
	}
}

func TestTypeTable_Layout(t *testing.T) {
	tt := NewTypeTable(32)
	declare(t, tt, spirv.OpTypeInt, 1, 8, 0)
	declare(t, tt, spirv.OpTypeInt, 2, 32, 0)
	declare(t, tt, spirv.OpTypeFloat, 3, 64)
	declare(t, tt, spirv.OpTypeVector, 4, 2, 3)  // uint3
	declare(t, tt, spirv.OpTypeVector, 5, 1, 2)  // uchar2
	declare(t, tt, spirv.OpConstant, 2, 6, 10)   // 10
	declare(t, tt, spirv.OpTypeArray, 7, 4, 6)   // uint3[10]
	declare(t, tt, spirv.OpTypeStruct, 8, 1, 3)  // {uchar, double}
	declare(t, tt, spirv.OpTypeStruct, 9, 1, 3)  // packed
	declare(t, tt, spirv.OpTypeArray, 10, 9, 6)  // packed[10]
	declare(t, tt, spirv.OpTypePointer, 11, 5, 8)
	declare(t, tt, spirv.OpTypeMatrix, 12, 4, 4) // 4 uint3 columns
	declare(t, tt, spirv.OpTypeBool, 13)
	tt.MarkPacked(9)

	tests := []struct {
		name  string
		id    uint32
		size  uint64
		align uint32
	}{
		{"uchar", 1, 1, 1},
		{"double", 3, 8, 8},
		{"uint3", 4, 16, 16},
		{"uchar2", 5, 2, 2},
		{"uint3_array", 7, 160, 16},
		{"struct", 8, 16, 8},
		{"packed_struct", 9, 9, 1},
		{"packed_array", 10, 90, 1},
		{"pointer", 11, 8, 8},
		{"matrix", 12, 64, 16},
		{"bool", 13, 1, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, err := tt.Layout(tc.id)
			if err != nil {
				t.Fatalf("Layout: %v", err)
			}
			if l.Size != tc.size || l.Alignment != tc.align {
				t.Errorf("layout = %+v, want size %d align %d", l, tc.size, tc.align)
			}
		})
	}

	tt.SetAddressingModel(spirv.AddressingPhysical32)
	if l, _ := tt.Layout(11); l.Size != 4 {
		t.Errorf("Physical32 pointer size = %d, want 4", l.Size)
	}
}

func TestTypeTable_DynamicExtent(t *testing.T) {
	tt := NewTypeTable(16)
	declare(t, tt, spirv.OpTypeInt, 1, 32, 0)
	declare(t, tt, spirv.OpTypeRuntimeArray, 2, 1)
	declare(t, tt, spirv.OpSpecConstant, 1, 3, 64)
	declare(t, tt, spirv.OpTypeArray, 4, 1, 3)
	declare(t, tt, spirv.OpTypeStruct, 5, 1, 4)

	for _, id := range []uint32{2, 4, 5} {
		err := tt.CheckStatic(id)
		if !errors.Is(err, spverrors.ErrUnsupportedDynamicLocalSize) {
			t.Errorf("CheckStatic(%d) = %v, want dynamic local size", id, err)
		}
	}
	if a, err := tt.Alignment(2); err != nil || a != 4 {
		t.Errorf("runtime array alignment = %d, %v; want 4", a, err)
	}
}

func TestTypeTable_Errors(t *testing.T) {
	tt := NewTypeTable(4)
	declare(t, tt, spirv.OpTypeInt, 1, 32, 0)

	tests := []struct {
		name string
		inst spirv.Instruction
	}{
		{"redeclared", spirv.Instruction{Opcode: spirv.OpTypeFloat, Operands: []uint32{1, 32}}},
		{"id_zero", spirv.Instruction{Opcode: spirv.OpTypeVoid, Operands: []uint32{0}}},
		{"short_pointer", spirv.Instruction{Opcode: spirv.OpTypePointer, Operands: []uint32{2, 5}}},
		{"short_int", spirv.Instruction{Opcode: spirv.OpTypeInt, Operands: []uint32{3}}},
		{"constant_as_type", spirv.Instruction{Opcode: spirv.OpConstant, Operands: []uint32{1, 1, 0}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tt.Declare(tc.inst); !errors.Is(err, spverrors.ErrMalformedBinary) {
				t.Errorf("err = %v, want malformed binary", err)
			}
		})
	}

	if _, err := tt.Layout(3); !errors.Is(err, spverrors.ErrMalformedBinary) {
		t.Errorf("unresolved layout err = %v, want malformed binary", err)
	}
}

func TestTypeTable_IDsBeyondBound(t *testing.T) {
	tt := NewTypeTable(2)
	declare(t, tt, spirv.OpTypeInt, 40, 16, 1)
	declare(t, tt, spirv.OpTypeInt, denseLimit+5, 64, 0)

	if ty, ok := tt.Lookup(40); !ok || ty.Width != 16 {
		t.Errorf("Lookup(40) = %+v, %v", ty, ok)
	}
	if ty, ok := tt.Lookup(denseLimit + 5); !ok || ty.Width != 64 {
		t.Errorf("Lookup(sparse) = %+v, %v", ty, ok)
	}
	if tt.Len() != 2 {
		t.Errorf("Len = %d, want 2", tt.Len())
	}
}

func TestTypeTable_SelfReference(t *testing.T) {
	tt := NewTypeTable(4)
	declare(t, tt, spirv.OpTypeStruct, 1, 1)
	if _, err := tt.Layout(1); !errors.Is(err, spverrors.ErrMalformedBinary) {
		t.Errorf("err = %v, want malformed binary", err)
	}
}

func TestTypeTable_TypeName(t *testing.T) {
	tt := NewTypeTable(16)
	declare(t, tt, spirv.OpTypeInt, 1, 16, 1)
	declare(t, tt, spirv.OpTypeFloat, 2, 16)
	declare(t, tt, spirv.OpTypeVector, 3, 2, 8)
	declare(t, tt, spirv.OpTypePointer, 4, 5, 3)
	declare(t, tt, spirv.OpTypeOpaque, append([]uint32{5}, spirv.EncodeString("struct.foo")...)...)
	declare(t, tt, spirv.OpTypeEvent, 6)
	declare(t, tt, spirv.OpTypeInt, 7, 24, 0)

	tests := map[uint32]string{
		1:  "short",
		2:  "half",
		3:  "half8",
		4:  "half8*",
		5:  "struct.foo",
		6:  "event_t",
		7:  "i24",
		99: "unknown",
	}
	for id, want := range tests {
		if got := tt.TypeName(id); got != want {
			t.Errorf("TypeName(%d) = %q, want %q", id, got, want)
		}
	}
}
