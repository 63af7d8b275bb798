package parser

import (
	"math"
	"strings"
	"testing"

	"github.com/wippyai/spvkernel/spirv"
	"github.com/wippyai/spvkernel/spvasm/internal/token"
)

func parse(t *testing.T, src string) (*spirv.Module, *Parser) {
	t.Helper()
	p := New(token.Tokenize(src))
	m, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return m, p
}

func TestParseEmptyModule(t *testing.T) {
	m, _ := parse(t, "")
	if m.Header.Magic != spirv.Magic {
		t.Errorf("magic = %#x", m.Header.Magic)
	}
	if m.Header.Bound != 1 {
		t.Errorf("bound = %d, want 1", m.Header.Bound)
	}
	if len(m.Instructions) != 0 {
		t.Errorf("expected no instructions, got %d", len(m.Instructions))
	}
}

func TestParseResultPlacement(t *testing.T) {
	m, p := parse(t, `
		%int = OpTypeInt 32 0
		%c = OpConstant %int 7
	`)
	if len(m.Instructions) != 2 {
		t.Fatalf("got %d instructions", len(m.Instructions))
	}
	intID := p.IDs()["int"]
	cID := p.IDs()["c"]

	typ := m.Instructions[0]
	if typ.Opcode != spirv.OpTypeInt {
		t.Fatalf("opcode = %v", typ.Opcode)
	}
	if want := []uint32{intID, 32, 0}; !equal(typ.Operands, want) {
		t.Errorf("OpTypeInt operands = %v, want %v", typ.Operands, want)
	}

	c := m.Instructions[1]
	if want := []uint32{intID, cID, 7}; !equal(c.Operands, want) {
		t.Errorf("OpConstant operands = %v, want %v", c.Operands, want)
	}
	if m.Header.Bound != 3 {
		t.Errorf("bound = %d, want 3", m.Header.Bound)
	}
}

func TestParseIDAssignment(t *testing.T) {
	_, p := parse(t, `
		%a = OpTypeVoid
		%10 = OpTypeBool
		%b = OpTypeFunction %a
	`)
	ids := p.IDs()
	if ids["10"] != 10 {
		t.Errorf("numeric id = %d, want 10", ids["10"])
	}
	if ids["a"] != 11 || ids["b"] != 12 {
		t.Errorf("named ids = a:%d b:%d, want 11 and 12", ids["a"], ids["b"])
	}
}

func TestParseEnumerants(t *testing.T) {
	tests := []struct {
		name string
		src  string
		inst int
		want []uint32
	}{
		{"capability", "OpCapability Kernel", 0, []uint32{6}},
		{"memory_model", "OpMemoryModel Physical32 OpenCL", 0, []uint32{1, 2}},
		{"storage_class", "%1 = OpTypeInt 32 0\n%2 = OpTypePointer Workgroup %1", 1, []uint32{2, 4, 1}},
		{"func_param_attr", "OpDecorate %1 FuncParamAttr ByVal\n%1 = OpTypeVoid", 0, []uint32{1, 38, 2}},
		{"alignment", "OpDecorate %1 Alignment 16\n%1 = OpTypeVoid", 0, []uint32{1, 44, 16}},
		{"execution_mode", "OpExecutionMode %1 LocalSize 8 4 1\n%1 = OpTypeVoid", 0, []uint32{1, 17, 8, 4, 1}},
		{"function_control_mask", "%1 = OpTypeVoid\n%2 = OpTypeFunction %1\n%3 = OpFunction %1 Inline|Pure %2", 2, []uint32{1, 3, 5, 2}},
		{"image", "%1 = OpTypeVoid\n%2 = OpTypeImage %1 2D 0 0 0 0 Unknown WriteOnly", 1, []uint32{2, 1, 1, 0, 0, 0, 0, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := parse(t, tt.src)
			got := m.Instructions[tt.inst].Operands
			if !equal(got, tt.want) {
				t.Errorf("operands = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		lit  string
		want []uint32
	}{
		{"42", []uint32{42}},
		{"0x10", []uint32{16}},
		{"-1", []uint32{0xffffffff}},
		{"1.5", []uint32{math.Float32bits(1.5)}},
		{"0x100000002", []uint32{2, 1}},
		{"!7", []uint32{7}},
	}
	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			m, _ := parse(t, "%1 = OpTypeInt 32 0\n%2 = OpConstant %1 "+tt.lit)
			got := m.Instructions[1].Operands[2:]
			if !equal(got, tt.want) {
				t.Errorf("literal words = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseString(t *testing.T) {
	m, _ := parse(t, `OpEntryPoint Kernel %1 "vec_add" %2`+"\n%1 = OpTypeVoid\n%2 = OpTypeBool")
	ep := m.Instructions[0]
	name, n, ok := spirv.DecodeString(ep.Operands[2:])
	if !ok || name != "vec_add" {
		t.Fatalf("name = %q ok=%v", name, ok)
	}
	if ep.Operands[2+n] != 2 {
		t.Errorf("interface id = %d, want 2", ep.Operands[2+n])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, src, wantErr string
	}{
		{"unknown_instr", "OpBogus", "unknown instruction"},
		{"missing_result", "OpTypeVoid", "needs a result id"},
		{"unexpected_result", "%1 = OpCapability Kernel", "has no result id"},
		{"unknown_enum", "OpCapability Telepathy", "unknown operand"},
		{"zero_id", "%0 = OpTypeVoid", "reserved"},
		{"missing_equals", "%1 OpTypeVoid", "expected '='"},
		{"missing_type", "%1 = OpUndef", "needs a result type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(token.Tokenize(tt.src)).Parse()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q missing %q", err, tt.wantErr)
			}
		})
	}
}

func equal(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
