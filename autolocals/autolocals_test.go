package autolocals_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/wippyai/spvkernel/autolocals"
	spverrors "github.com/wippyai/spvkernel/errors"
	"github.com/wippyai/spvkernel/signature"
	"github.com/wippyai/spvkernel/spirv"
	"github.com/wippyai/spvkernel/spvasm"
)

const reduceKernel = `
	OpCapability Addresses
	OpCapability Kernel
	OpMemoryModel Physical64 OpenCL
	OpEntryPoint Kernel %k "reduce" %l2 %l1
	OpName %out "out"
	OpName %n "n"
	OpName %l1 "scratch"
	OpName %l2 "tile"
	%void = OpTypeVoid
	%uint = OpTypeInt 32 0
	%float = OpTypeFloat 32
	%zero = OpConstant %uint 0
	%n16 = OpConstant %uint 16
	%arr = OpTypeArray %float %n16
	%lp_arr = OpTypePointer Workgroup %arr
	%lp_uint = OpTypePointer Workgroup %uint
	%lp_float = OpTypePointer Workgroup %float
	%gp = OpTypePointer CrossWorkgroup %float
	%fp = OpTypePointer Function %uint
	%fn = OpTypeFunction %void %gp %uint
	%l2 = OpVariable %lp_uint Workgroup
	%l1 = OpVariable %lp_arr Workgroup
	%k = OpFunction %void None %fn
	%out = OpFunctionParameter %gp
	%n = OpFunctionParameter %uint
	%entry = OpLabel
	%priv = OpVariable %fp Function
	%elem = OpInBoundsAccessChain %lp_float %l1 %zero
	%v = OpLoad %float %elem
	OpStore %out %v
	OpStore %l2 %n
	OpStore %priv %n
	OpReturn
	OpFunctionEnd
`

func parse(t *testing.T, src string) (*spvasm.Program, *signature.FunctionInfoMap) {
	t.Helper()
	prog, err := spvasm.Parse(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	infos, err := signature.ParseModule(prog.Module)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	return prog, infos
}

func words(t *testing.T, m *spirv.Module) []uint32 {
	t.Helper()
	w, err := m.Words()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return w
}

func TestRewrite_PromotesInFirstUseOrder(t *testing.T) {
	prog, infos := parse(t, reduceKernel)
	m := prog.Module
	oldBound := m.Header.Bound
	l1, l2 := prog.ID("l1"), prog.ID("l2")

	report, err := autolocals.Rewrite(m, infos, autolocals.Config{})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if !report.Changed() {
		t.Fatal("report shows no change")
	}

	got := report.For("reduce")
	if len(got) != 2 {
		t.Fatalf("promotions = %d, want 2", len(got))
	}
	want := []autolocals.Promotion{
		{Kernel: "reduce", Name: "scratch", Var: l1, PointerType: prog.ID("lp_arr"), Param: 2, ModuleScope: true,
			Extent: signature.LocalExtent{ElemSize: 4, Count: 16, Size: 64, Alignment: 4}},
		{Kernel: "reduce", Name: "tile", Var: l2, PointerType: prog.ID("lp_uint"), Param: 3, ModuleScope: true,
			Extent: signature.LocalExtent{ElemSize: 4, Count: 1, Size: 4, Alignment: 4}},
	}
	if !slices.Equal(got, want) {
		t.Errorf("promotions:\n got %+v\nwant %+v", got, want)
	}

	// Module: parameters appended, variables gone, interface trimmed.
	fn := m.Functions()[prog.ID("k")]
	if len(fn.Params) != 4 {
		t.Fatalf("params = %d, want 4", len(fn.Params))
	}
	var paramIDs []uint32
	for _, idx := range fn.Params {
		paramIDs = append(paramIDs, m.Instructions[idx].Operands[1])
	}
	if wantIDs := []uint32{prog.ID("out"), prog.ID("n"), l1, l2}; !slices.Equal(paramIDs, wantIDs) {
		t.Errorf("param ids = %v, want %v", paramIDs, wantIDs)
	}
	for _, inst := range m.Instructions {
		if inst.Opcode == spirv.OpVariable && (inst.Operands[1] == l1 || inst.Operands[1] == l2) {
			t.Errorf("variable %%%d still declared", inst.Operands[1])
		}
	}
	if eps := m.EntryPoints(); len(eps[0].Interface) != 0 {
		t.Errorf("interface = %v, want empty", eps[0].Interface)
	}
	if fn.Type != oldBound || m.Header.Bound != oldBound+1 {
		t.Errorf("function type = %%%d, bound = %d; want new type %%%d", fn.Type, m.Header.Bound, oldBound)
	}

	// Signature: original arguments untouched, locals trailing.
	sig, _ := infos.Get("reduce")
	if len(sig.Args) != 4 || sig.NumLocals() != 2 {
		t.Fatalf("args = %d locals = %d, want 4 and 2", len(sig.Args), sig.NumLocals())
	}
	if sig.Args[0].Name != "out" || sig.Args[1].Name != "n" || sig.Args[0].Local != nil {
		t.Errorf("leading args changed: %+v", sig.Args[:2])
	}
	for i, name := range []string{"scratch", "tile"} {
		a := sig.Args[2+i]
		if a.Name != name || a.Space != signature.SpaceLocal || a.Kind != signature.KindPointer || a.Local == nil {
			t.Errorf("arg %d = %+v, want local pointer %s", 2+i, a, name)
		}
	}

	// The rewritten module parses to the same signature and rewrites to
	// itself.
	reparsed, err := signature.ParseModule(m)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	re, _ := reparsed.Get("reduce")
	if len(re.Args) != 4 || re.Args[2].Space != signature.SpaceLocal || re.Args[3].Space != signature.SpaceLocal {
		t.Errorf("reparsed args = %+v", re.Args)
	}
	before := words(t, m)
	again, err := autolocals.Rewrite(m, nil, autolocals.Config{})
	if err != nil || again.Changed() {
		t.Errorf("second rewrite: changed=%v err=%v", again != nil && again.Changed(), err)
	}
	if !slices.Equal(before, words(t, m)) {
		t.Error("second rewrite modified the module")
	}
}

func TestRewrite_NoLocalsIsNoop(t *testing.T) {
	src := `
		OpCapability Addresses
		OpCapability Kernel
		OpMemoryModel Physical64 OpenCL
		OpEntryPoint Kernel %k "copy"
		%void = OpTypeVoid
		%uint = OpTypeInt 32 0
		%gp = OpTypePointer CrossWorkgroup %uint
		%fp = OpTypePointer Function %uint
		%fn = OpTypeFunction %void %gp %uint
		%k = OpFunction %void None %fn
		%dst = OpFunctionParameter %gp
		%val = OpFunctionParameter %uint
		%entry = OpLabel
		%tmp = OpVariable %fp Function
		OpStore %tmp %val
		OpStore %dst %val
		OpReturn
		OpFunctionEnd
	`
	prog, infos := parse(t, src)
	before := words(t, prog.Module)
	sigBefore, _ := infos.Get("copy")
	argsBefore := slices.Clone(sigBefore.Args)

	report, err := autolocals.Rewrite(prog.Module, infos, autolocals.Config{})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if report.Changed() {
		t.Error("report shows a change")
	}
	if !slices.Equal(before, words(t, prog.Module)) {
		t.Error("module modified")
	}
	sig, _ := infos.Get("copy")
	if !slices.Equal(sig.Args, argsBefore) {
		t.Errorf("args = %+v, want %+v", sig.Args, argsBefore)
	}
}

func TestRewrite_DynamicExtentLeavesModuleUnchanged(t *testing.T) {
	src := `
		OpCapability Addresses
		OpCapability Kernel
		OpMemoryModel Physical64 OpenCL
		OpEntryPoint Kernel %ok "static"
		OpEntryPoint Kernel %bad "dynamic"
		%void = OpTypeVoid
		%uint = OpTypeInt 32 0
		%n8 = OpConstant %uint 8
		%len = OpSpecConstant %uint 64
		%fixed = OpTypeArray %uint %n8
		%sized = OpTypeArray %uint %len
		%lp_fixed = OpTypePointer Workgroup %fixed
		%lp_sized = OpTypePointer Workgroup %sized
		%fn = OpTypeFunction %void
		%a = OpVariable %lp_fixed Workgroup
		%b = OpVariable %lp_sized Workgroup
		%ok = OpFunction %void None %fn
		%l1 = OpLabel
		%x = OpLoad %fixed %a
		OpReturn
		OpFunctionEnd
		%bad = OpFunction %void None %fn
		%l2 = OpLabel
		%y = OpLoad %sized %b
		OpReturn
		OpFunctionEnd
	`
	prog, infos := parse(t, src)
	before := words(t, prog.Module)
	bound := prog.Module.Header.Bound

	_, err := autolocals.Rewrite(prog.Module, infos, autolocals.Config{})
	if !errors.Is(err, spverrors.ErrUnsupportedDynamicLocalSize) {
		t.Fatalf("err = %v, want dynamic local size", err)
	}
	var se *spverrors.Error
	if !errors.As(err, &se) || se.Kernel != "dynamic" || se.Phase != spverrors.PhaseRewrite {
		t.Errorf("error = %#v, want rewrite phase for kernel dynamic", err)
	}
	if !slices.Equal(before, words(t, prog.Module)) || prog.Module.Header.Bound != bound {
		t.Error("module modified on failure")
	}
	for _, name := range []string{"static", "dynamic"} {
		if sig, _ := infos.Get(name); len(sig.Args) != 0 {
			t.Errorf("%s: signature modified on failure: %+v", name, sig.Args)
		}
	}
}

func TestRewrite_RuntimeArrayIsDynamic(t *testing.T) {
	src := `
		OpCapability Addresses
		OpCapability Kernel
		OpMemoryModel Physical64 OpenCL
		OpEntryPoint Kernel %k "k"
		%void = OpTypeVoid
		%uint = OpTypeInt 32 0
		%rt = OpTypeRuntimeArray %uint
		%s = OpTypeStruct %uint %rt
		%lp = OpTypePointer Workgroup %s
		%fn = OpTypeFunction %void
		%k = OpFunction %void None %fn
		%l = OpLabel
		%v = OpVariable %lp Workgroup
		OpReturn
		OpFunctionEnd
	`
	prog, _ := parse(t, src)
	if _, err := autolocals.Rewrite(prog.Module, nil, autolocals.Config{}); !errors.Is(err, spverrors.ErrUnsupportedDynamicLocalSize) {
		t.Fatalf("err = %v, want dynamic local size", err)
	}
}

func TestRewrite_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"called_kernel", `
			OpCapability Kernel
			OpMemoryModel Physical64 OpenCL
			OpEntryPoint Kernel %k "inner"
			OpEntryPoint Kernel %outer "outer"
			%void = OpTypeVoid
			%uint = OpTypeInt 32 0
			%lp = OpTypePointer Workgroup %uint
			%fn = OpTypeFunction %void
			%k = OpFunction %void None %fn
			%l1 = OpLabel
			%v = OpVariable %lp Workgroup
			OpReturn
			OpFunctionEnd
			%outer = OpFunction %void None %fn
			%l2 = OpLabel
			%r = OpFunctionCall %void %k
			OpReturn
			OpFunctionEnd
		`},
		{"initializer", `
			OpCapability Kernel
			OpMemoryModel Physical64 OpenCL
			OpEntryPoint Kernel %k "k"
			%void = OpTypeVoid
			%uint = OpTypeInt 32 0
			%one = OpConstant %uint 1
			%lp = OpTypePointer Workgroup %uint
			%fn = OpTypeFunction %void
			%k = OpFunction %void None %fn
			%l = OpLabel
			%v = OpVariable %lp Workgroup %one
			OpReturn
			OpFunctionEnd
		`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, infos := parse(t, tt.src)
			before := words(t, prog.Module)
			_, err := autolocals.Rewrite(prog.Module, infos, autolocals.Config{})
			if !errors.Is(err, spverrors.ErrUnsupported) {
				t.Fatalf("err = %v, want unsupported", err)
			}
			if !slices.Equal(before, words(t, prog.Module)) {
				t.Error("module modified on failure")
			}
		})
	}
}

func TestRewrite_MissingSignature(t *testing.T) {
	prog, _ := parse(t, reduceKernel)
	_, err := autolocals.Rewrite(prog.Module, signature.NewFunctionInfoMap(), autolocals.Config{})
	if !errors.Is(err, spverrors.ErrMalformedBinary) {
		t.Fatalf("err = %v, want malformed binary", err)
	}
}

func TestRewrite_SharedAndNestedLeftInPlace(t *testing.T) {
	src := `
		OpCapability Addresses
		OpCapability Kernel
		OpMemoryModel Physical64 OpenCL
		OpEntryPoint Kernel %k1 "first"
		OpEntryPoint Kernel %k2 "second"
		%void = OpTypeVoid
		%uint = OpTypeInt 32 0
		%lp = OpTypePointer Workgroup %uint
		%fn = OpTypeFunction %void
		%shared = OpVariable %lp Workgroup
		%helper = OpFunction %void None %fn
		%lh = OpLabel
		%nested = OpVariable %lp Workgroup
		OpReturn
		OpFunctionEnd
		%k1 = OpFunction %void None %fn
		%l1 = OpLabel
		%a = OpLoad %uint %shared
		%c = OpFunctionCall %void %helper
		OpReturn
		OpFunctionEnd
		%k2 = OpFunction %void None %fn
		%l2 = OpLabel
		%b = OpLoad %uint %shared
		OpReturn
		OpFunctionEnd
	`
	prog, infos := parse(t, src)
	before := words(t, prog.Module)

	report, err := autolocals.Rewrite(prog.Module, infos, autolocals.Config{})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if report.Changed() {
		t.Errorf("promotions = %+v, want none", report.Promotions)
	}
	if !slices.Equal(report.Shared, []uint32{prog.ID("shared")}) {
		t.Errorf("Shared = %v", report.Shared)
	}
	if !slices.Equal(report.Nested, []uint32{prog.ID("nested")}) {
		t.Errorf("Nested = %v", report.Nested)
	}
	if !slices.Equal(before, words(t, prog.Module)) {
		t.Error("module modified")
	}
}

func TestRewrite_ReusesExistingFunctionType(t *testing.T) {
	src := `
		OpCapability Kernel
		OpMemoryModel Physical64 OpenCL
		OpEntryPoint Kernel %k "k"
		%void = OpTypeVoid
		%uint = OpTypeInt 32 0
		%lp = OpTypePointer Workgroup %uint
		%fn = OpTypeFunction %void %uint
		%fn_local = OpTypeFunction %void %uint %lp
		%k = OpFunction %void None %fn
		%p = OpFunctionParameter %uint
		%l = OpLabel
		%v = OpVariable %lp Workgroup
		OpStore %v %p
		OpReturn
		OpFunctionEnd
	`
	prog, infos := parse(t, src)
	bound := prog.Module.Header.Bound
	if _, err := autolocals.Rewrite(prog.Module, infos, autolocals.Config{}); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if prog.Module.Header.Bound != bound {
		t.Errorf("bound = %d, want %d", prog.Module.Header.Bound, bound)
	}
	if fn := prog.Module.Functions()[prog.ID("k")]; fn.Type != prog.ID("fn_local") {
		t.Errorf("function type = %%%d, want %%%d", fn.Type, prog.ID("fn_local"))
	}
}

func TestRewrite_ConfigSelectsKernels(t *testing.T) {
	src := `
		OpCapability Kernel
		OpMemoryModel Physical64 OpenCL
		OpEntryPoint Kernel %a "reduce_sum"
		OpEntryPoint Kernel %b "scan"
		%void = OpTypeVoid
		%uint = OpTypeInt 32 0
		%lp = OpTypePointer Workgroup %uint
		%fn = OpTypeFunction %void
		%a = OpFunction %void None %fn
		%la = OpLabel
		%va = OpVariable %lp Workgroup
		OpReturn
		OpFunctionEnd
		%b = OpFunction %void None %fn
		%lb = OpLabel
		%vb = OpVariable %lp Workgroup
		OpReturn
		OpFunctionEnd
	`
	tests := []struct {
		name string
		cfg  autolocals.Config
		want []string
	}{
		{"all", autolocals.Config{}, []string{"reduce_sum", "scan"}},
		{"only", autolocals.Config{Only: autolocals.NewWildcardMatcher([]string{"reduce_*"})}, []string{"reduce_sum"}},
		{"skip", autolocals.Config{Skip: autolocals.NewExactMatcher([]string{"reduce_sum"})}, []string{"scan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, infos := parse(t, src)
			report, err := autolocals.Rewrite(prog.Module, infos, tt.cfg)
			if err != nil {
				t.Fatalf("Rewrite: %v", err)
			}
			var kernels []string
			for _, p := range report.Promotions {
				kernels = append(kernels, p.Kernel)
			}
			if !slices.Equal(kernels, tt.want) {
				t.Errorf("promoted kernels = %v, want %v", kernels, tt.want)
			}
		})
	}
}

func TestMatchers(t *testing.T) {
	w := autolocals.NewWildcardMatcher([]string{"exact", "pre_*"})
	for name, want := range map[string]bool{"exact": true, "pre_x": true, "pre": false, "other": false} {
		if got := w.MatchKernel(name); got != want {
			t.Errorf("wildcard %q = %v, want %v", name, got, want)
		}
	}
	if !autolocals.NewWildcardMatcher([]string{"*"}).MatchKernel("anything") {
		t.Error("* does not match")
	}
	e := autolocals.NewExactMatcher([]string{"a"})
	if !e.MatchKernel("a") || e.MatchKernel("ab") {
		t.Error("exact matcher mismatch")
	}
}

func TestRewrite_AlignmentDecoration(t *testing.T) {
	tests := []struct {
		name     string
		decorate string
		want     uint32
	}{
		{"over_aligned", "OpDecorate %l Alignment 16", 16},
		{"under_aligned_keeps_natural", "OpDecorate %l Alignment 2", 4},
		{"undecorated", "", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := `
				OpCapability Addresses
				OpCapability Kernel
				OpMemoryModel Physical64 OpenCL
				OpEntryPoint Kernel %k "aligned"
				` + tt.decorate + `
				%void = OpTypeVoid
				%uint = OpTypeInt 32 0
				%zero = OpConstant %uint 0
				%lp = OpTypePointer Workgroup %uint
				%fn = OpTypeFunction %void
				%l = OpVariable %lp Workgroup
				%k = OpFunction %void None %fn
				%e = OpLabel
				OpStore %l %zero
				OpReturn
				OpFunctionEnd
			`
			prog, infos := parse(t, src)
			report, err := autolocals.Rewrite(prog.Module, infos, autolocals.Config{})
			if err != nil {
				t.Fatalf("Rewrite: %v", err)
			}
			got := report.For("aligned")
			if len(got) != 1 {
				t.Fatalf("promotions = %+v", report.Promotions)
			}
			want := signature.LocalExtent{ElemSize: 4, Count: 1, Size: 4, Alignment: tt.want}
			if got[0].Extent != want {
				t.Errorf("extent = %+v, want %+v", got[0].Extent, want)
			}
			sig, _ := infos.Get("aligned")
			if len(sig.Args) != 1 || sig.Args[0].Alignment != tt.want || sig.Args[0].Local.Alignment != tt.want {
				t.Errorf("trailing arg = %+v, want alignment %d", sig.Args, tt.want)
			}
		})
	}
}

func TestRewrite_TrimsEveryInterface(t *testing.T) {
	src := `
		OpCapability Addresses
		OpCapability Kernel
		OpMemoryModel Physical64 OpenCL
		OpEntryPoint Kernel %a "a" %l %g
		OpEntryPoint Kernel %b "b" %g %l
		%void = OpTypeVoid
		%uint = OpTypeInt 32 0
		%zero = OpConstant %uint 0
		%lp = OpTypePointer Workgroup %uint
		%cp = OpTypePointer CrossWorkgroup %uint
		%fn = OpTypeFunction %void
		%l = OpVariable %lp Workgroup
		%g = OpVariable %cp CrossWorkgroup
		%a = OpFunction %void None %fn
		%ea = OpLabel
		OpStore %l %zero
		OpReturn
		OpFunctionEnd
		%b = OpFunction %void None %fn
		%eb = OpLabel
		OpReturn
		OpFunctionEnd
	`
	prog, infos := parse(t, src)
	l, g := prog.ID("l"), prog.ID("g")

	report, err := autolocals.Rewrite(prog.Module, infos, autolocals.Config{})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got := report.For("a"); len(got) != 1 || got[0].Var != l {
		t.Fatalf("promotions = %+v", report.Promotions)
	}
	if len(report.For("b")) != 0 || len(report.Shared) != 0 {
		t.Errorf("b promotions = %+v shared = %v", report.For("b"), report.Shared)
	}

	for _, ep := range prog.Module.EntryPoints() {
		if !slices.Equal(ep.Interface, []uint32{g}) {
			t.Errorf("entry %s interface = %v, want [%d]", ep.Name, ep.Interface, g)
		}
	}

	// The encoded module decodes with both kernels intact.
	m, err := spirv.Decode(words(t, prog.Module))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	reparsed, err := signature.ParseModule(m)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if sa, _ := reparsed.Get("a"); len(sa.Args) != 1 || sa.Args[0].Space != signature.SpaceLocal {
		t.Errorf("a args = %+v", sa.Args)
	}
	if sb, _ := reparsed.Get("b"); len(sb.Args) != 0 {
		t.Errorf("b args = %+v", sb.Args)
	}
}

func TestRewrite_LiteralOperandsAreNotUses(t *testing.T) {
	src := `
		OpCapability Addresses
		OpCapability Kernel
		OpMemoryModel Physical64 OpenCL
		OpEntryPoint Kernel %k "k"
		%void = OpTypeVoid
		%uint = OpTypeInt 32 0
		%zero = OpConstant %uint 0
		%lp = OpTypePointer Workgroup %uint
		%fp = OpTypePointer Function %uint
		%gp = OpTypePointer Generic %uint
		%fn = OpTypeFunction %void
		%l = OpVariable %lp Workgroup
		%helper = OpFunction %void None %fn
		%eh = OpLabel
		%p = OpVariable %fp Function
		OpLifetimeStart %p 0
		%q = OpPtrCastToGeneric %gp %p
		%r = OpGenericCastToPtrExplicit %fp %q Function
		OpLifetimeStop %p 0
		OpReturn
		OpFunctionEnd
		%k = OpFunction %void None %fn
		%ek = OpLabel
		OpStore %l %zero
		OpReturn
		OpFunctionEnd
	`
	prog, infos := parse(t, src)
	m := prog.Module
	l := prog.ID("l")
	// Give every literal in the helper the value of the variable's id.
	for i, inst := range m.Instructions {
		switch inst.Opcode {
		case spirv.OpLifetimeStart, spirv.OpLifetimeStop:
			m.Instructions[i].Operands[1] = l
		case spirv.OpGenericCastToPtrExplicit:
			m.Instructions[i].Operands[3] = l
		}
	}

	report, err := autolocals.Rewrite(m, infos, autolocals.Config{})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if len(report.Shared) != 0 {
		t.Errorf("Shared = %v, want none", report.Shared)
	}
	if got := report.For("k"); len(got) != 1 || got[0].Var != l {
		t.Errorf("promotions = %+v, want %%%d", report.Promotions, l)
	}
}
