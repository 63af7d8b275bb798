package autolocals

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/spvkernel/autolocals/internal/usage"
	spverrors "github.com/wippyai/spvkernel/errors"
	"github.com/wippyai/spvkernel/signature"
	"github.com/wippyai/spvkernel/spirv"
)

// Config selects which kernels are rewritten. The zero value rewrites every
// kernel.
type Config struct {
	Only KernelMatcher // when set, only matching kernels are rewritten
	Skip KernelMatcher // matching kernels are never rewritten
}

func (c Config) selects(name string) bool {
	if c.Only != nil && !c.Only.MatchKernel(name) {
		return false
	}
	return c.Skip == nil || !c.Skip.MatchKernel(name)
}

// Promotion describes one Workgroup variable turned into a kernel parameter.
type Promotion struct {
	Kernel      string
	Name        string
	Extent      signature.LocalExtent
	Var         uint32 // variable id, now the parameter id
	PointerType uint32
	Param       int // index in the kernel's parameter list
	ModuleScope bool
}

// Report summarizes a rewrite.
type Report struct {
	Promotions []Promotion
	// Workgroup variables declared in helper functions reachable from a
	// kernel. They are left in place.
	Nested []uint32
	// Module-scope Workgroup variables used by more than one function.
	Shared []uint32
}

// Changed reports whether the module was modified.
func (r *Report) Changed() bool {
	return len(r.Promotions) > 0
}

// For returns the promotions of one kernel in parameter order.
func (r *Report) For(kernel string) []Promotion {
	var out []Promotion
	for _, p := range r.Promotions {
		if p.Kernel == kernel {
			out = append(out, p)
		}
	}
	return out
}

// Rewrite turns the Workgroup variables owned by each kernel into trailing
// pointer parameters, in the order the kernel body first uses them, and
// appends a matching argument to the kernel's signature in infos. infos may
// be nil when only the module is of interest.
//
// Every check runs before the module is touched: on error m and infos are
// unchanged.
func Rewrite(m *spirv.Module, infos *signature.FunctionInfoMap, cfg Config) (*Report, error) {
	table, err := signature.BuildTypeTable(m)
	if err != nil {
		return nil, fmt.Errorf("autolocals: %w", err)
	}
	r := newRewriter(m, table)
	plans, err := r.plan(infos, cfg)
	if err != nil {
		return nil, err
	}
	report := &Report{Nested: r.nested, Shared: r.shared}
	if len(plans) == 0 {
		return report, nil
	}

	r.commit(plans)

	for _, p := range plans {
		base := len(p.fn.Params)
		for i, v := range p.vars {
			ext := v.extent
			if p.sig != nil {
				p.sig.AppendLocal(signature.ArgTypeInfo{
					Local:     &ext,
					Name:      v.name,
					TypeName:  table.TypeName(v.ptrType),
					Size:      uint64(table.PointerSize()),
					TypeID:    v.ptrType,
					Alignment: ext.Alignment,
					Space:     signature.SpaceLocal,
					Kind:      signature.KindPointer,
				})
			}
			report.Promotions = append(report.Promotions, Promotion{
				Kernel:      p.kernel,
				Name:        v.name,
				Extent:      ext,
				Var:         v.id,
				PointerType: v.ptrType,
				Param:       base + i,
				ModuleScope: v.moduleScope,
			})
			Logger().Debug("promoted workgroup variable",
				zap.String("kernel", p.kernel),
				zap.Uint32("id", v.id),
				zap.String("name", v.name),
				zap.Uint64("size", ext.Size),
				zap.Int("param", base+i))
		}
	}
	return report, nil
}

type candidate struct {
	name        string
	extent      signature.LocalExtent
	index       int // OpVariable position
	id          uint32
	ptrType     uint32
	moduleScope bool
}

type plan struct {
	sig       *signature.FunctionSignature
	fn        *spirv.Function
	kernel    string
	vars      []candidate
	params    []uint32 // new parameter type list
	typeAfter int      // new OpTypeFunction goes after this index
	ret       uint32
	newType   uint32 // 0 until allocated
}

type rewriter struct {
	m        *spirv.Module
	table    *signature.TypeTable
	graph    *usage.Graph
	funcs    map[uint32]*spirv.Function
	names    map[uint32]string
	declared map[uint32]int    // module-scope result id -> index
	globals  map[uint32]int    // module-scope Workgroup variable -> index
	align    map[uint32]uint32 // Alignment decorations
	fnTypes  []int
	nested   []uint32
	shared   []uint32
}

func newRewriter(m *spirv.Module, table *signature.TypeTable) *rewriter {
	r := &rewriter{
		m:        m,
		table:    table,
		graph:    usage.Build(m),
		funcs:    m.Functions(),
		names:    make(map[uint32]string),
		declared: make(map[uint32]int),
		globals:  make(map[uint32]int),
		align:    make(map[uint32]uint32),
	}
	inFunc := false
	for idx, inst := range m.Instructions {
		switch inst.Opcode {
		case spirv.OpFunction:
			inFunc = true
		case spirv.OpFunctionEnd:
			inFunc = false
		case spirv.OpName:
			if len(inst.Operands) > 1 {
				r.names[inst.Operands[0]], _, _ = spirv.DecodeString(inst.Operands[1:])
			}
		case spirv.OpDecorate:
			if len(inst.Operands) > 2 && spirv.Decoration(inst.Operands[1]) == spirv.DecorationAlignment {
				r.align[inst.Operands[0]] = max(r.align[inst.Operands[0]], inst.Operands[2])
			}
		}
		if inFunc {
			continue
		}
		if id, ok := inst.ResultID(); ok {
			r.declared[id] = idx
		}
		switch {
		case inst.Opcode == spirv.OpTypeFunction:
			r.fnTypes = append(r.fnTypes, idx)
		case inst.Opcode == spirv.OpVariable && isWorkgroup(inst):
			r.globals[inst.Operands[1]] = idx
		}
	}
	return r
}

func isWorkgroup(inst spirv.Instruction) bool {
	return len(inst.Operands) >= 3 && spirv.StorageClass(inst.Operands[2]) == spirv.StorageWorkgroup
}

func (r *rewriter) plan(infos *signature.FunctionInfoMap, cfg Config) ([]*plan, error) {
	var plans []*plan
	planned := make(map[uint32]string)
	kernels := make(map[uint32]bool)
	for _, ep := range r.m.EntryPoints() {
		if ep.Model != spirv.ModelKernel {
			continue
		}
		kernels[ep.Function] = true
		if !cfg.selects(ep.Name) {
			Logger().Debug("kernel not selected", zap.String("kernel", ep.Name))
			continue
		}
		fn, ok := r.funcs[ep.Function]
		if !ok {
			return nil, spverrors.UnresolvedID(spverrors.PhaseRewrite, ep.Name, "entry point function", ep.Function)
		}
		vars, err := r.candidates(ep.Name, fn)
		if err != nil {
			return nil, err
		}
		if len(vars) == 0 {
			continue
		}
		if other, dup := planned[fn.ID]; dup {
			return nil, spverrors.New(spverrors.PhaseRewrite, spverrors.KindUnsupported).
				Kernel(ep.Name).
				Value(fn.ID).
				Detail("function %%%d is also the entry point of kernel %s", fn.ID, other).
				Build()
		}
		planned[fn.ID] = ep.Name
		if callers := r.graph.Callers(fn.ID); len(callers) > 0 {
			return nil, spverrors.New(spverrors.PhaseRewrite, spverrors.KindUnsupported).
				Kernel(ep.Name).
				Value(callers[0]).
				Detail("kernel with workgroup variables is called from function %%%d", callers[0]).
				Build()
		}

		p := &plan{kernel: ep.Name, fn: fn, vars: vars}
		if infos != nil {
			sig, ok := infos.Get(ep.Name)
			if !ok {
				return nil, spverrors.New(spverrors.PhaseRewrite, spverrors.KindMalformedBinary).
					Kernel(ep.Name).
					Detail("no signature for kernel").
					Build()
			}
			p.sig = sig
		}
		if err := r.planType(p); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	r.findNested(kernels)
	return plans, nil
}

// candidates lists the Workgroup variables owned by fn in the order its
// body first mentions them.
func (r *rewriter) candidates(kernel string, fn *spirv.Function) ([]candidate, error) {
	var out []candidate
	seen := make(map[uint32]bool)
	for idx := fn.Body(); idx < fn.End; idx++ {
		inst := r.m.Instructions[idx]
		if inst.Opcode == spirv.OpVariable && isWorkgroup(inst) {
			c, err := r.candidate(kernel, idx, false)
			if err != nil {
				return nil, err
			}
			seen[c.id] = true
			out = append(out, c)
			continue
		}
		for _, ref := range inst.Refs() {
			gidx, ok := r.globals[ref]
			if !ok || seen[ref] {
				continue
			}
			seen[ref] = true
			if !r.graph.ExclusiveTo(ref, fn.ID) {
				if !slices.Contains(r.shared, ref) {
					r.shared = append(r.shared, ref)
					Logger().Debug("workgroup variable shared between functions",
						zap.String("kernel", kernel), zap.Uint32("id", ref))
				}
				continue
			}
			c, err := r.candidate(kernel, gidx, true)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *rewriter) candidate(kernel string, idx int, moduleScope bool) (candidate, error) {
	ops := r.m.Instructions[idx].Operands
	c := candidate{
		index:       idx,
		ptrType:     ops[0],
		id:          ops[1],
		moduleScope: moduleScope,
		name:        r.names[ops[1]],
	}
	if len(ops) > 3 {
		return candidate{}, spverrors.New(spverrors.PhaseRewrite, spverrors.KindUnsupported).
			Kernel(kernel).
			Path(fmt.Sprintf("%%%d", c.id)).
			Value(c.id).
			Detail("workgroup variable %%%d has an initializer", c.id).
			Build()
	}
	ptr, ok := r.table.Lookup(c.ptrType)
	if !ok || ptr.Kind != signature.TypePointer {
		return candidate{}, spverrors.UnresolvedID(spverrors.PhaseRewrite, kernel, "pointer type", c.ptrType)
	}
	l, err := r.table.Layout(ptr.Elem)
	if err != nil {
		if errors.Is(err, spverrors.ErrUnsupportedDynamicLocalSize) {
			e := spverrors.UnsupportedDynamicLocalSize(kernel, c.id,
				fmt.Sprintf("workgroup variable %%%d has no static size", c.id))
			e.Cause = err
			return candidate{}, e
		}
		return candidate{}, fmt.Errorf("kernel %s variable %%%d: %w", kernel, c.id, err)
	}
	c.extent = signature.LocalExtent{ElemSize: l.Size, Count: 1, Size: l.Size, Alignment: l.Alignment}
	// An aligned(N) attribute may raise the alignment, never lower it.
	c.extent.Alignment = max(c.extent.Alignment, r.align[c.id])
	if ty, ok := r.table.Lookup(ptr.Elem); ok && ty.Kind == signature.TypeArray {
		n, _ := r.table.ArrayLength(ptr.Elem)
		c.extent.Count = n
		if n > 0 {
			c.extent.ElemSize = l.Size / n
		} else if el, err := r.table.Layout(ty.Elem); err == nil {
			c.extent.ElemSize = el.Size
		}
	}
	return c, nil
}

func (r *rewriter) planType(p *plan) error {
	old, ok := r.table.Lookup(p.fn.Type)
	if !ok || old.Kind != signature.TypeFunction {
		return spverrors.UnresolvedID(spverrors.PhaseRewrite, p.kernel, "function type", p.fn.Type)
	}
	after, ok := r.declared[p.fn.Type]
	if !ok {
		return spverrors.UnresolvedID(spverrors.PhaseRewrite, p.kernel, "function type", p.fn.Type)
	}
	params := slices.Clone(old.Members)
	for _, v := range p.vars {
		at, ok := r.declared[v.ptrType]
		if !ok {
			return spverrors.UnresolvedID(spverrors.PhaseRewrite, p.kernel, "pointer type", v.ptrType)
		}
		after = max(after, at)
		params = append(params, v.ptrType)
	}
	p.ret, p.params, p.typeAfter = old.Return, params, after
	p.newType = r.findFunctionType(old.Return, params)
	return nil
}

func (r *rewriter) findFunctionType(ret uint32, params []uint32) uint32 {
	for _, idx := range r.fnTypes {
		ops := r.m.Instructions[idx].Operands
		if len(ops) >= 2 && ops[1] == ret && slices.Equal(ops[2:], params) {
			return ops[0]
		}
	}
	return 0
}

// commit applies every plan in one pass over the instruction list.
func (r *rewriter) commit(plans []*plan) {
	remove := make(map[int]bool)
	replace := make(map[int]spirv.Instruction)
	insert := make(map[int][]spirv.Instruction)
	created := make(map[string]uint32)
	promoted := make(map[uint32]bool)

	for _, p := range plans {
		if p.newType == 0 {
			key := fmt.Sprint(p.ret, p.params)
			id, ok := created[key]
			if !ok {
				id = r.m.AllocID()
				created[key] = id
				ops := append([]uint32{id, p.ret}, p.params...)
				insert[p.typeAfter] = append(insert[p.typeAfter],
					spirv.Instruction{Opcode: spirv.OpTypeFunction, Operands: ops})
			}
			p.newType = id
		}

		fnInst := r.m.Instructions[p.fn.Start].Clone()
		fnInst.Operands[3] = p.newType
		replace[p.fn.Start] = fnInst

		last := p.fn.Start
		if len(p.fn.Params) > 0 {
			last = p.fn.Params[len(p.fn.Params)-1]
		}
		for _, v := range p.vars {
			remove[v.index] = true
			promoted[v.id] = true
			insert[last] = append(insert[last], spirv.Instruction{
				Opcode:   spirv.OpFunctionParameter,
				Operands: []uint32{v.ptrType, v.id},
			})
		}
	}

	// A promoted id is a parameter now; no entry point may list it.
	for _, ep := range r.m.EntryPoints() {
		if !slices.ContainsFunc(ep.Interface, func(id uint32) bool { return promoted[id] }) {
			continue
		}
		epInst := r.m.Instructions[ep.Index]
		prefix := len(epInst.Operands) - len(ep.Interface)
		ops := slices.Clone(epInst.Operands[:prefix])
		for _, id := range epInst.Operands[prefix:] {
			if !promoted[id] {
				ops = append(ops, id)
			}
		}
		replace[ep.Index] = spirv.Instruction{Opcode: spirv.OpEntryPoint, Operands: ops}
	}

	extra := 0
	for _, ins := range insert {
		extra += len(ins)
	}
	out := make([]spirv.Instruction, 0, len(r.m.Instructions)+extra)
	for idx, inst := range r.m.Instructions {
		if !remove[idx] {
			if rep, ok := replace[idx]; ok {
				inst = rep
			}
			out = append(out, inst)
		}
		out = append(out, insert[idx]...)
	}
	r.m.Instructions = out
}

// findNested records Workgroup variables declared inside helper functions
// that kernels reach through calls.
func (r *rewriter) findNested(kernels map[uint32]bool) {
	reach := r.graph.Calls.TransitiveCallees(kernels)
	var helpers []*spirv.Function
	for id := range reach {
		if fn, ok := r.funcs[id]; ok && !kernels[id] {
			helpers = append(helpers, fn)
		}
	}
	sort.Slice(helpers, func(i, j int) bool { return helpers[i].Start < helpers[j].Start })
	for _, fn := range helpers {
		for idx := fn.Body(); idx < fn.End; idx++ {
			inst := r.m.Instructions[idx]
			if inst.Opcode == spirv.OpVariable && isWorkgroup(inst) {
				r.nested = append(r.nested, inst.Operands[1])
				Logger().Debug("workgroup variable in helper function left in place",
					zap.Uint32("function", fn.ID),
					zap.Uint32("id", inst.Operands[1]))
			}
		}
	}
}
