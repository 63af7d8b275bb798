package usage

import (
	"github.com/wippyai/spvkernel/spirv"
)

// CallGraph maps each function id to the functions it calls directly.
type CallGraph map[uint32][]uint32

// Graph records which function bodies reference each id.
type Graph struct {
	Calls CallGraph
	// callers is Calls inverted.
	callers map[uint32][]uint32
	users   map[uint32][]uint32
	// global holds ids referenced by module-scope instructions other than
	// debug names, annotations and entry point declarations.
	global map[uint32]bool
}

// Build walks every instruction once. Operand classification follows
// spirv.Instruction.Refs, so unknown opcodes count every operand as a
// potential reference.
func Build(m *spirv.Module) *Graph {
	g := &Graph{
		Calls:   make(CallGraph),
		callers: make(map[uint32][]uint32),
		users:   make(map[uint32][]uint32),
		global:  make(map[uint32]bool),
	}
	var fn uint32
	inFunc := false
	for _, inst := range m.Instructions {
		switch inst.Opcode {
		case spirv.OpFunction:
			id, _ := inst.ResultID()
			fn, inFunc = id, true
			continue
		case spirv.OpFunctionEnd:
			inFunc = false
			continue
		}

		if !inFunc {
			if isAnnotation(inst.Opcode) {
				continue
			}
			for _, ref := range inst.Refs() {
				g.global[ref] = true
			}
			continue
		}

		if inst.Opcode == spirv.OpFunctionCall {
			if callee, ok := inst.Operand(2); ok {
				g.Calls[fn] = appendUnique(g.Calls[fn], callee)
				g.callers[callee] = appendUnique(g.callers[callee], fn)
			}
		}
		for _, ref := range inst.Refs() {
			g.users[ref] = appendUnique(g.users[ref], fn)
		}
	}
	return g
}

func isAnnotation(op spirv.Opcode) bool {
	switch op {
	case spirv.OpName, spirv.OpMemberName, spirv.OpDecorate, spirv.OpMemberDecorate,
		spirv.OpGroupDecorate, spirv.OpGroupMemberDecorate, spirv.OpDecorateID,
		spirv.OpDecorateString, spirv.OpMemberDecorateString, spirv.OpEntryPoint,
		spirv.OpExecutionMode, spirv.OpExecutionModeID:
		return true
	}
	return false
}

// Users returns the functions whose bodies reference id, in module order.
func (g *Graph) Users(id uint32) []uint32 {
	return g.users[id]
}

// UsedGlobally reports whether a module-scope instruction references id.
func (g *Graph) UsedGlobally(id uint32) bool {
	return g.global[id]
}

// ExclusiveTo reports whether fn's body is the only place id is used.
func (g *Graph) ExclusiveTo(id, fn uint32) bool {
	users := g.users[id]
	return len(users) == 1 && users[0] == fn && !g.global[id]
}

// Callers returns the functions that call fn directly.
func (g *Graph) Callers(fn uint32) []uint32 {
	return g.callers[fn]
}

// TransitiveCallees finds all functions reachable from any of the sources,
// sources included.
func (cg CallGraph) TransitiveCallees(sources map[uint32]bool) map[uint32]bool {
	result := make(map[uint32]bool, len(sources))
	var work []uint32
	for s := range sources {
		result[s] = true
		work = append(work, s)
	}
	for len(work) > 0 {
		caller := work[len(work)-1]
		work = work[:len(work)-1]
		for _, callee := range cg[caller] {
			if !result[callee] {
				result[callee] = true
				work = append(work, callee)
			}
		}
	}
	return result
}

func appendUnique(slice []uint32, val uint32) []uint32 {
	for _, v := range slice {
		if v == val {
			return slice
		}
	}
	return append(slice, val)
}
