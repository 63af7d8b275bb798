package signature

import (
	"github.com/wippyai/spvkernel/spirv"
)

type decoration struct {
	args []uint32
	kind spirv.Decoration
}

type groupDecorate struct {
	group   uint32
	targets []uint32
}

// decorations buffers OpDecorate tuples against their target. Decorations
// may appear before their target is declared, so nothing is interpreted
// until resolve.
type decorations struct {
	byTarget map[uint32][]decoration
	groups   []groupDecorate
	resolved bool
}

func newDecorations() *decorations {
	return &decorations{byTarget: make(map[uint32][]decoration)}
}

func (d *decorations) add(target uint32, kind spirv.Decoration, args []uint32) {
	d.byTarget[target] = append(d.byTarget[target], decoration{
		kind: kind,
		args: append([]uint32(nil), args...),
	})
}

func (d *decorations) addGroup(group uint32, targets []uint32) {
	d.groups = append(d.groups, groupDecorate{
		group:   group,
		targets: append([]uint32(nil), targets...),
	})
}

// resolve copies group decorations onto their targets.
func (d *decorations) resolve() {
	if d.resolved {
		return
	}
	for _, g := range d.groups {
		for _, target := range g.targets {
			d.byTarget[target] = append(d.byTarget[target], d.byTarget[g.group]...)
		}
	}
	d.resolved = true
}

func (d *decorations) has(target uint32, kind spirv.Decoration) bool {
	for _, dec := range d.byTarget[target] {
		if dec.kind == kind {
			return true
		}
	}
	return false
}

// alignment returns the Alignment decoration of target.
func (d *decorations) alignment(target uint32) (uint32, bool) {
	for _, dec := range d.byTarget[target] {
		if dec.kind == spirv.DecorationAlignment && len(dec.args) > 0 {
			return dec.args[0], true
		}
	}
	return 0, false
}

func (d *decorations) hasParamAttr(target uint32, attr spirv.FuncParamAttr) bool {
	for _, dec := range d.byTarget[target] {
		if dec.kind == spirv.DecorationFuncParamAttr && len(dec.args) > 0 && spirv.FuncParamAttr(dec.args[0]) == attr {
			return true
		}
	}
	return false
}

// packedTargets returns every id decorated CPacked.
func (d *decorations) packedTargets() []uint32 {
	var ids []uint32
	for id, decs := range d.byTarget {
		for _, dec := range decs {
			if dec.kind == spirv.DecorationCPacked {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}

// argAttrs derives argument attribute flags from the decorations on a
// parameter id.
func (d *decorations) argAttrs(param uint32) Attrs {
	var a Attrs
	if d.has(param, spirv.DecorationRestrict) || d.hasParamAttr(param, spirv.FuncParamNoAlias) {
		a |= AttrRestrict
	}
	if d.has(param, spirv.DecorationVolatile) {
		a |= AttrVolatile
	}
	if d.has(param, spirv.DecorationConstant) || d.hasParamAttr(param, spirv.FuncParamNoWrite) {
		a |= AttrConstant
	}
	return a
}

// executionModes holds the size hints recorded for one entry function.
type executionModes struct {
	localSize     Size3
	localSizeHint Size3
	vecTypeHint   Size3
	// ids of constants for the *Id forms, resolved after the scan
	localSizeIDs     []uint32
	localSizeHintIDs []uint32
}

func size3(ops []uint32) Size3 {
	var s Size3
	for i := 0; i < 3 && i < len(ops); i++ {
		s[i] = uint64(ops[i])
	}
	return s
}

// vecTypeHint decodes the VecTypeHint literal: the low 16 bits are the data
// type, the high 16 bits the component count.
func vecTypeHint(v uint32) Size3 {
	return Size3{uint64(v >> 16), uint64(v & 0xffff), 0}
}

func (e *executionModes) record(mode spirv.ExecutionMode, ops []uint32, byID bool) {
	switch {
	case byID && mode == spirv.ModeLocalSizeID:
		e.localSizeIDs = append([]uint32(nil), ops...)
	case byID && mode == spirv.ModeLocalSizeHintID:
		e.localSizeHintIDs = append([]uint32(nil), ops...)
	case byID:
	case mode == spirv.ModeLocalSize:
		e.localSize = size3(ops)
	case mode == spirv.ModeLocalSizeHint:
		e.localSizeHint = size3(ops)
	case mode == spirv.ModeVecTypeHint && len(ops) > 0:
		e.vecTypeHint = vecTypeHint(ops[0])
	}
}
