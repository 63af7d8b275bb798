package signature

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	spverrors "github.com/wippyai/spvkernel/errors"
	"github.com/wippyai/spvkernel/spirv"
)

type entryPoint struct {
	name string
	fn   uint32
}

type param struct {
	id  uint32
	typ uint32
}

type function struct {
	params []param
	id     uint32
	ret    uint32
	fnType uint32
}

// extractor holds the state of one scan. Nothing in it is shared between
// calls.
type extractor struct {
	table   *TypeTable
	decos   *decorations
	names   map[uint32]string
	modes   map[uint32]*executionModes
	funcs   map[uint32]*function
	current *function
	entries []entryPoint
	skipped int
}

func newExtractor(bound uint32) *extractor {
	return &extractor{
		table: NewTypeTable(bound),
		decos: newDecorations(),
		names: make(map[uint32]string),
		modes: make(map[uint32]*executionModes),
		funcs: make(map[uint32]*function),
	}
}

// Parse extracts the signature of every kernel entry point in a SPIR-V word
// stream. On error no map is returned.
func Parse(words []uint32) (*FunctionInfoMap, error) {
	infos, _, err := ParseWithTypes(words)
	return infos, err
}

// ParseWithTypes is Parse that also returns the populated type table.
func ParseWithTypes(words []uint32) (*FunctionInfoMap, *TypeTable, error) {
	h, err := spirv.DecodeHeader(words)
	if err != nil {
		return nil, nil, err
	}
	e := newExtractor(h.Bound)
	if err := spirv.Scan(words, e.visit); err != nil {
		return nil, nil, err
	}
	infos, err := e.resolve()
	if err != nil {
		return nil, nil, err
	}
	Logger().Debug("extracted kernel signatures",
		zap.Int("kernels", infos.Len()),
		zap.Int("types", e.table.Len()),
		zap.Int("skipped_instructions", e.skipped),
		zap.Uint32("pointer_size", e.table.PointerSize()))
	return infos, e.table, nil
}

// ParseBytes is Parse on a byte image of either endianness.
func ParseBytes(data []byte) (*FunctionInfoMap, error) {
	words, err := spirv.WordsFromBytes(data)
	if err != nil {
		return nil, err
	}
	return Parse(words)
}

// ParseModule is Parse on a decoded module.
func ParseModule(m *spirv.Module) (*FunctionInfoMap, error) {
	words, err := m.Words()
	if err != nil {
		return nil, err
	}
	return Parse(words)
}

// BuildTypeTable declares every type and constant of a decoded module,
// including packing and pointer size.
func BuildTypeTable(m *spirv.Module) (*TypeTable, error) {
	e := newExtractor(m.Header.Bound)
	for i, inst := range m.Instructions {
		if err := e.visit(inst.Opcode, inst.Operands, i); err != nil {
			return nil, err
		}
	}
	e.resolveTypes()
	return e.table, nil
}

func (e *extractor) visit(op spirv.Opcode, ops []uint32, _ int) error {
	switch op {
	case spirv.OpMemoryModel:
		if len(ops) < 2 {
			return malformed("OpMemoryModel: want 2 operands, have %d", len(ops))
		}
		e.table.SetAddressingModel(spirv.AddressingModel(ops[0]))

	case spirv.OpEntryPoint:
		if len(ops) < 3 {
			return malformed("OpEntryPoint: want at least 3 operands, have %d", len(ops))
		}
		name, _, ok := spirv.DecodeString(ops[2:])
		if !ok {
			return malformed("OpEntryPoint %%%d: unterminated name", ops[1])
		}
		if spirv.ExecutionModel(ops[0]) != spirv.ModelKernel {
			Logger().Warn("skipping non-kernel entry point",
				zap.String("name", name),
				zap.Uint32("model", ops[0]))
			return nil
		}
		e.entries = append(e.entries, entryPoint{name: name, fn: ops[1]})

	case spirv.OpExecutionMode, spirv.OpExecutionModeID:
		if len(ops) < 2 {
			return malformed("%s: want at least 2 operands, have %d", op, len(ops))
		}
		m, ok := e.modes[ops[0]]
		if !ok {
			m = &executionModes{}
			e.modes[ops[0]] = m
		}
		m.record(spirv.ExecutionMode(ops[1]), ops[2:], op == spirv.OpExecutionModeID)

	case spirv.OpDecorate:
		if len(ops) < 2 {
			return malformed("OpDecorate: want at least 2 operands, have %d", len(ops))
		}
		e.decos.add(ops[0], spirv.Decoration(ops[1]), ops[2:])

	case spirv.OpGroupDecorate:
		if len(ops) < 1 {
			return malformed("OpGroupDecorate without group")
		}
		e.decos.addGroup(ops[0], ops[1:])

	case spirv.OpName:
		if len(ops) < 2 {
			return malformed("OpName: want at least 2 operands, have %d", len(ops))
		}
		name, _, _ := spirv.DecodeString(ops[1:])
		e.names[ops[0]] = name

	case spirv.OpFunction:
		if len(ops) < 4 {
			return malformed("OpFunction: want 4 operands, have %d", len(ops))
		}
		if e.current != nil {
			return malformed("OpFunction %%%d inside function %%%d", ops[1], e.current.id)
		}
		e.current = &function{ret: ops[0], id: ops[1], fnType: ops[3]}
		e.funcs[e.current.id] = e.current

	case spirv.OpFunctionParameter:
		if len(ops) < 2 {
			return malformed("OpFunctionParameter: want 2 operands, have %d", len(ops))
		}
		if e.current == nil {
			return malformed("OpFunctionParameter %%%d outside a function", ops[1])
		}
		e.current.params = append(e.current.params, param{typ: ops[0], id: ops[1]})

	case spirv.OpFunctionEnd:
		e.current = nil

	default:
		if spirv.IsTypeDeclaration(op) || op == spirv.OpConstant ||
			op == spirv.OpSpecConstant || op == spirv.OpConstantNull {
			return e.table.Declare(spirv.Instruction{Opcode: op, Operands: ops})
		}
		e.skipped++
	}
	return nil
}

func (e *extractor) resolveTypes() {
	e.decos.resolve()
	for _, id := range e.decos.packedTargets() {
		e.table.MarkPacked(id)
	}
}

func (e *extractor) resolve() (*FunctionInfoMap, error) {
	e.resolveTypes()
	infos := NewFunctionInfoMap()
	for _, ep := range e.entries {
		sig, err := e.signature(ep)
		if err != nil {
			return nil, err
		}
		if err := infos.Insert(ep.name, sig); err != nil {
			return nil, err
		}
	}
	return infos, nil
}

func (e *extractor) signature(ep entryPoint) (*FunctionSignature, error) {
	fn, ok := e.funcs[ep.fn]
	if !ok {
		return nil, spverrors.UnresolvedID(spverrors.PhaseResolve, ep.name, "entry point function", ep.fn)
	}
	sig := &FunctionSignature{Args: make([]ArgTypeInfo, 0, len(fn.params))}

	ret, err := e.argInfo(ep.name, "return type", fn.ret, 0, false)
	if err != nil {
		return nil, err
	}
	sig.Return = ret

	for i, p := range fn.params {
		info, err := e.argInfo(ep.name, "parameter type", p.typ, p.id, true)
		if err != nil {
			return nil, fmt.Errorf("kernel %s arg %d: %w", ep.name, i, err)
		}
		info.Name = e.names[p.id]
		sig.Args = append(sig.Args, info)
	}

	if m, ok := e.modes[ep.fn]; ok {
		sig.VecTypeHint = m.vecTypeHint
		sig.ReqLocalSize = m.localSize
		sig.LocalSizeHint = m.localSizeHint
		if m.localSizeIDs != nil {
			if sig.ReqLocalSize, err = e.constSize3(ep.name, m.localSizeIDs); err != nil {
				return nil, err
			}
		}
		if m.localSizeHintIDs != nil {
			if sig.LocalSizeHint, err = e.constSize3(ep.name, m.localSizeHintIDs); err != nil {
				return nil, err
			}
		}
	}
	return sig, nil
}

func (e *extractor) constSize3(kernel string, ids []uint32) (Size3, error) {
	var s Size3
	for i := 0; i < 3 && i < len(ids); i++ {
		c, ok := e.table.Constant(ids[i])
		if !ok {
			return Size3{}, spverrors.UnresolvedID(spverrors.PhaseResolve, kernel, "work-group size constant", ids[i])
		}
		s[i] = c.Uint64()
	}
	return s, nil
}

// spaceOf maps a pointer storage class to an OpenCL address space.
func spaceOf(sc spirv.StorageClass) AddressSpace {
	switch sc {
	case spirv.StorageCrossWorkgroup:
		return SpaceGlobal
	case spirv.StorageUniformConstant:
		return SpaceConstant
	case spirv.StorageWorkgroup:
		return SpaceLocal
	case spirv.StorageFunction:
		return SpacePrivate
	}
	return SpaceUnknown
}

func (e *extractor) argInfo(kernel, what string, typeID, paramID uint32, isParam bool) (ArgTypeInfo, error) {
	ty, ok := e.table.Lookup(typeID)
	if !ok {
		return ArgTypeInfo{}, spverrors.UnresolvedID(spverrors.PhaseResolve, kernel, what, typeID)
	}
	info := ArgTypeInfo{
		TypeID:   typeID,
		TypeName: e.table.TypeName(typeID),
	}
	if isParam {
		info.Attrs = e.decos.argAttrs(paramID)
	}
	ptrSize := e.table.PointerSize()

	switch ty.Kind {
	case TypePointer:
		if e.table.IsPacked(ty.Elem) {
			info.Attrs |= AttrPacked
		}
		align, hasAlign := e.decos.alignment(paramID)
		if isParam && e.decos.hasParamAttr(paramID, spirv.FuncParamByVal) {
			l, err := e.table.Layout(ty.Elem)
			if err != nil {
				return ArgTypeInfo{}, withKernel(err, kernel)
			}
			info.Kind, info.Space, info.Size = KindPOD, SpacePrivate, l.Size
			info.TypeName = e.table.TypeName(ty.Elem)
			info.Alignment = l.Alignment
			if hasAlign {
				info.Alignment = align
			}
			return info, nil
		}
		info.Kind, info.Space, info.Size = KindPointer, spaceOf(ty.Storage), uint64(ptrSize)
		if !hasAlign {
			var err error
			if align, err = e.table.Alignment(ty.Elem); err != nil {
				return ArgTypeInfo{}, withKernel(err, kernel)
			}
		}
		info.Alignment = align

	case TypeImage, TypeSampledImage:
		info.Kind, info.Space = KindImage, SpaceGlobal
		info.Size, info.Alignment = uint64(ptrSize), ptrSize
		info.Attrs |= e.imageAccess(ty, paramID)

	case TypeSampler:
		info.Kind, info.Space = KindSampler, SpacePrivate
		info.Size, info.Alignment = uint64(ptrSize), ptrSize

	case TypePipe:
		info.Kind, info.Space = KindPointer, SpaceGlobal
		info.Size, info.Alignment = uint64(ptrSize), ptrSize
		info.Attrs |= AttrPipe

	case TypeOpaque, TypeEvent, TypeDeviceEvent, TypeReserveID, TypeQueue,
		TypePipeStorage, TypeNamedBarrier:
		info.Kind, info.Space = KindOpaque, SpacePrivate
		info.Size, info.Alignment = uint64(ptrSize), ptrSize

	case TypeFunction:
		return ArgTypeInfo{}, spverrors.New(spverrors.PhaseResolve, spverrors.KindMalformedBinary).
			Kernel(kernel).
			Value(typeID).
			Detail("%s %%%d is a function type", what, typeID).
			Build()

	default:
		l, err := e.table.Layout(typeID)
		if err != nil {
			return ArgTypeInfo{}, withKernel(err, kernel)
		}
		info.Kind, info.Space = KindPOD, SpacePrivate
		info.Size, info.Alignment = l.Size, l.Alignment
		if e.table.IsPacked(typeID) {
			info.Attrs |= AttrPacked
		}
	}
	return info, nil
}

// imageAccess derives readable/writeable flags from the image type's access
// qualifier, narrowed by NonWritable/NonReadable on the parameter. Images
// without a qualifier are read-only.
func (e *extractor) imageAccess(ty *Type, paramID uint32) Attrs {
	img := ty
	if ty.Kind == TypeSampledImage {
		if inner, ok := e.table.Lookup(ty.Elem); ok {
			img = inner
		}
	}
	a := AttrReadableImage
	if img.HasAccess {
		switch img.Access {
		case spirv.AccessWriteOnly:
			a = AttrWriteableImage
		case spirv.AccessReadWrite:
			a = AttrReadableImage | AttrWriteableImage
		}
	}
	if e.decos.has(paramID, spirv.DecorationNonWritable) {
		a &^= AttrWriteableImage
	}
	if e.decos.has(paramID, spirv.DecorationNonReadable) {
		a &^= AttrReadableImage
	}
	return a
}

func withKernel(err error, kernel string) error {
	var se *spverrors.Error
	if errors.As(err, &se) && se.Kernel == "" {
		cp := *se
		cp.Kernel = kernel
		return &cp
	}
	return err
}
