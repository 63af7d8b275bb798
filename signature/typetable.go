package signature

import (
	"fmt"
	"math/bits"

	"fortio.org/safecast"

	spverrors "github.com/wippyai/spvkernel/errors"
	"github.com/wippyai/spvkernel/spirv"
)

// TypeKind is the declaring opcode family of a type.
type TypeKind uint8

const (
	TypeVoid TypeKind = iota + 1
	TypeBool
	TypeInt
	TypeFloat
	TypeVector
	TypeMatrix
	TypeImage
	TypeSampler
	TypeSampledImage
	TypeArray
	TypeRuntimeArray
	TypeStruct
	TypeOpaque
	TypePointer
	TypeFunction
	TypeEvent
	TypeDeviceEvent
	TypeReserveID
	TypeQueue
	TypePipe
	TypePipeStorage
	TypeNamedBarrier
)

var typeKinds = map[spirv.Opcode]TypeKind{
	spirv.OpTypeVoid:         TypeVoid,
	spirv.OpTypeBool:         TypeBool,
	spirv.OpTypeInt:          TypeInt,
	spirv.OpTypeFloat:        TypeFloat,
	spirv.OpTypeVector:       TypeVector,
	spirv.OpTypeMatrix:       TypeMatrix,
	spirv.OpTypeImage:        TypeImage,
	spirv.OpTypeSampler:      TypeSampler,
	spirv.OpTypeSampledImage: TypeSampledImage,
	spirv.OpTypeArray:        TypeArray,
	spirv.OpTypeRuntimeArray: TypeRuntimeArray,
	spirv.OpTypeStruct:       TypeStruct,
	spirv.OpTypeOpaque:       TypeOpaque,
	spirv.OpTypePointer:      TypePointer,
	spirv.OpTypeFunction:     TypeFunction,
	spirv.OpTypeEvent:        TypeEvent,
	spirv.OpTypeDeviceEvent:  TypeDeviceEvent,
	spirv.OpTypeReserveID:    TypeReserveID,
	spirv.OpTypeQueue:        TypeQueue,
	spirv.OpTypePipe:         TypePipe,
	spirv.OpTypePipeStorage:  TypePipeStorage,
	spirv.OpTypeNamedBarrier: TypeNamedBarrier,
}

// Type is one declared type.
type Type struct {
	Name      string   // OpTypeOpaque name
	Members   []uint32 // struct members or function parameters
	ID        uint32
	Elem      uint32 // component, column, element, pointee or sampled type
	Length    uint32 // array length constant id
	Count     uint32 // vector components or matrix columns
	Width     uint32 // int and float bits
	Return    uint32 // function return type
	Storage   spirv.StorageClass
	Access    spirv.AccessQualifier
	Dim       spirv.Dim
	Arrayed   bool
	Signed    bool
	HasAccess bool
	Kind      TypeKind
}

// Constant is a scalar constant. Only integer values are interpreted.
type Constant struct {
	Value []uint32
	ID    uint32
	Type  uint32
	Spec  bool
	Null  bool
}

// Uint64 returns the constant as an unsigned integer. Null constants are zero.
func (c *Constant) Uint64() uint64 {
	var v uint64
	if len(c.Value) > 0 {
		v = uint64(c.Value[0])
	}
	if len(c.Value) > 1 {
		v |= uint64(c.Value[1]) << 32
	}
	return v
}

// Layout is the storage size and alignment of a type.
type Layout struct {
	Size      uint64
	Alignment uint32
}

// TypeTable accumulates type and constant declarations keyed by id.
type TypeTable struct {
	types       []*Type
	sparse      map[uint32]*Type // ids at or above denseLimit
	constants   map[uint32]*Constant
	packed      map[uint32]bool
	layouts     map[uint32]Layout
	pointerSize uint32
}

// denseLimit caps the slice-backed part of the table; the header bound is
// untrusted input.
const denseLimit = 1 << 20

// NewTypeTable creates a table sized for ids below bound.
func NewTypeTable(bound uint32) *TypeTable {
	return &TypeTable{
		types:       make([]*Type, min(bound, denseLimit)),
		sparse:      make(map[uint32]*Type),
		constants:   make(map[uint32]*Constant),
		packed:      make(map[uint32]bool),
		layouts:     make(map[uint32]Layout),
		pointerSize: 8,
	}
}

// PointerSize returns the pointer size in bytes.
func (t *TypeTable) PointerSize() uint32 {
	return t.pointerSize
}

// SetAddressingModel derives the pointer size from the memory model.
func (t *TypeTable) SetAddressingModel(m spirv.AddressingModel) {
	if m == spirv.AddressingPhysical32 {
		t.pointerSize = 4
	} else {
		t.pointerSize = 8
	}
	clear(t.layouts)
}

// MarkPacked records a CPacked decoration on a struct type.
func (t *TypeTable) MarkPacked(id uint32) {
	t.packed[id] = true
	clear(t.layouts)
}

// IsPacked reports whether a struct type is packed.
func (t *TypeTable) IsPacked(id uint32) bool {
	return t.packed[id]
}

// Len returns the number of declared types.
func (t *TypeTable) Len() int {
	n := len(t.sparse)
	for _, ty := range t.types {
		if ty != nil {
			n++
		}
	}
	return n
}

// Lookup returns the type declared with id.
func (t *TypeTable) Lookup(id uint32) (*Type, bool) {
	if id >= denseLimit {
		ty, ok := t.sparse[id]
		return ty, ok
	}
	if int64(id) >= int64(len(t.types)) {
		return nil, false
	}
	ty := t.types[id]
	return ty, ty != nil
}

// Constant returns the constant declared with id.
func (t *TypeTable) Constant(id uint32) (*Constant, bool) {
	c, ok := t.constants[id]
	return c, ok
}

// Declare records a type or constant declaration. Other opcodes are
// ignored. Redeclaring an id is an error.
func (t *TypeTable) Declare(inst spirv.Instruction) error {
	switch inst.Opcode {
	case spirv.OpConstant, spirv.OpSpecConstant, spirv.OpConstantNull:
		return t.declareConstant(inst)
	}
	kind, ok := typeKinds[inst.Opcode]
	if !ok {
		return nil
	}
	ops := inst.Operands
	if len(ops) < 1 {
		return malformed("%s without result id", inst.Opcode)
	}
	ty := &Type{ID: ops[0], Kind: kind}
	need := func(n int) error {
		if len(ops) < n {
			return malformed("%s %%%d: want %d operands, have %d", inst.Opcode, ops[0], n, len(ops))
		}
		return nil
	}

	switch kind {
	case TypeInt:
		if err := need(3); err != nil {
			return err
		}
		ty.Width, ty.Signed = ops[1], ops[2] != 0
	case TypeFloat:
		if err := need(2); err != nil {
			return err
		}
		ty.Width = ops[1]
	case TypeVector, TypeMatrix:
		if err := need(3); err != nil {
			return err
		}
		ty.Elem, ty.Count = ops[1], ops[2]
	case TypeImage:
		if err := need(8); err != nil {
			return err
		}
		ty.Elem, ty.Dim, ty.Arrayed = ops[1], spirv.Dim(ops[2]), ops[4] != 0
		if len(ops) > 8 {
			ty.Access, ty.HasAccess = spirv.AccessQualifier(ops[8]), true
		}
	case TypeSampledImage, TypeRuntimeArray:
		if err := need(2); err != nil {
			return err
		}
		ty.Elem = ops[1]
	case TypeArray:
		if err := need(3); err != nil {
			return err
		}
		ty.Elem, ty.Length = ops[1], ops[2]
	case TypeStruct:
		ty.Members = append([]uint32(nil), ops[1:]...)
	case TypeOpaque:
		if len(ops) > 1 {
			ty.Name, _, _ = spirv.DecodeString(ops[1:])
		}
	case TypePointer:
		if err := need(3); err != nil {
			return err
		}
		ty.Storage, ty.Elem = spirv.StorageClass(ops[1]), ops[2]
	case TypeFunction:
		if err := need(2); err != nil {
			return err
		}
		ty.Return = ops[1]
		ty.Members = append([]uint32(nil), ops[2:]...)
	case TypePipe:
		if err := need(2); err != nil {
			return err
		}
		ty.Access, ty.HasAccess = spirv.AccessQualifier(ops[1]), true
	}
	return t.insert(ty)
}

func (t *TypeTable) insert(ty *Type) error {
	if ty.ID == 0 {
		return malformed("type declared with id 0")
	}
	if _, dup := t.Lookup(ty.ID); dup {
		return malformed("type %%%d declared twice", ty.ID)
	}
	if _, dup := t.constants[ty.ID]; dup {
		return malformed("id %%%d declared as constant and type", ty.ID)
	}
	if ty.ID >= denseLimit {
		t.sparse[ty.ID] = ty
		return nil
	}
	idx, err := safecast.Conv[int](ty.ID)
	if err != nil {
		return malformed("type id %d: %v", ty.ID, err)
	}
	if idx >= len(t.types) {
		grown := make([]*Type, idx+1, max(idx+1, 2*len(t.types)))
		copy(grown, t.types)
		t.types = grown
	}
	t.types[idx] = ty
	return nil
}

func (t *TypeTable) declareConstant(inst spirv.Instruction) error {
	if len(inst.Operands) < 2 {
		return malformed("%s: want at least 2 operands, have %d", inst.Opcode, len(inst.Operands))
	}
	c := &Constant{
		Type:  inst.Operands[0],
		ID:    inst.Operands[1],
		Value: append([]uint32(nil), inst.Operands[2:]...),
		Spec:  inst.Opcode == spirv.OpSpecConstant,
		Null:  inst.Opcode == spirv.OpConstantNull,
	}
	if _, dup := t.constants[c.ID]; dup {
		return malformed("constant %%%d declared twice", c.ID)
	}
	if _, dup := t.Lookup(c.ID); dup {
		return malformed("id %%%d declared as type and constant", c.ID)
	}
	t.constants[c.ID] = c
	return nil
}

// Layout returns the natural size and alignment of a type. 3-component
// vectors take the size and alignment of 4-component ones; packed structs
// have no padding and byte alignment. Arrays whose length is not a
// compile-time constant and runtime arrays have no layout.
func (t *TypeTable) Layout(id uint32) (Layout, error) {
	return t.layout(id, 0)
}

// maxDepth bounds recursion through malformed self-referencing types.
const maxDepth = 64

func (t *TypeTable) layout(id uint32, depth int) (Layout, error) {
	if l, ok := t.layouts[id]; ok {
		return l, nil
	}
	if depth > maxDepth {
		return Layout{}, malformed("type %%%d nests too deeply", id)
	}
	ty, ok := t.Lookup(id)
	if !ok {
		return Layout{}, spverrors.UnresolvedID(spverrors.PhaseResolve, "", "type", id)
	}

	var l Layout
	switch ty.Kind {
	case TypeVoid:
		l = Layout{Size: 0, Alignment: 1}
	case TypeBool:
		l = Layout{Size: 1, Alignment: 1}
	case TypeInt, TypeFloat:
		bytes := max(ty.Width/8, 1)
		l = Layout{Size: uint64(bytes), Alignment: bytes}
	case TypeVector:
		el, err := t.layout(ty.Elem, depth+1)
		if err != nil {
			return Layout{}, err
		}
		n := uint64(ty.Count)
		if n == 3 {
			n = 4
		}
		size := el.Size * n
		align, err := safecast.Conv[uint32](size)
		if err != nil {
			return Layout{}, malformed("vector %%%d: %v", id, err)
		}
		l = Layout{Size: size, Alignment: align}
	case TypeMatrix:
		col, err := t.layout(ty.Elem, depth+1)
		if err != nil {
			return Layout{}, err
		}
		l = Layout{Size: col.Size * uint64(ty.Count), Alignment: col.Alignment}
	case TypeArray:
		el, err := t.layout(ty.Elem, depth+1)
		if err != nil {
			return Layout{}, err
		}
		n, err := t.ArrayLength(id)
		if err != nil {
			return Layout{}, err
		}
		hi, size := bits.Mul64(alignUp(el.Size, el.Alignment), n)
		if hi != 0 {
			return Layout{}, malformed("array %%%d size overflows", id)
		}
		l = Layout{Size: size, Alignment: el.Alignment}
	case TypeRuntimeArray:
		return Layout{}, dynamic(id, "runtime array %%%d has no static size", id)
	case TypeStruct:
		var err error
		if l, err = t.structLayout(ty, depth); err != nil {
			return Layout{}, err
		}
	case TypeOpaque:
		l = Layout{Size: 0, Alignment: 1}
	case TypeFunction:
		return Layout{}, malformed("function type %%%d has no storage layout", id)
	default:
		// Pointers and handle types (images, samplers, events, queues,
		// pipes, reserve ids, barriers).
		l = Layout{Size: uint64(t.pointerSize), Alignment: t.pointerSize}
	}
	t.layouts[id] = l
	return l, nil
}

func (t *TypeTable) structLayout(ty *Type, depth int) (Layout, error) {
	packed := t.packed[ty.ID]
	var size uint64
	align := uint32(1)
	for _, m := range ty.Members {
		ml, err := t.layout(m, depth+1)
		if err != nil {
			return Layout{}, err
		}
		if !packed {
			size = alignUp(size, ml.Alignment)
			align = max(align, ml.Alignment)
		}
		size += ml.Size
	}
	if !packed {
		size = alignUp(size, align)
	}
	return Layout{Size: size, Alignment: align}, nil
}

// Alignment returns the natural alignment of a type. Unlike Layout it is
// defined for arrays of any length, including runtime arrays.
func (t *TypeTable) Alignment(id uint32) (uint32, error) {
	return t.alignment(id, 0)
}

func (t *TypeTable) alignment(id uint32, depth int) (uint32, error) {
	if depth > maxDepth {
		return 0, malformed("type %%%d nests too deeply", id)
	}
	ty, ok := t.Lookup(id)
	if !ok {
		return 0, spverrors.UnresolvedID(spverrors.PhaseResolve, "", "type", id)
	}
	switch ty.Kind {
	case TypeArray, TypeRuntimeArray:
		return t.alignment(ty.Elem, depth+1)
	case TypeStruct:
		if t.packed[id] {
			return 1, nil
		}
		align := uint32(1)
		for _, m := range ty.Members {
			a, err := t.alignment(m, depth+1)
			if err != nil {
				return 0, err
			}
			align = max(align, a)
		}
		return align, nil
	}
	l, err := t.layout(id, depth)
	if err != nil {
		return 0, err
	}
	return l.Alignment, nil
}

// ArrayLength returns the constant length of an OpTypeArray.
func (t *TypeTable) ArrayLength(id uint32) (uint64, error) {
	ty, ok := t.Lookup(id)
	if !ok || ty.Kind != TypeArray {
		return 0, malformed("%%%d is not an array type", id)
	}
	c, ok := t.constants[ty.Length]
	if !ok {
		return 0, dynamic(id, "array %%%d length %%%d is not a constant", id, ty.Length)
	}
	if c.Spec {
		return 0, dynamic(id, "array %%%d length %%%d is a specialization constant", id, ty.Length)
	}
	return c.Uint64(), nil
}

// CheckStatic reports an UnsupportedDynamicLocalSize error when the size of
// the type depends on anything but compile-time constants.
func (t *TypeTable) CheckStatic(id uint32) error {
	_, err := t.Layout(id)
	return err
}

// TypeName returns an OpenCL C spelling of the type, e.g. "uint4" or
// "float*". Types with no OpenCL spelling yield a generic name.
func (t *TypeTable) TypeName(id uint32) string {
	return t.typeName(id, 0)
}

func (t *TypeTable) typeName(id uint32, depth int) string {
	ty, ok := t.Lookup(id)
	if !ok || depth > maxDepth {
		return "unknown"
	}
	switch ty.Kind {
	case TypeVoid:
		return "void"
	case TypeBool:
		return "bool"
	case TypeInt:
		n, ok := intNames[ty.Width]
		if !ok {
			return fmt.Sprintf("i%d", ty.Width)
		}
		if !ty.Signed {
			return "u" + n
		}
		return n
	case TypeFloat:
		switch ty.Width {
		case 16:
			return "half"
		case 32:
			return "float"
		case 64:
			return "double"
		}
		return fmt.Sprintf("f%d", ty.Width)
	case TypeVector:
		return fmt.Sprintf("%s%d", t.typeName(ty.Elem, depth+1), ty.Count)
	case TypeArray:
		n, err := t.ArrayLength(id)
		if err != nil {
			return t.typeName(ty.Elem, depth+1) + "[]"
		}
		return fmt.Sprintf("%s[%d]", t.typeName(ty.Elem, depth+1), n)
	case TypeRuntimeArray:
		return t.typeName(ty.Elem, depth+1) + "[]"
	case TypePointer:
		return t.typeName(ty.Elem, depth+1) + "*"
	case TypeStruct:
		return "struct"
	case TypeOpaque:
		if ty.Name != "" {
			return ty.Name
		}
		return "opaque"
	case TypeImage, TypeSampledImage:
		img := ty
		if ty.Kind == TypeSampledImage {
			if inner, ok := t.Lookup(ty.Elem); ok {
				img = inner
			}
		}
		return imageName(img)
	case TypeSampler:
		return "sampler_t"
	case TypeEvent:
		return "event_t"
	case TypeDeviceEvent:
		return "clk_event_t"
	case TypeReserveID:
		return "reserve_id_t"
	case TypeQueue:
		return "queue_t"
	case TypePipe:
		return "pipe"
	}
	return "unknown"
}

var intNames = map[uint32]string{8: "char", 16: "short", 32: "int", 64: "long"}

func imageName(ty *Type) string {
	base := "image2d"
	switch ty.Dim {
	case spirv.Dim1D:
		base = "image1d"
	case spirv.Dim3D:
		base = "image3d"
	case spirv.DimBuffer:
		return "image1d_buffer_t"
	}
	if ty.Arrayed {
		base += "_array"
	}
	return base + "_t"
}

func alignUp(v uint64, align uint32) uint64 {
	if align <= 1 {
		return v
	}
	a := uint64(align)
	return (v + a - 1) / a * a
}

func malformed(format string, args ...any) error {
	return spverrors.MalformedBinary(spverrors.PhaseResolve, fmt.Sprintf(format, args...))
}

func dynamic(id uint32, format string, args ...any) error {
	return spverrors.New(spverrors.PhaseResolve, spverrors.KindUnsupportedDynamicLocalSize).
		Value(id).
		Detail(format, args...).
		Build()
}
