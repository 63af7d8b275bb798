package signature

import (
	"strings"
)

// Kind classifies an argument the way the launch path marshals it.
type Kind uint8

const (
	KindPOD Kind = iota
	KindPointer
	KindImage
	KindSampler
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindPOD:
		return "pod"
	case KindPointer:
		return "pointer"
	case KindImage:
		return "image"
	case KindSampler:
		return "sampler"
	case KindOpaque:
		return "opaque"
	}
	return "unknown"
}

// AddressSpace is the OpenCL address space of an argument. The numbering is
// part of the runtime ABI.
type AddressSpace uint32

const (
	SpacePrivate  AddressSpace = 0
	SpaceGlobal   AddressSpace = 1
	SpaceConstant AddressSpace = 2
	SpaceLocal    AddressSpace = 3
	SpaceUnknown  AddressSpace = 1000
)

func (s AddressSpace) String() string {
	switch s {
	case SpacePrivate:
		return "private"
	case SpaceGlobal:
		return "global"
	case SpaceConstant:
		return "constant"
	case SpaceLocal:
		return "local"
	}
	return "unknown"
}

// Attrs is a set of argument attribute flags.
type Attrs uint8

const (
	AttrPacked Attrs = 1 << iota
	AttrRestrict
	AttrVolatile
	AttrConstant
	AttrReadableImage
	AttrWriteableImage
	AttrPipe
)

// Has reports whether all flags in f are set.
func (a Attrs) Has(f Attrs) bool {
	return a&f == f
}

func (a Attrs) String() string {
	if a == 0 {
		return "none"
	}
	names := []struct {
		f    Attrs
		name string
	}{
		{AttrPacked, "packed"},
		{AttrRestrict, "restrict"},
		{AttrVolatile, "volatile"},
		{AttrConstant, "const"},
		{AttrReadableImage, "read"},
		{AttrWriteableImage, "write"},
		{AttrPipe, "pipe"},
	}
	var parts []string
	for _, n := range names {
		if a.Has(n.f) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Size3 is a three dimensional size hint. All zeros means absent.
type Size3 [3]uint64

// IsZero reports whether the hint is absent.
func (s Size3) IsZero() bool {
	return s == Size3{}
}

// LocalExtent describes the buffer backing a promoted local allocation.
type LocalExtent struct {
	ElemSize  uint64
	Count     uint64
	Size      uint64
	Alignment uint32
}

// ArgTypeInfo describes one formal parameter or the return slot.
type ArgTypeInfo struct {
	Local     *LocalExtent // set only for promoted local allocations
	Name      string
	TypeName  string
	Size      uint64
	TypeID    uint32
	Alignment uint32
	Space     AddressSpace
	Kind      Kind
	Attrs     Attrs
}

// FunctionSignature is the launch-relevant view of one kernel. Args is in
// call order; the local storage rewriter only ever appends to it.
type FunctionSignature struct {
	Args          []ArgTypeInfo
	Return        ArgTypeInfo
	ReqLocalSize  Size3
	LocalSizeHint Size3
	VecTypeHint   Size3
}

// AppendLocal appends a promoted local allocation as a trailing argument.
func (s *FunctionSignature) AppendLocal(info ArgTypeInfo) {
	s.Args = append(s.Args, info)
}

// NumLocals returns the number of promoted local arguments.
func (s *FunctionSignature) NumLocals() int {
	n := 0
	for _, a := range s.Args {
		if a.Local != nil {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (s *FunctionSignature) Clone() *FunctionSignature {
	out := *s
	out.Args = make([]ArgTypeInfo, len(s.Args))
	copy(out.Args, s.Args)
	for i := range out.Args {
		if l := out.Args[i].Local; l != nil {
			cp := *l
			out.Args[i].Local = &cp
		}
	}
	return &out
}
