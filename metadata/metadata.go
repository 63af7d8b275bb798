package metadata

import (
	"github.com/wippyai/spvkernel/signature"
)

// ArgType is how the launch path marshals an argument value.
type ArgType uint8

const (
	ArgNone ArgType = iota
	ArgPointer
	ArgImage
	ArgSampler
)

func (t ArgType) String() string {
	switch t {
	case ArgNone:
		return "none"
	case ArgPointer:
		return "pointer"
	case ArgImage:
		return "image"
	case ArgSampler:
		return "sampler"
	}
	return "unknown"
}

// AddressQualifier values match CL_KERNEL_ARG_ADDRESS_*.
type AddressQualifier uint32

const (
	AddressGlobal   AddressQualifier = 0x119B
	AddressLocal    AddressQualifier = 0x119C
	AddressConstant AddressQualifier = 0x119D
	AddressPrivate  AddressQualifier = 0x119E
)

func (q AddressQualifier) String() string {
	switch q {
	case AddressGlobal:
		return "global"
	case AddressLocal:
		return "local"
	case AddressConstant:
		return "constant"
	case AddressPrivate:
		return "private"
	}
	return "unknown"
}

// AccessQualifier values match CL_KERNEL_ARG_ACCESS_*.
type AccessQualifier uint32

const (
	AccessReadOnly  AccessQualifier = 0x11A0
	AccessWriteOnly AccessQualifier = 0x11A1
	AccessReadWrite AccessQualifier = 0x11A2
	AccessNone      AccessQualifier = 0x11A3
)

func (q AccessQualifier) String() string {
	switch q {
	case AccessReadOnly:
		return "read_only"
	case AccessWriteOnly:
		return "write_only"
	case AccessReadWrite:
		return "read_write"
	case AccessNone:
		return "none"
	}
	return "unknown"
}

// TypeQualifier is a CL_KERNEL_ARG_TYPE_* bit set.
type TypeQualifier uint32

const (
	TypeQualNone     TypeQualifier = 0
	TypeQualConst    TypeQualifier = 1 << 0
	TypeQualRestrict TypeQualifier = 1 << 1
	TypeQualVolatile TypeQualifier = 1 << 2
	TypeQualPipe     TypeQualifier = 1 << 3
)

// ArgInfo is one argument as the dispatch layer sees it.
type ArgInfo struct {
	Name      string           `msgpack:"name"`
	TypeName  string           `msgpack:"type_name"`
	Size      uint64           `msgpack:"size"`
	Address   AddressQualifier `msgpack:"address"`
	Access    AccessQualifier  `msgpack:"access"`
	TypeQual  TypeQualifier    `msgpack:"type_qual"`
	Alignment uint32           `msgpack:"alignment"`
	Type      ArgType          `msgpack:"type"`
	Packed    bool             `msgpack:"packed"`
}

// DeviceMetadata is the per-device copy of a kernel's launch metadata.
type DeviceMetadata struct {
	Args            []ArgInfo `msgpack:"args"`
	LocalSizes      []uint64  `msgpack:"local_sizes"`
	LocalAlignments []uint32  `msgpack:"local_alignments"` // parallel to LocalSizes
	Return          ArgInfo   `msgpack:"return"`
	ReqdWGSize      [3]uint64 `msgpack:"reqd_wg_size"`
	WGSizeHint      [3]uint64 `msgpack:"wg_size_hint"`
	VecTypeHint     [3]uint64 `msgpack:"vec_type_hint"`
	NumArgs         int       `msgpack:"num_args"`
	NumLocals       int       `msgpack:"num_locals"`
}

// KernelMetadata is one kernel's metadata replicated across devices.
type KernelMetadata struct {
	Name           string           `msgpack:"name"`
	Devices        []DeviceMetadata `msgpack:"devices"`
	HasArgMetadata bool             `msgpack:"has_arg_metadata"`
}

// Device returns the slot for device i.
func (k *KernelMetadata) Device(i int) (*DeviceMetadata, bool) {
	if i < 0 || i >= len(k.Devices) {
		return nil, false
	}
	return &k.Devices[i], true
}

// LocalMemSize returns the bytes of local memory the promoted allocations
// need on every launch.
func (d *DeviceMetadata) LocalMemSize() uint64 {
	var total uint64
	for _, s := range d.LocalSizes {
		total += s
	}
	return total
}

func (d *DeviceMetadata) clone() DeviceMetadata {
	out := *d
	out.Args = append([]ArgInfo(nil), d.Args...)
	out.LocalSizes = append([]uint64(nil), d.LocalSizes...)
	out.LocalAlignments = append([]uint32(nil), d.LocalAlignments...)
	return out
}

func addressOf(s signature.AddressSpace) AddressQualifier {
	switch s {
	case signature.SpaceGlobal:
		return AddressGlobal
	case signature.SpaceLocal:
		return AddressLocal
	case signature.SpaceConstant:
		return AddressConstant
	}
	return AddressPrivate
}
