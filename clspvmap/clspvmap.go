package clspvmap

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"

	spverrors "github.com/wippyai/spvkernel/errors"
	"github.com/wippyai/spvkernel/metadata"
)

// MaxArgs is the largest number of arguments a kernel may declare.
const MaxArgs = 128

// ArgKind is how clspv passes an argument to the Vulkan pipeline.
type ArgKind uint8

const (
	ArgBuffer ArgKind = iota
	ArgPOD
	ArgPODUBO
	ArgPODPushConstant
	ArgLocal
)

var argKinds = map[string]ArgKind{
	"buffer":           ArgBuffer,
	"pod":              ArgPOD,
	"pod_ubo":          ArgPODUBO,
	"pod_pushconstant": ArgPODPushConstant,
	"local":            ArgLocal,
}

func (k ArgKind) String() string {
	for name, v := range argKinds {
		if v == k {
			return name
		}
	}
	return "unknown"
}

// IsPOD reports whether the argument is passed by value.
func (k ArgKind) IsPOD() bool {
	return k == ArgPOD || k == ArgPODUBO || k == ArgPODPushConstant
}

// Arg is one kernel argument entry.
type Arg struct {
	Name          string
	Size          uint64 // POD size in bytes
	ElemSize      uint64 // local array element size
	Ordinal       int
	DescriptorSet int
	Binding       int
	Offset        int
	SpecID        int // spec constant holding the local array length
	Kind          ArgKind
}

// Kernel is one kernel_decl and its arguments in ordinal order.
type Kernel struct {
	Name string
	Args []Arg
}

// Map is a parsed descriptor map.
type Map struct {
	Kernels []*Kernel
	// WorkgroupSpecIDs holds the spec ids of workgroup_size_x/y/z, or -1.
	WorkgroupSpecIDs [3]int
	byName           map[string]*Kernel
}

// Kernel returns the kernel declared as name.
func (m *Map) Kernel(name string) (*Kernel, bool) {
	k, ok := m.byName[name]
	return k, ok
}

// NumWorkgroupSpecConstants returns how many work-group size dimensions
// are specialization constants.
func (m *Map) NumWorkgroupSpecConstants() int {
	n := 0
	for _, id := range m.WorkgroupSpecIDs {
		if id >= 0 {
			n++
		}
	}
	return n
}

// ParseString parses a descriptor map held in memory.
func ParseString(s string) (*Map, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads a descriptor map. Blank lines are ignored; any other line that
// cannot be interpreted fails the whole parse.
func Parse(r io.Reader) (*Map, error) {
	m := &Map{
		WorkgroupSpecIDs: [3]int{-1, -1, -1},
		byName:           make(map[string]*Kernel),
	}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if err := m.parseLine(strings.Split(text, ",")); err != nil {
			return nil, fmt.Errorf("descriptor map line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, spverrors.Wrap(spverrors.PhaseMap, spverrors.KindInvalidInput, err, "read descriptor map")
	}
	for _, k := range m.Kernels {
		slices.SortStableFunc(k.Args, func(a, b Arg) int { return a.Ordinal - b.Ordinal })
	}
	return m, nil
}

func (m *Map) parseLine(fields []string) error {
	switch fields[0] {
	case "kernel_decl":
		if len(fields) != 2 || fields[1] == "" {
			return malformed("kernel_decl wants one name")
		}
		if _, dup := m.byName[fields[1]]; dup {
			return spverrors.DuplicateKernelName(spverrors.PhaseMap, fields[1])
		}
		k := &Kernel{Name: fields[1]}
		m.Kernels = append(m.Kernels, k)
		m.byName[k.Name] = k
		return nil
	case "kernel":
		return m.parseArg(fields)
	case "spec_constant":
		return m.parseSpecConstant(fields)
	case "sampler", "pushconstant":
		// Literal samplers and push constant layout do not affect kernel
		// metadata.
		return nil
	}
	return malformed("unknown entry %q", fields[0])
}

// parseArg reads kernel,<name>,arg,<arg>,key,value,... entries.
func (m *Map) parseArg(fields []string) error {
	if len(fields) < 4 || fields[2] != "arg" || len(fields)%2 != 0 {
		return malformed("kernel entry wants kernel,<name>,arg,<arg>,key,value...")
	}
	k, ok := m.byName[fields[1]]
	if !ok {
		if len(m.Kernels) == 0 {
			return malformed("argument of %q before any kernel_decl", fields[1])
		}
		return spverrors.NotFound(spverrors.PhaseMap, "kernel", fields[1])
	}
	if len(k.Args) >= MaxArgs {
		return spverrors.New(spverrors.PhaseMap, spverrors.KindOutOfBounds).
			Kernel(k.Name).
			Value(len(k.Args)).
			Detail("kernel declares more than %d arguments", MaxArgs).
			Build()
	}

	arg := Arg{Name: fields[3], SpecID: -1}
	kindSeen := false
	for i := 4; i < len(fields); i += 2 {
		key, val := fields[i], fields[i+1]
		if key == "argKind" {
			kind, ok := argKinds[val]
			if !ok {
				return malformed("unknown argKind %q", val)
			}
			arg.Kind, kindSeen = kind, true
			continue
		}
		n, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return malformed("%s: invalid number %q", key, val)
		}
		switch key {
		case "argOrdinal":
			arg.Ordinal = int(n)
		case "descriptorSet":
			arg.DescriptorSet = int(n)
		case "binding":
			arg.Binding = int(n)
		case "offset":
			arg.Offset = int(n)
		case "argSize":
			arg.Size = n
		case "arrayElemSize":
			arg.ElemSize = n
		case "arrayNumElemSpecId":
			arg.SpecID = int(n)
		}
	}
	if !kindSeen {
		return malformed("argument %q of %q has no argKind", arg.Name, k.Name)
	}
	if arg.Kind.IsPOD() && arg.Size == 0 {
		return malformed("POD argument %q of %q has no size", arg.Name, k.Name)
	}
	if arg.Kind == ArgLocal && arg.ElemSize == 0 {
		return malformed("local argument %q of %q has no element size", arg.Name, k.Name)
	}
	k.Args = append(k.Args, arg)
	return nil
}

// parseSpecConstant reads spec_constant,workgroup_size_{x,y,z},spec_id,N.
func (m *Map) parseSpecConstant(fields []string) error {
	if len(fields) != 4 || fields[2] != "spec_id" {
		return malformed("spec_constant wants spec_constant,<name>,spec_id,<id>")
	}
	id, err := strconv.ParseUint(fields[3], 10, 31)
	if err != nil {
		return malformed("spec_id: invalid number %q", fields[3])
	}
	switch fields[1] {
	case "workgroup_size_x":
		m.WorkgroupSpecIDs[0] = int(id)
	case "workgroup_size_y":
		m.WorkgroupSpecIDs[1] = int(id)
	case "workgroup_size_z":
		m.WorkgroupSpecIDs[2] = int(id)
	}
	return nil
}

func malformed(format string, args ...any) error {
	return spverrors.MalformedBinary(spverrors.PhaseMap, fmt.Sprintf(format, args...))
}

// SpecConstant is a specialization constant value to set before pipeline
// creation.
type SpecConstant struct {
	ID    int
	Value uint32
}

// LocalSpecConstants computes the array length constant of each local
// argument from the buffer sizes set at launch. argSizes is indexed by
// argument ordinal.
func (k *Kernel) LocalSpecConstants(argSizes []uint64) ([]SpecConstant, error) {
	var out []SpecConstant
	for _, a := range k.Args {
		if a.Kind != ArgLocal {
			continue
		}
		if a.Ordinal >= len(argSizes) {
			return nil, spverrors.New(spverrors.PhaseLaunch, spverrors.KindInvalidInput).
				Kernel(k.Name).
				Path(a.Name).
				Detail("no size given for local argument %d", a.Ordinal).
				Build()
		}
		size := argSizes[a.Ordinal]
		if size == 0 || size%a.ElemSize != 0 {
			return nil, spverrors.New(spverrors.PhaseLaunch, spverrors.KindInvalidInput).
				Kernel(k.Name).
				Path(a.Name).
				Value(size).
				Detail("local size %d is not a non-zero multiple of element size %d", size, a.ElemSize).
				Build()
		}
		n, err := safecast.Conv[uint32](size / a.ElemSize)
		if err != nil {
			return nil, spverrors.Wrap(spverrors.PhaseLaunch, spverrors.KindOutOfBounds, err,
				fmt.Sprintf("local argument %q element count", a.Name))
		}
		if a.SpecID >= 0 {
			out = append(out, SpecConstant{ID: a.SpecID, Value: n})
		}
	}
	return out, nil
}

// ToMetadata converts the kernel into launch metadata replicated over
// devices slots.
func (k *Kernel) ToMetadata(devices int) (*metadata.KernelMetadata, error) {
	if devices < 1 {
		return nil, spverrors.InvalidInput(spverrors.PhaseMap,
			fmt.Sprintf("device count must be at least 1, got %d", devices))
	}
	var dev metadata.DeviceMetadata
	for _, a := range k.Args {
		info := metadata.ArgInfo{
			Name:   a.Name,
			Access: metadata.AccessNone,
		}
		switch {
		case a.Kind == ArgLocal:
			align, err := safecast.Conv[uint32](a.ElemSize)
			if err != nil {
				return nil, spverrors.Wrap(spverrors.PhaseMap, spverrors.KindMalformedBinary, err,
					fmt.Sprintf("local argument %q element size", a.Name))
			}
			info.Type, info.Address, info.Alignment = metadata.ArgPointer, metadata.AddressLocal, align
		case a.Kind == ArgBuffer:
			info.Type, info.Address = metadata.ArgPointer, metadata.AddressGlobal
			info.Size, info.Alignment = 8, 8
		default:
			info.Type, info.Address = metadata.ArgNone, metadata.AddressPrivate
			info.Size, info.Alignment = a.Size, podAlignment(a.Size)
		}
		dev.Args = append(dev.Args, info)
	}
	dev.NumArgs = len(dev.Args)

	km := &metadata.KernelMetadata{
		Name:           k.Name,
		HasArgMetadata: true,
		Devices:        make([]metadata.DeviceMetadata, devices),
	}
	for i := range km.Devices {
		d := dev
		d.Args = slices.Clone(dev.Args)
		km.Devices[i] = d
	}
	return km, nil
}

// ToMetadata converts every kernel in declaration order.
func (m *Map) ToMetadata(devices int) ([]*metadata.KernelMetadata, error) {
	out := make([]*metadata.KernelMetadata, 0, len(m.Kernels))
	for _, k := range m.Kernels {
		km, err := k.ToMetadata(devices)
		if err != nil {
			return nil, err
		}
		out = append(out, km)
	}
	return out, nil
}

// podAlignment is the largest power of two dividing size, at most 16.
func podAlignment(size uint64) uint32 {
	align := uint32(1)
	for align < 16 && size%uint64(align*2) == 0 {
		align *= 2
	}
	return align
}
