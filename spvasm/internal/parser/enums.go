package parser

import (
	"strings"

	"github.com/wippyai/spvkernel/spirv"
)

// Kind is the enumerant family an operand position draws from.
type Kind int

const (
	KindNone Kind = iota
	KindCapability
	KindExecutionModel
	KindAddressingModel
	KindMemoryModel
	KindExecutionMode
	KindSourceLanguage
	KindDecoration
	KindFuncParamAttr
	KindBuiltIn
	KindStorageClass
	KindFunctionControl
	KindDim
	KindImageFormat
	KindAccessQualifier
	KindSamplerAddressing
	KindSamplerFilter
	KindMemoryAccess
	KindSelectionControl
	KindLoopControl
)

var enumerants = map[Kind]map[string]uint32{
	KindCapability: {
		"Matrix": 0, "Shader": 1, "Addresses": 4, "Linkage": 5, "Kernel": 6,
		"Vector16": 7, "Float16Buffer": 8, "Float16": 9, "Float64": 10,
		"Int64": 11, "Int64Atomics": 12, "ImageBasic": 13,
		"ImageReadWrite": 14, "ImageMipmap": 15, "Pipes": 17, "Groups": 18,
		"DeviceEnqueue": 19, "LiteralSampler": 20, "Int16": 22,
		"GenericPointer": 38, "Int8": 39, "NamedBarrier": 59,
		"PipeStorage": 60,
	},
	KindExecutionModel: {
		"Vertex": 0, "Fragment": 4, "GLCompute": uint32(spirv.ModelGLCompute),
		"Kernel": uint32(spirv.ModelKernel),
	},
	KindAddressingModel: {
		"Logical":    uint32(spirv.AddressingLogical),
		"Physical32": uint32(spirv.AddressingPhysical32),
		"Physical64": uint32(spirv.AddressingPhysical64),
	},
	KindMemoryModel: {
		"Simple": 0, "GLSL450": 1, "OpenCL": 2, "Vulkan": 3,
	},
	KindExecutionMode: {
		"LocalSize":       uint32(spirv.ModeLocalSize),
		"LocalSizeHint":   uint32(spirv.ModeLocalSizeHint),
		"VecTypeHint":     uint32(spirv.ModeVecTypeHint),
		"ContractionOff":  uint32(spirv.ModeContractionOff),
		"LocalSizeId":     uint32(spirv.ModeLocalSizeID),
		"LocalSizeHintId": uint32(spirv.ModeLocalSizeHintID),
	},
	KindSourceLanguage: {
		"Unknown": 0, "ESSL": 1, "GLSL": 2, "OpenCL_C": 3, "OpenCL_CPP": 4, "HLSL": 5,
	},
	KindDecoration: {
		"SpecId":        uint32(spirv.DecorationSpecID),
		"CPacked":       uint32(spirv.DecorationCPacked),
		"BuiltIn":       uint32(spirv.DecorationBuiltIn),
		"Restrict":      uint32(spirv.DecorationRestrict),
		"Aliased":       uint32(spirv.DecorationAliased),
		"Volatile":      uint32(spirv.DecorationVolatile),
		"Constant":      uint32(spirv.DecorationConstant),
		"NonWritable":   uint32(spirv.DecorationNonWritable),
		"NonReadable":   uint32(spirv.DecorationNonReadable),
		"FuncParamAttr": uint32(spirv.DecorationFuncParamAttr),
		"Alignment":     uint32(spirv.DecorationAlignment),
		"MaxByteOffset": uint32(spirv.DecorationMaxByteOffset),
	},
	KindFuncParamAttr: {
		"Zext":        uint32(spirv.FuncParamZext),
		"Sext":        uint32(spirv.FuncParamSext),
		"ByVal":       uint32(spirv.FuncParamByVal),
		"Sret":        uint32(spirv.FuncParamSret),
		"NoAlias":     uint32(spirv.FuncParamNoAlias),
		"NoCapture":   uint32(spirv.FuncParamNoCapture),
		"NoWrite":     uint32(spirv.FuncParamNoWrite),
		"NoReadWrite": uint32(spirv.FuncParamNoReadWrite),
	},
	KindBuiltIn: {
		"NumWorkgroups": 24, "WorkgroupSize": 25, "WorkgroupId": 26,
		"LocalInvocationId": 27, "GlobalInvocationId": 28,
		"LocalInvocationIndex": 29, "WorkDim": 30, "GlobalSize": 31,
		"EnqueuedWorkgroupSize": 32, "GlobalOffset": 33,
		"GlobalLinearId": 34,
	},
	KindStorageClass: {
		"UniformConstant": uint32(spirv.StorageUniformConstant),
		"Input":           uint32(spirv.StorageInput),
		"Uniform":         uint32(spirv.StorageUniform),
		"Output":          uint32(spirv.StorageOutput),
		"Workgroup":       uint32(spirv.StorageWorkgroup),
		"CrossWorkgroup":  uint32(spirv.StorageCrossWorkgroup),
		"Private":         uint32(spirv.StoragePrivate),
		"Function":        uint32(spirv.StorageFunction),
		"Generic":         uint32(spirv.StorageGeneric),
		"PushConstant":    uint32(spirv.StoragePushConstant),
		"AtomicCounter":   uint32(spirv.StorageAtomicCounter),
		"Image":           uint32(spirv.StorageImage),
		"StorageBuffer":   uint32(spirv.StorageStorageBuffer),
	},
	KindFunctionControl: {
		"None": 0, "Inline": 1, "DontInline": 2, "Pure": 4, "Const": 8,
	},
	KindDim: {
		"1D": uint32(spirv.Dim1D), "2D": uint32(spirv.Dim2D),
		"3D": uint32(spirv.Dim3D), "Cube": 3, "Rect": 4,
		"Buffer": uint32(spirv.DimBuffer),
	},
	KindImageFormat: {
		"Unknown": 0,
	},
	KindAccessQualifier: {
		"ReadOnly":  uint32(spirv.AccessReadOnly),
		"WriteOnly": uint32(spirv.AccessWriteOnly),
		"ReadWrite": uint32(spirv.AccessReadWrite),
	},
	KindSamplerAddressing: {
		"None": 0, "ClampToEdge": 1, "Clamp": 2, "Repeat": 3, "RepeatMirrored": 4,
	},
	KindSamplerFilter: {
		"Nearest": 0, "Linear": 1,
	},
	KindMemoryAccess: {
		"None": 0, "Volatile": 1, "Aligned": 2, "Nontemporal": 4,
	},
	KindSelectionControl: {
		"None": 0, "Flatten": 1, "DontFlatten": 2,
	},
	KindLoopControl: {
		"None": 0, "Unroll": 1, "DontUnroll": 2,
	},
}

// grammar lists the enumerant kind of each written operand (result id
// excluded) for opcodes that take enumerants. Positions past the end of a
// list are literals or ids.
var grammar = map[spirv.Opcode][]Kind{
	spirv.OpCapability:               {KindCapability},
	spirv.OpMemoryModel:              {KindAddressingModel, KindMemoryModel},
	spirv.OpEntryPoint:               {KindExecutionModel},
	spirv.OpExecutionMode:            {KindNone, KindExecutionMode},
	spirv.OpExecutionModeID:          {KindNone, KindExecutionMode},
	spirv.OpSource:                   {KindSourceLanguage},
	spirv.OpDecorate:                 {KindNone, KindDecoration},
	spirv.OpMemberDecorate:           {KindNone, KindNone, KindDecoration},
	spirv.OpTypePointer:              {KindStorageClass},
	spirv.OpTypeForwardPointer:       {KindNone, KindStorageClass},
	spirv.OpVariable:                 {KindNone, KindStorageClass},
	spirv.OpFunction:                 {KindNone, KindFunctionControl},
	spirv.OpTypeImage:                {KindNone, KindDim, KindNone, KindNone, KindNone, KindNone, KindImageFormat, KindAccessQualifier},
	spirv.OpTypePipe:                 {KindAccessQualifier},
	spirv.OpConstantSampler:          {KindNone, KindSamplerAddressing, KindNone, KindSamplerFilter},
	spirv.OpLoad:                     {KindNone, KindNone, KindMemoryAccess},
	spirv.OpStore:                    {KindNone, KindNone, KindMemoryAccess},
	spirv.OpSelectionMerge:           {KindNone, KindSelectionControl},
	spirv.OpLoopMerge:                {KindNone, KindNone, KindLoopControl},
	spirv.OpGenericCastToPtrExplicit: {KindNone, KindNone, KindStorageClass},
}

// decorationArg returns the kind of the first operand following decoration d.
func decorationArg(d uint32) Kind {
	switch spirv.Decoration(d) {
	case spirv.DecorationFuncParamAttr:
		return KindFuncParamAttr
	case spirv.DecorationBuiltIn:
		return KindBuiltIn
	}
	return KindNone
}

// lookupEnum resolves name in kind's table. Mask kinds accept a|b forms.
func lookupEnum(kind Kind, name string) (uint32, bool) {
	table, ok := enumerants[kind]
	if !ok {
		return 0, false
	}
	var v uint32
	for _, part := range strings.Split(name, "|") {
		bits, ok := table[part]
		if !ok {
			return 0, false
		}
		v |= bits
	}
	return v, true
}
