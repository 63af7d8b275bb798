package spirv

// SPIR-V magic number and header layout.
const (
	Magic        uint32 = 0x07230203
	MagicSwapped uint32 = 0x03022307
	HeaderWords         = 5
)

// Opcode is a SPIR-V instruction opcode (low 16 bits of the first word).
type Opcode uint16

// Opcodes the front end inspects. Everything else is skipped by word count.
const (
	OpNop                        Opcode = 0
	OpUndef                      Opcode = 1
	OpSource                     Opcode = 3
	OpName                       Opcode = 5
	OpMemberName                 Opcode = 6
	OpString                     Opcode = 7
	OpLine                       Opcode = 8
	OpExtension                  Opcode = 10
	OpExtInstImport              Opcode = 11
	OpExtInst                    Opcode = 12
	OpMemoryModel                Opcode = 14
	OpEntryPoint                 Opcode = 15
	OpExecutionMode              Opcode = 16
	OpCapability                 Opcode = 17
	OpTypeVoid                   Opcode = 19
	OpTypeBool                   Opcode = 20
	OpTypeInt                    Opcode = 21
	OpTypeFloat                  Opcode = 22
	OpTypeVector                 Opcode = 23
	OpTypeMatrix                 Opcode = 24
	OpTypeImage                  Opcode = 25
	OpTypeSampler                Opcode = 26
	OpTypeSampledImage           Opcode = 27
	OpTypeArray                  Opcode = 28
	OpTypeRuntimeArray           Opcode = 29
	OpTypeStruct                 Opcode = 30
	OpTypeOpaque                 Opcode = 31
	OpTypePointer                Opcode = 32
	OpTypeFunction               Opcode = 33
	OpTypeEvent                  Opcode = 34
	OpTypeDeviceEvent            Opcode = 35
	OpTypeReserveID              Opcode = 36
	OpTypeQueue                  Opcode = 37
	OpTypePipe                   Opcode = 38
	OpTypeForwardPointer         Opcode = 39
	OpConstantTrue               Opcode = 41
	OpConstantFalse              Opcode = 42
	OpConstant                   Opcode = 43
	OpConstantComposite          Opcode = 44
	OpConstantSampler            Opcode = 45
	OpConstantNull               Opcode = 46
	OpSpecConstantTrue           Opcode = 48
	OpSpecConstantFalse          Opcode = 49
	OpSpecConstant               Opcode = 50
	OpSpecConstantComposite      Opcode = 51
	OpSpecConstantOp             Opcode = 52
	OpFunction                   Opcode = 54
	OpFunctionParameter          Opcode = 55
	OpFunctionEnd                Opcode = 56
	OpFunctionCall               Opcode = 57
	OpVariable                   Opcode = 59
	OpLoad                       Opcode = 61
	OpStore                      Opcode = 62
	OpAccessChain                Opcode = 65
	OpInBoundsAccessChain        Opcode = 66
	OpPtrAccessChain             Opcode = 67
	OpInBoundsPtrAccessChain     Opcode = 70
	OpDecorate                   Opcode = 71
	OpMemberDecorate             Opcode = 72
	OpDecorationGroup            Opcode = 73
	OpGroupDecorate              Opcode = 74
	OpGroupMemberDecorate        Opcode = 75
	OpVectorShuffle              Opcode = 79
	OpCompositeExtract           Opcode = 81
	OpCompositeInsert            Opcode = 82
	OpCopyObject                 Opcode = 83
	OpConvertUToPtr              Opcode = 120
	OpPtrCastToGeneric           Opcode = 121
	OpGenericCastToPtr           Opcode = 122
	OpGenericCastToPtrExplicit   Opcode = 123
	OpBitcast                    Opcode = 124
	OpSelect                     Opcode = 169
	OpAtomicCompareExchange      Opcode = 230
	OpAtomicCompareExchangeWeak  Opcode = 231
	OpPhi                        Opcode = 245
	OpLoopMerge                  Opcode = 246
	OpSelectionMerge             Opcode = 247
	OpLabel                      Opcode = 248
	OpSwitch                     Opcode = 251
	OpReturn                     Opcode = 253
	OpReturnValue                Opcode = 254
	OpLifetimeStart              Opcode = 256
	OpLifetimeStop               Opcode = 257
	OpNoLine                     Opcode = 317
	OpTypePipeStorage            Opcode = 322
	OpTypeNamedBarrier           Opcode = 327
	OpModuleProcessed            Opcode = 330
	OpExecutionModeID            Opcode = 331
	OpDecorateID                 Opcode = 332
	OpDecorateString             Opcode = 5632
	OpMemberDecorateString       Opcode = 5633
	OpTypeUntypedPointerKHR      Opcode = 4417
	OpUntypedVariableKHR         Opcode = 4418
	OpConstantFunctionPointerINT Opcode = 5600
)

// StorageClass is the operand of OpTypePointer and OpVariable.
type StorageClass uint32

const (
	StorageUniformConstant StorageClass = 0
	StorageInput           StorageClass = 1
	StorageUniform         StorageClass = 2
	StorageOutput          StorageClass = 3
	StorageWorkgroup       StorageClass = 4
	StorageCrossWorkgroup  StorageClass = 5
	StoragePrivate         StorageClass = 6
	StorageFunction        StorageClass = 7
	StorageGeneric         StorageClass = 8
	StoragePushConstant    StorageClass = 9
	StorageAtomicCounter   StorageClass = 10
	StorageImage           StorageClass = 11
	StorageStorageBuffer   StorageClass = 12
)

// Decoration is the second operand of OpDecorate.
type Decoration uint32

const (
	DecorationSpecID        Decoration = 1
	DecorationCPacked       Decoration = 10
	DecorationBuiltIn       Decoration = 11
	DecorationRestrict      Decoration = 19
	DecorationAliased       Decoration = 20
	DecorationVolatile      Decoration = 21
	DecorationConstant      Decoration = 22
	DecorationNonWritable   Decoration = 24
	DecorationNonReadable   Decoration = 25
	DecorationFuncParamAttr Decoration = 38
	DecorationAlignment     Decoration = 44
	DecorationMaxByteOffset Decoration = 45
	DecorationAlignmentID   Decoration = 46
)

// FuncParamAttr is the literal carried by DecorationFuncParamAttr.
type FuncParamAttr uint32

const (
	FuncParamZext        FuncParamAttr = 0
	FuncParamSext        FuncParamAttr = 1
	FuncParamByVal       FuncParamAttr = 2
	FuncParamSret        FuncParamAttr = 3
	FuncParamNoAlias     FuncParamAttr = 4
	FuncParamNoCapture   FuncParamAttr = 5
	FuncParamNoWrite     FuncParamAttr = 6
	FuncParamNoReadWrite FuncParamAttr = 7
)

// ExecutionModel is the first operand of OpEntryPoint.
type ExecutionModel uint32

const (
	ModelGLCompute ExecutionModel = 5
	ModelKernel    ExecutionModel = 6
)

// ExecutionMode is the second operand of OpExecutionMode.
type ExecutionMode uint32

const (
	ModeLocalSize       ExecutionMode = 17
	ModeLocalSizeHint   ExecutionMode = 18
	ModeVecTypeHint     ExecutionMode = 30
	ModeContractionOff  ExecutionMode = 31
	ModeLocalSizeID     ExecutionMode = 38
	ModeLocalSizeHintID ExecutionMode = 39
)

// AddressingModel is the first operand of OpMemoryModel.
type AddressingModel uint32

const (
	AddressingLogical                 AddressingModel = 0
	AddressingPhysical32              AddressingModel = 1
	AddressingPhysical64              AddressingModel = 2
	AddressingPhysicalStorageBuffer64 AddressingModel = 5348
)

// AccessQualifier is the trailing operand of OpTypeImage and OpTypePipe.
type AccessQualifier uint32

const (
	AccessReadOnly  AccessQualifier = 0
	AccessWriteOnly AccessQualifier = 1
	AccessReadWrite AccessQualifier = 2
)

// Dim is the dimensionality operand of OpTypeImage.
type Dim uint32

const (
	Dim1D     Dim = 0
	Dim2D     Dim = 1
	Dim3D     Dim = 2
	DimBuffer Dim = 5
)

var opcodeNames = map[Opcode]string{
	OpNop: "OpNop", OpUndef: "OpUndef", OpSource: "OpSource", OpName: "OpName",
	OpMemberName: "OpMemberName", OpString: "OpString", OpLine: "OpLine",
	OpExtension: "OpExtension", OpExtInstImport: "OpExtInstImport", OpExtInst: "OpExtInst",
	OpMemoryModel: "OpMemoryModel", OpEntryPoint: "OpEntryPoint",
	OpExecutionMode: "OpExecutionMode", OpCapability: "OpCapability",
	OpTypeVoid: "OpTypeVoid", OpTypeBool: "OpTypeBool", OpTypeInt: "OpTypeInt",
	OpTypeFloat: "OpTypeFloat", OpTypeVector: "OpTypeVector", OpTypeMatrix: "OpTypeMatrix",
	OpTypeImage: "OpTypeImage", OpTypeSampler: "OpTypeSampler",
	OpTypeSampledImage: "OpTypeSampledImage", OpTypeArray: "OpTypeArray",
	OpTypeRuntimeArray: "OpTypeRuntimeArray", OpTypeStruct: "OpTypeStruct",
	OpTypeOpaque: "OpTypeOpaque", OpTypePointer: "OpTypePointer",
	OpTypeFunction: "OpTypeFunction", OpTypeEvent: "OpTypeEvent",
	OpTypeDeviceEvent: "OpTypeDeviceEvent", OpTypeReserveID: "OpTypeReserveId",
	OpTypeQueue: "OpTypeQueue", OpTypePipe: "OpTypePipe",
	OpTypeForwardPointer: "OpTypeForwardPointer", OpConstantTrue: "OpConstantTrue",
	OpConstantFalse: "OpConstantFalse", OpConstant: "OpConstant",
	OpConstantComposite: "OpConstantComposite", OpConstantSampler: "OpConstantSampler",
	OpConstantNull: "OpConstantNull", OpSpecConstantTrue: "OpSpecConstantTrue",
	OpSpecConstantFalse: "OpSpecConstantFalse", OpSpecConstant: "OpSpecConstant",
	OpSpecConstantComposite: "OpSpecConstantComposite", OpSpecConstantOp: "OpSpecConstantOp",
	OpFunction: "OpFunction", OpFunctionParameter: "OpFunctionParameter",
	OpFunctionEnd: "OpFunctionEnd", OpFunctionCall: "OpFunctionCall",
	OpVariable: "OpVariable", OpLoad: "OpLoad", OpStore: "OpStore",
	OpAccessChain: "OpAccessChain", OpInBoundsAccessChain: "OpInBoundsAccessChain",
	OpPtrAccessChain: "OpPtrAccessChain", OpInBoundsPtrAccessChain: "OpInBoundsPtrAccessChain",
	OpDecorate: "OpDecorate", OpMemberDecorate: "OpMemberDecorate",
	OpDecorationGroup: "OpDecorationGroup", OpGroupDecorate: "OpGroupDecorate",
	OpGroupMemberDecorate: "OpGroupMemberDecorate", OpVectorShuffle: "OpVectorShuffle",
	OpCompositeExtract: "OpCompositeExtract", OpCompositeInsert: "OpCompositeInsert",
	OpCopyObject: "OpCopyObject", OpConvertUToPtr: "OpConvertUToPtr",
	OpPtrCastToGeneric: "OpPtrCastToGeneric", OpGenericCastToPtr: "OpGenericCastToPtr",
	OpGenericCastToPtrExplicit: "OpGenericCastToPtrExplicit", OpBitcast: "OpBitcast",
	OpSelect: "OpSelect", OpAtomicCompareExchange: "OpAtomicCompareExchange",
	OpAtomicCompareExchangeWeak: "OpAtomicCompareExchangeWeak", OpPhi: "OpPhi",
	OpLoopMerge: "OpLoopMerge", OpSelectionMerge: "OpSelectionMerge", OpLabel: "OpLabel",
	OpSwitch: "OpSwitch", OpReturn: "OpReturn", OpReturnValue: "OpReturnValue",
	OpLifetimeStart: "OpLifetimeStart", OpLifetimeStop: "OpLifetimeStop",
	OpNoLine: "OpNoLine", OpTypePipeStorage: "OpTypePipeStorage",
	OpTypeNamedBarrier: "OpTypeNamedBarrier", OpModuleProcessed: "OpModuleProcessed",
	OpExecutionModeID: "OpExecutionModeId", OpDecorateID: "OpDecorateId",
}

// String returns the opcode mnemonic, or Op<n> for opcodes not in the table.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "Op" + itoa(uint32(op))
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

var opcodesByName = func() map[string]Opcode {
	byName := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		byName[name] = op
	}
	return byName
}()

// OpcodeByName looks up an opcode by mnemonic, e.g. "OpTypeInt".
func OpcodeByName(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}
