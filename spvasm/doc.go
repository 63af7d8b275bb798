// Package spvasm provides SPIR-V assembly text parsing.
//
// This package assembles the textual form printed by SPIR-V disassemblers
// into a binary module, enabling human-readable kernel definitions for
// testing, examples and the command line tool.
//
// Basic usage:
//
//	words, err := spvasm.Assemble(`
//		OpCapability Addresses
//		OpCapability Kernel
//		OpMemoryModel Physical64 OpenCL
//		OpEntryPoint Kernel %main "main"
//		%void = OpTypeVoid
//		%fn = OpTypeFunction %void
//		%main = OpFunction %void None %fn
//		%entry = OpLabel
//		OpReturn
//		OpFunctionEnd
//	`)
//
// Syntax:
//   - One instruction per mnemonic, optionally prefixed by "%result ="
//   - Ids are %name or %number; numeric ids are kept, named ids are
//     numbered after the largest numeric id in order of first appearance
//   - Integer literals (decimal, 0x hex, negative), float literals, and
//     quoted strings
//   - Enumerants by name where the operand position takes one
//     (storage classes, decorations, execution modes, ...), a|b for masks
//   - !N emits the raw word N
//   - Comments start with ';' and run to the end of the line
//
// Not supported: opcode-specific literal widths (64-bit constants must be
// written as two words or as a literal above 2^32), OpExtInst instruction
// names.
package spvasm
