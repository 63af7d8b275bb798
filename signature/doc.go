// Package signature extracts launch signatures for OpenCL kernels from SPIR-V.
//
// # Overview
//
// Extraction is a single scan over the word stream. Type and constant
// declarations go into a TypeTable; decorations, names and execution modes
// are buffered against their target id because SPIR-V allows them before
// the declaration they refer to. Function bodies are skipped. Once the scan
// finishes, every Kernel entry point is resolved into a FunctionSignature:
//
//	infos, err := signature.Parse(words)
//	if err != nil {
//		return err
//	}
//	infos.Each(func(name string, sig *signature.FunctionSignature) {
//		fmt.Println(name, len(sig.Args))
//	})
//
// # Argument Classification
//
// Scalars, vectors and structs are POD arguments with their natural size and
// alignment; 3-component vectors occupy the space of 4-component ones.
// Pointers carry the OpenCL address space of their storage class. Pointers
// decorated FuncParamAttr ByVal are aggregates passed by value. Images are
// global with read/write flags from the access qualifier. Samplers and other
// handle types are pointer sized.
//
// # Errors
//
// All failures are *errors.Error values from this module's errors package.
// A failed parse never returns a partial map.
package signature
