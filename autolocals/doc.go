// Package autolocals promotes Workgroup variables of OpenCL kernels to
// kernel parameters.
//
// # Overview
//
// Some backends cannot allocate local memory statically: the size is only
// known at launch, or several kernels on one device must share the budget.
// For those the runtime passes a buffer for each local allocation instead.
// Rewrite prepares a module for that:
//
//  1. Collect the Workgroup variables each kernel owns, in the order its
//     body first mentions them.
//  2. Turn each into a trailing OpFunctionParameter with the same result id,
//     so no instruction in the body changes.
//  3. Drop the OpVariable and its entry point interface entry, and switch
//     the kernel to a function type with the extra pointer parameters.
//  4. Append one Local argument per promotion to the kernel's signature.
//
// Kernels without Workgroup variables are left alone. If no kernel has any,
// the module is not touched.
//
// # Usage
//
//	m, err := spirv.Decode(words)
//	if err != nil {
//		return err
//	}
//	infos, err := signature.ParseModule(m)
//	if err != nil {
//		return err
//	}
//	report, err := autolocals.Rewrite(m, infos, autolocals.Config{})
//
// # Limitations
//
// Variables in helper functions are not promoted; they are listed in
// Report.Nested. Module-scope variables used by more than one function stay
// where they are and are listed in Report.Shared. A kernel that is itself
// called from another function cannot gain parameters and fails with an
// unsupported error.
package autolocals
