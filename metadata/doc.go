// Package metadata translates kernel signatures into the per-device records
// the launch path reads when marshaling arguments.
//
// Qualifier values are the OpenCL CL_KERNEL_ARG_* constants so that
// clGetKernelArgInfo can return them unchanged. Promoted local allocations
// are not user arguments; they appear only as LocalSizes and
// LocalAlignments, in parameter order, after the user arguments.
package metadata
