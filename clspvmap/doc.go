// Package clspvmap reads the descriptor map clspv writes next to a
// Vulkan-targeted SPIR-V module.
//
// Each line is a comma separated record:
//
//	kernel_decl,<kernel>
//	kernel,<kernel>,arg,<arg>,argOrdinal,N,descriptorSet,N,binding,N,offset,N,argKind,<kind>[,argSize,N][,arrayElemSize,N,arrayNumElemSpecId,N]
//	spec_constant,workgroup_size_x,spec_id,N
//
// Local arguments have no size in the map. Their length is a specialization
// constant the runtime sets from the buffer size given at launch; see
// Kernel.LocalSpecConstants.
package clspvmap
