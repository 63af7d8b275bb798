// Package spvkernel is the SPIR-V front end of an OpenCL runtime.
//
// It reads OpenCL-flavored SPIR-V modules, works out what the launch path
// needs to know about each kernel, and applies the module rewrites a runtime
// performs before handing a binary to a driver.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	spvkernel/
//	├── spirv/           Word stream decoding, module model, atomic workaround
//	├── spvasm/          Text assembler for building modules in tests and tools
//	├── signature/       Type table and kernel signature extraction
//	├── metadata/        Per-device launch metadata for the dispatcher
//	├── autolocals/      Kernel Workgroup variables turned into arguments
//	├── clspvmap/        clspv descriptor map reader
//	├── frontend/        The passes chained into one build step
//	├── kcache/          On-disk metadata cache for the CLI
//	├── errors/          Structured error types for debugging
//	└── cmd/spvkernel/   Command line tool
//
// # Quick Start
//
// Extract kernel signatures:
//
//	infos, err := signature.ParseBytes(spv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sig, _ := infos.Get("reduce")
//	for _, arg := range sig.Args {
//	    fmt.Println(arg.Name, arg.Kind, arg.Space, arg.Size)
//	}
//
// Run every pass and get per-device metadata:
//
//	prog, err := frontend.Build(spv, frontend.Options{
//	    Devices:       2,
//	    PromoteLocals: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, km := range prog.Metadata {
//	    dev, _ := km.Device(0)
//	    fmt.Println(km.Name, dev.NumArgs, dev.LocalMemSize())
//	}
//
// # Local Memory
//
// OpenCL kernels may declare __local arrays in their body. Drivers that only
// accept local memory as kernel arguments need those variables moved into
// the parameter list. autolocals.Rewrite does that and appends the matching
// entries to each kernel signature; metadata.Map reports them as LocalSizes
// rather than user arguments, so the dispatcher can allocate them at launch.
//
// # Thread Safety
//
// Parsing and mapping functions hold no shared state and may run
// concurrently on different inputs. A spirv.Module is not safe for
// concurrent mutation; autolocals.Rewrite requires exclusive access to the
// module it rewrites.
package spvkernel
