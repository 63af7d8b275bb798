// Package frontend chains the SPIR-V passes into one build step.
//
//	prog, err := frontend.Build(binary, frontend.Options{
//		Devices:          2,
//		PromoteLocals:    true,
//		AtomicWorkaround: true,
//	})
//
// Build owns nothing beyond the call: the returned Program shares no state
// with other builds, so independent modules can be built in parallel with
// BuildAll.
package frontend
