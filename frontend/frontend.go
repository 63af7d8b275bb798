package frontend

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/spvkernel/autolocals"
	"github.com/wippyai/spvkernel/metadata"
	"github.com/wippyai/spvkernel/signature"
	"github.com/wippyai/spvkernel/spirv"
)

// Options configures a build.
type Options struct {
	Locals           autolocals.Config
	Devices          int  // device slots per kernel; 0 means 1
	Jobs             int  // BuildAll concurrency; 0 means GOMAXPROCS
	PromoteLocals    bool // turn kernel Workgroup variables into parameters
	AtomicWorkaround bool // patch mistyped OpAtomicCompareExchange
}

func (o Options) devices() int {
	if o.Devices <= 0 {
		return 1
	}
	return o.Devices
}

// Program is the result of building one SPIR-V module.
type Program struct {
	Kernels     *signature.FunctionInfoMap
	Promotions  *autolocals.Report // nil unless PromoteLocals
	Binary      []byte             // final module, little-endian
	Metadata    []*metadata.KernelMetadata
	AtomicFixes []spirv.AtomicFix
}

// Build runs the front end over one module: optional atomic workaround,
// signature extraction, optional local promotion, then metadata mapping.
func Build(binary []byte, opts Options) (*Program, error) {
	words, err := spirv.WordsFromBytes(binary)
	if err != nil {
		return nil, err
	}

	prog := &Program{}
	if opts.AtomicWorkaround {
		if words, prog.AtomicFixes, err = spirv.PatchAtomicCmpXchg(words); err != nil {
			return nil, err
		}
	}

	if prog.Kernels, err = signature.Parse(words); err != nil {
		return nil, err
	}

	if opts.PromoteLocals {
		m, err := spirv.Decode(words)
		if err != nil {
			return nil, err
		}
		if prog.Promotions, err = autolocals.Rewrite(m, prog.Kernels, opts.Locals); err != nil {
			return nil, err
		}
		if prog.Promotions.Changed() {
			if words, err = m.Words(); err != nil {
				return nil, err
			}
		}
	}

	if prog.Metadata, err = metadata.MapAll(prog.Kernels, opts.devices()); err != nil {
		return nil, err
	}
	prog.Binary = spirv.WordsToBytes(words)

	promoted := 0
	if prog.Promotions != nil {
		promoted = len(prog.Promotions.Promotions)
	}
	Logger().Debug("built program",
		zap.Int("kernels", prog.Kernels.Len()),
		zap.Int("promoted_locals", promoted),
		zap.Int("atomic_fixes", len(prog.AtomicFixes)),
		zap.Int("bytes", len(prog.Binary)))
	return prog, nil
}

// Unit is one module handed to BuildAll.
type Unit struct {
	Name   string
	Binary []byte
}

// BuildAll builds independent units concurrently. Results are in unit
// order. The first failure cancels the units not yet started.
func BuildAll(ctx context.Context, units []Unit, opts Options) ([]*Program, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]*Program, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(units))))
	for i, u := range units {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			prog, err := Build(u.Binary, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", u.Name, err)
			}
			results[i] = prog
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
