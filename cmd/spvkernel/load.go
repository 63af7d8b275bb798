package main

import (
	"context"
	"fmt"
	"os"

	"github.com/wippyai/spvkernel/frontend"
	"github.com/wippyai/spvkernel/kcache"
	"github.com/wippyai/spvkernel/metadata"
)

// loaded is one module after the front end ran, or after a cache hit.
type loaded struct {
	Path        string
	Input       []byte
	Output      []byte
	Kernels     []*metadata.KernelMetadata
	Program     *frontend.Program // nil on a cache hit
	Promoted    int
	AtomicFixes int
	Cached      bool
}

func loadModules(ctx context.Context, paths []string, s settings) ([]*loaded, error) {
	cache, err := s.openCache()
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	defer cache.Close()

	opts := s.options()
	out := make([]*loaded, len(paths))
	keys := make([]kcache.Key, len(paths))
	var units []frontend.Unit
	var pending []int

	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		l := &loaded{Path: p, Input: data}
		out[i] = l

		keys[i] = kcache.KeyFor(data, opts, s.selection()...)
		e, ok, err := cache.Get(keys[i])
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		if ok {
			l.Cached = true
			l.Kernels = e.Kernels
			l.Promoted = e.Promoted
			l.AtomicFixes = e.AtomicFixes
			l.Output = data
			if e.Binary != nil {
				l.Output = e.Binary
			}
			continue
		}
		units = append(units, frontend.Unit{Name: p, Binary: data})
		pending = append(pending, i)
	}

	progs, err := frontend.BuildAll(ctx, units, opts)
	if err != nil {
		return nil, err
	}
	for j, prog := range progs {
		i := pending[j]
		l := out[i]
		l.Program = prog
		l.Output = prog.Binary
		l.Kernels = prog.Metadata
		l.AtomicFixes = len(prog.AtomicFixes)
		if prog.Promotions != nil {
			l.Promoted = len(prog.Promotions.Promotions)
		}
		if err := cache.Put(keys[i], kcache.EntryFor(prog, l.Input)); err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
	}
	return out, nil
}
