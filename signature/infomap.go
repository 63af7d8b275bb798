package signature

import (
	"github.com/emirpasic/gods/maps/treemap"

	spverrors "github.com/wippyai/spvkernel/errors"
)

// FunctionInfoMap maps kernel names to signatures, iterated in ascending
// name order.
type FunctionInfoMap struct {
	tree *treemap.Map
}

// NewFunctionInfoMap creates an empty map.
func NewFunctionInfoMap() *FunctionInfoMap {
	return &FunctionInfoMap{tree: treemap.NewWithStringComparator()}
}

// Insert adds a kernel. A name that is already present is an error and
// leaves the existing entry in place.
func (m *FunctionInfoMap) Insert(name string, sig *FunctionSignature) error {
	if _, found := m.tree.Get(name); found {
		return spverrors.DuplicateKernelName(spverrors.PhaseResolve, name)
	}
	m.tree.Put(name, sig)
	return nil
}

// Get returns the signature of kernel name.
func (m *FunctionInfoMap) Get(name string) (*FunctionSignature, bool) {
	v, found := m.tree.Get(name)
	if !found {
		return nil, false
	}
	return v.(*FunctionSignature), true
}

// Len returns the number of kernels.
func (m *FunctionInfoMap) Len() int {
	return m.tree.Size()
}

// Names returns the kernel names in iteration order.
func (m *FunctionInfoMap) Names() []string {
	keys := m.tree.Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.(string)
	}
	return names
}

// Each calls fn for every kernel in iteration order.
func (m *FunctionInfoMap) Each(fn func(name string, sig *FunctionSignature)) {
	m.tree.Each(func(k, v interface{}) {
		fn(k.(string), v.(*FunctionSignature))
	})
}

// Walk calls fn for every kernel in iteration order and stops at the first
// error.
func (m *FunctionInfoMap) Walk(fn func(name string, sig *FunctionSignature) error) error {
	it := m.tree.Iterator()
	for it.Next() {
		if err := fn(it.Key().(string), it.Value().(*FunctionSignature)); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m *FunctionInfoMap) Clone() *FunctionInfoMap {
	out := NewFunctionInfoMap()
	m.Each(func(name string, sig *FunctionSignature) {
		out.tree.Put(name, sig.Clone())
	})
	return out
}
