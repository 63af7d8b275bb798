// Package kcache keeps built kernel metadata on disk so repeated runs over
// an unchanged module skip extraction and rewriting.
//
// Entries are keyed by KeyFor(module, options). A key changes whenever the
// module bytes or an output-affecting option change, so entries are never
// updated in place; stale ones are simply not looked up again.
package kcache
