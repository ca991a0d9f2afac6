package interop

import "github.com/n3ledger/n3core/pkg/core/interop/interopnames"

// Registry maps syscall ids to their Function descriptor, built once at
// startup and shared read-only across every VM invocation.
type Registry struct {
	byID map[uint32]*Function
}

// NewRegistry builds the registry of every System.* interop (spec §4.2).
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[uint32]*Function)}
	r.register(systemFunctions)
	r.register(contractFunctions)
	return r
}

func (r *Registry) register(fns []Function) {
	for i := range fns {
		f := &fns[i]
		f.ID = interopnames.ToID(f.Name)
		r.byID[f.ID] = f
	}
}

// Lookup resolves a syscall id to its Function, or nil if unknown.
func (r *Registry) Lookup(id uint32) *Function { return r.byID[id] }
