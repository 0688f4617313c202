package registry

import (
	"sort"

	"gokaldbridge/types"
)

// Registry is the static table of supported networks. It is populated once at
// construction and read-only afterwards, so lookups need no locking.
type Registry struct {
	chains map[int]types.ChainDescriptor
}

func New(chains map[int]types.ChainDescriptor) *Registry {
	owned := make(map[int]types.ChainDescriptor, len(chains))
	for id, c := range chains {
		c.ID = id
		owned[id] = c
	}
	return &Registry{chains: owned}
}

// Describe looks up one chain by id.
func (r *Registry) Describe(chainID int) (types.ChainDescriptor, error) {
	c, ok := r.chains[chainID]
	if !ok {
		return types.ChainDescriptor{}, types.ErrUnsupportedChain
	}
	return c, nil
}

// All returns every registered chain ordered by id.
func (r *Registry) All() []types.ChainDescriptor {
	out := make([]types.ChainDescriptor, 0, len(r.chains))
	for _, c := range r.chains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
