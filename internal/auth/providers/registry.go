package providers

import "fmt"

// Registry holds the configured providers in registration order.
type Registry struct {
	order     []string
	providers map[string]OAuthProvider
}

// NewRegistry registers providers by descriptor ID. IDs must be unique.
func NewRegistry(list ...OAuthProvider) (*Registry, error) {
	r := &Registry{providers: make(map[string]OAuthProvider, len(list))}
	for _, p := range list {
		id := p.Descriptor().ID
		if _, exists := r.providers[id]; exists {
			return nil, fmt.Errorf("duplicate oauth provider: %s", id)
		}
		r.order = append(r.order, id)
		r.providers[id] = p
	}
	return r, nil
}

func (r *Registry) Get(id string) (OAuthProvider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

func (r *Registry) All() []OAuthProvider {
	out := make([]OAuthProvider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}
