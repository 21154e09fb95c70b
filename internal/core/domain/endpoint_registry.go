package domain

import "fmt"

// EndpointRegistry is the per-role endpoint set of one managed cluster.
// It is an immutable snapshot; With returns a new registry.
type EndpointRegistry struct {
	endpoints map[Role]Endpoint
	order     []Role
}

// NewEndpointRegistry builds a registry, rejecting duplicate roles.
func NewEndpointRegistry(endpoints ...Endpoint) (*EndpointRegistry, error) {
	r := &EndpointRegistry{endpoints: make(map[Role]Endpoint, len(endpoints))}
	for _, e := range endpoints {
		if _, dup := r.endpoints[e.Role]; dup {
			return nil, fmt.Errorf("duplicate endpoint for role %q", e.Role)
		}
		r.endpoints[e.Role] = e
		r.order = append(r.order, e.Role)
	}
	return r, nil
}

// Lookup returns the endpoint for role.
func (r *EndpointRegistry) Lookup(role Role) (Endpoint, bool) {
	if r == nil {
		return Endpoint{}, false
	}
	e, ok := r.endpoints[role]
	return e, ok
}

// Has reports whether an endpoint for role exists.
func (r *EndpointRegistry) Has(role Role) bool {
	_, ok := r.Lookup(role)
	return ok
}

// Default returns the primary API endpoint.
func (r *EndpointRegistry) Default() (Endpoint, bool) {
	return r.Lookup(RoleDefault)
}

// Roles returns the declared roles in submission order.
func (r *EndpointRegistry) Roles() []Role {
	if r == nil {
		return nil
	}
	out := make([]Role, len(r.order))
	copy(out, r.order)
	return out
}

// Endpoints returns the declared endpoints in submission order.
func (r *EndpointRegistry) Endpoints() []Endpoint {
	if r == nil {
		return nil
	}
	out := make([]Endpoint, 0, len(r.order))
	for _, role := range r.order {
		out = append(out, r.endpoints[role])
	}
	return out
}

// With returns a copy of r where e replaces any endpoint of the same role.
func (r *EndpointRegistry) With(e Endpoint) *EndpointRegistry {
	next := &EndpointRegistry{endpoints: make(map[Role]Endpoint, len(r.Roles())+1)}
	for _, role := range r.Roles() {
		next.endpoints[role] = r.endpoints[role]
		next.order = append(next.order, role)
	}
	if _, ok := next.endpoints[e.Role]; !ok {
		next.order = append(next.order, e.Role)
	}
	next.endpoints[e.Role] = e
	return next
}
