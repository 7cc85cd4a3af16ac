// Package registry models the persistent record of installed plugins.
//
// A Registry is an ordered mapping from plugin name to Descriptor. It is
// loaded fresh on every invocation and written back as a whole; there is no
// cache shared between processes.
package registry

// Registry is an ordered mapping name -> Descriptor.
// The zero value is not usable; use New.
type Registry struct {
	order   []string
	entries map[string]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Descriptor)}
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.entries[name]
	return d, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Put adds or replaces a descriptor. A replaced entry keeps its position;
// new entries are appended.
func (r *Registry) Put(d Descriptor) {
	if _, ok := r.entries[d.Name]; !ok {
		r.order = append(r.order, d.Name)
	}
	r.entries[d.Name] = d
}

// Remove deletes name and reports whether it was present.
func (r *Registry) Remove(name string) bool {
	if _, ok := r.entries[name]; !ok {
		return false
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Names returns plugin names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Descriptors returns all descriptors in registry order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	return len(r.order)
}

// FindByArtifact returns the descriptor whose artifact file is file.
func (r *Registry) FindByArtifact(file string) (Descriptor, bool) {
	for _, name := range r.order {
		if d := r.entries[name]; d.ArtifactPath == file {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Clone returns a deep copy.
func (r *Registry) Clone() *Registry {
	c := New()
	for _, d := range r.Descriptors() {
		c.Put(d)
	}
	return c
}

// Equal reports whether both registries hold the same descriptors in the same order.
func (r *Registry) Equal(other *Registry) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.order) != len(other.order) {
		return false
	}
	for i, name := range r.order {
		if other.order[i] != name || other.entries[name] != r.entries[name] {
			return false
		}
	}
	return true
}
