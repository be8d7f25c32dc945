package persona

// Store exposes persona retrieval for HTTP handlers and the orchestrator.
type Store interface {
	List() []Persona
	FindByName(name string) (Persona, bool)
	ResolveVariant(name string) string
}

// MemoryStore implements Store with an in-memory slice; the persona set is
// static configuration, not database-backed.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the predefined persona list.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByName looks up a persona by display name.
func (s *MemoryStore) FindByName(name string) (Persona, bool) {
	for _, item := range s.items {
		if item.Name == name {
			return item, true
		}
	}
	return Persona{}, false
}

// ResolveVariant maps a persona display name to its backend variant
// identifier, falling back to DefaultVariant for unrecognized names.
func (s *MemoryStore) ResolveVariant(name string) string {
	if p, ok := s.FindByName(name); ok {
		return p.Variant
	}
	return DefaultVariant
}
