package persona

// Store exposes persona retrieval for handlers and the chat service.
type Store interface {
	List() []Persona
	Find(key string) (Persona, bool)
	FindOrDefault(key string) Persona
}

// MemoryStore implements Store with an in-memory slice. The persona table is
// static, so there is no mutation path and reads need no synchronization.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the predefined persona list in seed order.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// Find looks up a persona by key.
func (s *MemoryStore) Find(key string) (Persona, bool) {
	for _, item := range s.items {
		if item.Key == key {
			return item, true
		}
	}
	return Persona{}, false
}

// FindOrDefault looks up a persona by key, falling back to the default entry
// when the key is unknown or empty.
func (s *MemoryStore) FindOrDefault(key string) Persona {
	if p, ok := s.Find(key); ok {
		return p
	}
	p, _ := s.Find(DefaultKey)
	return p
}
