package ecs

// Slots is a generational slot map: values are addressed by the ID returned
// from Insert, and lookups with an ID whose slot has since been freed miss.
type Slots[T any] struct {
	pool *Pool
	data map[uint32]T
}

func NewSlots[T any]() *Slots[T] {
	return &Slots[T]{
		pool: NewPool(),
		data: make(map[uint32]T, 16),
	}
}

func (s *Slots[T]) Insert(v T) ID {
	id := s.pool.Create()
	s.data[id.Index()] = v
	return id
}

func (s *Slots[T]) Get(id ID) (T, bool) {
	if !s.pool.Alive(id) {
		var zero T
		return zero, false
	}
	v, ok := s.data[id.Index()]
	return v, ok
}

// Remove frees the slot and returns the value it held.
func (s *Slots[T]) Remove(id ID) (T, bool) {
	var zero T
	if !s.pool.Destroy(id) {
		return zero, false
	}
	v := s.data[id.Index()]
	delete(s.data, id.Index())
	return v, true
}

func (s *Slots[T]) Has(id ID) bool {
	return s.pool.Alive(id)
}

func (s *Slots[T]) Len() int {
	return len(s.data)
}

// Each visits live values in no particular order.
func (s *Slots[T]) Each(fn func(T)) {
	for _, v := range s.data {
		fn(v)
	}
}
