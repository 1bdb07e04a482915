package ecs

import "fmt"

// DestroyListener is implemented by every component store so the catalog can
// drop an entity's record from stores of any value type.
type DestroyListener interface {
	EntityDestroyed(e Entity)
}

const noSlot = -1

// ComponentStore is the dense storage for one component type. Values live in
// a packed array sized to the entity capacity up front; slots are contiguous in
// [0, Len()) and never exposed to callers.
type ComponentStore[T any] struct {
	name         string
	data         []T
	slotToEntity []Entity
	entityToSlot []int32 // by entity index, noSlot when absent
	size         int
}

func NewComponentStore[T any](name string, capacity int) *ComponentStore[T] {
	s := &ComponentStore[T]{
		name:         name,
		data:         make([]T, capacity),
		slotToEntity: make([]Entity, capacity),
		entityToSlot: make([]int32, capacity),
	}
	for i := range s.entityToSlot {
		s.entityToSlot[i] = noSlot
	}
	return s
}

func (s *ComponentStore[T]) slot(e Entity) int32 {
	idx := e.Index()
	if int(idx) >= len(s.entityToSlot) {
		return noSlot
	}
	slot := s.entityToSlot[idx]
	if slot == noSlot || s.slotToEntity[slot] != e {
		return noSlot
	}
	return slot
}

// Add places v in the next free slot.
func (s *ComponentStore[T]) Add(e Entity, v T) error {
	idx := e.Index()
	if int(idx) >= len(s.entityToSlot) {
		return fmt.Errorf("add %s to %v: %w", s.name, e, ErrCapacityExceeded)
	}
	if s.entityToSlot[idx] != noSlot {
		return fmt.Errorf("add %s to %v: %w", s.name, e, ErrDuplicateComponent)
	}
	slot := s.size
	s.data[slot] = v
	s.slotToEntity[slot] = e
	s.entityToSlot[idx] = int32(slot)
	s.size++
	return nil
}

// Remove swap-removes e's record: the last record moves into the vacated slot.
// Dense order is not preserved.
func (s *ComponentStore[T]) Remove(e Entity) error {
	slot := s.slot(e)
	if slot == noSlot {
		return fmt.Errorf("remove %s from %v: %w", s.name, e, ErrMissingComponent)
	}
	s.removeSlot(slot)
	return nil
}

func (s *ComponentStore[T]) removeSlot(slot int32) {
	last := int32(s.size - 1)
	removed := s.slotToEntity[slot]
	if slot != last {
		moved := s.slotToEntity[last]
		s.data[slot] = s.data[last]
		s.slotToEntity[slot] = moved
		s.entityToSlot[moved.Index()] = slot
	}
	var zero T
	s.data[last] = zero
	s.slotToEntity[last] = NoEntity
	s.entityToSlot[removed.Index()] = noSlot
	s.size--
}

// Get returns a pointer into the dense array. The pointer stays valid until
// the next structural change to this store.
func (s *ComponentStore[T]) Get(e Entity) (*T, error) {
	slot := s.slot(e)
	if slot == noSlot {
		return nil, fmt.Errorf("get %s of %v: %w", s.name, e, ErrMissingComponent)
	}
	return &s.data[slot], nil
}

// At is the unchecked fast path. Callers must already know e holds a record,
// usually from the signature or system membership; otherwise it panics.
func (s *ComponentStore[T]) At(e Entity) *T {
	return &s.data[s.entityToSlot[e.Index()]]
}

func (s *ComponentStore[T]) Has(e Entity) bool {
	return s.slot(e) != noSlot
}

func (s *ComponentStore[T]) Len() int { return s.size }

func (s *ComponentStore[T]) Name() string { return s.name }

// Each visits records in dense order. fn must not add or remove records.
func (s *ComponentStore[T]) Each(fn func(Entity, *T)) {
	for i := 0; i < s.size; i++ {
		fn(s.slotToEntity[i], &s.data[i])
	}
}

// EntityDestroyed removes e's record if there is one.
func (s *ComponentStore[T]) EntityDestroyed(e Entity) {
	if slot := s.slot(e); slot != noSlot {
		s.removeSlot(slot)
	}
}

var _ DestroyListener = (*ComponentStore[struct{}])(nil)
