package ecs

import (
	"fmt"
	"time"
)

// System is a behavior unit run once per frame over every entity whose
// signature contains the system's required signature.
//
// entities is a per-frame copy of the membership set; its order is
// unspecified and the system may reorder it. Structural changes made from
// inside Update must go through the Enqueue* methods.
type System interface {
	Update(f *Frame, entities []Entity)
}

// SystemFunc adapts a plain function to System.
type SystemFunc func(f *Frame, entities []Entity)

func (fn SystemFunc) Update(f *Frame, entities []Entity) { fn(f, entities) }

// Frame is handed to every system during UpdateSystems.
type Frame struct {
	Coordinator *Coordinator
	Delta       time.Duration
	Number      uint64
}

// SystemID identifies a registered system, in registration order.
type SystemID int

// EntitySet is a sparse/dense set of live handles keyed by arena index.
type EntitySet struct {
	dense  []Entity
	sparse []int32
}

func NewEntitySet(capacity int) *EntitySet {
	s := &EntitySet{
		dense:  make([]Entity, 0, capacity),
		sparse: make([]int32, capacity),
	}
	for i := range s.sparse {
		s.sparse[i] = noSlot
	}
	return s
}

func (s *EntitySet) Contains(e Entity) bool {
	idx := e.Index()
	if int(idx) >= len(s.sparse) {
		return false
	}
	pos := s.sparse[idx]
	return pos != noSlot && s.dense[pos] == e
}

func (s *EntitySet) Insert(e Entity) {
	if s.Contains(e) {
		return
	}
	s.sparse[e.Index()] = int32(len(s.dense))
	s.dense = append(s.dense, e)
}

// Remove swap-removes e.
func (s *EntitySet) Remove(e Entity) {
	if !s.Contains(e) {
		return
	}
	pos := s.sparse[e.Index()]
	last := len(s.dense) - 1
	moved := s.dense[last]
	s.dense[pos] = moved
	s.sparse[moved.Index()] = pos
	s.dense = s.dense[:last]
	s.sparse[e.Index()] = noSlot
}

func (s *EntitySet) Len() int { return len(s.dense) }

// AppendTo appends the members to dst and returns it.
func (s *EntitySet) AppendTo(dst []Entity) []Entity {
	return append(dst, s.dense...)
}

type systemEntry struct {
	name     string
	sys      System
	required Signature
	members  *EntitySet
	scratch  []Entity
}

// SystemRegistry keeps one membership set per system up to date as
// signatures change. Each event costs O(number of systems).
type SystemRegistry struct {
	capacity int
	systems  []*systemEntry
}

func NewSystemRegistry(capacity int) *SystemRegistry {
	return &SystemRegistry{
		capacity: capacity,
		systems:  make([]*systemEntry, 0, 16),
	}
}

func (r *SystemRegistry) register(name string, sys System, required Signature) SystemID {
	r.systems = append(r.systems, &systemEntry{
		name:     name,
		sys:      sys,
		required: required,
		members:  NewEntitySet(r.capacity),
	})
	return SystemID(len(r.systems) - 1)
}

// seed admits an entity that existed before the system was registered.
func (r *SystemRegistry) seed(id SystemID, e Entity, sig Signature) {
	entry := r.systems[id]
	if sig.Contains(entry.required) {
		entry.members.Insert(e)
	}
}

func (r *SystemRegistry) signatureChanged(e Entity, sig Signature) {
	for _, entry := range r.systems {
		if sig.Contains(entry.required) {
			entry.members.Insert(e)
		} else {
			entry.members.Remove(e)
		}
	}
}

func (r *SystemRegistry) entityDestroyed(e Entity) {
	for _, entry := range r.systems {
		entry.members.Remove(e)
	}
}

func (r *SystemRegistry) entry(id SystemID) (*systemEntry, error) {
	if id < 0 || int(id) >= len(r.systems) {
		return nil, fmt.Errorf("system %d: not registered", id)
	}
	return r.systems[id], nil
}

func (r *SystemRegistry) Len() int { return len(r.systems) }
