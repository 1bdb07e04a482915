package ecs

import "fmt"

// Entity encodes a 32-bit arena index in the lower bits and a 32-bit generation
// in the upper bits. Generations start at 1, so the zero value is never issued.
type Entity uint64

// NoEntity is the reserved "invalid / none" handle.
const NoEntity Entity = 0

// MaxEntities is the largest capacity a registry accepts.
const MaxEntities = 1 << 24

func NewEntity(index uint32, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

func (e Entity) Index() uint32      { return uint32(e) }
func (e Entity) Generation() uint32 { return uint32(e >> 32) }
func (e Entity) IsZero() bool       { return e == NoEntity }

func (e Entity) String() string {
	if e.IsZero() {
		return "Entity(none)"
	}
	return fmt.Sprintf("Entity(%d:%d)", e.Index(), e.Generation())
}

// EntityRegistry allocates entity handles from a fixed-capacity arena with a
// free list, and owns each live entity's component signature.
type EntityRegistry struct {
	generations []uint32
	signatures  []Signature
	alive       []bool
	freeList    []uint32
	nextIndex   uint32
	count       int
}

// NewEntityRegistry pre-sizes every per-entity array to capacity.
func NewEntityRegistry(capacity int) (*EntityRegistry, error) {
	if capacity <= 0 || capacity > MaxEntities {
		return nil, fmt.Errorf("entity capacity %d: %w", capacity, ErrInvalidCapacity)
	}
	r := &EntityRegistry{
		generations: make([]uint32, capacity),
		signatures:  make([]Signature, capacity),
		alive:       make([]bool, capacity),
		freeList:    make([]uint32, 0, capacity),
	}
	for i := range r.generations {
		r.generations[i] = 1
	}
	return r, nil
}

// Create issues a handle with an empty signature. At capacity it returns
// ErrCapacityExceeded and leaves the registry untouched.
func (r *EntityRegistry) Create() (Entity, error) {
	var idx uint32
	switch {
	case len(r.freeList) > 0:
		idx = r.freeList[len(r.freeList)-1]
		r.freeList = r.freeList[:len(r.freeList)-1]
	case int(r.nextIndex) < len(r.generations):
		idx = r.nextIndex
		r.nextIndex++
	default:
		return NoEntity, fmt.Errorf("create entity (capacity %d): %w", len(r.generations), ErrCapacityExceeded)
	}
	r.alive[idx] = true
	r.signatures[idx] = Signature{}
	r.count++
	return NewEntity(idx, r.generations[idx]), nil
}

// Destroy clears the signature and recycles the index. The generation bump
// turns every outstanding copy of the handle stale.
func (r *EntityRegistry) Destroy(e Entity) error {
	if !r.Alive(e) {
		return fmt.Errorf("destroy %v: %w", e, ErrUnknownEntity)
	}
	idx := e.Index()
	r.signatures[idx] = Signature{}
	r.alive[idx] = false
	r.generations[idx]++
	if r.generations[idx] == 0 {
		r.generations[idx] = 1 // wrapped
	}
	r.freeList = append(r.freeList, idx)
	r.count--
	return nil
}

func (r *EntityRegistry) Alive(e Entity) bool {
	idx := e.Index()
	if e.IsZero() || idx >= r.nextIndex {
		return false
	}
	return r.alive[idx] && r.generations[idx] == e.Generation()
}

func (r *EntityRegistry) Signature(e Entity) (Signature, error) {
	if !r.Alive(e) {
		return Signature{}, fmt.Errorf("signature of %v: %w", e, ErrUnknownEntity)
	}
	return r.signatures[e.Index()], nil
}

// setSignatureBit is only called by the Coordinator while routing a component
// add or remove, after the owning store has already been mutated.
func (r *EntityRegistry) setSignatureBit(e Entity, t ComponentType, on bool) Signature {
	sig := &r.signatures[e.Index()]
	if on {
		sig.Set(t)
	} else {
		sig.Clear(t)
	}
	return *sig
}

// Len returns the number of live entities.
func (r *EntityRegistry) Len() int { return r.count }

func (r *EntityRegistry) Capacity() int { return len(r.generations) }

// Each visits every live entity in index order.
func (r *EntityRegistry) Each(fn func(Entity, Signature)) {
	for i := uint32(0); i < r.nextIndex; i++ {
		if r.alive[i] {
			fn(NewEntity(i, r.generations[i]), r.signatures[i])
		}
	}
}
