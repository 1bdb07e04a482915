package ecs

// Each2 visits every entity in entities with its A and B values. Every entity
// must carry both, as system members do.
func Each2[A, B any](entities []Entity, a Accessor[A], b Accessor[B], fn func(Entity, *A, *B)) {
	for _, e := range entities {
		fn(e, a.Get(e), b.Get(e))
	}
}

// Each3 is Each2 for three component types.
func Each3[A, B, C any](entities []Entity, a Accessor[A], b Accessor[B], c Accessor[C], fn func(Entity, *A, *B, *C)) {
	for _, e := range entities {
		fn(e, a.Get(e), b.Get(e), c.Get(e))
	}
}

// Matching collects every live entity whose signature contains required. It
// scans all entities and is meant for diagnostics and tests, not per-frame use.
func (co *Coordinator) Matching(required Signature) []Entity {
	var out []Entity
	co.entities.Each(func(e Entity, sig Signature) {
		if sig.Contains(required) {
			out = append(out, e)
		}
	})
	return out
}
