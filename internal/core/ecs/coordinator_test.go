package ecs

import (
	"errors"
	"math/rand"
	"slices"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type testWorld struct {
	co    *Coordinator
	posID ComponentType
	velID ComponentType
	hpID  ComponentType
}

func newTestWorld(t *testing.T, capacity int) testWorld {
	t.Helper()
	co, err := NewCoordinator(capacity, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	w := testWorld{co: co}
	if w.posID, err = RegisterComponent[Position](co); err != nil {
		t.Fatalf("register Position: %v", err)
	}
	if w.velID, err = RegisterComponent[Velocity](co); err != nil {
		t.Fatalf("register Velocity: %v", err)
	}
	if w.hpID, err = RegisterComponent[Health](co); err != nil {
		t.Fatalf("register Health: %v", err)
	}
	return w
}

func noop() System { return SystemFunc(func(*Frame, []Entity) {}) }

func sorted(es []Entity) []Entity {
	out := slices.Clone(es)
	slices.Sort(out)
	return out
}

func TestRegisterComponentIdempotent(t *testing.T) {
	w := newTestWorld(t, 4)
	again, err := RegisterComponent[Position](w.co)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if again != w.posID {
		t.Fatalf("re-register changed id %d -> %d", w.posID, again)
	}
	if w.posID != 0 || w.velID != 1 || w.hpID != 2 {
		t.Fatalf("ids not assigned in registration order: %d %d %d", w.posID, w.velID, w.hpID)
	}
	if got, _ := TypeID[Velocity](w.co); got != w.velID {
		t.Fatalf("TypeID = %d, want %d", got, w.velID)
	}
	if _, err := TypeID[string](w.co); !errors.Is(err, ErrUnregisteredType) {
		t.Fatalf("TypeID of unregistered type: got %v", err)
	}
	if name := w.co.ComponentName(w.posID); name != "ecs.Position" {
		t.Fatalf("ComponentName = %q", name)
	}
}

func TestRegistrationClosesOnFirstEntity(t *testing.T) {
	w := newTestWorld(t, 4)
	if _, err := w.co.CreateEntity(); err != nil {
		t.Fatalf("create: %v", err)
	}
	type Late struct{}
	if _, err := RegisterComponent[Late](w.co); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("late registration: got %v", err)
	}
	// Already-registered types stay usable.
	if _, err := RegisterComponent[Position](w.co); err != nil {
		t.Fatalf("re-register after close: %v", err)
	}
}

func TestUnregisteredTypeOperations(t *testing.T) {
	w := newTestWorld(t, 4)
	e, _ := w.co.CreateEntity()
	type Unknown struct{}
	if err := AddComponent(w.co, e, Unknown{}); !errors.Is(err, ErrUnregisteredType) {
		t.Errorf("add: got %v", err)
	}
	if _, err := GetComponent[Unknown](w.co, e); !errors.Is(err, ErrUnregisteredType) {
		t.Errorf("get: got %v", err)
	}
	if HasComponent[Unknown](w.co, e) {
		t.Errorf("has reported true")
	}
	if _, err := AccessorFor[Unknown](w.co); !errors.Is(err, ErrUnregisteredType) {
		t.Errorf("accessor: got %v", err)
	}
	if _, err := w.co.RegisterSystem("bad", noop(), ComponentType(50)); !errors.Is(err, ErrUnregisteredType) {
		t.Errorf("register system: got %v", err)
	}
}

func TestAddGetRoundTrip(t *testing.T) {
	w := newTestWorld(t, 4)
	e, _ := w.co.CreateEntity()
	want := Position{X: 3.5, Y: -1}
	if err := AddComponent(w.co, e, want); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := GetComponent[Position](w.co, e)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *got != want {
		t.Fatalf("got %+v, want %+v", *got, want)
	}
	if !HasComponent[Position](w.co, e) || HasComponent[Velocity](w.co, e) {
		t.Fatalf("HasComponent disagrees with what was added")
	}
	if err := AddComponent(w.co, e, Position{}); !errors.Is(err, ErrDuplicateComponent) {
		t.Fatalf("duplicate add: got %v", err)
	}
	if got, _ := GetComponent[Position](w.co, e); *got != want {
		t.Fatalf("duplicate add overwrote value: %+v", *got)
	}
	if _, err := GetComponent[Velocity](w.co, e); !errors.Is(err, ErrMissingComponent) {
		t.Fatalf("get missing: got %v", err)
	}
	if err := RemoveComponent[Velocity](w.co, e); !errors.Is(err, ErrMissingComponent) {
		t.Fatalf("remove missing: got %v", err)
	}
}

func TestOperationsOnDeadEntity(t *testing.T) {
	w := newTestWorld(t, 4)
	e, _ := w.co.CreateEntity(With(Position{}))
	if err := w.co.DestroyEntity(e); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	checks := map[string]error{
		"add":     AddComponent(w.co, e, Velocity{}),
		"remove":  RemoveComponent[Position](w.co, e),
		"destroy": w.co.DestroyEntity(e),
	}
	_, checks["get"] = GetComponent[Position](w.co, e)
	_, checks["signature"] = w.co.Signature(e)
	for op, err := range checks {
		if !errors.Is(err, ErrUnknownEntity) {
			t.Errorf("%s on dead entity: got %v", op, err)
		}
	}
	if HasComponent[Position](w.co, e) {
		t.Errorf("dead entity has a component")
	}
	if _, err := GetComponent[Position](w.co, NoEntity); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("get on NoEntity: got %v", err)
	}
}

func TestRemoveLeavesOthersUnchanged(t *testing.T) {
	w := newTestWorld(t, 16)
	var ents []Entity
	for i := 0; i < 6; i++ {
		e, err := w.co.CreateEntity(With(Position{X: float64(i), Y: float64(10 * i)}))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ents = append(ents, e)
	}
	if err := RemoveComponent[Position](w.co, ents[0]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if HasComponent[Position](w.co, ents[0]) {
		t.Fatalf("component still present after remove")
	}
	for i, e := range ents[1:] {
		p, err := GetComponent[Position](w.co, e)
		if err != nil {
			t.Fatalf("get %v: %v", e, err)
		}
		if want := (Position{X: float64(i + 1), Y: float64(10 * (i + 1))}); *p != want {
			t.Errorf("entity %v value %+v, want %+v", e, *p, want)
		}
	}
}

func TestCreateEntityAllOrNothing(t *testing.T) {
	w := newTestWorld(t, 4)
	type Unknown struct{}
	e, err := w.co.CreateEntity(With(Position{X: 1}), With(Unknown{}))
	if !errors.Is(err, ErrUnregisteredType) {
		t.Fatalf("expected ErrUnregisteredType, got %v", err)
	}
	if e != NoEntity {
		t.Fatalf("failed create returned %v", e)
	}
	if w.co.EntityCount() != 0 {
		t.Fatalf("half-built entity left alive")
	}
	pos, _ := AccessorFor[Position](w.co)
	if pos.Len() != 0 {
		t.Fatalf("Position record leaked from rolled-back entity")
	}

	if _, err := w.co.CreateEntity(With(Position{}), With(Position{})); !errors.Is(err, ErrDuplicateComponent) {
		t.Fatalf("duplicate in create: got %v", err)
	}
	if w.co.EntityCount() != 0 || pos.Len() != 0 {
		t.Fatalf("duplicate create left state behind")
	}
}

func TestCapacityBoundary(t *testing.T) {
	const limit = 5
	w := newTestWorld(t, limit)
	var ents []Entity
	for i := 0; i < limit; i++ {
		e, err := w.co.CreateEntity(With(Health{Current: i}))
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ents = append(ents, e)
	}
	if _, err := w.co.CreateEntity(With(Health{Current: 99})); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("create past capacity: got %v", err)
	}
	if w.co.EntityCount() != limit {
		t.Fatalf("live count %d", w.co.EntityCount())
	}
	for i, e := range ents {
		h, err := GetComponent[Health](w.co, e)
		if err != nil || h.Current != i {
			t.Fatalf("entity %d damaged by failed create: %+v %v", i, h, err)
		}
	}
	_ = w.co.DestroyEntity(ents[2])
	if _, err := w.co.CreateEntity(); err != nil {
		t.Fatalf("create after free: %v", err)
	}
}

func TestDestroyIdempotent(t *testing.T) {
	w := newTestWorld(t, 4)
	sys, _ := w.co.RegisterSystem("pos", noop(), w.posID)
	a, _ := w.co.CreateEntity(With(Position{}), With(Velocity{}))
	b, _ := w.co.CreateEntity(With(Position{X: 2}))
	if err := w.co.DestroyEntity(a); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	pos, _ := AccessorFor[Position](w.co)
	before := pos.Len()
	if err := w.co.DestroyEntity(a); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("second destroy: got %v", err)
	}
	if pos.Len() != before || w.co.EntityCount() != 1 {
		t.Fatalf("second destroy had side effects")
	}
	members, _ := w.co.Members(sys)
	if len(members) != 1 || members[0] != b {
		t.Fatalf("members after double destroy: %v", members)
	}
	// A recycled index must not be killed by the stale handle.
	c, _ := w.co.CreateEntity(With(Position{}))
	if c.Index() != a.Index() {
		t.Fatalf("expected recycled index")
	}
	if err := w.co.DestroyEntity(a); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("stale destroy: got %v", err)
	}
	if !w.co.Alive(c) {
		t.Fatalf("stale destroy killed the recycled entity")
	}
}

func TestPositionVelocityScenario(t *testing.T) {
	w := newTestWorld(t, 8)
	moving, err := w.co.RegisterSystem("movement", noop(), w.posID, w.velID)
	if err != nil {
		t.Fatalf("register system: %v", err)
	}
	a, _ := w.co.CreateEntity(With(Position{X: 1, Y: 1}), With(Velocity{X: 1}))
	b, _ := w.co.CreateEntity(With(Position{X: 5, Y: 6}))

	members, _ := w.co.Members(moving)
	if !slices.Contains(members, a) || slices.Contains(members, b) {
		t.Fatalf("want A in and B out, got %v", members)
	}

	if err := RemoveComponent[Velocity](w.co, a); err != nil {
		t.Fatalf("remove velocity: %v", err)
	}
	members, _ = w.co.Members(moving)
	if slices.Contains(members, a) {
		t.Fatalf("A still a member without Velocity")
	}

	pos, _ := AccessorFor[Position](w.co)
	before := pos.Len()
	if err := w.co.DestroyEntity(a); err != nil {
		t.Fatalf("destroy A: %v", err)
	}
	if pos.Len() != before-1 {
		t.Fatalf("Position store size %d, want %d", pos.Len(), before-1)
	}
	p, err := GetComponent[Position](w.co, b)
	if err != nil {
		t.Fatalf("B lost its Position: %v", err)
	}
	if *p != (Position{X: 5, Y: 6}) {
		t.Fatalf("B's Position changed to %+v", *p)
	}
}

func TestSystemRegisteredAfterEntities(t *testing.T) {
	w := newTestWorld(t, 8)
	a, _ := w.co.CreateEntity(With(Health{}))
	_, _ = w.co.CreateEntity(With(Position{}))
	id, err := w.co.RegisterSystem("health", noop(), w.hpID)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	members, _ := w.co.Members(id)
	if len(members) != 1 || members[0] != a {
		t.Fatalf("seeded members %v, want [%v]", members, a)
	}
	all, _ := w.co.RegisterSystem("all", noop())
	if members, _ := w.co.Members(all); len(members) != 2 {
		t.Fatalf("empty signature system should see every entity, got %v", members)
	}
}

// checkInvariants cross-checks signatures, stores and memberships against a
// brute-force scan.
func checkInvariants(t *testing.T, w testWorld, systems map[SystemID]Signature) {
	t.Helper()
	co := w.co
	pos := co.catalog.stores[w.posID].(*ComponentStore[Position])
	vel := co.catalog.stores[w.velID].(*ComponentStore[Velocity])
	hp := co.catalog.stores[w.hpID].(*ComponentStore[Health])
	checkStore(t, pos)
	checkStore(t, vel)
	checkStore(t, hp)

	counts := map[ComponentType]int{}
	co.entities.Each(func(e Entity, sig Signature) {
		for id, has := range map[ComponentType]bool{
			w.posID: pos.Has(e),
			w.velID: vel.Has(e),
			w.hpID:  hp.Has(e),
		} {
			if sig.Has(id) != has {
				t.Fatalf("%v: signature bit %d = %v, store has = %v", e, id, sig.Has(id), has)
			}
			if has {
				counts[id]++
			}
		}
	})
	if counts[w.posID] != pos.Len() || counts[w.velID] != vel.Len() || counts[w.hpID] != hp.Len() {
		t.Fatalf("stores hold records for dead entities: %v vs %d/%d/%d", counts, pos.Len(), vel.Len(), hp.Len())
	}
	for id, required := range systems {
		got, _ := co.Members(id)
		want := co.Matching(required)
		if !slices.Equal(sorted(got), sorted(want)) {
			t.Fatalf("system %d members %v, oracle %v", id, sorted(got), sorted(want))
		}
	}
}

func TestRandomizedInvariants(t *testing.T) {
	const capacity = 32
	w := newTestWorld(t, capacity)
	systems := map[SystemID]Signature{}
	for _, req := range [][]ComponentType{
		{w.posID, w.velID},
		{w.hpID},
		{},
		{w.posID, w.velID, w.hpID},
	} {
		id, err := w.co.RegisterSystem("s", noop(), req...)
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		systems[id] = NewSignature(req...)
	}

	rng := rand.New(rand.NewSource(7))
	var handles []Entity
	pick := func() Entity {
		if len(handles) == 0 {
			return NoEntity
		}
		return handles[rng.Intn(len(handles))]
	}
	for step := 0; step < 3000; step++ {
		e := pick()
		var err error
		switch rng.Intn(8) {
		case 0:
			var ne Entity
			ne, err = w.co.CreateEntity()
			if err == nil {
				handles = append(handles, ne)
			}
		case 1:
			err = AddComponent(w.co, e, Position{X: float64(step)})
		case 2:
			err = AddComponent(w.co, e, Velocity{Y: float64(step)})
		case 3:
			err = AddComponent(w.co, e, Health{Current: step})
		case 4:
			err = RemoveComponent[Position](w.co, e)
		case 5:
			err = RemoveComponent[Velocity](w.co, e)
		case 6:
			err = RemoveComponent[Health](w.co, e)
		case 7:
			err = w.co.DestroyEntity(e)
		}
		if err != nil &&
			!errors.Is(err, ErrUnknownEntity) &&
			!errors.Is(err, ErrDuplicateComponent) &&
			!errors.Is(err, ErrMissingComponent) &&
			!errors.Is(err, ErrCapacityExceeded) {
			t.Fatalf("step %d: unexpected error %v", step, err)
		}
		checkInvariants(t, w, systems)
	}
}

func TestDeferredDestructionVisitsEveryone(t *testing.T) {
	w := newTestWorld(t, 64)
	const n = 20
	for i := 0; i < n; i++ {
		if _, err := w.co.CreateEntity(With(Position{X: float64(i)}), With(Health{Current: i % 2})); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	visits := map[Entity]int{}
	var directErr error
	hp, _ := AccessorFor[Health](w.co)
	cull := SystemFunc(func(f *Frame, entities []Entity) {
		for _, e := range entities {
			visits[e]++
			if hp.Get(e).Current == 0 {
				if err := f.Coordinator.EnqueueDestroyEntity(e); err != nil {
					t.Errorf("enqueue: %v", err)
				}
				// Queuing twice is harmless.
				_ = f.Coordinator.EnqueueDestroyEntity(e)
			}
		}
		directErr = f.Coordinator.DestroyEntity(entities[0])
		if f.Coordinator.PendingOps() != n/2 {
			t.Errorf("pending ops %d, want %d", f.Coordinator.PendingOps(), n/2)
		}
	})
	id, _ := w.co.RegisterSystem("cull", cull, w.posID, w.hpID)
	if err := w.co.UpdateSystems(16 * time.Millisecond); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !errors.Is(directErr, ErrLocked) {
		t.Fatalf("direct destroy during update: got %v", directErr)
	}
	if len(visits) != n {
		t.Fatalf("visited %d entities, want %d", len(visits), n)
	}
	for e, c := range visits {
		if c != 1 {
			t.Fatalf("%v visited %d times", e, c)
		}
	}
	members, _ := w.co.Members(id)
	if len(members) != n/2 || w.co.EntityCount() != n/2 {
		t.Fatalf("after flush: %d members, %d live", len(members), w.co.EntityCount())
	}
	if w.co.PendingOps() != 0 {
		t.Fatalf("queue not drained")
	}
}

func TestDeferredComponentOpsAndCreates(t *testing.T) {
	w := newTestWorld(t, 16)
	a, _ := w.co.CreateEntity(With(Position{}))
	b, _ := w.co.CreateEntity(With(Position{}))
	var locked bool
	once := SystemFunc(func(f *Frame, entities []Entity) {
		if f.Number != 1 {
			return
		}
		co := f.Coordinator
		locked = co.Updating()
		if err := AddComponent(co, a, Velocity{}); !errors.Is(err, ErrLocked) {
			t.Errorf("direct add: got %v", err)
		}
		if err := EnqueueAddComponent(co, a, Velocity{X: 4}); err != nil {
			t.Errorf("enqueue add: %v", err)
		}
		if HasComponent[Velocity](co, a) {
			t.Errorf("queued add applied early")
		}
		if err := EnqueueRemoveComponent[Position](co, b); err != nil {
			t.Errorf("enqueue remove: %v", err)
		}
		// b also gets destroyed, so its queued change is dropped.
		if err := co.EnqueueDestroyEntity(b); err != nil {
			t.Errorf("enqueue destroy: %v", err)
		}
		if err := EnqueueAddComponent(co, b, Health{}); err != nil {
			t.Errorf("enqueue add to doomed: %v", err)
		}
		if err := co.EnqueueCreateEntity(With(Position{X: 42})); err != nil {
			t.Errorf("enqueue create: %v", err)
		}
		if _, err := co.CreateEntity(); !errors.Is(err, ErrLocked) {
			t.Errorf("direct create: got %v", err)
		}
	})
	if _, err := w.co.RegisterSystem("once", once, w.posID); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := w.co.UpdateSystems(time.Millisecond); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !locked {
		t.Fatalf("coordinator not locked during update")
	}
	if w.co.Updating() {
		t.Fatalf("coordinator still locked after update")
	}
	v, err := GetComponent[Velocity](w.co, a)
	if err != nil || v.X != 4 {
		t.Fatalf("queued add not applied: %+v %v", v, err)
	}
	if w.co.Alive(b) {
		t.Fatalf("queued destroy not applied")
	}
	if w.co.EntityCount() != 2 {
		t.Fatalf("live %d, want 2 (a + queued create)", w.co.EntityCount())
	}
}

func TestEnqueueOutsideUpdateAppliesImmediately(t *testing.T) {
	w := newTestWorld(t, 4)
	e, _ := w.co.CreateEntity()
	if err := EnqueueAddComponent(w.co, e, Health{Current: 3}); err != nil {
		t.Fatalf("enqueue add: %v", err)
	}
	if !HasComponent[Health](w.co, e) {
		t.Fatalf("add not applied")
	}
	if err := EnqueueRemoveComponent[Health](w.co, e); err != nil {
		t.Fatalf("enqueue remove: %v", err)
	}
	if err := w.co.EnqueueCreateEntity(With(Position{})); err != nil {
		t.Fatalf("enqueue create: %v", err)
	}
	if err := w.co.EnqueueDestroyEntity(e); err != nil {
		t.Fatalf("enqueue destroy: %v", err)
	}
	if w.co.Alive(e) || w.co.EntityCount() != 1 {
		t.Fatalf("unexpected state: alive=%v count=%d", w.co.Alive(e), w.co.EntityCount())
	}
}

func TestUpdateSystemsOrderAndErrors(t *testing.T) {
	w := newTestWorld(t, 4)
	var order []string
	var frames []uint64
	mk := func(name string) System {
		return SystemFunc(func(f *Frame, _ []Entity) {
			order = append(order, name)
			frames = append(frames, f.Number)
			if f.Delta != 5*time.Millisecond {
				t.Errorf("delta %v", f.Delta)
			}
		})
	}
	_, _ = w.co.RegisterSystem("first", mk("first"))
	e, _ := w.co.CreateEntity(With(Position{}))
	failing := SystemFunc(func(f *Frame, _ []Entity) {
		_ = EnqueueAddComponent(f.Coordinator, e, Velocity{})
		_ = EnqueueAddComponent(f.Coordinator, e, Velocity{})
	})
	_, _ = w.co.RegisterSystem("dup", failing)
	_, _ = w.co.RegisterSystem("last", mk("last"))

	err := w.co.UpdateSystems(5 * time.Millisecond)
	if !errors.Is(err, ErrDuplicateComponent) {
		t.Fatalf("expected flush error to surface, got %v", err)
	}
	if !slices.Equal(order, []string{"first", "last"}) {
		t.Fatalf("order %v", order)
	}
	_ = w.co.UpdateSystems(5 * time.Millisecond)
	if frames[len(frames)-1] != 2 {
		t.Fatalf("frame counter %v", frames)
	}
}

func TestMembersCopyIsSafeToSort(t *testing.T) {
	w := newTestWorld(t, 8)
	for i := 0; i < 5; i++ {
		_, _ = w.co.CreateEntity(With(Position{}))
	}
	reorder := SystemFunc(func(_ *Frame, entities []Entity) {
		slices.Reverse(entities)
	})
	id, _ := w.co.RegisterSystem("reorder", reorder, w.posID)
	_ = w.co.UpdateSystems(time.Millisecond)
	members, _ := w.co.Members(id)
	for _, e := range members {
		if !w.co.systems.systems[id].members.Contains(e) {
			t.Fatalf("membership index corrupted by consumer reorder")
		}
	}
	if len(members) != 5 {
		t.Fatalf("members %d", len(members))
	}
}

func TestEach2(t *testing.T) {
	w := newTestWorld(t, 8)
	for i := 0; i < 3; i++ {
		_, _ = w.co.CreateEntity(With(Position{X: float64(i)}), With(Velocity{X: 1, Y: 2}))
	}
	pos, _ := AccessorFor[Position](w.co)
	vel, _ := AccessorFor[Velocity](w.co)
	move := SystemFunc(func(f *Frame, entities []Entity) {
		Each2(entities, pos, vel, func(_ Entity, p *Position, v *Velocity) {
			p.X += v.X
			p.Y += v.Y
		})
	})
	_, _ = w.co.RegisterSystem("move", move, pos.Type(), vel.Type())
	_ = w.co.UpdateSystems(time.Millisecond)
	sum := 0.0
	pos.Each(func(_ Entity, p *Position) {
		if p.Y != 2 {
			t.Errorf("Y = %v", p.Y)
		}
		sum += p.X
	})
	if sum != 6 {
		t.Fatalf("sum of X = %v", sum)
	}
}
