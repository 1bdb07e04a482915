package ecs

import (
	"errors"
	"fmt"
)

type opType int

const (
	opCreate opType = iota
	opComponent
	opDestroy
)

type operation struct {
	typ    opType
	entity Entity
	values []ComponentValue
	apply  func(co *Coordinator) error
}

// opQueue collects structural changes requested while a system is updating.
type opQueue struct {
	createOps      []operation
	componentOps   []operation
	destroyOps     []operation
	pendingDestroy map[Entity]struct{}
}

func newOpQueue() opQueue {
	return opQueue{
		pendingDestroy: make(map[Entity]struct{}),
	}
}

func (q *opQueue) empty() bool {
	return len(q.createOps) == 0 && len(q.componentOps) == 0 && len(q.destroyOps) == 0
}

// Pending returns the number of queued operations.
func (q *opQueue) Pending() int {
	return len(q.createOps) + len(q.componentOps) + len(q.destroyOps)
}

func (q *opQueue) enqueueDestroy(e Entity) {
	if _, ok := q.pendingDestroy[e]; ok {
		return
	}
	q.pendingDestroy[e] = struct{}{}
	q.destroyOps = append(q.destroyOps, operation{typ: opDestroy, entity: e})
}

func (q *opQueue) enqueueComponent(e Entity, apply func(co *Coordinator) error) {
	// Changes to an entity that is about to be destroyed are moot.
	if _, ok := q.pendingDestroy[e]; ok {
		return
	}
	q.componentOps = append(q.componentOps, operation{typ: opComponent, entity: e, apply: apply})
}

// flush applies queued operations: creates, then component changes, then
// destroys.
func (co *Coordinator) flush() error {
	q := &co.queue
	if q.empty() {
		return nil
	}
	var errs []error
	for _, op := range q.createOps {
		if _, err := co.createEntity(op.values); err != nil {
			errs = append(errs, fmt.Errorf("queued create: %w", err))
		}
	}
	for _, op := range q.componentOps {
		if _, doomed := q.pendingDestroy[op.entity]; doomed {
			continue
		}
		if err := op.apply(co); err != nil {
			errs = append(errs, fmt.Errorf("queued component change: %w", err))
		}
	}
	for _, op := range q.destroyOps {
		if err := co.destroyEntity(op.entity); err != nil {
			errs = append(errs, fmt.Errorf("queued destroy: %w", err))
		}
	}
	clear(q.createOps)
	clear(q.componentOps)
	q.createOps = q.createOps[:0]
	q.componentOps = q.componentOps[:0]
	q.destroyOps = q.destroyOps[:0]
	clear(q.pendingDestroy)
	return errors.Join(errs...)
}

// PendingOps returns the number of structural changes waiting for the
// running system to return.
func (co *Coordinator) PendingOps() int { return co.queue.Pending() }

// EnqueueDestroyEntity destroys e once the running system returns, or
// immediately when no system is running. Queuing the same entity twice is a
// no-op.
func (co *Coordinator) EnqueueDestroyEntity(e Entity) error {
	if !co.locked {
		return co.destroyEntity(e)
	}
	if !co.entities.Alive(e) {
		return fmt.Errorf("enqueue destroy %v: %w", e, ErrUnknownEntity)
	}
	co.queue.enqueueDestroy(e)
	return nil
}

// EnqueueCreateEntity creates an entity once the running system returns, or
// immediately when no system is running. The handle is not available to the
// caller while queued.
func (co *Coordinator) EnqueueCreateEntity(values ...ComponentValue) error {
	if !co.locked {
		_, err := co.createEntity(values)
		return err
	}
	co.queue.createOps = append(co.queue.createOps, operation{typ: opCreate, values: values})
	return nil
}

// EnqueueAddComponent is the deferred form of AddComponent.
func EnqueueAddComponent[T any](co *Coordinator, e Entity, v T) error {
	if !co.locked {
		return addComponent(co, e, v)
	}
	if err := co.checkQueued(e); err != nil {
		return fmt.Errorf("enqueue add %s: %w", typeKey[T](), err)
	}
	if _, err := typeID[T](co.catalog); err != nil {
		return fmt.Errorf("enqueue add to %v: %w", e, err)
	}
	co.queue.enqueueComponent(e, func(co *Coordinator) error {
		return addComponent(co, e, v)
	})
	return nil
}

// EnqueueRemoveComponent is the deferred form of RemoveComponent.
func EnqueueRemoveComponent[T any](co *Coordinator, e Entity) error {
	if !co.locked {
		return removeComponent[T](co, e)
	}
	if err := co.checkQueued(e); err != nil {
		return fmt.Errorf("enqueue remove %s: %w", typeKey[T](), err)
	}
	if _, err := typeID[T](co.catalog); err != nil {
		return fmt.Errorf("enqueue remove from %v: %w", e, err)
	}
	co.queue.enqueueComponent(e, func(co *Coordinator) error {
		return removeComponent[T](co, e)
	})
	return nil
}

func (co *Coordinator) checkQueued(e Entity) error {
	if !co.entities.Alive(e) {
		return fmt.Errorf("%v: %w", e, ErrUnknownEntity)
	}
	return nil
}
