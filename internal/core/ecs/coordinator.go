package ecs

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Coordinator is the single surface gameplay code touches. It keeps the
// entity signatures, the component stores and every system's membership set
// in agreement.
//
// All calls must come from the one update goroutine.
type Coordinator struct {
	log      *zap.Logger
	entities *EntityRegistry
	catalog  *ComponentCatalog
	systems  *SystemRegistry
	queue    opQueue
	locked   bool
	frame    uint64
}

// NewCoordinator pre-sizes all storage for maxEntities concurrent entities.
func NewCoordinator(maxEntities int, log *zap.Logger) (*Coordinator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entities, err := NewEntityRegistry(maxEntities)
	if err != nil {
		return nil, err
	}
	co := &Coordinator{
		log:      log,
		entities: entities,
		catalog:  NewComponentCatalog(maxEntities),
		systems:  NewSystemRegistry(maxEntities),
		queue:    newOpQueue(),
	}
	log.Info("ecs coordinator ready", zap.Int("max_entities", maxEntities))
	return co, nil
}

// ComponentValue is one component to attach during CreateEntity.
type ComponentValue struct {
	add func(co *Coordinator, e Entity) error
}

// With wraps v for CreateEntity.
func With[T any](v T) ComponentValue {
	return ComponentValue{add: func(co *Coordinator, e Entity) error {
		return addComponent(co, e, v)
	}}
}

// CreateEntity creates an entity carrying every listed component. If any add
// fails the entity is destroyed again and the error returned.
func (co *Coordinator) CreateEntity(values ...ComponentValue) (Entity, error) {
	if co.locked {
		return NoEntity, fmt.Errorf("create entity: %w", ErrLocked)
	}
	return co.createEntity(values)
}

func (co *Coordinator) createEntity(values []ComponentValue) (Entity, error) {
	co.catalog.close()
	e, err := co.entities.Create()
	if err != nil {
		co.log.Warn("entity capacity exceeded",
			zap.Int("live", co.entities.Len()),
			zap.Int("capacity", co.entities.Capacity()))
		return NoEntity, err
	}
	co.systems.signatureChanged(e, Signature{})
	for _, v := range values {
		if v.add == nil {
			continue
		}
		if err := v.add(co, e); err != nil {
			if derr := co.destroyEntity(e); derr != nil {
				co.log.Error("rollback of partial entity failed", zap.Stringer("entity", e), zap.Error(derr))
			}
			return NoEntity, fmt.Errorf("create entity: %w", err)
		}
	}
	if ce := co.log.Check(zap.DebugLevel, "entity created"); ce != nil {
		sig, _ := co.entities.Signature(e)
		ce.Write(zap.Stringer("entity", e), zap.Stringer("signature", sig))
	}
	return e, nil
}

// DestroyEntity drops every component record, clears the signature, recycles
// the handle and removes it from all systems, in that order. Destroying a
// handle twice returns ErrUnknownEntity and changes nothing.
func (co *Coordinator) DestroyEntity(e Entity) error {
	if co.locked {
		return fmt.Errorf("destroy %v: %w", e, ErrLocked)
	}
	return co.destroyEntity(e)
}

func (co *Coordinator) destroyEntity(e Entity) error {
	if !co.entities.Alive(e) {
		return fmt.Errorf("destroy %v: %w", e, ErrUnknownEntity)
	}
	// Stores first, while the signature still says which of them hold e.
	co.catalog.broadcastDestroyed(e)
	if err := co.entities.Destroy(e); err != nil {
		return err
	}
	co.systems.entityDestroyed(e)
	if ce := co.log.Check(zap.DebugLevel, "entity destroyed"); ce != nil {
		ce.Write(zap.Stringer("entity", e))
	}
	return nil
}

// Alive reports whether e is a live handle.
func (co *Coordinator) Alive(e Entity) bool { return co.entities.Alive(e) }

// Signature returns the set of component types e currently carries.
func (co *Coordinator) Signature(e Entity) (Signature, error) {
	return co.entities.Signature(e)
}

// EntityCount returns the number of live entities.
func (co *Coordinator) EntityCount() int { return co.entities.Len() }

func (co *Coordinator) Capacity() int { return co.entities.Capacity() }

// ComponentName returns the registered Go type name for t.
func (co *Coordinator) ComponentName(t ComponentType) string { return co.catalog.Name(t) }

// RegisterSystem adds sys, requiring every listed component type. Entities
// that already match are admitted immediately.
func (co *Coordinator) RegisterSystem(name string, sys System, types ...ComponentType) (SystemID, error) {
	if co.locked {
		return 0, fmt.Errorf("register system %s: %w", name, ErrLocked)
	}
	if sys == nil {
		return 0, fmt.Errorf("register system %s: nil system", name)
	}
	var required Signature
	for _, t := range types {
		if !co.catalog.Registered(t) {
			return 0, fmt.Errorf("register system %s: type %d: %w", name, t, ErrUnregisteredType)
		}
		required.Set(t)
	}
	id := co.systems.register(name, sys, required)
	co.entities.Each(func(e Entity, sig Signature) {
		co.systems.seed(id, e, sig)
	})
	co.log.Info("system registered",
		zap.String("system", name),
		zap.Int("id", int(id)),
		zap.Stringer("signature", required))
	return id, nil
}

// Members returns a copy of a system's current membership set.
func (co *Coordinator) Members(id SystemID) ([]Entity, error) {
	entry, err := co.systems.entry(id)
	if err != nil {
		return nil, err
	}
	return entry.members.AppendTo(make([]Entity, 0, entry.members.Len())), nil
}

// Updating reports whether a system update is in progress.
func (co *Coordinator) Updating() bool { return co.locked }

// UpdateSystems runs every system once, in registration order. Mutations a
// system queued are applied as soon as that system returns. Errors from
// queued mutations are logged and joined into the result; they do not stop
// later systems.
func (co *Coordinator) UpdateSystems(dt time.Duration) error {
	if co.locked {
		return fmt.Errorf("update systems: %w", ErrLocked)
	}
	co.frame++
	f := &Frame{Coordinator: co, Delta: dt, Number: co.frame}
	var errs []error
	for _, entry := range co.systems.systems {
		co.runSystem(f, entry)
		if err := co.flush(); err != nil {
			co.log.Warn("deferred mutations failed",
				zap.String("system", entry.name),
				zap.Uint64("frame", f.Number),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("system %s: %w", entry.name, err))
		}
	}
	return errors.Join(errs...)
}

func (co *Coordinator) runSystem(f *Frame, entry *systemEntry) {
	entry.scratch = entry.members.AppendTo(entry.scratch[:0])
	co.locked = true
	defer func() { co.locked = false }()
	entry.sys.Update(f, entry.scratch)
}
