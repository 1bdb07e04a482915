package ecs

import (
	"fmt"

	"go.uber.org/zap"
)

// RegisterComponent assigns T a type id and builds its store. Calling it
// again for the same T returns the existing id. Every type must be registered
// before the first entity is created.
func RegisterComponent[T any](co *Coordinator) (ComponentType, error) {
	id, created, err := registerType[T](co.catalog)
	if err != nil {
		return 0, err
	}
	if created {
		co.log.Info("component registered",
			zap.String("component", co.catalog.Name(id)),
			zap.Int("type_id", int(id)))
	}
	return id, nil
}

// TypeID returns the id assigned to T.
func TypeID[T any](co *Coordinator) (ComponentType, error) {
	return typeID[T](co.catalog)
}

// AddComponent attaches v to e.
func AddComponent[T any](co *Coordinator, e Entity, v T) error {
	if co.locked {
		return fmt.Errorf("add %s to %v: %w", typeKey[T](), e, ErrLocked)
	}
	return addComponent(co, e, v)
}

func addComponent[T any](co *Coordinator, e Entity, v T) error {
	if !co.entities.Alive(e) {
		return fmt.Errorf("add %s to %v: %w", typeKey[T](), e, ErrUnknownEntity)
	}
	store, id, err := storeFor[T](co.catalog)
	if err != nil {
		return fmt.Errorf("add to %v: %w", e, err)
	}
	if err := store.Add(e, v); err != nil {
		return err
	}
	sig := co.entities.setSignatureBit(e, id, true)
	co.systems.signatureChanged(e, sig)
	return nil
}

// RemoveComponent detaches T from e.
func RemoveComponent[T any](co *Coordinator, e Entity) error {
	if co.locked {
		return fmt.Errorf("remove %s from %v: %w", typeKey[T](), e, ErrLocked)
	}
	return removeComponent[T](co, e)
}

func removeComponent[T any](co *Coordinator, e Entity) error {
	if !co.entities.Alive(e) {
		return fmt.Errorf("remove %s from %v: %w", typeKey[T](), e, ErrUnknownEntity)
	}
	store, id, err := storeFor[T](co.catalog)
	if err != nil {
		return fmt.Errorf("remove from %v: %w", e, err)
	}
	if err := store.Remove(e); err != nil {
		return err
	}
	sig := co.entities.setSignatureBit(e, id, false)
	co.systems.signatureChanged(e, sig)
	return nil
}

// GetComponent is the checked lookup. Systems on a hot path should prefer an
// Accessor.
func GetComponent[T any](co *Coordinator, e Entity) (*T, error) {
	if !co.entities.Alive(e) {
		return nil, fmt.Errorf("get %s of %v: %w", typeKey[T](), e, ErrUnknownEntity)
	}
	store, _, err := storeFor[T](co.catalog)
	if err != nil {
		return nil, fmt.Errorf("get of %v: %w", e, err)
	}
	return store.Get(e)
}

// HasComponent reports whether e is alive and carries T.
func HasComponent[T any](co *Coordinator, e Entity) bool {
	if !co.entities.Alive(e) {
		return false
	}
	store, _, err := storeFor[T](co.catalog)
	if err != nil {
		return false
	}
	return store.Has(e)
}

// Accessor reads and writes T values without the per-call type lookup.
// It cannot add or remove records.
type Accessor[T any] struct {
	store *ComponentStore[T]
	id    ComponentType
}

// AccessorFor resolves the store for a registered T.
func AccessorFor[T any](co *Coordinator) (Accessor[T], error) {
	store, id, err := storeFor[T](co.catalog)
	if err != nil {
		return Accessor[T]{}, err
	}
	return Accessor[T]{store: store, id: id}, nil
}

// Get is unchecked; e must hold a T (for example, because it is a member of
// a system that requires T). The pointer is valid until the next structural
// change to the T store.
func (a Accessor[T]) Get(e Entity) *T { return a.store.At(e) }

// Lookup is the checked variant of Get.
func (a Accessor[T]) Lookup(e Entity) (*T, error) { return a.store.Get(e) }

func (a Accessor[T]) Has(e Entity) bool { return a.store.Has(e) }

func (a Accessor[T]) Type() ComponentType { return a.id }

// Len returns the number of T records.
func (a Accessor[T]) Len() int { return a.store.Len() }

// Each visits every T record in dense order.
func (a Accessor[T]) Each(fn func(Entity, *T)) { a.store.Each(fn) }
