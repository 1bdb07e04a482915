package ecs

import (
	"fmt"
	"reflect"
)

// ComponentCatalog assigns type ids and owns one store per registered type.
// Ids come from a counter in registration order and stay stable for the
// lifetime of the catalog.
type ComponentCatalog struct {
	capacity int
	ids      map[reflect.Type]ComponentType
	stores   []DestroyListener // by ComponentType
	names    []string
	closed   bool
}

func NewComponentCatalog(capacity int) *ComponentCatalog {
	return &ComponentCatalog{
		capacity: capacity,
		ids:      make(map[reflect.Type]ComponentType, MaxComponentTypes),
		stores:   make([]DestroyListener, 0, 16),
		names:    make([]string, 0, 16),
	}
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// registerType is idempotent: a type that already has an id keeps it.
func registerType[T any](c *ComponentCatalog) (ComponentType, bool, error) {
	key := typeKey[T]()
	if id, ok := c.ids[key]; ok {
		return id, false, nil
	}
	if c.closed {
		return 0, false, fmt.Errorf("register %s: %w", key, ErrRegistrationClosed)
	}
	if len(c.stores) >= MaxComponentTypes {
		return 0, false, fmt.Errorf("register %s (limit %d): %w", key, MaxComponentTypes, ErrTooManyComponentTypes)
	}
	id := ComponentType(len(c.stores))
	name := key.String()
	c.ids[key] = id
	c.stores = append(c.stores, NewComponentStore[T](name, c.capacity))
	c.names = append(c.names, name)
	return id, true, nil
}

func typeID[T any](c *ComponentCatalog) (ComponentType, error) {
	key := typeKey[T]()
	id, ok := c.ids[key]
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, ErrUnregisteredType)
	}
	return id, nil
}

func storeFor[T any](c *ComponentCatalog) (*ComponentStore[T], ComponentType, error) {
	id, err := typeID[T](c)
	if err != nil {
		return nil, 0, err
	}
	return c.stores[id].(*ComponentStore[T]), id, nil
}

// close ends the registration phase.
func (c *ComponentCatalog) close() { c.closed = true }

// Len returns the number of registered types.
func (c *ComponentCatalog) Len() int { return len(c.stores) }

// Name returns the Go type name registered under t.
func (c *ComponentCatalog) Name(t ComponentType) string {
	if int(t) >= len(c.names) {
		return fmt.Sprintf("ComponentType(%d)", t)
	}
	return c.names[t]
}

// Registered reports whether t has been assigned.
func (c *ComponentCatalog) Registered(t ComponentType) bool {
	return int(t) < len(c.stores)
}

// broadcastDestroyed clears e from every registered store.
func (c *ComponentCatalog) broadcastDestroyed(e Entity) {
	for _, s := range c.stores {
		s.EntityDestroyed(e)
	}
}
