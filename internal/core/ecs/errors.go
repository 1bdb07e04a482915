package ecs

import "errors"

var (
	// ErrDuplicateComponent signals an add for a type the entity already carries.
	ErrDuplicateComponent = errors.New("ecs: component already present on entity")
	// ErrMissingComponent signals a get or remove for a type the entity lacks.
	ErrMissingComponent = errors.New("ecs: component not present on entity")
	// ErrUnknownEntity signals a destroyed, stale or never-created handle.
	ErrUnknownEntity = errors.New("ecs: unknown entity")
	// ErrUnregisteredType signals use of a component type that was never registered.
	ErrUnregisteredType = errors.New("ecs: component type not registered")
	// ErrCapacityExceeded signals entity creation at the configured maximum.
	ErrCapacityExceeded = errors.New("ecs: entity capacity exceeded")

	ErrLocked                = errors.New("ecs: structural change while systems are updating")
	ErrRegistrationClosed    = errors.New("ecs: component registration closed after first entity")
	ErrTooManyComponentTypes = errors.New("ecs: component type limit reached")
	ErrInvalidCapacity       = errors.New("ecs: invalid entity capacity")
)
