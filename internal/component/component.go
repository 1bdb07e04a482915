package component

import (
	"time"

	"github.com/l1jgo/arena/internal/core/ecs"
)

// Components are pure data; every mutation happens in a system.

type Position struct {
	X, Y float64
}

// Velocity is in units per second.
type Velocity struct {
	X, Y float64
}

// Lifetime counts down to removal.
type Lifetime struct {
	Remaining time.Duration
}

// Pickup marks a collectible item.
type Pickup struct {
	Value int
}

// Collector picks up items within Radius.
type Collector struct {
	Radius float64
	Score  int
}

// Script names the Lua function that steers the entity.
type Script struct {
	Func string
}

type Name struct {
	Value string
}

// Types holds the ids of every demo component type.
type Types struct {
	Position  ecs.ComponentType
	Velocity  ecs.ComponentType
	Lifetime  ecs.ComponentType
	Pickup    ecs.ComponentType
	Collector ecs.ComponentType
	Script    ecs.ComponentType
	Name      ecs.ComponentType
}

// Register is the explicit startup registration phase. It must run before
// the first entity is created; the order below fixes the type ids.
func Register(co *ecs.Coordinator) (Types, error) {
	var (
		ts  Types
		err error
	)
	steps := []struct {
		dst *ecs.ComponentType
		reg func(*ecs.Coordinator) (ecs.ComponentType, error)
	}{
		{&ts.Position, ecs.RegisterComponent[Position]},
		{&ts.Velocity, ecs.RegisterComponent[Velocity]},
		{&ts.Lifetime, ecs.RegisterComponent[Lifetime]},
		{&ts.Pickup, ecs.RegisterComponent[Pickup]},
		{&ts.Collector, ecs.RegisterComponent[Collector]},
		{&ts.Script, ecs.RegisterComponent[Script]},
		{&ts.Name, ecs.RegisterComponent[Name]},
	}
	for _, s := range steps {
		if *s.dst, err = s.reg(co); err != nil {
			return Types{}, err
		}
	}
	return ts, nil
}
