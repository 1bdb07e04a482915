package system

import (
	"github.com/l1jgo/arena/internal/component"
	"github.com/l1jgo/arena/internal/core/ecs"
)

// MovementSystem integrates Velocity into Position.
// Requires {Position, Velocity}.
type MovementSystem struct {
	pos ecs.Accessor[component.Position]
	vel ecs.Accessor[component.Velocity]
}

func NewMovementSystem(co *ecs.Coordinator) (*MovementSystem, error) {
	pos, err := ecs.AccessorFor[component.Position](co)
	if err != nil {
		return nil, err
	}
	vel, err := ecs.AccessorFor[component.Velocity](co)
	if err != nil {
		return nil, err
	}
	return &MovementSystem{pos: pos, vel: vel}, nil
}

func (s *MovementSystem) Required() []ecs.ComponentType {
	return []ecs.ComponentType{s.pos.Type(), s.vel.Type()}
}

func (s *MovementSystem) Update(f *ecs.Frame, entities []ecs.Entity) {
	dt := f.Delta.Seconds()
	ecs.Each2(entities, s.pos, s.vel, func(_ ecs.Entity, p *component.Position, v *component.Velocity) {
		p.X += v.X * dt
		p.Y += v.Y * dt
	})
}
