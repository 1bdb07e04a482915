package event

import "github.com/l1jgo/arena/internal/core/ecs"

// Gameplay events raised by the demo systems.

type ItemCollected struct {
	Collector ecs.Entity
	Item      ecs.Entity
	Value     int
}

type EntityExpired struct {
	Entity ecs.Entity
	Name   string
}
