package system

import (
	"github.com/l1jgo/arena/internal/component"
	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/core/event"
	"go.uber.org/zap"
)

// LifetimeSystem counts lifetimes down and destroys expired entities once the
// frame's iteration is over. Requires {Lifetime}.
type LifetimeSystem struct {
	life ecs.Accessor[component.Lifetime]
	name ecs.Accessor[component.Name]
	bus  *event.Bus
	log  *zap.Logger
}

func NewLifetimeSystem(co *ecs.Coordinator, bus *event.Bus, log *zap.Logger) (*LifetimeSystem, error) {
	life, err := ecs.AccessorFor[component.Lifetime](co)
	if err != nil {
		return nil, err
	}
	name, err := ecs.AccessorFor[component.Name](co)
	if err != nil {
		return nil, err
	}
	return &LifetimeSystem{life: life, name: name, bus: bus, log: log}, nil
}

func (s *LifetimeSystem) Required() []ecs.ComponentType {
	return []ecs.ComponentType{s.life.Type()}
}

func (s *LifetimeSystem) Update(f *ecs.Frame, entities []ecs.Entity) {
	for _, e := range entities {
		l := s.life.Get(e)
		l.Remaining -= f.Delta
		if l.Remaining > 0 {
			continue
		}
		if err := f.Coordinator.EnqueueDestroyEntity(e); err != nil {
			s.log.Warn("expire entity", zap.Stringer("entity", e), zap.Error(err))
			continue
		}
		ev := event.EntityExpired{Entity: e}
		if n, err := s.name.Lookup(e); err == nil {
			ev.Name = n.Value
		}
		event.Emit(s.bus, ev)
	}
}
