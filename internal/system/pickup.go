package system

import (
	"github.com/l1jgo/arena/internal/component"
	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/world"
	"go.uber.org/zap"
)

// pickupCellSize is the spatial grid cell edge; collectors with a larger
// radius just scan more cells.
const pickupCellSize = 4

// PickupSystem lets collectors take items within their radius.
// Requires {Position, Collector}; items are every {Position, Pickup} entity.
//
// Items are destroyed through the deferred queue, so the pickup store stays
// intact while it is being scanned. claimed stops two collectors taking the
// same item in one frame.
type PickupSystem struct {
	pos     ecs.Accessor[component.Position]
	pickup  ecs.Accessor[component.Pickup]
	collect ecs.Accessor[component.Collector]
	bus     *event.Bus
	log     *zap.Logger
	grid    *world.Grid
	near    []ecs.Entity
	claimed map[ecs.Entity]struct{}
}

func NewPickupSystem(co *ecs.Coordinator, bus *event.Bus, log *zap.Logger) (*PickupSystem, error) {
	pos, err := ecs.AccessorFor[component.Position](co)
	if err != nil {
		return nil, err
	}
	pickup, err := ecs.AccessorFor[component.Pickup](co)
	if err != nil {
		return nil, err
	}
	collect, err := ecs.AccessorFor[component.Collector](co)
	if err != nil {
		return nil, err
	}
	return &PickupSystem{
		pos:     pos,
		pickup:  pickup,
		collect: collect,
		bus:     bus,
		log:     log,
		grid:    world.NewGrid(pickupCellSize),
		claimed: make(map[ecs.Entity]struct{}),
	}, nil
}

func (s *PickupSystem) Required() []ecs.ComponentType {
	return []ecs.ComponentType{s.pos.Type(), s.collect.Type()}
}

func (s *PickupSystem) Update(f *ecs.Frame, collectors []ecs.Entity) {
	clear(s.claimed)
	s.grid.Reset()
	s.pickup.Each(func(item ecs.Entity, _ *component.Pickup) {
		if p, err := s.pos.Lookup(item); err == nil {
			s.grid.Insert(item, p.X, p.Y)
		}
	})
	if s.grid.Len() == 0 {
		return
	}

	for _, c := range collectors {
		cp := s.pos.Get(c)
		col := s.collect.Get(c)
		r2 := col.Radius * col.Radius
		s.near = s.grid.Nearby(cp.X, cp.Y, col.Radius, s.near[:0])
		for _, item := range s.near {
			if item == c {
				continue
			}
			if _, taken := s.claimed[item]; taken {
				continue
			}
			ip := s.pos.Get(item)
			dx, dy := ip.X-cp.X, ip.Y-cp.Y
			if dx*dx+dy*dy > r2 {
				continue
			}
			if err := f.Coordinator.EnqueueDestroyEntity(item); err != nil {
				s.log.Warn("collect item", zap.Stringer("item", item), zap.Error(err))
				continue
			}
			s.claimed[item] = struct{}{}
			value := s.pickup.Get(item).Value
			col.Score += value
			event.Emit(s.bus, event.ItemCollected{Collector: c, Item: item, Value: value})
		}
	}
}
