package system

import (
	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/core/event"
	"go.uber.org/zap"
)

// EventDispatchSystem swaps the bus and delivers last frame's events. It is
// registered first and requires nothing.
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Required() []ecs.ComponentType { return []ecs.ComponentType{} }

// Update ignores entities; its membership is every live entity.
func (s *EventDispatchSystem) Update(_ *ecs.Frame, _ []ecs.Entity) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// Scoreboard tallies collected item value per collector from bus events.
type Scoreboard struct {
	totals    map[ecs.Entity]int
	collected int
	expired   int
	log       *zap.Logger
}

func NewScoreboard(bus *event.Bus, log *zap.Logger) *Scoreboard {
	sb := &Scoreboard{totals: make(map[ecs.Entity]int), log: log}
	event.Subscribe(bus, func(ev event.ItemCollected) {
		sb.totals[ev.Collector] += ev.Value
		sb.collected++
	})
	event.Subscribe(bus, func(ev event.EntityExpired) {
		sb.expired++
		if ce := sb.log.Check(zap.DebugLevel, "entity expired"); ce != nil {
			ce.Write(zap.Stringer("entity", ev.Entity), zap.String("name", ev.Name))
		}
	})
	return sb
}

func (sb *Scoreboard) Score(collector ecs.Entity) int { return sb.totals[collector] }

func (sb *Scoreboard) Collected() int { return sb.collected }

func (sb *Scoreboard) Expired() int { return sb.expired }
