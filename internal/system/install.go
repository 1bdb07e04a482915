package system

import (
	"fmt"

	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/scripting"
	"go.uber.org/zap"
)

// gameSystem is an ecs.System that knows which component types it requires.
type gameSystem interface {
	ecs.System
	Required() []ecs.ComponentType
}

// Installed holds the registered demo systems.
type Installed struct {
	Scoreboard *Scoreboard
	Movement   *MovementSystem
	Lifetime   *LifetimeSystem
	Pickup     *PickupSystem
	Script     *ScriptSystem // nil without a Lua engine
	IDs        map[string]ecs.SystemID
}

// Install registers the demo systems in run order: events, scripts,
// movement, lifetime, pickup. Component types must already be registered.
func Install(co *ecs.Coordinator, bus *event.Bus, lua *scripting.Engine, log *zap.Logger) (*Installed, error) {
	if log == nil {
		log = zap.NewNop()
	}
	in := &Installed{
		Scoreboard: NewScoreboard(bus, log),
		IDs:        make(map[string]ecs.SystemID),
	}
	var err error
	if in.Movement, err = NewMovementSystem(co); err != nil {
		return nil, fmt.Errorf("movement system: %w", err)
	}
	if in.Lifetime, err = NewLifetimeSystem(co, bus, log); err != nil {
		return nil, fmt.Errorf("lifetime system: %w", err)
	}
	if in.Pickup, err = NewPickupSystem(co, bus, log); err != nil {
		return nil, fmt.Errorf("pickup system: %w", err)
	}
	if lua != nil {
		if in.Script, err = NewScriptSystem(co, lua, log); err != nil {
			return nil, fmt.Errorf("script system: %w", err)
		}
	}

	type step struct {
		name string
		sys  gameSystem
	}
	order := []step{{"events", NewEventDispatchSystem(bus)}}
	if in.Script != nil {
		order = append(order, step{"script", in.Script})
	}
	order = append(order,
		step{"movement", in.Movement},
		step{"lifetime", in.Lifetime},
		step{"pickup", in.Pickup},
	)

	for _, o := range order {
		id, err := co.RegisterSystem(o.name, o.sys, o.sys.Required()...)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", o.name, err)
		}
		in.IDs[o.name] = id
	}
	return in, nil
}
