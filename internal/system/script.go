package system

import (
	"github.com/l1jgo/arena/internal/component"
	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/scripting"
	"go.uber.org/zap"
)

// ScriptSystem hands each scripted entity's position to its Lua steering
// function. Requires {Position, Script}.
type ScriptSystem struct {
	lua    *scripting.Engine
	pos    ecs.Accessor[component.Position]
	script ecs.Accessor[component.Script]
	log    *zap.Logger
	failed map[string]bool // functions already reported, to keep logs quiet
}

func NewScriptSystem(co *ecs.Coordinator, lua *scripting.Engine, log *zap.Logger) (*ScriptSystem, error) {
	pos, err := ecs.AccessorFor[component.Position](co)
	if err != nil {
		return nil, err
	}
	script, err := ecs.AccessorFor[component.Script](co)
	if err != nil {
		return nil, err
	}
	return &ScriptSystem{lua: lua, pos: pos, script: script, log: log, failed: make(map[string]bool)}, nil
}

func (s *ScriptSystem) Required() []ecs.ComponentType {
	return []ecs.ComponentType{s.pos.Type(), s.script.Type()}
}

func (s *ScriptSystem) Update(f *ecs.Frame, entities []ecs.Entity) {
	dt := f.Delta.Seconds()
	for _, e := range entities {
		fn := s.script.Get(e).Func
		p := s.pos.Get(e)
		x, y, err := s.lua.Step(fn, scripting.StepInput{
			Entity: uint64(e),
			Frame:  f.Number,
			X:      p.X,
			Y:      p.Y,
			DT:     dt,
		})
		if err != nil {
			if !s.failed[fn] {
				s.failed[fn] = true
				s.log.Error("lua steering failed", zap.String("func", fn), zap.Stringer("entity", e), zap.Error(err))
			}
			continue
		}
		p.X, p.Y = x, y
	}
}
