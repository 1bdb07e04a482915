package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/arena/internal/component"
	"github.com/l1jgo/arena/internal/core/ecs"
)

// Vec2 is the YAML shape of a 2D vector.
type Vec2 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// SpawnEntry describes Count identical entities. Optional components are
// attached only when present; Spread offsets each copy along X.
type SpawnEntry struct {
	Name      string         `yaml:"name"`
	Count     int            `yaml:"count"`
	Position  *Vec2          `yaml:"position"`
	Spread    float64        `yaml:"spread"`
	Velocity  *Vec2          `yaml:"velocity"`
	Lifetime  time.Duration  `yaml:"lifetime"`
	Pickup    int            `yaml:"pickup"`
	Collector *CollectorSpec `yaml:"collector"`
	Script    string         `yaml:"script"`
}

type CollectorSpec struct {
	Radius float64 `yaml:"radius"`
}

// Scene is a list of spawn entries loaded at startup.
type Scene struct {
	Name    string       `yaml:"name"`
	Entries []SpawnEntry `yaml:"entities"`
}

// LoadScene reads a scene YAML file.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return ParseScene(raw)
}

func ParseScene(raw []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	for i := range s.Entries {
		e := &s.Entries[i]
		if e.Count == 0 {
			e.Count = 1
		}
		if e.Count < 0 {
			return nil, fmt.Errorf("scene entry %d (%s): negative count %d", i, e.Name, e.Count)
		}
	}
	return &s, nil
}

// Total returns how many entities the scene spawns.
func (s *Scene) Total() int {
	n := 0
	for _, e := range s.Entries {
		n += e.Count
	}
	return n
}

// Values builds the component list for copy i of the entry.
func (e *SpawnEntry) Values(i int) []ecs.ComponentValue {
	var vals []ecs.ComponentValue
	if e.Name != "" {
		vals = append(vals, ecs.With(component.Name{Value: e.Name}))
	}
	if e.Position != nil {
		vals = append(vals, ecs.With(component.Position{X: e.Position.X + e.Spread*float64(i), Y: e.Position.Y}))
	}
	if e.Velocity != nil {
		vals = append(vals, ecs.With(component.Velocity{X: e.Velocity.X, Y: e.Velocity.Y}))
	}
	if e.Lifetime > 0 {
		vals = append(vals, ecs.With(component.Lifetime{Remaining: e.Lifetime}))
	}
	if e.Pickup > 0 {
		vals = append(vals, ecs.With(component.Pickup{Value: e.Pickup}))
	}
	if e.Collector != nil {
		vals = append(vals, ecs.With(component.Collector{Radius: e.Collector.Radius}))
	}
	if e.Script != "" {
		vals = append(vals, ecs.With(component.Script{Func: e.Script}))
	}
	return vals
}

// Spawn creates every entity in the scene. It stops at the first failure
// (for example, capacity) and reports how many were created.
func Spawn(co *ecs.Coordinator, s *Scene) (int, error) {
	created := 0
	for _, entry := range s.Entries {
		for i := 0; i < entry.Count; i++ {
			if _, err := co.CreateEntity(entry.Values(i)...); err != nil {
				return created, fmt.Errorf("spawn %s #%d: %w", entry.Name, i, err)
			}
			created++
		}
	}
	return created, nil
}
