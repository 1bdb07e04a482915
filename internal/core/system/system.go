package system

import "time"

// Stepper advances the simulation by one frame. *ecs.Coordinator satisfies it.
type Stepper interface {
	UpdateSystems(dt time.Duration) error
}

// StepperFunc adapts a function to Stepper.
type StepperFunc func(dt time.Duration) error

func (fn StepperFunc) UpdateSystems(dt time.Duration) error { return fn(dt) }
