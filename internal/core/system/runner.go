package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidTickRate is returned for a non-positive tick rate.
var ErrInvalidTickRate = errors.New("system: tick rate must be positive")

// Runner drives a Stepper at a fixed tick rate on the calling goroutine.
// Every frame is handed the configured tick rate as its delta, so simulation
// stays deterministic when the host falls behind.
type Runner struct {
	step      Stepper
	tickRate  time.Duration
	maxFrames uint64
	log       *zap.Logger

	frames uint64
	failed uint64
}

func NewRunner(step Stepper, tickRate time.Duration, maxFrames uint64, log *zap.Logger) (*Runner, error) {
	if tickRate <= 0 {
		return nil, fmt.Errorf("tick rate %v: %w", tickRate, ErrInvalidTickRate)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		step:      step,
		tickRate:  tickRate,
		maxFrames: maxFrames,
		log:       log,
	}, nil
}

// Tick runs exactly one frame. A frame error is logged and counted, never fatal.
func (r *Runner) Tick(dt time.Duration) {
	r.frames++
	if err := r.step.UpdateSystems(dt); err != nil {
		r.failed++
		r.log.Warn("frame finished with errors",
			zap.Uint64("frame", r.frames),
			zap.Error(err))
	}
}

// Run ticks until ctx is done or maxFrames frames have run (0 = unbounded).
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tickRate)
	defer ticker.Stop()

	start := time.Now()
	defer func() {
		r.log.Info("frame loop stopped",
			zap.Uint64("frames", r.frames),
			zap.Uint64("frames_with_errors", r.failed),
			zap.Duration("elapsed", time.Since(start)))
	}()

	for {
		if r.maxFrames > 0 && r.frames >= r.maxFrames {
			return nil
		}
		if ctx.Err() != nil {
			return stopReason(ctx)
		}
		select {
		case <-ctx.Done():
			return stopReason(ctx)
		case <-ticker.C:
			r.Tick(r.tickRate)
		}
	}
}

// stopReason treats plain cancellation as a clean shutdown.
func stopReason(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// Frames returns the number of frames run so far.
func (r *Runner) Frames() uint64 { return r.frames }

// FrameErrors returns how many frames reported an error.
func (r *Runner) FrameErrors() uint64 { return r.failed }
