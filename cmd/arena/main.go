package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/arena/internal/component"
	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/core/event"
	coresys "github.com/l1jgo/arena/internal/core/system"
	"github.com/l1jgo/arena/internal/data"
	"github.com/l1jgo/arena/internal/scripting"
	"github.com/l1jgo/arena/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/arena.toml"
	if p := os.Getenv("ARENA_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if p := startProfile(cfg.Profile); p != nil {
		defer p.Stop()
		log.Info("profiling enabled", zap.String("mode", cfg.Profile.Mode), zap.String("dir", cfg.Profile.Dir))
	}

	// 3. Coordinator and component types
	co, err := ecs.NewCoordinator(cfg.ECS.MaxEntities, log)
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	if _, err := component.Register(co); err != nil {
		return fmt.Errorf("register components: %w", err)
	}

	// 4. Scripts and systems
	printSection("systems")
	var lua *scripting.Engine
	if cfg.Scripting.Enabled {
		lua, err = scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer lua.Close()
		printOK(fmt.Sprintf("lua scripts from %s", cfg.Scripting.Dir))
	}
	bus := event.NewBus()
	installed, err := system.Install(co, bus, lua, log)
	if err != nil {
		return fmt.Errorf("install systems: %w", err)
	}
	printStat("systems", len(installed.IDs))

	// 5. Scene
	printSection("scene")
	scene, err := data.LoadScene(cfg.Scene.Path)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}
	spawned, err := data.Spawn(co, scene)
	if err != nil {
		return fmt.Errorf("spawn scene %s: %w", scene.Name, err)
	}
	printStat("entities", spawned)
	printStat("capacity", co.Capacity())
	fmt.Println()

	// 6. Run until signalled or out of frames
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := coresys.NewRunner(co, cfg.Loop.TickRate, cfg.Loop.MaxFrames, log)
	if err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	runErr := runner.Run(ctx)

	log.Info("arena stopped",
		zap.Uint64("frames", runner.Frames()),
		zap.Uint64("frame_errors", runner.FrameErrors()),
		zap.Int("live_entities", co.EntityCount()),
		zap.Int("collected", installed.Scoreboard.Collected()),
		zap.Int("expired", installed.Scoreboard.Expired()))
	if errors.Is(runErr, context.DeadlineExceeded) {
		return nil
	}
	return runErr
}

func startProfile(cfg config.ProfileConfig) interface{ Stop() } {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	default:
		return nil
	}
	return profile.Start(mode, profile.ProfilePath(cfg.Dir), profile.NoShutdownHook, profile.Quiet)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
