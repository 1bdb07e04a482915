package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrNoFunction is returned when a script names a global function that was
// never defined.
var ErrNoFunction = errors.New("scripting: lua function not defined")

// Engine wraps a single gopher-lua VM that steers scripted entities.
// Single-goroutine access only (the update loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua VM and loads every .lua file in dir, in name order.
// A missing dir yields an engine with no scripts.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(dir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromString is NewEngine for an inline chunk.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load inline script: %w", err)
	}
	return &Engine{vm: vm, log: log}, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			e.log.Warn("script directory missing", zap.String("dir", dir))
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Has reports whether fn is a defined global function.
func (e *Engine) Has(fn string) bool {
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// StepInput is what a steering function sees each frame.
type StepInput struct {
	Entity uint64
	Frame  uint64
	X, Y   float64
	DT     float64 // seconds
}

// Step calls the global fn(ctx) and expects a table {x=, y=} back. Missing
// fields keep the input position.
func (e *Engine) Step(fn string, in StepInput) (x, y float64, err error) {
	f, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		return in.X, in.Y, fmt.Errorf("%s: %w", fn, ErrNoFunction)
	}

	t := e.vm.NewTable()
	t.RawSetString("entity", lua.LNumber(in.Entity))
	t.RawSetString("frame", lua.LNumber(in.Frame))
	t.RawSetString("x", lua.LNumber(in.X))
	t.RawSetString("y", lua.LNumber(in.Y))
	t.RawSetString("dt", lua.LNumber(in.DT))

	if err := e.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		return in.X, in.Y, fmt.Errorf("lua %s: %w", fn, err)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return in.X, in.Y, fmt.Errorf("lua %s returned %s, want table", fn, result.Type())
	}
	x, y = in.X, in.Y
	if v, ok := rt.RawGetString("x").(lua.LNumber); ok {
		x = float64(v)
	}
	if v, ok := rt.RawGetString("y").(lua.LNumber); ok {
		y = float64(v)
	}
	return x, y, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}
