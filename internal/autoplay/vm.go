// Package autoplay runs scripted throw strategies against a headless
// encounter loop. A strategy is JavaScript that defines aim(ctx) and returns
// the pull vector {x, y} for the next throw.
package autoplay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

var (
	// ErrNoAim means the script did not define an aim function.
	ErrNoAim = errors.New("autoplay: aim() is not defined")
	// ErrBadAim means aim returned something other than {x, y} with finite numbers.
	ErrBadAim = errors.New("autoplay: aim() must return {x, y}")
	// ErrScriptTimeout is returned when the script runs past its time limit.
	ErrScriptTimeout = errors.New("autoplay: script timed out")
)

const (
	DefaultLoadTimeout = 2 * time.Second
	DefaultCallTimeout = 250 * time.Millisecond
	maxLogs            = 500
)

// LogEntry is one line written by log() or console.log().
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// VM is a sandboxed goja runtime holding one strategy.
type VM struct {
	rt *goja.Runtime
	// the runtime is not safe for concurrent use
	mu sync.Mutex

	loadTimeout time.Duration
	callTimeout time.Duration

	logsMu sync.Mutex
	logs   []LogEntry

	stopped bool
}

// NewVM creates a runtime with log, console.log and stop installed. The
// module loader and network globals are removed, as are eval and every
// route to the Function constructor.
func NewVM(callTimeout time.Duration) *VM {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	vm := &VM{
		rt:          goja.New(),
		loadTimeout: DefaultLoadTimeout,
		callTimeout: callTimeout,
	}
	vm.install()
	return vm
}

func (vm *VM) install() {
	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		vm.appendLog(strings.Join(parts, " "))
		return goja.Undefined()
	}
	vm.rt.Set("log", logFn)
	console := vm.rt.NewObject()
	console.Set("log", logFn)
	vm.rt.Set("console", console)

	vm.rt.Set("stop", func(goja.FunctionCall) goja.Value {
		vm.stopped = true
		return goja.Undefined()
	})

	vm.sealConstructors()
	for _, name := range []string{"require", "fetch", "XMLHttpRequest", "eval", "Function"} {
		vm.rt.Set(name, goja.Undefined())
	}
}

// sealConstructors hides the Function constructor reachable through
// function prototypes, e.g. (function(){}).constructor("...").
func (vm *VM) sealConstructors() {
	for _, src := range []string{
		"Function.prototype",
		"Object.getPrototypeOf(function* () {})",
		"Object.getPrototypeOf(async function () {})",
		"Object.getPrototypeOf(async function* () {})",
	} {
		v, err := vm.rt.RunString(src)
		if err != nil {
			// syntax the runtime does not support has no constructor to hide
			continue
		}
		proto := v.ToObject(vm.rt)
		_ = proto.DefineDataProperty("constructor", goja.Undefined(), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
	}
}

func (vm *VM) appendLog(msg string) {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	if len(vm.logs) >= maxLogs {
		vm.logs = vm.logs[1:]
	}
	vm.logs = append(vm.logs, LogEntry{Time: time.Now(), Message: msg})
}

// SetRandSource replaces Math.random
func (vm *VM) SetRandSource(src func() float64) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.rt.SetRandSource(src)
}

// Load runs the script body once to define aim
func (vm *VM) Load(ctx context.Context, source string) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	err := vm.guard(ctx, vm.loadTimeout, func() error {
		_, err := vm.rt.RunString(source)
		return err
	})
	if err != nil {
		return fmt.Errorf("autoplay: load: %w", err)
	}
	if _, ok := vm.aimFunc(); !ok {
		return ErrNoAim
	}
	return nil
}

func (vm *VM) aimFunc() (goja.Callable, bool) {
	v := vm.rt.Get("aim")
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, false
	}
	return goja.AssertFunction(v)
}

// Aim calls aim(ctx) with in exported as a plain object and returns the pull.
func (vm *VM) Aim(ctx context.Context, in AimContext) (vmath.Vec2, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	fn, ok := vm.aimFunc()
	if !ok {
		return vmath.Vec2{}, ErrNoAim
	}
	var out goja.Value
	err := vm.guard(ctx, vm.callTimeout, func() error {
		v, err := fn(goja.Undefined(), vm.rt.ToValue(in.object()))
		out = v
		return err
	})
	if err != nil {
		return vmath.Vec2{}, fmt.Errorf("autoplay: aim: %w", err)
	}
	return vm.toPull(out)
}

func (vm *VM) toPull(v goja.Value) (vmath.Vec2, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return vmath.Vec2{}, fmt.Errorf("%w: got %v", ErrBadAim, v)
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return vmath.Vec2{}, fmt.Errorf("%w: got %s", ErrBadAim, v.String())
	}
	x, y := obj.Get("x"), obj.Get("y")
	if x == nil || y == nil {
		return vmath.Vec2{}, fmt.Errorf("%w: missing x or y", ErrBadAim)
	}
	p := vmath.V(x.ToFloat(), y.ToFloat())
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return vmath.Vec2{}, fmt.Errorf("%w: non-finite pull (%v, %v)", ErrBadAim, p.X, p.Y)
	}
	return p, nil
}

// guard runs fn with the runtime interrupted after timeout or when ctx ends.
// Must be called with mu held.
func (vm *VM) guard(ctx context.Context, timeout time.Duration, fn func() error) error {
	timer := time.AfterFunc(timeout, func() { vm.rt.Interrupt(ErrScriptTimeout) })
	stop := context.AfterFunc(ctx, func() { vm.rt.Interrupt(ctx.Err()) })
	err := fn()
	timer.Stop()
	stop()
	vm.rt.ClearInterrupt()

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
		return ErrScriptTimeout
	}
	return err
}

// StopRequested reports whether the script called stop()
func (vm *VM) StopRequested() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.stopped
}

// Logs returns a copy of the log buffer
func (vm *VM) Logs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}
