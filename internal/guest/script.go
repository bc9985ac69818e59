package guest

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/crosspane/crosspane/internal/logging"
	"github.com/crosspane/crosspane/internal/remote"
)

// ScriptConfig configures an in-process scripted child context.
type ScriptConfig struct {
	// Source is the JavaScript program defining the child's data model via
	// the injected `model` object: model.constant(name, value),
	// model.accessor(name, fn), model.procedure(name, fn).
	Source string

	// Timeout bounds the initial evaluation (default 5s).
	Timeout time.Duration

	Logger *logging.Logger
}

// Script is a goja-backed child execution context. The VM is single-tenant
// and guarded by a mutex: accessor and procedure entries may be resolved
// from protocol goroutines.
type Script struct {
	vm    *goja.Runtime
	vmMu  sync.Mutex
	model *remote.Model
	ready chan struct{}
	log   *logging.Logger

	closeOnce sync.Once
}

// NewScript creates the VM, evaluates cfg.Source, and signals ready on
// success. Script errors abort loading.
func NewScript(cfg ScriptConfig) (*Script, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	s := &Script{
		vm:    goja.New(),
		model: remote.NewModel(),
		ready: make(chan struct{}),
		log:   logging.Ensure(cfg.Logger).Named("script"),
	}
	s.setupGlobals()

	timer := time.AfterFunc(cfg.Timeout, func() {
		s.vm.Interrupt("script load timeout exceeded")
	})
	defer timer.Stop()

	if _, err := s.vm.RunString(cfg.Source); err != nil {
		return nil, fmt.Errorf("script load failed: %w", err)
	}

	close(s.ready)
	return s, nil
}

// Model returns the data model the script populated.
func (s *Script) Model() *remote.Model { return s.model }

// Ready implements Guest.
func (s *Script) Ready() <-chan struct{} { return s.ready }

// Close implements Guest by interrupting any running script code.
func (s *Script) Close() error {
	s.closeOnce.Do(func() {
		s.vm.Interrupt("guest detached")
	})
	return nil
}

// BindEmitter exposes `emit(name, data)` to the script once the pairing is
// established.
func (s *Script) BindEmitter(child *remote.Child) {
	s.vmMu.Lock()
	defer s.vmMu.Unlock()
	s.vm.Set("emit", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		var data any
		if len(call.Arguments) > 1 {
			data = call.Argument(1).Export()
		}
		if err := child.Emit(name, data); err != nil {
			s.log.Warn("emit failed", zap.String("event", name), zap.Error(err))
		}
		return goja.Undefined()
	})
}

func (s *Script) setupGlobals() {
	// No ambient capabilities inside the guest.
	s.vm.Set("require", goja.Undefined())
	s.vm.Set("process", goja.Undefined())

	console := s.vm.NewObject()
	console.Set("log", s.makeConsoleFunc("log"))
	console.Set("warn", s.makeConsoleFunc("warn"))
	console.Set("error", s.makeConsoleFunc("error"))
	s.vm.Set("console", console)

	model := s.vm.NewObject()
	model.Set("constant", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		s.model.Set(name, remote.Constant(call.Argument(1).Export()))
		return goja.Undefined()
	})
	model.Set("accessor", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(s.vm.NewTypeError("model.accessor requires a function"))
		}
		s.model.Set(name, remote.Accessor(func() any {
			s.vmMu.Lock()
			defer s.vmMu.Unlock()
			v, err := fn(goja.Undefined())
			if err != nil {
				s.log.Warn("accessor failed", zap.String("property", name), zap.Error(err))
				return nil
			}
			return v.Export()
		}))
		return goja.Undefined()
	})
	model.Set("procedure", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(s.vm.NewTypeError("model.procedure requires a function"))
		}
		s.model.Set(name, remote.Procedure(func(data any) {
			s.vmMu.Lock()
			defer s.vmMu.Unlock()
			if _, err := fn(goja.Undefined(), s.vm.ToValue(data)); err != nil {
				s.log.Warn("procedure failed", zap.String("property", name), zap.Error(err))
			}
		}))
		return goja.Undefined()
	})
	s.vm.Set("model", model)
}

func (s *Script) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")
		switch level {
		case "error":
			s.log.Error(msg)
		case "warn":
			s.log.Warn(msg)
		default:
			s.log.Debug(msg)
		}
		return goja.Undefined()
	}
}
