package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/zong-runtime/errors"
	"github.com/wippyai/zong-runtime/host"
	"github.com/wippyai/zong-runtime/internal/wasmbin"
	"github.com/wippyai/zong-runtime/memory"
	"github.com/wippyai/zong-runtime/protocol"
	"github.com/wippyai/zong-runtime/tstack"
)

// hostModuleName holds the host functions when "env" itself has to be a
// synthetic module carrying the tstack global.
const hostModuleName = "zong:host"

// WazeroEngine implements the embedding driver on a wazero runtime
type WazeroEngine struct {
	runtime wazero.Runtime
	cfg     Config
}

// NewWazeroEngine creates a new engine with the given configuration.
// A nil cfg means Default().
func NewWazeroEngine(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	c := Default()
	if cfg != nil {
		c = *cfg
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	rt := wazero.NewRuntimeWithConfig(ctx, c.runtimeConfig())
	Logger().Debug("engine created",
		zap.String("mode", string(c.Mode)),
		zap.Uint32("memory_limit_pages", c.MemoryLimitPages),
		zap.String("protocol", c.Protocol.String()))
	return &WazeroEngine{runtime: rt, cfg: c}, nil
}

// Config returns the validated configuration.
func (e *WazeroEngine) Config() Config {
	return e.cfg
}

// LoadModule compiles a guest and resolves its protocol version. Import and
// export requirements are checked here, before anything is instantiated.
func (e *WazeroEngine) LoadModule(ctx context.Context, wasmBytes []byte) (*WazeroModule, error) {
	imports, err := wasmbin.ParseImports(wasmBytes)
	if err != nil {
		return nil, errors.Load("read imports", err)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}

	m := &WazeroModule{
		engine:   e,
		compiled: compiled,
		imports:  imports,
	}
	if err := m.resolve(); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	Logger().Debug("module loaded",
		zap.String("protocol", m.version.String()),
		zap.String("imports", m.version.Name()),
		zap.String("entry", e.cfg.Entry))
	return m, nil
}

// Close releases the runtime and every module created from it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// WazeroModule is a compiled guest with a resolved protocol version.
type WazeroModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
	imports  []wasmbin.Import
	version  protocol.Version
}

// Version returns the protocol the guest was bound to.
func (m *WazeroModule) Version() protocol.Version {
	return m.version
}

// Imports returns the guest's declared imports in order.
func (m *WazeroModule) Imports() []wasmbin.Import {
	return m.imports
}

func (m *WazeroModule) resolve() error {
	if err := m.crossCheckImports(); err != nil {
		return err
	}

	if m.engine.cfg.Protocol == protocol.Unknown {
		v, err := protocol.Detect(m.imports)
		if err != nil {
			return err
		}
		m.version = v
	} else {
		if err := protocol.Check(m.engine.cfg.Protocol, m.imports); err != nil {
			return err
		}
		m.version = m.engine.cfg.Protocol
	}

	entry := m.engine.cfg.Entry
	def, ok := m.compiled.ExportedFunctions()[entry]
	if !ok {
		return errors.MissingExport(entry, "function")
	}
	if len(def.ParamTypes()) != 0 || len(def.ResultTypes()) != 0 {
		got := wasmbin.FuncType{Params: def.ParamTypes(), Results: def.ResultTypes()}
		return errors.TypeMismatch(errors.PhaseInstantiate, []string{entry}, "func()", got.String())
	}

	if m.version.NeedsMemory() {
		if _, ok := m.compiled.ExportedMemories()[protocol.MemoryExport]; !ok {
			return errors.MissingExport(protocol.MemoryExport, "memory")
		}
	}
	return nil
}

// crossCheckImports compares the parsed function imports with wazero's view
// of the compiled module.
func (m *WazeroModule) crossCheckImports() error {
	defs := m.compiled.ImportedFunctions()
	var funcs []wasmbin.Import
	for _, imp := range m.imports {
		if imp.Kind == wasmbin.KindFunc {
			funcs = append(funcs, imp)
		}
	}
	if len(defs) != len(funcs) {
		return errors.Load("read imports", fmt.Errorf("parsed %d function imports, compiler reports %d", len(funcs), len(defs)))
	}
	for i, def := range defs {
		mod, name, _ := def.Import()
		got := wasmbin.FuncType{Params: def.ParamTypes(), Results: def.ResultTypes()}
		if mod != funcs[i].Module || name != funcs[i].Name || !got.Equal(funcs[i].Func) {
			return errors.Load("read imports", fmt.Errorf("import %d: parsed %s %s, compiler reports %s#%s %s",
				i, funcs[i].Key(), funcs[i].Func, mod, name, got))
		}
	}
	return nil
}

// Close releases the compiled module.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instantiate links the host functions of the resolved protocol, creates
// the guest instance and binds its memory and cursor to h.
//
// The env modules are named, so only one instance of an engine may be live
// at a time; Close the previous instance first.
func (m *WazeroModule) Instantiate(ctx context.Context, h *host.Host) (*WazeroInstance, error) {
	fns, err := h.Functions(m.version)
	if err != nil {
		return nil, err
	}

	inst := &WazeroInstance{module: m, host: h}

	var env api.Module
	if m.version.HostSuppliesCursor() {
		if _, err := m.instantiateHost(ctx, hostModuleName, fns, inst); err != nil {
			return nil, err
		}
		if env, err = m.instantiateEnv(ctx, fns, inst); err != nil {
			_ = inst.Close(ctx)
			return nil, err
		}
	} else if _, err := m.instantiateHost(ctx, protocol.ModuleName, fns, inst); err != nil {
		return nil, err
	}

	guest, err := m.engine.runtime.InstantiateModule(ctx, m.compiled,
		wazero.NewModuleConfig().WithName("").WithStartFunctions())
	if err != nil {
		_ = inst.Close(ctx)
		return nil, errors.Instantiation("instantiate guest", err)
	}
	inst.instance = guest

	if err := inst.bind(env); err != nil {
		_ = inst.Close(ctx)
		return nil, err
	}

	inst.entry = guest.ExportedFunction(m.engine.cfg.Entry)
	if inst.entry == nil {
		_ = inst.Close(ctx)
		return nil, errors.MissingExport(m.engine.cfg.Entry, "function")
	}
	return inst, nil
}

func (m *WazeroModule) instantiateHost(ctx context.Context, name string, fns []host.Function, inst *WazeroInstance) (api.Module, error) {
	b := m.engine.runtime.NewHostModuleBuilder(name)
	for _, fn := range fns {
		b.NewFunctionBuilder().
			WithGoModuleFunction(fn.Impl, fn.Params, fn.Results).
			WithName(fn.Name).
			Export(fn.Name)
	}
	mod, err := b.Instantiate(ctx)
	if err != nil {
		return nil, errors.Registration(name, fns[0].Name, err)
	}
	inst.linked = append(inst.linked, mod)
	return mod, nil
}

func (m *WazeroModule) instantiateEnv(ctx context.Context, fns []host.Function, inst *WazeroInstance) (api.Module, error) {
	b := wasmbin.NewEnvModuleBuilder(hostModuleName)
	for _, fn := range fns {
		b.AddFunc(fn.Name, fn.Params, fn.Results)
	}
	b.AddLocalGlobal(protocol.TStack, api.ValueTypeI32, true, 0)

	env, err := m.engine.runtime.InstantiateWithConfig(ctx, b.Build(),
		wazero.NewModuleConfig().WithName(protocol.ModuleName))
	if err != nil {
		return nil, errors.Instantiation("instantiate env module", err)
	}
	inst.linked = append(inst.linked, env)
	return env, nil
}

// WazeroInstance is a live guest bound to a host.
type WazeroInstance struct {
	module   *WazeroModule
	host     *host.Host
	instance api.Module
	linked   []api.Module
	entry    api.Function
	memory   *memory.View
	alloc    *tstack.Allocator
}

func (i *WazeroInstance) bind(env api.Module) error {
	v := i.module.version

	i.memory = memory.Wrap(i.instance.ExportedMemory(protocol.MemoryExport))
	if v.NeedsMemory() && i.memory == nil {
		return errors.MissingExport(protocol.MemoryExport, "memory")
	}

	var cursorGlobal api.Global
	required := true
	switch {
	case v.HostSuppliesCursor():
		cursorGlobal = env.ExportedGlobal(protocol.TStack)
	case v.NeedsGuestCursor():
		cursorGlobal = i.instance.ExportedGlobal(protocol.TStack)
		if cursorGlobal == nil {
			return errors.MissingExport(protocol.TStack, "mutable i32 global")
		}
	default:
		// unused by v1 and v3; bound only when usable
		cursorGlobal = i.instance.ExportedGlobal(protocol.TStack)
		required = false
	}

	if cursorGlobal != nil && i.memory != nil {
		cursor, err := tstack.NewGlobalCursor(cursorGlobal)
		switch {
		case err == nil:
			i.alloc = tstack.New(cursor, i.memory)
		case required:
			return err
		default:
			Logger().Debug("ignoring unusable tstack export",
				zap.String("protocol", v.String()),
				zap.Error(err))
		}
	}

	b := host.Binding{}
	if i.memory != nil {
		b.Memory = i.memory
	}
	if i.alloc != nil {
		b.Alloc = i.alloc
	}
	i.host.Bind(b)
	return nil
}

// Version returns the protocol the instance is bound with.
func (i *WazeroInstance) Version() protocol.Version {
	return i.module.version
}

// Memory returns the guest memory view, or nil when the guest exports none.
func (i *WazeroInstance) Memory() *memory.View {
	return i.memory
}

// Allocator returns the transient stack allocator, or nil when the guest
// has no tstack cursor or memory.
func (i *WazeroInstance) Allocator() *tstack.Allocator {
	return i.alloc
}

// Call runs the entry function once. A trap, including a failed host call,
// is returned as a runtime error wrapping the cause.
func (i *WazeroInstance) Call(ctx context.Context) error {
	if i.entry == nil {
		return errors.NotInitialized(errors.PhaseRuntime, "instance")
	}
	_, callErr := i.entry.Call(ctx)
	flushErr := i.host.Flush()
	if callErr != nil {
		return errors.Trap(i.module.engine.cfg.Entry, callErr)
	}
	return flushErr
}

// Close releases the guest and its env modules.
func (i *WazeroInstance) Close(ctx context.Context) error {
	var firstErr error
	if i.instance != nil {
		if err := i.instance.Close(ctx); err != nil {
			firstErr = err
		}
		i.instance = nil
	}
	for j := len(i.linked) - 1; j >= 0; j-- {
		if err := i.linked[j].Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	i.linked = nil
	i.entry = nil
	return firstErr
}
