package runtime

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/zong-runtime/engine"
	"github.com/wippyai/zong-runtime/errors"
	"github.com/wippyai/zong-runtime/host"
)

type Runtime struct {
	engine *engine.WazeroEngine
	opts   options
}

type options struct {
	stdout io.Writer
	stdin  io.Reader
	logger *zap.Logger
}

// Option configures a Runtime.
type Option func(*options)

// WithStdout sets where guest output goes. Default os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithStdin sets where read_line reads from. Default os.Stdin.
func WithStdin(r io.Reader) Option {
	return func(o *options) { o.stdin = r }
}

// WithLogger sets the logger used for runtime and host diagnostics. Without
// it the runtime logs through Logger() and each host through host.Logger().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func New(ctx context.Context, cfg engine.Config, opts ...Option) (*Runtime, error) {
	o := options{stdout: os.Stdout, stdin: os.Stdin}
	for _, opt := range opts {
		opt(&o)
	}

	eng, err := engine.NewWazeroEngine(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	return &Runtime{engine: eng, opts: o}, nil
}

// Close releases all runtime resources.
// All instances must be closed before calling this.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

// Load compiles a guest module and resolves its protocol version.
func (r *Runtime) Load(ctx context.Context, wasm []byte) (*Module, error) {
	wazeroModule, err := r.engine.LoadModule(ctx, wasm)
	if err != nil {
		return nil, err
	}

	r.logger().Debug("guest loaded",
		zap.Int("bytes", len(wasm)),
		zap.Stringer("protocol", wazeroModule.Version()))

	return &Module{
		runtime:      r,
		wazeroModule: wazeroModule,
	}, nil
}

// LoadFile reads and loads a guest module from path.
func (r *Runtime) LoadFile(ctx context.Context, path string) (*Module, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
				Path(path).Detail("module file not found").Cause(err).Build()
		}
		return nil, errors.Load("read module file "+path, err)
	}
	return r.Load(ctx, wasm)
}

// Run loads the module at path, runs its entry function once and releases
// everything.
func Run(ctx context.Context, path string, cfg engine.Config, opts ...Option) error {
	rt, err := New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	mod, err := rt.LoadFile(ctx, path)
	if err != nil {
		return err
	}
	defer mod.Close(ctx)

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	return inst.Run(ctx)
}

func (r *Runtime) logger() *zap.Logger {
	if r.opts.logger != nil {
		return r.opts.logger
	}
	return Logger()
}

func (r *Runtime) newHost() *host.Host {
	opts := []host.Option{
		host.WithStdout(r.opts.stdout),
		host.WithStdin(r.opts.stdin),
	}
	if r.opts.logger != nil {
		opts = append(opts, host.WithLogger(r.opts.logger))
	}
	return host.New(opts...)
}
