package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/zong-runtime/engine"
	"github.com/wippyai/zong-runtime/host"
	"github.com/wippyai/zong-runtime/protocol"
	"github.com/wippyai/zong-runtime/runtime"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("zongrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		proto       = fs.String("protocol", "auto", "Import protocol: auto, v1, v2, v3 or v4")
		entry       = fs.String("entry", protocol.DefaultEntry, "Exported function to run")
		mode        = fs.String("engine", string(engine.ModeAuto), "Execution engine: auto, interpreter or compiler")
		memPages    = fs.Uint("memory-limit-pages", 0, "Maximum guest memory in 64KiB pages (0 = no limit)")
		verbose     = fs.Bool("v", false, "Log runtime diagnostics to stderr")
		logFormat   = fs.String("log-format", "console", "Diagnostic log format: console or json")
		interactive = fs.Bool("i", false, "Interactive mode with TUI")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: zongrun [flags] <file.wasm>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: zongrun [flags] <file.wasm>")
		return 1
	}
	path := fs.Arg(0)

	version, err := protocol.ParseVersion(*proto)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *memPages > 65536 {
		fmt.Fprintf(stderr, "Error: memory limit %d exceeds 65536 pages\n", *memPages)
		return 1
	}

	cfg := engine.Default()
	cfg.Mode = engine.Mode(*mode)
	cfg.Entry = *entry
	cfg.Protocol = version
	cfg.MemoryLimitPages = uint32(*memPages)

	logger, err := newLogger(stderr, *verbose, *logFormat)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck
	engine.SetLogger(logger.Named("engine"))
	host.SetLogger(logger.Named("host"))
	runtime.SetLogger(logger.Named("runtime"))

	if *interactive {
		if f, ok := stdin.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
			fmt.Fprintln(stderr, "Error: interactive mode needs a terminal on stdin")
			return 1
		}
		cfg.CloseOnContextDone = true
		if err := runInteractive(path, cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	err = runtime.Run(context.Background(), path, cfg,
		runtime.WithStdout(stdout),
		runtime.WithStdin(stdin))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// newLogger writes diagnostics to stderr. Without -v only warnings and
// errors are logged.
func newLogger(stderr io.Writer, verbose bool, format string) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	var enc zapcore.Encoder
	switch format {
	case "console":
		if f, ok := stderr.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json)", format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(stderr), level)
	return zap.New(core), nil
}
