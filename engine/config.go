package engine

import (
	"fmt"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/zong-runtime/errors"
	"github.com/wippyai/zong-runtime/protocol"
)

// Mode selects the wazero execution engine.
type Mode string

const (
	// ModeAuto uses the compiler where the platform supports it.
	ModeAuto        Mode = "auto"
	ModeInterpreter Mode = "interpreter"
	ModeCompiler    Mode = "compiler"
)

// Config holds configuration for engine creation
type Config struct {
	// Mode selects compiler or interpreter. Empty means ModeAuto.
	Mode Mode

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// Entry is the exported guest function run by Call. Empty means "main".
	Entry string

	// Protocol forces an import set. protocol.Unknown detects it from the
	// guest's imports.
	Protocol protocol.Version

	// CloseOnContextDone aborts a running guest when the call context is
	// cancelled.
	CloseOnContextDone bool
}

// Default returns the configuration used by the command line runner.
func Default() Config {
	return Config{
		Mode:  ModeAuto,
		Entry: protocol.DefaultEntry,
	}
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	switch c.Mode {
	case ModeAuto, ModeInterpreter, ModeCompiler:
	default:
		return errors.InvalidInput(errors.PhaseUsage, fmt.Sprintf("unknown engine mode %q (want auto, interpreter or compiler)", c.Mode))
	}
	if c.MemoryLimitPages > 65536 {
		return errors.InvalidInput(errors.PhaseUsage, fmt.Sprintf("memory limit %d exceeds 65536 pages", c.MemoryLimitPages))
	}
	if c.Entry == "" {
		c.Entry = protocol.DefaultEntry
	}
	if c.Protocol > protocol.V4 {
		return errors.InvalidInput(errors.PhaseUsage, fmt.Sprintf("unknown protocol version %d", c.Protocol))
	}
	return nil
}

func (c *Config) runtimeConfig() wazero.RuntimeConfig {
	var rc wazero.RuntimeConfig
	switch c.Mode {
	case ModeInterpreter:
		rc = wazero.NewRuntimeConfigInterpreter()
	case ModeCompiler:
		rc = wazero.NewRuntimeConfigCompiler()
	default:
		rc = wazero.NewRuntimeConfig()
	}
	if c.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	if c.CloseOnContextDone {
		rc = rc.WithCloseOnContextDone(true)
	}
	return rc
}
