package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/zong-runtime/engine"
	"github.com/wippyai/zong-runtime/host"
)

type Instance struct {
	module         *Module
	wazeroInstance *engine.WazeroInstance
	host           *host.Host
}

// Run calls the guest entry function once, to completion. Output written
// before a trap is kept.
func (i *Instance) Run(ctx context.Context) error {
	err := i.wazeroInstance.Call(ctx)

	stats := i.host.Stats()
	fields := []zap.Field{
		zap.Uint64("prints", stats.Prints),
		zap.Uint64("bytes_written", stats.BytesWritten),
		zap.Uint64("lines_read", stats.LinesRead),
		zap.Uint64("bytes_read", stats.BytesRead),
	}
	if a := i.wazeroInstance.Allocator(); a != nil {
		fields = append(fields, zap.Uint64("tstack_reserved", a.Reserved()))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	i.module.runtime.logger().Debug("guest finished", fields...)

	return err
}

// Host returns the host surface serving this instance.
func (i *Instance) Host() *host.Host {
	return i.host
}

// Engine returns the underlying engine instance.
func (i *Instance) Engine() *engine.WazeroInstance {
	return i.wazeroInstance
}

func (i *Instance) Close(ctx context.Context) error {
	return i.wazeroInstance.Close(ctx)
}
