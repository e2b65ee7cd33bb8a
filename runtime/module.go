package runtime

import (
	"context"

	"github.com/wippyai/zong-runtime/engine"
	"github.com/wippyai/zong-runtime/protocol"
)

type Module struct {
	runtime      *Runtime
	wazeroModule *engine.WazeroModule
}

// Version returns the protocol the guest declared.
func (m *Module) Version() protocol.Version {
	return m.wazeroModule.Version()
}

// Instantiate links host functions and creates the guest instance. Only one
// instance per Runtime may be open at a time.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	h := m.runtime.newHost()
	wazeroInstance, err := m.wazeroModule.Instantiate(ctx, h)
	if err != nil {
		return nil, err
	}

	return &Instance{
		module:         m,
		wazeroInstance: wazeroInstance,
		host:           h,
	}, nil
}

func (m *Module) Close(ctx context.Context) error {
	return m.wazeroModule.Close(ctx)
}
