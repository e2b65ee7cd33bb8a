package host

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/zong-runtime/errors"
	"github.com/wippyai/zong-runtime/protocol"
)

// Function is one host binding ready for registration with wazero.
type Function struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	Impl    api.GoModuleFunc
}

// Functions returns the bindings of v in import order.
//
// A failing call panics with the error; wazero turns the panic into a trap
// of the guest call, which the runtime reports as fatal.
func (h *Host) Functions(v protocol.Version) ([]Function, error) {
	imports := protocol.Functions(v)
	if len(imports) == 0 {
		return nil, errors.InvalidInput(errors.PhaseInstantiate, "no host functions for protocol "+v.String())
	}

	out := make([]Function, 0, len(imports))
	for _, imp := range imports {
		impl, ok := h.impl(imp.Name)
		if !ok {
			return nil, errors.NotFound(errors.PhaseInstantiate, "host function", imp.Name)
		}
		out = append(out, Function{
			Name:    imp.Name,
			Params:  imp.Func.Params,
			Results: imp.Func.Results,
			Impl:    impl,
		})
	}
	return out, nil
}

func (h *Host) impl(name string) (api.GoModuleFunc, bool) {
	switch name {
	case protocol.Print:
		return func(_ context.Context, _ api.Module, stack []uint64) {
			trap(h.Print(int64(stack[0])))
		}, true
	case protocol.PrintBytes:
		return func(_ context.Context, _ api.Module, stack []uint64) {
			trap(h.PrintBytes(api.DecodeU32(stack[0])))
		}, true
	case protocol.ReadLine:
		return func(_ context.Context, _ api.Module, stack []uint64) {
			trap(h.ReadLine(api.DecodeU32(stack[0])))
		}, true
	}
	return nil, false
}

func trap(err error) {
	if err != nil {
		panic(err)
	}
}
