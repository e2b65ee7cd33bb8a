// Package host implements the functions a Zong guest imports from "env":
// print, print_bytes and read_line.
//
// A Host owns the process streams. Guest-scoped state, the memory view and
// the transient stack allocator, is attached with Bind once the guest is
// instantiated; nothing here is global.
package host

import (
	"bufio"
	stderrors "errors"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	zongruntime "github.com/wippyai/zong-runtime"
	"github.com/wippyai/zong-runtime/errors"
	"github.com/wippyai/zong-runtime/memory"
	"github.com/wippyai/zong-runtime/protocol"
	"github.com/wippyai/zong-runtime/slice"
)

// Binding is the guest-scoped capability set used by host calls.
type Binding struct {
	Memory zongruntime.Memory
	Alloc  zongruntime.Allocator
}

// Stats counts host call activity for one guest run.
type Stats struct {
	Prints       uint64
	BytesWritten uint64
	LinesRead    uint64
	BytesRead    uint64
	ReadFailures uint64
}

// Host serves the env imports of one guest instance.
type Host struct {
	stdout  io.Writer
	stdin   *bufio.Reader
	logger  *zap.Logger
	binding *Binding
	stats   Stats
}

// Option configures a Host.
type Option func(*Host)

// WithStdout sets the destination of print and print_bytes.
func WithStdout(w io.Writer) Option {
	return func(h *Host) { h.stdout = w }
}

// WithStdin sets the source of read_line.
func WithStdin(r io.Reader) Option {
	return func(h *Host) {
		if br, ok := r.(*bufio.Reader); ok {
			h.stdin = br
			return
		}
		h.stdin = bufio.NewReader(r)
	}
}

// WithLogger overrides the package logger for this host.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// New creates a host reading os.Stdin and writing os.Stdout unless
// overridden.
func New(opts ...Option) *Host {
	h := &Host{logger: Logger()}
	for _, opt := range opts {
		opt(h)
	}
	if h.stdout == nil {
		h.stdout = os.Stdout
	}
	if h.stdin == nil {
		h.stdin = bufio.NewReader(os.Stdin)
	}
	return h
}

// Bind attaches the guest's memory view and allocator. Alloc may be nil for
// protocols without read_line.
func (h *Host) Bind(b Binding) {
	h.binding = &b
}

// Stats returns counters accumulated since the host was created.
func (h *Host) Stats() Stats {
	return h.stats
}

// Print writes n in decimal followed by a newline.
func (h *Host) Print(n int64) error {
	buf := strconv.AppendInt(make([]byte, 0, 21), n, 10)
	buf = append(buf, '\n')
	if err := h.write(protocol.Print, buf); err != nil {
		return err
	}
	h.stats.Prints++
	return nil
}

// PrintBytes writes the bytes named by the descriptor at addr, verbatim.
func (h *Host) PrintBytes(addr uint32) error {
	mem, err := h.memory(protocol.PrintBytes)
	if err != nil {
		return err
	}
	d, err := slice.Decode(mem, addr)
	if err != nil {
		return at(err, protocol.PrintBytes, "descriptor")
	}
	data, err := d.Bytes(mem)
	if err != nil {
		return at(err, protocol.PrintBytes, "items")
	}
	h.logger.Debug("print_bytes", zap.Uint32("ptr", d.Ptr), zap.Uint64("len", d.Len))
	return h.write(protocol.PrintBytes, data)
}

// ReadLine reads one line from stdin into transient guest memory and stores
// its descriptor at dest. The terminator is kept when present; a final line
// without one is returned as is. At end of input, or on a read error, the
// {0, 0} descriptor is stored and the cursor is not moved.
func (h *Host) ReadLine(dest uint32) error {
	mem, err := h.memory(protocol.ReadLine)
	if err != nil {
		return err
	}
	if err := memory.Check(mem, errors.PhaseEncode, uint64(dest), slice.Size); err != nil {
		return at(err, protocol.ReadLine, "dest")
	}
	if h.binding.Alloc == nil {
		return errors.NotInitialized(errors.PhaseHost, "transient stack")
	}
	if err := h.Flush(); err != nil {
		return err
	}

	line, err := h.stdin.ReadBytes('\n')
	if err != nil && !stderrors.Is(err, io.EOF) {
		h.stats.ReadFailures++
		h.logger.Warn("read_line failed, returning empty slice", zap.Error(err))
		return slice.EncodeEmpty(mem, dest)
	}
	if len(line) == 0 {
		h.logger.Debug("read_line at end of input")
		return slice.EncodeEmpty(mem, dest)
	}

	ptr, err := h.binding.Alloc.Reserve(uint64(len(line)))
	if err != nil {
		return at(err, protocol.ReadLine, "tstack")
	}
	if err := mem.Write(ptr, line); err != nil {
		return at(err, protocol.ReadLine, "items")
	}
	if err := slice.Encode(mem, dest, slice.Descriptor{Ptr: ptr, Len: uint64(len(line))}); err != nil {
		return at(err, protocol.ReadLine, "dest")
	}

	h.stats.LinesRead++
	h.stats.BytesRead += uint64(len(line))
	h.logger.Debug("read_line", zap.Uint32("ptr", ptr), zap.Int("len", len(line)))
	return nil
}

type flusher interface {
	Flush() error
}

// Flush flushes stdout when it buffers.
func (h *Host) Flush() error {
	f, ok := h.stdout.(flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(); err != nil {
		return errors.IO(nil, "flush stdout", err)
	}
	return nil
}

func (h *Host) write(fn string, data []byte) error {
	n, err := h.stdout.Write(data)
	h.stats.BytesWritten += uint64(n)
	if err != nil {
		return errors.IO([]string{fn}, "write stdout", err)
	}
	if n != len(data) {
		return errors.IO([]string{fn}, "write stdout", io.ErrShortWrite)
	}
	return nil
}

func (h *Host) memory(fn string) (zongruntime.Memory, error) {
	if h.binding == nil || h.binding.Memory == nil {
		return nil, errors.New(errors.PhaseHost, errors.KindNotInitialized).
			Path(fn).Detail("guest memory not bound").Build()
	}
	return h.binding.Memory, nil
}

// at prefixes the path of a structured error with the host function and
// argument it came from.
func at(err error, fn, arg string) error {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return err
	}
	scoped := *e
	scoped.Path = append([]string{fn, arg}, e.Path...)
	return &scoped
}
