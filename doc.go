// Package zongruntime runs Zong guest programs compiled to WebAssembly.
//
// A guest talks to the host through a handful of imports from module "env":
//
//	print(i64)            write a decimal integer and a newline
//	print_bytes(i32)      write the bytes named by a slice descriptor
//	read_line(i32)        read one stdin line into transient guest memory
//	tstack (global i32)   the transient stack cursor
//
// A slice descriptor is 16 bytes in guest memory: a little-endian u32
// pointer, 4 bytes of padding, and a little-endian u64 length.
//
// # Architecture Overview
//
//	zongruntime/          Root package with Memory, Cursor and Allocator interfaces
//	├── runtime/          High-level API: load, instantiate, run
//	├── engine/           wazero integration and host module wiring
//	├── protocol/         Import sets (v1..v4) and detection from guest imports
//	├── host/             print, print_bytes, read_line
//	├── slice/            Slice descriptor codec
//	├── tstack/           Bump allocator over the tstack global
//	├── memory/           Bounds-checked guest memory view
//	├── errors/           Structured error types
//	└── cmd/zongrun/      Command line runner
//
// # Quick Start
//
//	rt, err := runtime.New(ctx, engine.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.LoadFile(ctx, "hello.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	err = inst.Run(ctx)
//
// # Thread Safety
//
// A guest is single threaded and host calls run synchronously on the
// goroutine that called Run. Neither Runtime nor Instance is safe for
// concurrent use, and a Runtime holds at most one open Instance because the
// host module is registered under the fixed name "env".
//
// # Memory Model
//
// Lines returned by read_line are bump-allocated from the tstack cursor and
// never freed by the host. A long-running interactive guest grows its
// transient stack by the total length of all lines read, unless it saves and
// restores the cursor around each read.
package zongruntime
