// Package engine binds Zong guests to host functions on a wazero runtime.
//
// # Architecture
//
// The engine package provides three main types:
//
//	WazeroEngine   - Creates and manages the wazero runtime
//	WazeroModule   - A compiled guest with its resolved protocol version
//	WazeroInstance - A running guest bound to a host.Host
//
// # Instantiation Flow
//
//  1. WazeroEngine.LoadModule() compiles the guest, reads its import section
//     and resolves the protocol version (detected, or checked when forced)
//  2. Entry and memory exports are checked before anything is instantiated
//  3. WazeroModule.Instantiate() registers the host functions in protocol
//     order as module "env" and instantiates the guest
//  4. The guest's memory and tstack global are bound to the host surface
//  5. WazeroInstance.Call() runs the entry function once
//
// # Host-supplied tstack
//
// wazero host modules export functions only. For the print+tstack protocol
// the host functions live in an internal module and "env" is a small
// generated module that re-exports them next to a mutable i32 global:
//
//	zong:host  print            (Go)
//	env        print, tstack    (generated, imports zong:host)
//	guest      imports env
//
// # Traps
//
// Host functions report fatal conditions by panicking with a structured
// error. wazero converts the panic into a failed call, and Call returns it
// wrapped in a runtime trap error; errors.Is still reaches the cause.
package engine
