// Package runtime provides the high-level API for running Zong guests.
//
// # Quick Start
//
//	ctx := context.Background()
//	err := runtime.Run(ctx, "hello.wasm", engine.Default())
//
// Or step by step:
//
//	rt, err := runtime.New(ctx, engine.Default(),
//	    runtime.WithStdout(os.Stdout),
//	    runtime.WithStdin(os.Stdin))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.LoadFile(ctx, "hello.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(mod.Version()) // v4
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	err = inst.Run(ctx)
//
// # Errors
//
// Every failure is an *errors.Error or *errors.ImportMismatchError from the
// errors package: load failures from Load/LoadFile, import and export
// mismatches from Load or Instantiate, and traps (including fatal host
// call failures such as out of bounds descriptors) from Run.
package runtime
