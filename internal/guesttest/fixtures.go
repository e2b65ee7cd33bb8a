package guesttest

import "github.com/tetratelabs/wazero/api"

// Layout used by the fixture guests.
const (
	// DescAddr is where fixtures keep their first slice descriptor.
	DescAddr = 0
	// SecondDescAddr holds a second descriptor.
	SecondDescAddr = 16
	// TextAddr is where fixture string data starts.
	TextAddr = 64
	// TStackBase is the initial tstack value of fixtures that export one.
	TStackBase = 1024
)

// PrintGuest imports print and prints each value in order.
func PrintGuest(values ...int64) *Module {
	var body [][]byte
	for _, v := range values {
		body = append(body, I64Const(v), Call(0))
	}
	return &Module{
		Imports: []Import{PrintImport},
		Funcs:   []Func{Main(body...)},
	}
}

// TStackGuest imports print and the tstack global. It stores n into the
// cursor, then prints the cursor value.
func TStackGuest(n int32) *Module {
	return &Module{
		Imports: []Import{PrintImport, TStackImport},
		Funcs: []Func{Main(
			I32Const(n), GlobalSet(0),
			GlobalGet(0), I64ExtendI32S(), Call(0),
		)},
	}
}

// PrintBytesGuest prints text through print_bytes, then print(len(text)).
func PrintBytesGuest(text string) *Module {
	return &Module{
		Imports:      []Import{PrintImport, PrintBytesImport},
		MemoryPages:  1,
		MemoryExport: "memory",
		Funcs: []Func{Main(
			I32Const(DescAddr), Call(1),
			I64Const(int64(len(text))), Call(0),
		)},
		Data: []Data{
			{Offset: DescAddr, Bytes: Descriptor(TextAddr, uint64(len(text)))},
			{Offset: TextAddr, Bytes: []byte(text)},
		},
	}
}

// PrintBytesAtGuest calls print_bytes with an arbitrary descriptor address.
func PrintBytesAtGuest(addr int32) *Module {
	return &Module{
		Imports:      []Import{PrintImport, PrintBytesImport},
		MemoryPages:  1,
		MemoryExport: "memory",
		Funcs:        []Func{Main(I32Const(addr), Call(1))},
	}
}

// EchoGuest reads lines until end of input and echoes each with
// print_bytes. It saves the cursor before each read and restores it after
// printing, so the transient stack does not grow. The last read leaves the
// {0, 0} descriptor at DescAddr.
func EchoGuest(restoreCursor bool) *Module {
	const saved = 0 // local index

	// loop: read_line(DescAddr); if len == 0 break; print_bytes(DescAddr)
	loop := Concat(
		GlobalGet(0), LocalSet(saved),
		I32Const(DescAddr), Call(2),
		// i64.load offset=8 of DescAddr, eqz, br_if 1
		I32Const(DescAddr), []byte{0x29, 0x03, 0x08}, []byte{0x50}, []byte{0x0d, 0x01},
		I32Const(DescAddr), Call(1),
	)
	if restoreCursor {
		loop = Concat(loop, LocalGet(saved), GlobalSet(0))
	}
	loop = Concat(loop, []byte{0x0c, 0x00}) // br 0

	body := Concat(
		[]byte{0x02, 0x40}, // block
		[]byte{0x03, 0x40}, // loop
		loop,
		[]byte{0x0b}, // end loop
		[]byte{0x0b}, // end block
	)

	return &Module{
		Imports:      []Import{PrintImport, PrintBytesImport, ReadLineImport},
		MemoryPages:  1,
		MemoryExport: "memory",
		Globals:      []Global{TStackGlobal(TStackBase)},
		Funcs: []Func{{
			Name:   "main",
			Locals: []api.ValueType{api.ValueTypeI32},
			Body:   body,
		}},
	}
}

// ReadTwiceGuest calls read_line into DescAddr and then SecondDescAddr.
func ReadTwiceGuest() *Module {
	return &Module{
		Imports:      []Import{PrintImport, PrintBytesImport, ReadLineImport},
		MemoryPages:  1,
		MemoryExport: "memory",
		Globals:      []Global{TStackGlobal(TStackBase)},
		Funcs: []Func{Main(
			I32Const(DescAddr), Call(2),
			I32Const(SecondDescAddr), Call(2),
		)},
	}
}
