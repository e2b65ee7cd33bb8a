package zongruntime

// MemorySizer provides the current size of WASM linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Memory represents WASM linear memory as seen by host calls.
// Every access is checked against the current Size.
type Memory interface {
	MemorySizer
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// Cursor is read/write access to the guest's tstack global.
type Cursor interface {
	Get() (int32, error)
	Set(value int32) error
}

// Allocator hands out transient guest memory. There is no Free:
// reservations live until the guest resets the cursor itself.
type Allocator interface {
	Reserve(n uint64) (uint32, error)
}
