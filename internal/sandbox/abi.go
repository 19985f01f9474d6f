package sandbox

import (
	"fmt"
	"unicode/utf8"

	"github.com/bytecodealliance/wasmtime-go/v25"
)

// guestMemory resolves the caller's exported "memory" on every call, since
// the guest can grow or shrink it between calls; never cache a slice across
// host-function invocations.
func guestMemory(caller *wasmtime.Caller) ([]byte, error) {
	ext := caller.GetExport("memory")
	if ext == nil {
		return nil, errMemoryExport
	}
	mem := ext.Memory()
	if mem == nil {
		return nil, errMemoryExport
	}
	return mem.UnsafeData(caller), nil
}

func readGuestBytes(caller *wasmtime.Caller, ptr, length uint32) ([]byte, error) {
	mem, err := guestMemory(caller)
	if err != nil {
		return nil, err
	}
	start, end := uint64(ptr), uint64(ptr)+uint64(length)
	if end > uint64(len(mem)) || end < start {
		return nil, errOutOfBounds
	}
	return mem[start:end], nil
}

func writeGuestBytes(caller *wasmtime.Caller, ptr uint32, data []byte) error {
	mem, err := guestMemory(caller)
	if err != nil {
		return err
	}
	start, end := uint64(ptr), uint64(ptr)+uint64(len(data))
	if end > uint64(len(mem)) || end < start {
		return errOutOfBounds
	}
	copy(mem[start:end], data)
	return nil
}

func readGuestString(caller *wasmtime.Caller, ptr, length uint32) (string, error) {
	raw, err := readGuestBytes(caller, ptr, length)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", errInvalidUTF8
	}
	return string(raw), nil
}

// AddToLinker registers the guest-callable host ABI under the "host" import
// module. Each callback closes over the per-job Context via the wasmtime
// store data.
func AddToLinker(linker *wasmtime.Linker) error {
	type binding struct {
		name string
		fn   interface{}
	}

	bindings := []binding{
		{"wadup_input_len", abiInputLen},
		{"wadup_input_read", abiInputRead},
		{"wadup_input_carve", abiInputCarve},
		{"wadup_output_create", abiOutputCreate},
		{"wadup_output_write", abiOutputWrite},
		{"wadup_output_read", abiOutputRead},
		{"wadup_output_len", abiOutputLen},
		{"wadup_metadata_schema", abiMetadataSchema},
		{"wadup_metadata_column", abiMetadataColumn},
		{"wadup_metadata_value_str", abiMetadataValueStr},
		{"wadup_metadata_value_i64", abiMetadataValueI64},
		{"wadup_metadata_value_f64", abiMetadataValueF64},
		{"wadup_metadata_flush_row", abiMetadataFlushRow},
		{"wadup_error", abiError},
	}

	for _, b := range bindings {
		if err := linker.FuncWrap("host", b.name, b.fn); err != nil {
			return fmt.Errorf("register host function %s: %w", b.name, err)
		}
	}
	return nil
}

func contextOf(caller *wasmtime.Caller) *Context {
	return caller.GetData().(*Context)
}

func abiInputLen(caller *wasmtime.Caller) uint64 {
	return contextOf(caller).inputLen()
}

func abiInputRead(caller *wasmtime.Caller, dst uint32, offset uint64, length uint32) (uint32, error) {
	c := contextOf(caller)
	buf := make([]byte, length)
	n := c.inputRead(offset, buf)
	if err := writeGuestBytes(caller, dst, buf[:n]); err != nil {
		return 0, fmt.Errorf("wadup_input_read: %w", err)
	}
	return uint32(n), nil
}

func abiInputCarve(caller *wasmtime.Caller, offset, length uint64) error {
	c := contextOf(caller)
	if err := c.spawnCarve(offset, length); err != nil {
		return fmt.Errorf("wadup_input_carve: %w", err)
	}
	return nil
}

func abiOutputCreate(caller *wasmtime.Caller) int32 {
	return contextOf(caller).outputs.create()
}

func abiOutputWrite(caller *wasmtime.Caller, fd int32, src uint32, offset uint64, length uint32) error {
	c := contextOf(caller)
	data, err := readGuestBytes(caller, src, length)
	if err != nil {
		return fmt.Errorf("wadup_output_write: %w", err)
	}
	if err := c.outputs.write(fd, offset, data); err != nil {
		return fmt.Errorf("wadup_output_write: %w", err)
	}
	return nil
}

func abiOutputRead(caller *wasmtime.Caller, fd int32, dst uint32, offset uint64, length uint32) (uint32, error) {
	c := contextOf(caller)
	buf := make([]byte, length)
	n, err := c.outputs.read(fd, offset, buf)
	if err != nil {
		return 0, fmt.Errorf("wadup_output_read: %w", err)
	}
	if err := writeGuestBytes(caller, dst, buf[:n]); err != nil {
		return 0, fmt.Errorf("wadup_output_read: %w", err)
	}
	return uint32(n), nil
}

func abiOutputLen(caller *wasmtime.Caller, fd int32) (uint64, error) {
	n, err := contextOf(caller).outputs.length(fd)
	if err != nil {
		return 0, fmt.Errorf("wadup_output_len: %w", err)
	}
	return n, nil
}

func abiMetadataSchema(caller *wasmtime.Caller, namePtr, nameLen uint32) (uint32, error) {
	name, err := readGuestString(caller, namePtr, nameLen)
	if err != nil {
		return 0, fmt.Errorf("wadup_metadata_schema: %w", err)
	}
	return contextOf(caller).schemas.intern(name), nil
}

// typeTag is accepted and ignored; columns are always dynamically typed by
// whichever metadata_value_* call stores into them.
func abiMetadataColumn(caller *wasmtime.Caller, schemaID, namePtr, nameLen, typeTag uint32) (uint32, error) {
	name, err := readGuestString(caller, namePtr, nameLen)
	if err != nil {
		return 0, fmt.Errorf("wadup_metadata_column: %w", err)
	}
	return contextOf(caller).columns.intern(schemaID, name), nil
}

func abiMetadataValueStr(caller *wasmtime.Caller, schemaID, columnID, ptr, length uint32) error {
	value, err := readGuestString(caller, ptr, length)
	if err != nil {
		return fmt.Errorf("wadup_metadata_value_str: %w", err)
	}
	contextOf(caller).pending.set(schemaID, columnID, StringValue(value))
	return nil
}

func abiMetadataValueI64(caller *wasmtime.Caller, schemaID, columnID uint32, value int64) {
	contextOf(caller).pending.set(schemaID, columnID, Int64Value(value))
}

func abiMetadataValueF64(caller *wasmtime.Caller, schemaID, columnID uint32, value float64) {
	contextOf(caller).pending.set(schemaID, columnID, Float64Value(value))
}

func abiMetadataFlushRow(caller *wasmtime.Caller, schemaID uint32) error {
	c := contextOf(caller)
	schemaName, ok := c.schemas.nameOf(schemaID)
	if !ok {
		return fmt.Errorf("wadup_metadata_flush_row: %w", errSchemaNotFound)
	}

	columns := c.columns.columns(schemaID)
	values := c.pending.flush(schemaID, columns)

	for i, col := range columns {
		// Diagnostic format only; may change without affecting core semantics.
		fmt.Printf("%s %s %s\n", schemaName, col.name, values[i])
	}
	return nil
}

func abiError(caller *wasmtime.Caller, ptr, length uint32) error {
	message, err := readGuestString(caller, ptr, length)
	if err != nil {
		return fmt.Errorf("wadup_error: %w", err)
	}
	return fmt.Errorf("wasm module: %s", message)
}
