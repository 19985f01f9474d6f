package sandbox

import "errors"

// Errors returned by the host ABI bindings. Each becomes a fatal job error
// when it escapes a host function back into the guest call.
var (
	errBadOutputFD  = errors.New("output fd does not exist")
	errMemoryExport = errors.New("guest module does not export \"memory\"")
	errOutOfBounds  = errors.New("guest memory access out of bounds")
	errInvalidUTF8  = errors.New("string argument is not valid UTF-8")
	errSchemaNotFound = errors.New("schema id not found")
)
