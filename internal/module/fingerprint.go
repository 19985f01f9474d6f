package module

import (
	"fmt"
	"runtime"

	"github.com/cespare/xxhash/v2"
	"github.com/bytecodealliance/wasmtime-go/v25"
)

// abiVersion bumps whenever the compiled-module binary format this host
// writes/reads changes in a way that isn't already reflected in the
// wasmtime version string (e.g. a change to our own cache header layout).
const abiVersion = 1

// EngineFingerprint computes a deterministic hash of everything that
// affects whether a compiled module serialized by this process can be
// safely deserialized by another: the CPU architecture, OS, Go runtime
// version, wasmtime-go version, and our own cache format version. This
// stands in for the Rust original's engine.precompile_compatibility_hash(),
// which wasmtime exposes directly; the Go bindings don't, so the
// fingerprint is assembled host-side from the same inputs that hash is
// documented to cover.
func EngineFingerprint() uint64 {
	descriptor := fmt.Sprintf("%s/%s/%s/wasmtime-go=%s/abi=%d",
		runtime.GOOS, runtime.GOARCH, runtime.Version(), wasmtime.Version, abiVersion)
	return xxhash.Sum64String(descriptor)
}
