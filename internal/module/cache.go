package module

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// cacheHeaderSize is the length in bytes of the two little-endian u64
// prefixes: engine_fingerprint then module_modified_secs, each 8 bytes.
const cacheHeaderSize = 16

// cachePath returns the sibling cache file path for a module file.
func cachePath(modulePath string) string {
	return modulePath + "_precompiled"
}

// readCache reads the cache file at path and returns its trailing
// compiled-module bytes, provided both header integers match the supplied
// fingerprint and modified time.
func readCache(path string, engineFingerprint, moduleModified uint64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	header := make([]byte, cacheHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("read cache header: %w", err)
	}

	gotFingerprint := binary.LittleEndian.Uint64(header[0:8])
	gotModified := binary.LittleEndian.Uint64(header[8:16])

	if gotFingerprint != engineFingerprint {
		return nil, fmt.Errorf("cache engine fingerprint mismatch: have %d, want %d", gotFingerprint, engineFingerprint)
	}
	if gotModified != moduleModified {
		return nil, fmt.Errorf("cache module-modified mismatch: have %d, want %d", gotModified, moduleModified)
	}

	compiled, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read cache body: %w", err)
	}
	return compiled, nil
}

// writeCache writes the cache file header followed by compiled, best-effort:
// a failure here is logged by the caller but never fails module loading,
// since the cache is purely an optimization.
func writeCache(path string, engineFingerprint, moduleModified uint64, compiled []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer f.Close()

	header := make([]byte, cacheHeaderSize)
	binary.LittleEndian.PutUint64(header[0:8], engineFingerprint)
	binary.LittleEndian.PutUint64(header[8:16], moduleModified)

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("write cache header: %w", err)
	}
	if _, err := f.Write(compiled); err != nil {
		return fmt.Errorf("write cache body: %w", err)
	}
	return nil
}
