//go:build !windows

package admission

import (
	"fmt"
	"syscall"
)

// minOpenFiles is a conservative floor: the ingestion driver holds at most
// one mapped file open per in-flight admission plus the module directory's
// descriptors, so this only ever fires on heavily constrained systems.
const minOpenFiles = 512

// CheckOpenFileLimit reads RLIMIT_NOFILE and warns (via the returned error)
// if it's too low to sustain admitting several mapped files concurrently
// under back-pressure, since each in-flight MappedFile holds its own
// descriptor open.
func CheckOpenFileLimit() error {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return fmt.Errorf("getrlimit RLIMIT_NOFILE: %w", err)
	}

	if rLimit.Cur < uint64(minOpenFiles) {
		return fmt.Errorf("open file limit %d is below the recommended minimum of %d for concurrent input mapping", rLimit.Cur, minOpenFiles)
	}

	return nil
}
