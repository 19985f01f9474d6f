//go:build windows

package admission

// CheckOpenFileLimit is a no-op on Windows, which has no RLIMIT_NOFILE
// equivalent exposed through syscall.
func CheckOpenFileLimit() error { return nil }
