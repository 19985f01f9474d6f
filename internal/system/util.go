// Package system holds small, dependency-free helpers shared across
// packages.
package system

import "os"

// PathExists reports whether path exists, distinguishing "doesn't exist"
// from a real stat error the caller should probably surface.
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ShortString truncates s to n runes, appending "..." when it had to cut
// anything. Used to keep guest-reported error strings and diagnostic
// messages from flooding the log with unbounded guest-controlled text.
func ShortString(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
