// Package blob implements the read-only byte-range abstraction shared by
// mapped input files, carved sub-ranges, and plug-in output buffers.
package blob

// Blob is an immutable, shareable byte range. Out-of-range reads saturate:
// they return fewer bytes than requested rather than failing.
type Blob interface {
	// Len returns the total length of the blob in bytes.
	Len() uint64

	// Read copies up to len(dst) bytes starting at offset into dst and
	// returns the number of bytes copied. Reads past the end of the blob
	// are not an error; they simply return fewer bytes (possibly zero).
	Read(offset uint64, dst []byte) uint64
}

func readSlice(data []byte, offset uint64, dst []byte) uint64 {
	total := uint64(len(data))
	if offset >= total {
		return 0
	}
	n := uint64(copy(dst, data[offset:]))
	return n
}
