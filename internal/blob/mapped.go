package blob

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/rs/zerolog/log"
)

// Release is called with the number of bytes to give back to the admission
// ledger. It must be called exactly once per successful admission.
type Release func(n uint64)

// MappedFile maps a whole file into memory for the lifetime of the blob.
// On Close it publishes the byte count it was admitted with to the
// admission ledger via release.
type MappedFile struct {
	data    mmap.MMap
	file    *os.File
	len     uint64
	release Release
	closed  bool
}

// OpenMapped opens path, maps it read-only, and returns a MappedFile
// carrying the admitted byte count len. Callers must have already reserved
// len bytes against the admission ledger before calling this.
func OpenMapped(path string, len uint64, release Release) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if len == 0 {
		return &MappedFile{file: f, len: 0, release: release}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &MappedFile{data: m, file: f, len: len, release: release}, nil
}

func (m *MappedFile) Len() uint64 { return m.len }

func (m *MappedFile) Read(offset uint64, dst []byte) uint64 {
	return readSlice(m.data, offset, dst)
}

// Close unmaps the file and releases its reserved bytes to the admission
// ledger. Safe to call more than once; only the first call has effect.
func (m *MappedFile) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var unmapErr error
	if m.data != nil {
		unmapErr = m.data.Unmap()
	}
	closeErr := m.file.Close()

	if m.release != nil {
		m.release(m.len)
	}

	if unmapErr != nil {
		log.Error().Err(unmapErr).Str("file", m.file.Name()).Msg("failed to unmap input file")
		return unmapErr
	}
	return closeErr
}
