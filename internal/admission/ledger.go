// Package admission implements the global mapped-byte budget that
// back-pressures file ingestion.
package admission

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Ledger is the single-writer admission controller: the ingestion driver is
// the only goroutine that mutates mapped, while released bytes arrive
// asynchronously over a channel from any worker that drops a mapped blob.
// Owning mapped exclusively and draining a channel to reclaim capacity
// avoids taking a lock on every release.
type Ledger struct {
	limit    uint64
	mapped   uint64
	releases chan uint64
}

// NewLedger creates a ledger bounded by limit bytes.
func NewLedger(limit uint64) *Ledger {
	return &Ledger{
		limit:    limit,
		releases: make(chan uint64, 4096),
	}
}

// ReleaseFunc returns a function suitable for passing to blob.OpenMapped as
// its release callback: it publishes n bytes back to this ledger.
func (l *Ledger) ReleaseFunc() func(n uint64) {
	return func(n uint64) {
		l.releases <- n
	}
}

// Admit reserves size bytes against the budget, blocking on released
// capacity from in-flight mapped files until there's room. It returns an
// error if size alone exceeds the configured limit — no amount of waiting
// can ever admit such a file.
func (l *Ledger) Admit(size uint64) error {
	if size > l.limit {
		return fmt.Errorf("file of %d bytes exceeds mapped-byte budget of %d bytes", size, l.limit)
	}

	for l.mapped+size > l.limit {
		freed := <-l.releases
		l.mapped -= freed
	}

	l.mapped += size
	log.Debug().Uint64("mapped", l.mapped).Uint64("limit", l.limit).Uint64("admitted", size).Msg("admitted bytes to mapped-byte budget")
	return nil
}

// Mapped returns the bytes currently reserved. Only meaningful when called
// from the single admitting goroutine; exposed for tests and diagnostics.
func (l *Ledger) Mapped() uint64 { return l.mapped }
