package blob

import "sync/atomic"

// Ref is a reference-counted handle to a Blob. The Rust original expresses
// blob ownership with Arc<dyn AsRef<[u8]>>, where clone/drop are implicit;
// Go has no destructors, so job dispatch and carve construction must call
// Retain explicitly whenever a blob is handed to a new owner, and Release
// exactly once when that owner is done with it. The blob tree (mapped file
// at the root, carves referencing a parent, owned output bytes as leaves)
// is never cyclic, so simple refcounting is sufficient — no need for a
// cycle collector.
type Ref struct {
	Blob
	count  *int64
	onZero func()
}

// NewRef wraps b in a reference-counted handle with an initial count of 1.
// onZero, if non-nil, runs exactly once when the count reaches zero.
func NewRef(b Blob, onZero func()) *Ref {
	count := int64(1)
	return &Ref{Blob: b, count: &count, onZero: onZero}
}

// Retain increments the reference count and returns the same handle, so
// call sites can write `child := parent.Retain()` to make ownership
// explicit at each fan-out point (carve spawn, per-module job dispatch).
func (r *Ref) Retain() *Ref {
	atomic.AddInt64(r.count, 1)
	return r
}

// Release decrements the reference count. When it reaches zero the
// underlying resource (if any) is released exactly once.
func (r *Ref) Release() {
	if atomic.AddInt64(r.count, -1) == 0 && r.onZero != nil {
		r.onZero()
	}
}
