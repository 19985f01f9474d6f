package blob

// OutputBytes is an independent, owned byte buffer — the frozen contents of
// a guest-allocated output fd at job end. It holds no external resource, so
// it needs no release hook: unlike MappedFile it returns no bytes to the
// admission ledger, and unlike Carve it has no parent to release.
type OutputBytes struct {
	data []byte
}

// NewOutputBytes takes ownership of data without copying.
func NewOutputBytes(data []byte) *OutputBytes {
	return &OutputBytes{data: data}
}

func (o *OutputBytes) Len() uint64 { return uint64(len(o.data)) }

func (o *OutputBytes) Read(offset uint64, dst []byte) uint64 {
	return readSlice(o.data, offset, dst)
}

func (o *OutputBytes) Bytes() []byte { return o.data }
