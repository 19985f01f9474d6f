package blob

import "fmt"

// Carve is a transparent sub-range view over a parent blob. It never
// copies; Read delegates straight to the parent at an adjusted offset.
type Carve struct {
	parent *Ref
	offset uint64
	length uint64
}

// NewCarve validates offset+length against the parent's length and, on
// success, retains the parent for the carve's lifetime. The caller must
// call Close on the returned Carve exactly once when done with it, which
// releases that hold on the parent.
func NewCarve(parent *Ref, offset, length uint64) (*Carve, error) {
	if offset+length < offset { // overflow
		return nil, fmt.Errorf("carve out of bounds: offset %d + length %d overflows", offset, length)
	}
	if offset+length > parent.Len() {
		return nil, fmt.Errorf("carve out of bounds: offset %d + length %d exceeds parent length %d", offset, length, parent.Len())
	}
	return &Carve{parent: parent.Retain(), offset: offset, length: length}, nil
}

func (c *Carve) Len() uint64 { return c.length }

func (c *Carve) Read(offset uint64, dst []byte) uint64 {
	if offset >= c.length {
		return 0
	}
	remaining := c.length - offset
	if uint64(len(dst)) > remaining {
		dst = dst[:remaining]
	}
	return c.parent.Read(c.offset+offset, dst)
}

// Close releases the carve's hold on its parent blob.
func (c *Carve) Close() { c.parent.Release() }
