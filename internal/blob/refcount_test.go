package blob

import "testing"

type fakeBlob struct{ data []byte }

func (f *fakeBlob) Len() uint64 { return uint64(len(f.data)) }

func (f *fakeBlob) Read(offset uint64, dst []byte) uint64 {
	return readSlice(f.data, offset, dst)
}

func TestRefRetainReleaseRunsOnZeroOnce(t *testing.T) {
	calls := 0
	ref := NewRef(&fakeBlob{data: []byte("hello")}, func() { calls++ })

	second := ref.Retain()
	third := second.Retain()

	third.Release()
	if calls != 0 {
		t.Fatalf("onZero fired early: %d calls", calls)
	}

	second.Release()
	if calls != 0 {
		t.Fatalf("onZero fired early: %d calls", calls)
	}

	ref.Release()
	if calls != 1 {
		t.Fatalf("expected exactly one onZero call, got %d", calls)
	}
}

func TestRefReadDelegatesToUnderlyingBlob(t *testing.T) {
	ref := NewRef(&fakeBlob{data: []byte("hello world")}, func() {})
	defer ref.Release()

	dst := make([]byte, 5)
	n := ref.Read(6, dst)
	if n != 5 || string(dst) != "world" {
		t.Fatalf("unexpected read: n=%d dst=%q", n, dst)
	}
}

func TestRefNilOnZeroIsOptional(t *testing.T) {
	ref := NewRef(&fakeBlob{data: []byte("x")}, nil)
	ref.Release() // must not panic
}
