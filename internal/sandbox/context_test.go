package sandbox

import (
	"testing"

	"github.com/google/uuid"

	"github.com/tordynnar/wadup/internal/blob"
	"github.com/tordynnar/wadup/internal/job"
	"github.com/tordynnar/wadup/internal/module"
)

func newTestContext(t *testing.T, limits Limits) (*Context, *blob.Ref) {
	t.Helper()
	input := blob.NewRef(blob.NewOutputBytes([]byte("hello world")), nil)
	info := job.Info{ID: uuid.New(), ModuleName: "probe.wasm"}
	return NewContext(info, input, nil, make(chan job.Item, 8), make(chan job.Event, 8), limits), input
}

func TestMemoryGrowingRefusesBeyondLimit(t *testing.T) {
	ctx, input := newTestContext(t, Limits{MemoryBytes: 4})
	defer input.Release()

	ok, err := ctx.MemoryGrowing(0, 4, nil)
	if !ok || err != nil {
		t.Fatalf("growth to the limit should be allowed: ok=%v err=%v", ok, err)
	}
	memUsed, _ := ctx.HighWaterMarks()
	if memUsed != 4 {
		t.Fatalf("high-water mark = %d, want 4", memUsed)
	}

	ok, err = ctx.MemoryGrowing(4, 5, nil)
	if ok || err == nil {
		t.Fatalf("growth beyond the limit should be refused: ok=%v err=%v", ok, err)
	}
}

func TestTableGrowingRefusesBeyondLimit(t *testing.T) {
	ctx, input := newTestContext(t, Limits{TableSlots: 10})
	defer input.Release()

	ok, err := ctx.TableGrowing(0, 10, nil)
	if !ok || err != nil {
		t.Fatalf("growth to the limit should be allowed: ok=%v err=%v", ok, err)
	}

	ok, err = ctx.TableGrowing(10, 11, nil)
	if ok || err == nil {
		t.Fatalf("growth beyond the limit should be refused: ok=%v err=%v", ok, err)
	}
}

func TestInputLenAndRead(t *testing.T) {
	ctx, input := newTestContext(t, Limits{})
	defer input.Release()

	if ctx.inputLen() != uint64(len("hello world")) {
		t.Fatalf("inputLen() = %d, want %d", ctx.inputLen(), len("hello world"))
	}

	dst := make([]byte, 5)
	if n := ctx.inputRead(6, dst); n != 5 || string(dst) != "world" {
		t.Fatalf("inputRead(6) = %d %q, want 5 \"world\"", n, dst)
	}
}

func TestSpawnCarveWithNoModulesLoadedFansOutNothing(t *testing.T) {
	queue := make(chan job.Item, 8)
	tracking := make(chan job.Event, 8)

	input := blob.NewRef(blob.NewOutputBytes([]byte("0123456789")), nil)
	defer input.Release()

	info := job.Info{ID: uuid.New(), ModuleName: "probe.wasm", Depth: 0}
	ctx := NewContext(info, input, nil, queue, tracking, Limits{MaxDepth: 32})

	if err := ctx.spawnCarve(2, 3); err != nil {
		t.Fatalf("spawnCarve: %v", err)
	}

	select {
	case e := <-tracking:
		t.Fatalf("expected no fan-out with zero modules loaded, got %+v", e)
	default:
	}
	select {
	case i := <-queue:
		t.Fatalf("expected no fan-out with zero modules loaded, got %+v", i)
	default:
	}
}

func TestSpawnCarveRejectsBeyondMaxDepth(t *testing.T) {
	queue := make(chan job.Item, 8)
	tracking := make(chan job.Event, 8)

	input := blob.NewRef(blob.NewOutputBytes([]byte("0123456789")), nil)
	defer input.Release()

	// One module is loaded, so only the depth cap keeps the carve from
	// fanning out.
	modules := []*module.Module{{Name: "probe.wasm"}}
	info := job.Info{ID: uuid.New(), ModuleName: "probe.wasm", Depth: 5}
	ctx := NewContext(info, input, modules, queue, tracking, Limits{MaxDepth: 5})

	if err := ctx.spawnCarve(0, 1); err != nil {
		t.Fatalf("spawnCarve should not itself error on depth cap, got: %v", err)
	}

	select {
	case e := <-tracking:
		t.Fatalf("expected no announce past the depth cap, got %+v", e)
	default:
	}
}
