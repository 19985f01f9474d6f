// Package sandbox implements the per-job host-side state and the host ABI
// exposed to guest WASM code.
package sandbox

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tordynnar/wadup/internal/blob"
	"github.com/tordynnar/wadup/internal/job"
	"github.com/tordynnar/wadup/internal/module"
)

// Limits bundles the per-job resource caps taken from the CLI flags.
type Limits struct {
	Fuel        uint64
	MemoryBytes uint64
	TableSlots  uint64
	MaxDepth    uint32
}

// Context is the host-side state bundle created at job start and destroyed
// at job end. One Context belongs exclusively to the worker goroutine
// running its job; it is never shared across jobs.
type Context struct {
	info  job.Info
	input *blob.Ref

	outputs *outputTable
	schemas *schemaTable
	columns *columnTable
	pending *pendingRow

	modules  []*module.Module
	queue    chan<- job.Item
	tracking chan<- job.Event
	maxDepth uint32

	limits Limits

	mu         sync.Mutex
	memoryUsed uint64
	tableUsed  uint64
}

// NewContext builds the per-job state for info analyzing input, with
// access to the full module set (for carve fan-out) and the shared
// queue/tracking channels.
func NewContext(info job.Info, input *blob.Ref, modules []*module.Module, queue chan<- job.Item, tracking chan<- job.Event, limits Limits) *Context {
	return &Context{
		info:     info,
		input:    input,
		outputs:  newOutputTable(),
		schemas:  newSchemaTable(),
		columns:  newColumnTable(),
		pending:  newPendingRow(),
		modules:  modules,
		queue:    queue,
		tracking: tracking,
		maxDepth: limits.MaxDepth,
		limits:   limits,
	}
}

// MemoryGrowing implements the wasmtime resource limiter callback invoked
// before the guest's linear memory grows. current/desired are reported in
// bytes, matching limits.MemoryBytes directly — no page conversion.
// Growth beyond the cap is refused (which wasmtime surfaces to the guest as
// a fatal trap), and every successful growth updates the high-water counter
// used in the job's success report.
func (c *Context) MemoryGrowing(current, desired uint64, maximum *uint64) (bool, error) {
	if desired > c.limits.MemoryBytes {
		return false, fmt.Errorf("memory limit exceeded: requested %d bytes, limit %d bytes", desired, c.limits.MemoryBytes)
	}
	c.mu.Lock()
	c.memoryUsed = desired
	c.mu.Unlock()
	return true, nil
}

// TableGrowing is MemoryGrowing's table-resource counterpart.
func (c *Context) TableGrowing(current, desired uint32, maximum *uint32) (bool, error) {
	if uint64(desired) > c.limits.TableSlots {
		return false, fmt.Errorf("table limit exceeded: requested %d slots, limit %d slots", desired, c.limits.TableSlots)
	}
	c.mu.Lock()
	c.tableUsed = uint64(desired)
	c.mu.Unlock()
	return true, nil
}

// HighWaterMarks returns the peak memory bytes and table slots observed
// during the job, reported in the success result.
func (c *Context) HighWaterMarks() (memory, table uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memoryUsed, c.tableUsed
}

func (c *Context) inputLen() uint64 { return c.input.Len() }

func (c *Context) inputRead(offset uint64, dst []byte) uint64 { return c.input.Read(offset, dst) }

// OutputSnapshots returns the frozen bytes of every output buffer the job
// created, for resubmission at job end.
func (c *Context) OutputSnapshots() [][]byte {
	return c.outputs.snapshot()
}

// spawnCarve implements input_carve's job-creation side: validate the
// range, wrap it as a blob, and — for every loaded module, unless doing so
// would exceed the configured recursion depth — announce and enqueue a
// child job.
func (c *Context) spawnCarve(offset, length uint64) error {
	carve, err := blob.NewCarve(c.input, offset, length)
	if err != nil {
		return err
	}

	if c.info.Depth+1 > c.maxDepth {
		log.Error().
			Str("job_id", c.info.ID.String()).
			Str("module", c.info.ModuleName).
			Uint32("depth", c.info.Depth+1).
			Uint32("max_depth", c.maxDepth).
			Msg("carve exceeds maximum recursion depth, dropping fan-out")
		carve.Close()
		return nil
	}

	carveRef := blob.NewRef(carve, carve.Close)
	defer carveRef.Release()

	for _, m := range c.modules {
		childInfo := job.NewChildInfo(m.Name, c.info)
		c.tracking <- job.Event{Announce: &childInfo}
		c.queue <- job.Item{Job: &job.Job{
			Info:     childInfo,
			Module:   m,
			Blob:     carveRef.Retain(),
			Queue:    c.queue,
			Tracking: c.tracking,
		}}
	}
	return nil
}

// spawnOutputs resubmits every non-empty output buffer produced during the
// job: each is frozen into an OutputBytes blob and submitted to every
// module, one recursion level deeper than the job that produced it.
func (c *Context) spawnOutputs() {
	for _, data := range c.OutputSnapshots() {
		if len(data) == 0 {
			continue
		}
		if c.info.Depth+1 > c.maxDepth {
			log.Error().
				Str("job_id", c.info.ID.String()).
				Msg("output blob exceeds maximum recursion depth, dropping fan-out")
			continue
		}

		output := blob.NewOutputBytes(data)
		outputRef := blob.NewRef(output, nil)

		for _, m := range c.modules {
			childInfo := job.NewChildInfo(m.Name, c.info)
			c.tracking <- job.Event{Announce: &childInfo}
			c.queue <- job.Item{Job: &job.Job{
				Info:     childInfo,
				Module:   m,
				Blob:     outputRef.Retain(),
				Queue:    c.queue,
				Tracking: c.tracking,
			}}
		}
		outputRef.Release()
	}
}
