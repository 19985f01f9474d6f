// Package job defines the unit of work dispatched through the queue: one
// plug-in module applied to one blob.
package job

import (
	"github.com/google/uuid"

	"github.com/tordynnar/wadup/internal/blob"
	"github.com/tordynnar/wadup/internal/module"
)

// Info identifies a job independent of its payload: a unique id, the
// module it will run, and the originating file path. Immutable once
// constructed. ParentID threads from a carve- or output-spawned job back to
// the job that produced it.
type Info struct {
	ID         uuid.UUID
	ModuleName string
	FilePath   string // root input file; carve/output children inherit their parent's
	ParentID   *uuid.UUID
	Depth      uint32
}

// NewRootInfo builds the Info for a job seeded directly from an ingested
// input file, at recursion depth 0.
func NewRootInfo(moduleName, filePath string) Info {
	return Info{ID: uuid.New(), ModuleName: moduleName, FilePath: filePath}
}

// NewChildInfo builds the Info for a job spawned by a carve or output
// produced during parent's execution, one recursion level deeper.
func NewChildInfo(moduleName string, parent Info) Info {
	parentID := parent.ID
	return Info{
		ID:         uuid.New(),
		ModuleName: moduleName,
		FilePath:   parent.FilePath,
		ParentID:   &parentID,
		Depth:      parent.Depth + 1,
	}
}

// Job is one unit of dispatch: a module run against a blob, carrying
// handles back to the shared queue and tracker so that it (or code running
// on its behalf inside the sandbox) can enqueue further jobs and report
// completion.
type Job struct {
	Info   Info
	Module *module.Module
	Blob   *blob.Ref

	// Queue receives new Job/Die items; Tracking receives Info announcements
	// and Results. Both are shared, many-writer channels.
	Queue    chan<- Item
	Tracking chan<- Event
}

// Item is a job-queue element: either a Job to run or a Die signal telling
// the receiving worker to exit.
type Item struct {
	Job *Job // nil for a Die item
	Die bool
}

// Result is the outcome of exactly one Job, emitted exactly once per Info.
type Result struct {
	ID      uuid.UUID
	Message string // non-empty on success, summarizing resource usage
	Error   string // non-empty on failure; Message and Error are mutually exclusive
}

// Event is a tracking-channel element: either an Info announcement (job
// about to be enqueued) or a Result (job finished). Exactly one of each
// must be sent per job id.
type Event struct {
	Announce *Info
	Result   *Result
}
