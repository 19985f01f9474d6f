// Package ingest implements the directory-enumeration driver: the
// main-thread loop that turns files on disk into root jobs.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/tordynnar/wadup/internal/admission"
	"github.com/tordynnar/wadup/internal/blob"
	"github.com/tordynnar/wadup/internal/job"
	"github.com/tordynnar/wadup/internal/module"
)

// rootJob pairs a file's seeded Info with the module that will run it: one
// (Info, Module) pair per (file, module) combination.
type rootJob struct {
	info   job.Info
	module *module.Module
	path   string
}

// Run enumerates every non-directory entry directly under dir, and for each file
// runs every module in modules as a root job (depth 0).
//
// It announces every root job's Info over tracking BEFORE admitting or
// enqueuing ANY of them. This two-phase split — announce everything, then
// admit/enqueue file by file — exists because a fast worker could otherwise
// drain the first file's jobs back to zero outstanding before the second
// file is even announced, tripping the tracker's quiescence rule
// prematurely: "outstanding set empty after at least one insertion" only
// protects against an empty set at start, not against jobs completing
// faster than they're discovered.
//
// Admission failures (the file cannot be stat'ed, is larger than the
// mapped-byte budget, or cannot be mapped) are reported as a Result error
// per affected
// (file, module) pair rather than aborting the whole run, since admission
// rejection is a per-job failure, not a fatal one.
//
// Run returns the number of root jobs announced. The caller needs this to
// tell the "Empty world" scenario (an input directory with no files, or a
// module directory with no modules, so zero jobs are ever announced) apart
// from the ordinary case: only when the count is zero is it safe for the
// caller to close the tracking channel immediately, since no worker will
// ever send a Result on it.
func Run(dir string, modules []*module.Module, ledger *admission.Ledger, queue chan<- job.Item, tracking chan<- job.Event) (int, error) {
	paths, err := listFiles(dir)
	if err != nil {
		return 0, fmt.Errorf("enumerate input directory: %w", err)
	}

	jobs := make([]rootJob, 0, len(paths)*len(modules))
	for _, path := range paths {
		for _, m := range modules {
			info := job.NewRootInfo(m.Name, path)
			jobs = append(jobs, rootJob{info: info, module: m, path: path})
		}
	}

	for _, rj := range jobs {
		tracking <- job.Event{Announce: &rj.info}
	}
	log.Info().Int("files", len(paths)).Int("modules", len(modules)).Int("jobs", len(jobs)).Msg("ingestion announced all root jobs")

	byPath := make(map[string][]rootJob, len(paths))
	for _, rj := range jobs {
		byPath[rj.path] = append(byPath[rj.path], rj)
	}

	for _, path := range paths {
		admitAndEnqueue(path, byPath[path], ledger, queue, tracking)
	}

	return len(jobs), nil
}

func admitAndEnqueue(path string, fileJobs []rootJob, ledger *admission.Ledger, queue chan<- job.Item, tracking chan<- job.Event) {
	info, err := os.Stat(path)
	if err != nil {
		failAll(fileJobs, tracking, fmt.Errorf("stat: %w", err))
		return
	}
	size := uint64(info.Size())

	if err := ledger.Admit(size); err != nil {
		failAll(fileJobs, tracking, fmt.Errorf("admission rejected: %w", err))
		return
	}

	release := ledger.ReleaseFunc()
	mapped, err := blob.OpenMapped(path, size, release)
	if err != nil {
		release(size)
		failAll(fileJobs, tracking, fmt.Errorf("map file: %w", err))
		return
	}

	root := blob.NewRef(mapped, func() { mapped.Close() })
	defer root.Release()

	for _, rj := range fileJobs {
		queue <- job.Item{Job: &job.Job{
			Info:     rj.info,
			Module:   rj.module,
			Blob:     root.Retain(),
			Queue:    queue,
			Tracking: tracking,
		}}
	}
}

// failAll reports an admission or mapping failure as the Result for every
// job already announced for path, since the queue will never see them.
func failAll(fileJobs []rootJob, tracking chan<- job.Event, cause error) {
	for _, rj := range fileJobs {
		log.Error().Str("file", rj.path).Str("module", rj.module.Name).Err(cause).Msg("root job failed before execution")
		tracking <- job.Event{Result: &job.Result{ID: rj.info.ID, Error: cause.Error()}}
	}
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
