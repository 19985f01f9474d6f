// Package testutil provides a fixture harness for exercising the full
// ingest -> pool -> tracker pipeline in tests: a constructor that prepares
// temp directories and a sandbox environment, and a run phase that wires
// ingestion, the worker pool, and the tracker together and collects every
// result.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tordynnar/wadup/internal/admission"
	"github.com/tordynnar/wadup/internal/job"
	"github.com/tordynnar/wadup/internal/module"
	"github.com/tordynnar/wadup/internal/pool"
	"github.com/tordynnar/wadup/internal/sandbox"
	"github.com/tordynnar/wadup/internal/tracker"
)

// Harness bundles a temporary modules directory and input directory, plus
// the plumbing needed to run one complete pipeline pass against them and
// collect every JobResult.
type Harness struct {
	ModulesDir string
	InputDir   string

	env *sandbox.Environment
}

// New creates the harness's temporary directories and sandbox environment.
// The directories are plain t.TempDir() trees, so cleanup is handled by the
// testing package itself; the wasmtime engine and linker need no explicit
// teardown, they're collected normally once the test ends.
func New(t *testing.T) *Harness {
	t.Helper()

	env, err := sandbox.NewEnvironment()
	if err != nil {
		t.Fatalf("build sandbox environment: %v", err)
	}

	return &Harness{
		ModulesDir: t.TempDir(),
		InputDir:   t.TempDir(),
		env:        env,
	}
}

// WriteModule drops a precompiled .wasm binary into the harness's modules
// directory under name (which must end in module.Extension).
func (h *Harness) WriteModule(t *testing.T, name string, wasm []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(h.ModulesDir, name), wasm, 0o644); err != nil {
		t.Fatalf("write module %s: %v", name, err)
	}
}

// WriteInput drops a file into the harness's input directory under name.
func (h *Harness) WriteInput(t *testing.T, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(h.InputDir, name), data, 0o644); err != nil {
		t.Fatalf("write input %s: %v", name, err)
	}
}

// Run loads every module in ModulesDir, starts a pool sized threads wide,
// runs ingestion against InputDir, and blocks until the job graph drains,
// returning every JobResult observed along the way. mappedBudget bounds
// admission the same way --mapped does in production.
func (h *Harness) Run(t *testing.T, threads int, limits sandbox.Limits, mappedBudget uint64, ingestFn func(dir string, modules []*module.Module, ledger *admission.Ledger, queue chan<- job.Item, tracking chan<- job.Event) (int, error)) ([]job.Result, error) {
	t.Helper()

	modules, err := module.Load(h.env.Engine, h.ModulesDir)
	if err != nil {
		return nil, err
	}

	// Every component (pool Results, ingestion Announces, sandbox-spawned
	// child Announces) shares one tracking channel, teed between the real
	// tracker and this harness's own result collector, since tracker.Run
	// consumes its input to exhaustion and would otherwise starve the
	// collector of every event. teed is only closed once every writer —
	// ingestion and every worker — is guaranteed done (step order below),
	// since closing it any earlier risks a send on a closed channel from a
	// still-running worker.
	teed := make(chan job.Event, 4096)
	p := pool.New(threads, h.env, modules, limits, teed)
	workers := p.Start()

	var results []job.Result
	resultsDone := make(chan struct{})
	trackedEvents := make(chan job.Event, 4096)
	tracking := make(chan job.Event, 4096)

	go func() {
		defer close(resultsDone)
		for e := range trackedEvents {
			if e.Result != nil {
				results = append(results, *e.Result)
			}
		}
	}()

	go func() {
		defer close(tracking)
		defer close(trackedEvents)
		for e := range teed {
			trackedEvents <- e
			tracking <- e
		}
	}()

	trackerDone := make(chan struct{})
	go func() {
		tracker.Run(tracking, p.Queue(), threads)
		close(trackerDone)
	}()

	ledger := admission.NewLedger(mappedBudget)
	announced, err := ingestFn(h.InputDir, modules, ledger, p.Queue(), teed)
	if err != nil {
		return nil, err
	}

	// "Empty world": zero jobs were ever announced, so tracker.Run is stuck
	// ranging over tracking forever unless teed (and, transitively through
	// the tee goroutine, tracking) is closed now. Safe precisely because
	// announced == 0 means no worker exists to send on teed later.
	if announced == 0 {
		close(teed)
	}

	select {
	case <-trackerDone:
	case <-time.After(30 * time.Second):
		t.Fatalf("tracker did not reach quiescence within timeout")
	}
	close(p.Queue())
	workers.Wait()

	// Safe only now in the announced > 0 case: ingestion has returned and
	// every worker has exited, so nothing can still be sending on teed.
	// In the announced == 0 case teed is already closed above.
	if announced > 0 {
		close(teed)
	}
	<-resultsDone

	return results, nil
}
