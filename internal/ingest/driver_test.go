package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tordynnar/wadup/internal/admission"
	"github.com/tordynnar/wadup/internal/job"
	"github.com/tordynnar/wadup/internal/module"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRunAnnouncesAndEnqueuesEveryRootJob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "aaaa")
	writeFile(t, dir, "b.txt", "bb")

	modules := []*module.Module{{Name: "one.wasm"}, {Name: "two.wasm"}}
	ledger := admission.NewLedger(1 << 20)
	queue := make(chan job.Item, 16)
	tracking := make(chan job.Event, 16)

	announced, err := Run(dir, modules, ledger, queue, tracking)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if announced != 4 {
		t.Fatalf("announced = %d, want 4 (2 files * 2 modules)", announced)
	}
	close(tracking)
	close(queue)

	var gotAnnounces, gotEnqueues int
	for e := range tracking {
		if e.Announce != nil {
			gotAnnounces++
		}
	}
	for range queue {
		gotEnqueues++
	}

	if gotAnnounces != 4 {
		t.Fatalf("got %d announces, want 4", gotAnnounces)
	}
	if gotEnqueues != 4 {
		t.Fatalf("got %d enqueued jobs, want 4", gotEnqueues)
	}
}

func TestRunEmptyDirectoryAnnouncesNothing(t *testing.T) {
	dir := t.TempDir()
	ledger := admission.NewLedger(1 << 20)
	queue := make(chan job.Item, 4)
	tracking := make(chan job.Event, 4)

	announced, err := Run(dir, nil, ledger, queue, tracking)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if announced != 0 {
		t.Fatalf("announced = %d, want 0", announced)
	}
}

func TestRunReportsAdmissionFailureAsResult(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.bin", "0123456789")

	modules := []*module.Module{{Name: "one.wasm"}}
	ledger := admission.NewLedger(4) // smaller than big.bin
	queue := make(chan job.Item, 4)
	tracking := make(chan job.Event, 4)

	announced, err := Run(dir, modules, ledger, queue, tracking)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if announced != 1 {
		t.Fatalf("announced = %d, want 1", announced)
	}
	close(tracking)
	close(queue)

	var sawAnnounce, sawFailureResult bool
	for e := range tracking {
		if e.Announce != nil {
			sawAnnounce = true
		}
		if e.Result != nil && e.Result.Error != "" {
			sawFailureResult = true
		}
	}
	if !sawAnnounce || !sawFailureResult {
		t.Fatalf("expected both an Announce and a failing Result, got announce=%v failure=%v", sawAnnounce, sawFailureResult)
	}

	if len(queue) != 0 {
		t.Fatalf("a file that fails admission should never be enqueued, got %d queued items", len(queue))
	}
}
