package config

import "testing"

func TestParseRequiresModulesAndInput(t *testing.T) {
	if _, err := Parse(nil); err == nil {
		t.Fatal("expected an error when --modules and --input are both missing")
	}
	if _, err := Parse([]string{"--modules", t.TempDir()}); err == nil {
		t.Fatal("expected an error when --input is missing")
	}
}

func TestParseRejectsNonexistentDirectories(t *testing.T) {
	if _, err := Parse([]string{"--modules", "/does/not/exist", "--input", t.TempDir()}); err == nil {
		t.Fatal("expected an error for a nonexistent --modules directory")
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]string{"--modules", t.TempDir(), "--input", t.TempDir()})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.MaxDepth != defaultMaxDepth {
		t.Fatalf("MaxDepth = %d, want %d", cfg.MaxDepth, defaultMaxDepth)
	}
	if cfg.TableSlots != 10000 {
		t.Fatalf("TableSlots = %d, want 10000", cfg.TableSlots)
	}
	if cfg.Fuel != 1024*1024*1024 {
		t.Fatalf("Fuel = %d, want 1GB", cfg.Fuel)
	}
	if cfg.MemoryBytes == 0 {
		t.Fatal("MemoryBytes should be derived from the default --memory flag")
	}
	if cfg.Threads <= 0 {
		t.Fatalf("Threads = %d, want a positive value resolved from GOMAXPROCS", cfg.Threads)
	}
}

func TestParseByteSizeFlags(t *testing.T) {
	cfg, err := Parse([]string{
		"--modules", t.TempDir(),
		"--input", t.TempDir(),
		"--memory", "128MB",
		"--mapped", "2GB",
		"--threads", "4",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.MemoryBytes != 128*1024*1024 {
		t.Fatalf("MemoryBytes = %d, want 128MB", cfg.MemoryBytes)
	}
	if cfg.MappedBytes != 2*1024*1024*1024 {
		t.Fatalf("MappedBytes = %d, want 2GB", cfg.MappedBytes)
	}
	if cfg.Threads != 4 {
		t.Fatalf("Threads = %d, want 4", cfg.Threads)
	}
}

func TestParseRejectsInvalidByteSize(t *testing.T) {
	if _, err := Parse([]string{"--modules", t.TempDir(), "--input", t.TempDir(), "--memory", "not-a-size"}); err == nil {
		t.Fatal("expected an error for an unparseable --memory value")
	}
}
