// Package config parses the wadup CLI's flags into the typed values the
// rest of the program needs.
package config

import (
	"fmt"
	"runtime"

	"github.com/c2h5oh/datasize"
	flag "github.com/spf13/pflag"

	"github.com/tordynnar/wadup/internal/system"
)

// Config bundles every resource limit and runtime knob the CLI exposes.
type Config struct {
	ModulesDir string
	InputDir   string

	Fuel        uint64
	MemoryBytes uint64
	TableSlots  uint64
	MappedBytes uint64

	Threads  int
	MaxDepth uint32

	LogLevel string
}

// defaultMaxDepth bounds carve/output recursion fan-out; deep enough for any
// legitimate archive nesting while still bounding runaway chains.
const defaultMaxDepth = 32

// Parse builds a Config from args (os.Args[1:] in production, a literal
// slice in tests).
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("wadup", flag.ContinueOnError)

	modulesDir := fs.String("modules", "", "directory of compiled .wasm plug-in modules (required)")
	inputDir := fs.String("input", "", "directory of files to analyze (required)")

	fuel := fs.String("fuel", "1GB", "per-job fuel budget (wasmtime instruction-cost units), e.g. 500MB, 2GB")
	memory := fs.String("memory", "256MB", "per-job guest linear-memory cap")
	table := fs.Uint64("table", 10000, "per-job guest table cap, in element slots")
	mapped := fs.String("mapped", "4GB", "global mapped-byte budget across all in-flight input files")

	threads := fs.Int("threads", 0, "worker pool size; 0 selects a value based on GOMAXPROCS")
	maxDepth := fs.Uint32("max-depth", defaultMaxDepth, "maximum carve/output recursion depth")

	logLevel := fs.String("log-level", "info", "zerolog level: trace, debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *modulesDir == "" {
		return Config{}, fmt.Errorf("--modules is required")
	}
	if *inputDir == "" {
		return Config{}, fmt.Errorf("--input is required")
	}

	if ok, err := system.PathExists(*modulesDir); err != nil {
		return Config{}, fmt.Errorf("--modules %q: %w", *modulesDir, err)
	} else if !ok {
		return Config{}, fmt.Errorf("--modules %q does not exist", *modulesDir)
	}
	if ok, err := system.PathExists(*inputDir); err != nil {
		return Config{}, fmt.Errorf("--input %q: %w", *inputDir, err)
	} else if !ok {
		return Config{}, fmt.Errorf("--input %q does not exist", *inputDir)
	}

	fuelBytes, err := parseByteSize(*fuel)
	if err != nil {
		return Config{}, fmt.Errorf("--fuel: %w", err)
	}
	memoryBytes, err := parseByteSize(*memory)
	if err != nil {
		return Config{}, fmt.Errorf("--memory: %w", err)
	}
	mappedBytes, err := parseByteSize(*mapped)
	if err != nil {
		return Config{}, fmt.Errorf("--mapped: %w", err)
	}

	return Config{
		ModulesDir:  *modulesDir,
		InputDir:    *inputDir,
		Fuel:        fuelBytes,
		MemoryBytes: memoryBytes,
		TableSlots:  *table,
		MappedBytes: mappedBytes,
		Threads:     resolveThreads(*threads),
		MaxDepth:    *maxDepth,
		LogLevel:    *logLevel,
	}, nil
}

// parseByteSize accepts either a bare integer or a human size string like
// "4GB", via c2h5oh/datasize.
func parseByteSize(s string) (uint64, error) {
	var v datasize.ByteSize
	if err := v.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return v.Bytes(), nil
}

// resolveThreads maps the "0 means auto" sentinel to GOMAXPROCS.
func resolveThreads(requested int) int {
	if requested > 0 {
		return requested
	}
	return runtime.GOMAXPROCS(0)
}
