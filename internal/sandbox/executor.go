package sandbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytecodealliance/wasmtime-go/v25"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tordynnar/wadup/internal/job"
	"github.com/tordynnar/wadup/internal/module"
	"github.com/tordynnar/wadup/internal/system"
)

// maxGuestErrorLen bounds how much of a trap or wadup_error message gets
// carried into a job.Result — guest code chooses this text, so it is capped
// the same way a log line would be.
const maxGuestErrorLen = 2048

// EntryPoint is the guest-exported entry function the executor invokes:
// "wadup_run", no arguments, no result.
const EntryPoint = "wadup_run"

// Environment bundles the engine, linker, and host ABI bindings shared,
// immutably, across every job.
type Environment struct {
	Engine *wasmtime.Engine
	Linker *wasmtime.Linker
}

// NewEnvironment builds the shared wasmtime engine with fuel metering
// enabled and links the host ABI once.
func NewEnvironment() (*Environment, error) {
	config := wasmtime.NewConfig()
	config.SetConsumeFuel(true)

	engine := wasmtime.NewEngineWithConfig(config)
	linker := wasmtime.NewLinker(engine)

	if err := AddToLinker(linker); err != nil {
		return nil, fmt.Errorf("build host linker: %w", err)
	}

	return &Environment{Engine: engine, Linker: linker}, nil
}

// Run instantiates a fresh sandbox for j, sets its fuel budget, invokes
// wadup_run, and converts any trap or ABI error into a job.Result. It has
// no Go error return: host-side setup problems (setting the fuel budget,
// instantiation, a missing entry point) are also reported as a job.Result
// with Error set.
func Run(env *Environment, modules []*module.Module, j *job.Job, limits Limits) job.Result {
	started := time.Now()

	ctx := NewContext(j.Info, j.Blob, modules, j.Queue, j.Tracking, limits)

	store := wasmtime.NewStore(env.Engine)
	store.SetData(ctx)
	store.Limiter(ctx)

	if err := store.SetFuel(limits.Fuel); err != nil {
		return failResult(j.Info.ID, fmt.Errorf("set fuel budget: %w", err))
	}

	instance, err := env.Linker.Instantiate(store, j.Module.Compiled)
	if err != nil {
		return failResult(j.Info.ID, fmt.Errorf("instantiate module: %w", err))
	}

	entry := instance.GetFunc(store, EntryPoint)
	if entry == nil {
		return failResult(j.Info.ID, fmt.Errorf("module does not export %q", EntryPoint))
	}

	_, runErr := entry.Call(store)

	fuelRemaining, fuelErr := store.GetFuel()
	var fuelUsed uint64
	if fuelErr == nil && fuelRemaining <= limits.Fuel {
		fuelUsed = limits.Fuel - fuelRemaining
	}

	memoryUsed, tableUsed := ctx.HighWaterMarks()
	elapsed := time.Since(started)

	if runErr != nil {
		return job.Result{ID: j.Info.ID, Error: describeGuestError(runErr)}
	}

	// Output resubmission happens only on success: a job that trapped may
	// have left partially written output buffers whose contents don't
	// reflect the plug-in's intent.
	ctx.spawnOutputs()

	message := fmt.Sprintf("memory used: %d, table used: %d, fuel used: %d, elapsed: %s",
		memoryUsed, tableUsed, fuelUsed, elapsed)

	log.Debug().
		Str("job_id", j.Info.ID.String()).
		Str("module", j.Info.ModuleName).
		Str("file", j.Info.FilePath).
		Uint64("memory_used", memoryUsed).
		Uint64("table_used", tableUsed).
		Uint64("fuel_used", fuelUsed).
		Dur("elapsed", elapsed).
		Msg("job completed")

	return job.Result{ID: j.Info.ID, Message: message}
}

func failResult(id uuid.UUID, err error) job.Result {
	return job.Result{ID: id, Error: err.Error()}
}

// describeGuestError renders a wasmtime trap or host-function error as a
// plain textual description, regardless of whether the failure was fuel
// exhaustion, an out-of-bounds access, a resource-limit violation, or a
// guest-initiated wadup_error call.
func describeGuestError(err error) string {
	var trap *wasmtime.Trap
	if errors.As(err, &trap) {
		return system.ShortString(trap.Message(), maxGuestErrorLen)
	}
	return system.ShortString(err.Error(), maxGuestErrorLen)
}
