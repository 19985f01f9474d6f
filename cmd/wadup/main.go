// Command wadup runs every plug-in module in a directory against every
// file in an input directory, inside a fuel- and memory-bounded wasmtime
// sandbox.
package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tordynnar/wadup/internal/admission"
	"github.com/tordynnar/wadup/internal/config"
	"github.com/tordynnar/wadup/internal/ingest"
	"github.com/tordynnar/wadup/internal/job"
	"github.com/tordynnar/wadup/internal/module"
	"github.com/tordynnar/wadup/internal/pool"
	"github.com/tordynnar/wadup/internal/sandbox"
	"github.com/tordynnar/wadup/internal/tracker"
)

func main() {
	setupLogging()

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("log-level", cfg.LogLevel).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	if err := admission.CheckOpenFileLimit(); err != nil {
		log.Warn().Err(err).Msg("open-file ulimit may be too low for the mapped-byte budget")
	}

	env, err := sandbox.NewEnvironment()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build sandbox environment")
	}

	modules, err := module.Load(env.Engine, cfg.ModulesDir)
	if err != nil {
		if len(modules) == 0 {
			log.Fatal().Err(err).Msg("failed to load any plug-in module")
		}
		log.Warn().Err(err).Msg("one or more plug-in modules failed to load, continuing with the rest")
	}
	if len(modules) == 0 {
		log.Warn().Str("dir", cfg.ModulesDir).Msg("no plug-in modules found, nothing will ever run")
	}

	limits := sandbox.Limits{
		Fuel:        cfg.Fuel,
		MemoryBytes: cfg.MemoryBytes,
		TableSlots:  cfg.TableSlots,
		MaxDepth:    cfg.MaxDepth,
	}

	tracking := make(chan job.Event, 4096)

	p := pool.New(cfg.Threads, env, modules, limits, tracking)
	workers := p.Start()

	trackerDone := make(chan struct{})
	go func() {
		tracker.Run(tracking, p.Queue(), cfg.Threads)
		close(trackerDone)
	}()

	ledger := admission.NewLedger(cfg.MappedBytes)
	announced, err := ingest.Run(cfg.InputDir, modules, ledger, p.Queue(), tracking)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to enumerate input directory")
	}

	// Zero jobs were ever announced (no input files, or no modules), so
	// tracker.Run is blocked forever ranging over a channel nothing will
	// ever write to again. Closing it here is safe only because the job
	// count is zero — no worker exists to send a Result on it later. When
	// announced > 0, tracking is left open: the tracker's quiescence path
	// returns on its own once the job graph drains, with no worker left to
	// send on it afterward either.
	if announced == 0 {
		close(tracking)
	}

	<-trackerDone
	close(p.Queue())

	workers.Wait()
	log.Info().Msg("all workers exited, run complete")
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
