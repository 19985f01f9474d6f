// Package module implements the plug-in loader and compiled-module cache.
package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bytecodealliance/wasmtime-go/v25"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// Extension is the required file extension for plug-in binaries.
const Extension = ".wasm"

// Module is a compiled plug-in, addressable by its basename. It is shared
// by reference across concurrent instantiations and never mutated after
// load.
type Module struct {
	Name     string
	Compiled *wasmtime.Module
}

// Load reads every .wasm file directly under dir, compiling or
// deserializing each against engine, and returns them sorted by name for
// deterministic job-enqueue ordering. A single bad plug-in (a file that
// fails to compile, for example) does not abort the whole directory: Load
// keeps loading the rest and returns every per-file failure aggregated into
// one error via multierror, alongside whatever modules did load. Callers
// decide whether a partial load is acceptable.
func Load(engine *wasmtime.Engine, dir string) ([]*Module, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read module directory %s: %w", dir, err)
	}

	fingerprint := EngineFingerprint()

	var modules []*Module
	var errs *multierror.Error
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Extension {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		m, err := loadOne(engine, path, fingerprint)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("load module %s: %w", path, err))
			continue
		}
		modules = append(modules, m)
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].Name < modules[j].Name })
	return modules, errs.ErrorOrNil()
}

func loadOne(engine *wasmtime.Engine, path string, fingerprint uint64) (*Module, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	modified := uint64(info.ModTime().Unix())

	compiled, err := loadCompiled(engine, path, fingerprint, modified)
	if err != nil {
		return nil, err
	}

	return &Module{Name: filepath.Base(path), Compiled: compiled}, nil
}

// loadCompiled implements the cache-hit/cache-miss decision: if the sibling
// precompiled file exists and both header integers match, deserialize it
// (trusted: the cache file is under host control). Otherwise compile from
// source and best-effort write a fresh cache file.
func loadCompiled(engine *wasmtime.Engine, path string, fingerprint, modified uint64) (*wasmtime.Module, error) {
	cache := cachePath(path)

	if cached, err := readCache(cache, fingerprint, modified); err == nil {
		m, err := wasmtime.NewModuleDeserialize(engine, cached)
		if err != nil {
			log.Warn().Err(err).Str("module", path).Msg("cached module failed to deserialize, recompiling")
		} else {
			log.Debug().Str("module", path).Msg("loaded module from precompiled cache")
			return m, nil
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module source: %w", err)
	}

	m, err := wasmtime.NewModule(engine, source)
	if err != nil {
		return nil, fmt.Errorf("compile module: %w", err)
	}

	serialized, err := m.Serialize()
	if err != nil {
		log.Warn().Err(err).Str("module", path).Msg("failed to serialize compiled module, skipping cache write")
		return m, nil
	}

	if err := writeCache(cache, fingerprint, modified, serialized); err != nil {
		log.Warn().Err(err).Str("module", path).Msg("failed to write precompiled cache, continuing without it")
	}

	return m, nil
}
