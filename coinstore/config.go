package coinstore

import (
	"errors"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/TEENet-io/coin-store/blinding"
	"github.com/TEENet-io/coin-store/program"
)

const (
	DefaultBatchSize            = 10
	DefaultProgramCacheSize     = 128
	DefaultMaxConcurrentFilters = 8
)

type Config struct {
	DbFilePath string
	Params     *chaincfg.Params

	// BatchSize is the page size used when a query needs a value threshold
	// and has no explicit limit.
	BatchSize int

	// ProgramCacheSize bounds the compiled programs kept for the lifetime of
	// the store. 0 disables it and programs are only shared within one query.
	ProgramCacheSize int

	MaxConcurrentFilters int

	Compiler  program.Compiler
	Unblinder blinding.Unblinder
}

func DefaultConfig(path string) *Config {
	return &Config{
		DbFilePath:           path,
		Params:               &chaincfg.MainNetParams,
		BatchSize:            DefaultBatchSize,
		ProgramCacheSize:     DefaultProgramCacheSize,
		MaxConcurrentFilters: DefaultMaxConcurrentFilters,
		Compiler:             program.TemplateCompiler{},
		Unblinder:            blinding.ECDHUnblinder{},
	}
}

// normalize fills zero fields with defaults and rejects what cannot be
// defaulted.
func (cfg *Config) normalize() (*Config, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if cfg.DbFilePath == "" {
		return nil, errors.New("empty db file path")
	}
	if cfg.ProgramCacheSize < 0 {
		return nil, errors.New("negative program cache size")
	}

	c := *cfg
	if c.Params == nil {
		c.Params = &chaincfg.MainNetParams
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxConcurrentFilters <= 0 {
		c.MaxConcurrentFilters = DefaultMaxConcurrentFilters
	}
	if c.Compiler == nil {
		c.Compiler = program.TemplateCompiler{}
	}
	if c.Unblinder == nil {
		c.Unblinder = blinding.ECDHUnblinder{}
	}
	return &c, nil
}
