package run262

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ecmatools/run262/flags"
)

// Config is the validated runtime configuration of a test run.
type Config struct {
	ExecutorPath      string
	CorpusRoot        string
	Pattern           string
	HarnessDir        string
	Concurrency       int
	Timeout           time.Duration
	MemoryLimitMiB    uint64
	BatchSize         int
	UseBytecode       bool
	ParseOnly         bool
	PerFile           bool
	JSON              bool
	OutputPath        string
	PerFileOutputPath string
	Verbose           bool
	Silent            bool
	FailOnly          bool
	Summary           bool
	ForwardStderr     bool
	ProgressInterval  time.Duration

	Log log.Logger
}

// NewConfig builds a Config from CLI flags and validates it.
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	executor, err := filepath.Abs(ctx.String(flags.Executor.Name))
	if err != nil {
		return nil, fmt.Errorf("resolving executor path: %w", err)
	}
	corpusRoot, err := filepath.Abs(ctx.String(flags.Test262Root.Name))
	if err != nil {
		return nil, fmt.Errorf("resolving corpus root: %w", err)
	}
	harnessDir := ctx.String(flags.HarnessLocation.Name)
	if harnessDir == "" {
		harnessDir = filepath.Join(corpusRoot, "harness")
	} else if harnessDir, err = filepath.Abs(harnessDir); err != nil {
		return nil, fmt.Errorf("resolving harness location: %w", err)
	}

	cfg := &Config{
		ExecutorPath:      executor,
		CorpusRoot:        corpusRoot,
		Pattern:           ctx.String(flags.Pattern.Name),
		HarnessDir:        harnessDir,
		Concurrency:       ctx.Int(flags.Concurrency.Name),
		Timeout:           ctx.Duration(flags.Timeout.Name),
		MemoryLimitMiB:    ctx.Uint64(flags.MemoryLimit.Name),
		BatchSize:         ctx.Int(flags.BatchSize.Name),
		UseBytecode:       ctx.Bool(flags.UseBytecode.Name),
		ParseOnly:         ctx.Bool(flags.ParseOnly.Name),
		PerFile:           ctx.Bool(flags.PerFile.Name),
		JSON:              ctx.Bool(flags.JSON.Name),
		OutputPath:        ctx.String(flags.Output.Name),
		PerFileOutputPath: ctx.String(flags.PerFileOutput.Name),
		Verbose:           ctx.Bool(flags.Verbose.Name),
		Silent:            ctx.Bool(flags.Silent.Name),
		FailOnly:          ctx.Bool(flags.FailOnly.Name),
		Summary:           ctx.Bool(flags.Summary.Name),
		ForwardStderr:     ctx.Bool(flags.ForwardStderr.Name),
		ProgressInterval:  ctx.Duration(flags.ProgressInterval.Name),
		Log:               logger,
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Check validates the configuration.
func (c *Config) Check() error {
	info, err := os.Stat(c.ExecutorPath)
	if err != nil {
		return fmt.Errorf("executor %s: %w", c.ExecutorPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("executor %s is a directory", c.ExecutorPath)
	}
	if info, err := os.Stat(c.CorpusRoot); err != nil {
		return fmt.Errorf("corpus root %s: %w", c.CorpusRoot, err)
	} else if !info.IsDir() {
		return fmt.Errorf("corpus root %s is not a directory", c.CorpusRoot)
	}
	if c.Pattern == "" {
		return fmt.Errorf("pattern must not be empty")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Verbose && c.Silent {
		return fmt.Errorf("verbose and silent are mutually exclusive")
	}
	if c.ParseOnly && c.PerFile {
		return fmt.Errorf("parse-only requires batch mode")
	}
	if c.Log == nil {
		return fmt.Errorf("logger must not be nil")
	}
	return nil
}
