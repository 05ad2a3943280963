package run262

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/ecmatools/run262/metrics"
	"github.com/ecmatools/run262/results"
	"github.com/ecmatools/run262/runner"
	"github.com/ecmatools/run262/types"
)

// Service drives one complete run: test discovery, concurrent execution,
// the console report and result persistence.
type Service struct {
	cfg *Config
}

func NewService(cfg *Config) (*Service, error) {
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Service{cfg: cfg}, nil
}

// Run executes the configured test run, writing the report to stdout. It
// returns a RuntimeError when the run aborts before completing the corpus.
func (s *Service) Run(ctx context.Context, stdout io.Writer) error {
	cfg := s.cfg
	logger := cfg.Log

	files, err := runner.FindTests(cfg.CorpusRoot, cfg.Pattern)
	if err != nil {
		return NewRuntimeError(err)
	}
	if len(files) == 0 {
		logger.Info("No tests to run", "pattern", cfg.Pattern)
		return nil
	}
	metrics.RecordCorpusSize(len(files))

	runID := uuid.New().String()
	logger.Info("Starting test run",
		"run_id", runID,
		"tests", len(files),
		"concurrency", cfg.Concurrency,
		"batch_mode", !cfg.PerFile,
	)

	agg := results.NewAggregator(files)
	record := func(run types.TestRun) {
		if err := agg.Record(run); err != nil {
			logger.Error("Failed to record result", "file", run.File, "err", err)
		}
	}

	r := runner.New(runner.Config{
		ExecutorPath:   cfg.ExecutorPath,
		CorpusRoot:     cfg.CorpusRoot,
		HarnessDir:     cfg.HarnessDir,
		Concurrency:    cfg.Concurrency,
		Timeout:        cfg.Timeout,
		MemoryLimitMiB: cfg.MemoryLimitMiB,
		BatchSize:      cfg.BatchSize,
		UseBytecode:    cfg.UseBytecode,
		ParseOnly:      cfg.ParseOnly,
		PerFile:        cfg.PerFile,
		ForwardStderr:  cfg.ForwardStderr,
		Policy:         runner.DefaultClassifierPolicy,
		Log:            logger,
		Progress:       s.progress(stdout),
	})

	start := time.Now()
	runErr := r.Run(ctx, files, record)
	duration := time.Since(start)
	metrics.RecordRunDuration(duration)

	if runErr != nil {
		return NewRuntimeError(fmt.Errorf("test run aborted after %d/%d tests: %w", agg.Completed(), len(files), runErr))
	}
	if err := agg.Tree().Validate(true); err != nil {
		return NewRuntimeError(fmt.Errorf("result accounting: %w", err))
	}
	logger.Info("Finished running tests", "run_id", runID, "duration", duration, "tests", agg.Completed())

	if err := s.emit(stdout, agg, duration, runID); err != nil {
		return NewRuntimeError(err)
	}
	return nil
}

func (s *Service) progress(stdout io.Writer) runner.ProgressIndicator {
	switch {
	case s.cfg.Verbose:
		return &runner.VerbosePrinter{Out: stdout}
	case s.cfg.Silent:
		return runner.NopProgress{}
	case isatty.IsTerminal(os.Stderr.Fd()):
		return &runner.LineProgress{Out: os.Stderr}
	default:
		return &runner.TickerProgress{Interval: s.cfg.ProgressInterval, Log: s.cfg.Log}
	}
}

func (s *Service) emit(stdout io.Writer, agg *results.Aggregator, duration time.Duration, runID string) error {
	cfg := s.cfg

	if cfg.JSON {
		doc, err := results.NewTreeDocument(agg.Tree(), duration, runID)
		if err != nil {
			return err
		}
		if err := doc.WriteJSON(stdout); err != nil {
			return err
		}
	} else {
		results.WriteTreeReport(stdout, agg.Tree(), results.ReportOptions{
			FailOnly: cfg.FailOnly,
			Colors:   true,
		})
		if cfg.Summary {
			results.WriteSummary(stdout, agg.Totals(), agg.Total(), duration)
		}
		results.WriteLegend(stdout)
	}

	if cfg.OutputPath != "" {
		doc, err := results.NewTreeDocument(agg.Tree(), duration, runID)
		if err != nil {
			return err
		}
		if err := doc.Save(cfg.OutputPath); err != nil {
			return err
		}
		cfg.Log.Info("Wrote result tree", "path", cfg.OutputPath)
	}
	if cfg.PerFileOutputPath != "" {
		doc, err := results.NewFlatDocument(agg.Flat(), duration, runID)
		if err != nil {
			return err
		}
		if err := doc.Save(cfg.PerFileOutputPath); err != nil {
			return err
		}
		cfg.Log.Info("Wrote per-file results", "path", cfg.PerFileOutputPath)
	}
	return nil
}
