package runner

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/semaphore"

	"github.com/ecmatools/run262/metrics"
	"github.com/ecmatools/run262/types"
)

// Config carries everything a Runner needs to drive one test run.
type Config struct {
	ExecutorPath   string
	CorpusRoot     string
	HarnessDir     string
	Concurrency    int
	Timeout        time.Duration
	MemoryLimitMiB uint64
	BatchSize      int
	UseBytecode    bool
	ParseOnly      bool
	PerFile        bool
	ForwardStderr  bool
	Policy         ClassifierPolicy
	Log            log.Logger
	Progress       ProgressIndicator
}

// Runner fans a file list out over concurrent executor pipelines and feeds
// every finished run to a caller-supplied sink.
type Runner struct {
	cfg Config
}

func New(cfg Config) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.Progress == nil {
		cfg.Progress = NopProgress{}
	}
	return &Runner{cfg: cfg}
}

// Run executes every file in the list and calls record for each finished
// test. record is called from multiple goroutines and must be safe for
// concurrent use. Run returns the first worker error; a returned error means
// the run aborted and the result set is incomplete.
func (r *Runner) Run(ctx context.Context, files []string, record func(types.TestRun)) error {
	if len(files) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lists := PartitionWork(files, r.cfg.Concurrency)
	r.cfg.Log.Debug("Partitioned work", "files", len(files), "lists", len(lists))

	r.cfg.Progress.Start(len(files))
	defer r.cfg.Progress.Stop()

	sink := func(run types.TestRun) {
		metrics.RecordTest(run.Outcome)
		r.cfg.Progress.Record(run)
		record(run)
	}

	return r.forEachList(ctx, cancel, lists, func(worker int, list []string) error {
		return r.runList(ctx, worker, list, sink)
	})
}

// forEachList runs work over the lists with at most Concurrency of them in
// flight, so the number of live executor processes never exceeds the
// requested concurrency even though partitioning produces more lists.
func (r *Runner) forEachList(ctx context.Context, cancel context.CancelFunc, lists [][]string, work func(worker int, list []string) error) error {
	sem := semaphore.NewWeighted(int64(r.cfg.Concurrency))
	var wg sync.WaitGroup
	errCh := make(chan error, len(lists)+1)
	for i, list := range lists {
		if err := sem.Acquire(ctx, 1); err != nil {
			errCh <- err
			break
		}
		wg.Add(1)
		go func(worker int, list []string) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if p := recover(); p != nil {
					errCh <- fmt.Errorf("worker %d panicked: %v", worker, p)
					cancel()
				}
			}()
			if err := work(worker, list); err != nil {
				errCh <- err
				cancel()
			}
		}(i, list)
	}
	wg.Wait()
	close(errCh)
	return <-errCh
}

func (r *Runner) runList(ctx context.Context, worker int, list []string, sink func(types.TestRun)) error {
	logger := r.cfg.Log.New("worker", worker)
	if r.cfg.PerFile {
		return r.runDirect(ctx, list, sink, logger)
	}

	client := &BatchClient{
		ExecutorPath:   r.cfg.ExecutorPath,
		CorpusRoot:     r.cfg.CorpusRoot,
		HarnessDir:     r.cfg.HarnessDir,
		UseBytecode:    r.cfg.UseBytecode,
		ParseOnly:      r.cfg.ParseOnly,
		Timeout:        r.cfg.Timeout,
		MemoryLimitMiB: r.cfg.MemoryLimitMiB,
		Log:            logger,
	}
	loop := NewRecoveryLoop(client, r.cfg.BatchSize, r.cfg.ForwardStderr, logger, sink)
	return loop.Run(ctx, list)
}

func (r *Runner) runDirect(ctx context.Context, list []string, sink func(types.TestRun), logger log.Logger) error {
	client := &DirectClient{
		ExecutorPath:   r.cfg.ExecutorPath,
		CorpusRoot:     r.cfg.CorpusRoot,
		HarnessDir:     r.cfg.HarnessDir,
		UseBytecode:    r.cfg.UseBytecode,
		Timeout:        r.cfg.Timeout,
		MemoryLimitMiB: r.cfg.MemoryLimitMiB,
		Policy:         r.cfg.Policy,
		Log:            logger,
	}
	for _, file := range list {
		if err := ctx.Err(); err != nil {
			return err
		}
		run, err := client.RunTest(ctx, file)
		if err != nil {
			return err
		}
		sink(run)
	}
	return nil
}
