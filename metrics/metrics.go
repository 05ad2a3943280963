package metrics

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ecmatools/run262/types"
)

const (
	MetricsNamespace = "run262"
)

var (
	Debug bool = true

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of finished test files by outcome",
	}, []string{
		"outcome",
	})

	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "batches_total",
		Help:      "Count of executor batch invocations",
	})

	executorRestartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "executor_restarts_total",
		Help:      "Count of executor relaunches after a crash or stopping result",
	})

	protocolErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "protocol_errors_total",
		Help:      "Count of malformed executor output streams",
	})

	corpusSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "corpus_size",
		Help:      "Number of test files selected for the current run",
	})

	runDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the last completed run",
	})
)

func RecordTest(outcome types.Outcome) {
	if !outcome.Valid() {
		log.Error("RecordTest - invalid outcome", "outcome", outcome)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "tests_total",
			"outcome", outcome,
		)
	}
	testsTotal.WithLabelValues(string(outcome)).Inc()
}

func RecordBatch() {
	if Debug {
		log.Debug("metric inc", "m", "batches_total")
	}
	batchesTotal.Inc()
}

func RecordExecutorRestart() {
	if Debug {
		log.Debug("metric inc", "m", "executor_restarts_total")
	}
	executorRestartsTotal.Inc()
}

func RecordProtocolError() {
	if Debug {
		log.Debug("metric inc", "m", "protocol_errors_total")
	}
	protocolErrorsTotal.Inc()
}

func RecordCorpusSize(n int) {
	corpusSize.Set(float64(n))
}

func RecordRunDuration(d time.Duration) {
	runDuration.Set(d.Seconds())
}
