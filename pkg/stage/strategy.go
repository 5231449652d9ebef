package stage

import (
	"github.com/odvcencio/stagehand/pkg/config"
)

// StrategyType names a staging execution strategy.
type StrategyType string

const (
	// StrategyIndividual stages one file per call for per-file error
	// isolation.
	StrategyIndividual StrategyType = "individual"
	// StrategySingleBatch stages everything in one call to avoid
	// process-spawn overhead.
	StrategySingleBatch StrategyType = "single-batch"
	// StrategyMultiBatch chunks the set to respect command-length
	// limits.
	StrategyMultiBatch StrategyType = "multi-batch"
	// StrategyParallel submits batches concurrently; index mutations
	// remain serialized by the client.
	StrategyParallel StrategyType = "parallel"
)

// Strategy is the execution plan computed once per invocation.
type Strategy struct {
	Type       StrategyType
	BatchSize  int
	MaxWorkers int
}

// SelectStrategy picks a strategy for fileCount, evaluated top-down,
// first match wins. MaxWorkers caps concurrent batch windows, not
// per-file operations.
func SelectStrategy(fileCount int, cfg config.StagingConfig) Strategy {
	switch {
	case fileCount <= 5:
		return Strategy{Type: StrategyIndividual, BatchSize: 1}
	case fileCount <= cfg.BatchSize:
		return Strategy{Type: StrategySingleBatch, BatchSize: fileCount}
	case fileCount <= cfg.MaxFileThreshold:
		return Strategy{Type: StrategyMultiBatch, BatchSize: cfg.BatchSize}
	case cfg.ParallelEnabled:
		workers := cfg.MaxParallelJobs
		if needed := ceilDiv(fileCount, cfg.BatchSize); needed < workers {
			workers = needed
		}
		return Strategy{Type: StrategyParallel, BatchSize: cfg.BatchSize, MaxWorkers: workers}
	default:
		return Strategy{Type: StrategyMultiBatch, BatchSize: cfg.BatchSize}
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
