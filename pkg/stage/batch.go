package stage

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/stagehand/pkg/logging"
	"github.com/odvcencio/stagehand/pkg/telemetry"
)

// Stager is the VCS stage primitive: one call stages one window of
// repo-relative paths. *gitx.Client implements it.
type Stager interface {
	Stage(ctx context.Context, paths []string, force bool) error
}

// CategoryOrder is the fixed staging priority.
var CategoryOrder = []string{
	CategorySmall,
	CategoryText,
	CategoryMedium,
	CategoryBinary,
	CategoryLarge,
	CategorySpecial,
}

// Result reports a batch staging run. A file never appears in Staged
// when its window errored: partial success, not atomicity.
type Result struct {
	Staged []string
	Errors []string
}

// window is one bounded slice of files handled by a single staging call.
type window struct {
	category string
	index    int
	paths    []string
}

func (w window) describe() string {
	return fmt.Sprintf("%s window %d (%d files)", w.category, w.index, len(w.paths))
}

// BatchStager executes a staging strategy across ordered category
// windows, collecting partial successes and failures.
type BatchStager struct {
	stager Stager
	log    *logging.Logger
	sink   telemetry.Sink
}

// NewBatchStager creates a batch stager. log may be nil; sink may be
// nil to discard metrics.
func NewBatchStager(stager Stager, log *logging.Logger, sink telemetry.Sink) *BatchStager {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &BatchStager{stager: stager, log: log, sink: sink}
}

// Stage runs the chosen strategy over the category set. Window
// failures are recorded and processing continues; there is no
// rollback. force propagates to every window.
func (b *BatchStager) Stage(ctx context.Context, set *CategorySet, strat Strategy, force bool) *Result {
	start := time.Now()
	windows := buildWindows(set, strat.BatchSize)

	var result *Result
	if strat.Type == StrategyParallel && strat.MaxWorkers > 1 {
		result = b.stageParallel(ctx, windows, strat.MaxWorkers, force)
	} else {
		result = b.stageSequential(ctx, windows, force)
	}

	b.sink.Incr(telemetry.MetricFilesStaged, int64(len(result.Staged)))
	b.sink.Incr(telemetry.MetricWindowsFailed, int64(len(result.Errors)))
	b.sink.Observe(telemetry.MetricStageDuration, time.Since(start))
	b.log.Info(logging.CategoryStage, "batch_done",
		fmt.Sprintf("%d staged, %d errors", len(result.Staged), len(result.Errors)),
		map[string]any{
			"strategy": string(strat.Type),
			"windows":  len(windows),
			"staged":   len(result.Staged),
			"errors":   len(result.Errors),
		})
	return result
}

// buildWindows splits each category into consecutive windows of
// batchSize, deduplicating so every file is staged exactly once by its
// highest-priority category.
func buildWindows(set *CategorySet, batchSize int) []window {
	if batchSize <= 0 {
		batchSize = 1
	}

	scheduled := make(map[string]bool)
	var windows []window
	for _, category := range CategoryOrder {
		var pending []string
		for _, record := range set.Files(category) {
			if !scheduled[record.Path] {
				scheduled[record.Path] = true
				pending = append(pending, record.Path)
			}
		}
		for i := 0; i < len(pending); i += batchSize {
			end := i + batchSize
			if end > len(pending) {
				end = len(pending)
			}
			windows = append(windows, window{
				category: category,
				index:    len(windows),
				paths:    pending[i:end],
			})
		}
	}
	// Window indexes restart per category for readable error text.
	perCategory := make(map[string]int)
	for i := range windows {
		windows[i].index = perCategory[windows[i].category]
		perCategory[windows[i].category]++
	}
	return windows
}

func (b *BatchStager) stageSequential(ctx context.Context, windows []window, force bool) *Result {
	result := &Result{}
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("staging cancelled before %s: %v", w.describe(), err))
			break
		}
		b.runWindow(ctx, w, force, result)
	}
	return result
}

// stageParallel submits windows concurrently, bounded by maxWorkers.
// The stage primitive serializes index mutation internally; results
// are slotted per window so reporting stays in category/window order
// regardless of completion order.
func (b *BatchStager) stageParallel(ctx context.Context, windows []window, maxWorkers int, force bool) *Result {
	type slot struct {
		staged []string
		errMsg string
	}
	slots := make([]slot, len(windows))

	g := &errgroup.Group{}
	g.SetLimit(maxWorkers)
	for i, w := range windows {
		i, w := i, w
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				slots[i] = slot{errMsg: fmt.Sprintf("staging cancelled before %s: %v", w.describe(), err)}
				return nil
			}
			if err := b.stager.Stage(ctx, w.paths, force); err != nil {
				slots[i] = slot{errMsg: fmt.Sprintf("stage %s: %v", w.describe(), err)}
				return nil
			}
			slots[i] = slot{staged: w.paths}
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{}
	for i, s := range slots {
		if s.errMsg != "" {
			result.Errors = append(result.Errors, s.errMsg)
			b.log.Warn(logging.CategoryStage, "window_failed", s.errMsg, map[string]any{
				"category": windows[i].category,
				"window":   windows[i].index,
			})
			continue
		}
		result.Staged = append(result.Staged, s.staged...)
		b.sink.Incr(telemetry.MetricWindowsStaged, 1)
	}
	return result
}

func (b *BatchStager) runWindow(ctx context.Context, w window, force bool, result *Result) {
	if err := b.stager.Stage(ctx, w.paths, force); err != nil {
		msg := fmt.Sprintf("stage %s: %v", w.describe(), err)
		result.Errors = append(result.Errors, msg)
		b.log.Warn(logging.CategoryStage, "window_failed", msg, map[string]any{
			"category": w.category,
			"window":   w.index,
		})
		return
	}
	result.Staged = append(result.Staged, w.paths...)
	b.sink.Incr(telemetry.MetricWindowsStaged, 1)
	b.log.Debug(logging.CategoryStage, "window_done", w.describe(), nil)
}
