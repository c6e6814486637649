// Package fuzz runs the per-recipe worker pool: it fans independent trial
// ids out across a bounded pool of goroutines, races them against a
// wall-clock budget, and applies the at-most-one-preserved-trial retention
// policy when a recipe fails.
package fuzz

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/zjy-dev/defuzz-llvm/internal/llvmtools"
	"github.com/zjy-dev/defuzz-llvm/internal/logger"
	"github.com/zjy-dev/defuzz-llvm/internal/recipe"
	"github.com/zjy-dev/defuzz-llvm/internal/seed"
)

// batchMultiplier is the "20 ×" in "batches of 20 × workers" (spec §4.8).
const batchMultiplier = 20

// Config bundles everything one recipe's worker pool needs: the tool
// binaries, the prepared seed, the work directory trials scratch into, and
// the knobs that scale concurrency and budgets.
type Config struct {
	Tools     *llvmtools.Set
	Artifacts *seed.Artifacts
	WorkDir   string
	PassSpec  string

	// Workers is the worker-pool size: logical-CPU count in patch mode,
	// fixed at 16 in directory mode (spec §4.8).
	Workers int

	// BudgetMultiplier scales every recipe's wall-clock budget: 1.0 in
	// full mode, 0.01 in quick mode (FUZZ_MODE=quickfuzz, spec §6).
	BudgetMultiplier float64
}

// Engine runs recipes against one prepared seed under cfg.
type Engine struct {
	cfg Config
}

// NewEngine builds an Engine. Workers and BudgetMultiplier default to 1 if
// left unset, so a zero-value Config still runs (serially, at full budget).
func NewEngine(cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BudgetMultiplier <= 0 {
		cfg.BudgetMultiplier = 1.0
	}
	return &Engine{cfg: cfg}
}

// Outcome is the verdict for one recipe's run: FAILED (an interesting trial
// was found, at most one of its scratch files retained) or PASSED (budget
// elapsed with nothing interesting).
type Outcome struct {
	Kind    recipe.Kind
	Failed  bool
	Finding *recipe.Result

	// ScratchFiles is the retained trial's src/tgt/tgt2 scratch paths, for
	// a reporter to embed. Empty unless Failed.
	ScratchFiles []string

	Trials int
}

// RunRecipe races trials of k against the configured budget, short-
// circuiting further submission once a batch turns up an interesting
// result but always draining the in-flight batch first (spec §4.8, §5).
func (e *Engine) RunRecipe(ctx context.Context, k recipe.Kind) (*Outcome, error) {
	budget := time.Duration(k.Budget()*e.cfg.BudgetMultiplier*1000) * time.Millisecond
	deadline := time.Now().Add(budget)

	nextID := 0
	trialsRun := 0
	var aggErr error

	for time.Now().Before(deadline) {
		batchSize := batchMultiplier * e.cfg.Workers
		ids := make([]int, batchSize)
		for i := range ids {
			ids[i] = nextID + i
		}
		nextID += batchSize

		results, batchErr := e.runBatch(ctx, k, ids)
		aggErr = multierr.Append(aggErr, batchErr)
		trialsRun += len(results)

		finding, ok := selectRetained(results)
		if !ok {
			continue
		}

		for _, r := range results {
			if r.result.Interesting && r.result.Stem != finding.result.Stem {
				recipe.Cleanup(r.paths)
			}
		}
		logger.Info("recipe %s: interesting trial %s (%s)", k, finding.result.Stem, finding.result.Reason)
		return &Outcome{Kind: k, Failed: true, Finding: &finding.result, ScratchFiles: finding.paths.Files(), Trials: trialsRun}, aggErr
	}

	return &Outcome{Kind: k, Failed: false, Trials: trialsRun}, aggErr
}

type trialOutcome struct {
	result recipe.Result
	paths  recipe.Paths
}

// runBatch runs every id in ids concurrently, bounded to cfg.Workers
// goroutines in flight, and waits for all of them before returning — the
// drain-before-decide guarantee the scheduler depends on.
func (e *Engine) runBatch(ctx context.Context, k recipe.Kind, ids []int) ([]trialOutcome, error) {
	results := make([]trialOutcome, len(ids))
	var errCount atomic.Int64
	var mu sync.Mutex
	var aggErr error

	p := pool.New().WithMaxGoroutines(e.cfg.Workers)
	for i, id := range ids {
		i, id := i, id
		p.Go(func() {
			paths := recipe.NewPaths(e.cfg.WorkDir, k, id)
			res, err := recipe.Run(ctx, e.cfg.Tools, e.cfg.Artifacts, k, id, e.cfg.WorkDir, e.cfg.PassSpec)
			if err != nil {
				errCount.Inc()
				mu.Lock()
				aggErr = multierr.Append(aggErr, err)
				mu.Unlock()
			}
			results[i] = trialOutcome{result: res, paths: paths}
		})
	}
	p.Wait()

	if n := errCount.Load(); n > 0 {
		logger.Debug("recipe %s: %d of %d trials hit a subprocess error, treated as not interesting", k, n, len(ids))
	}
	return results, aggErr
}

// selectRetained applies the retention policy: the first interesting
// result with a non-empty reason wins; failing that, any interesting
// result. Returns ok=false if the batch had nothing interesting.
func selectRetained(results []trialOutcome) (trialOutcome, bool) {
	var fallback *trialOutcome
	for i := range results {
		r := results[i]
		if !r.result.Interesting {
			continue
		}
		if r.result.Reason != "" {
			return r, true
		}
		if fallback == nil {
			fallback = &results[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return trialOutcome{}, false
}
