package fuzz

import (
	"context"
	"math/rand"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/atomic"

	"github.com/zjy-dev/defuzz-llvm/internal/llvmtools"
	"github.com/zjy-dev/defuzz-llvm/internal/logger"
	"github.com/zjy-dev/defuzz-llvm/internal/recipe"
	"github.com/zjy-dev/defuzz-llvm/internal/seed"
)

// DirectoryConfig configures a directory-mode run: a fixed trial count
// against a pool of already-prepared candidates, correctness only (the
// original directory-mode driver never exercises the other four recipes).
type DirectoryConfig struct {
	Tools      *llvmtools.Set
	Candidates []*seed.Artifacts
	WorkDir    string
	PassSpec   string
	TrialCount int
	Workers    int
}

// RunDirectoryTrials runs cfg.TrialCount correctness trials, each against a
// randomly chosen candidate, stopping at the first interesting one (spec
// §4.3, §6: directory mode takes an explicit trial count rather than a
// wall-clock budget).
func RunDirectoryTrials(ctx context.Context, cfg DirectoryConfig) (*Outcome, error) {
	if len(cfg.Candidates) == 0 {
		return &Outcome{Kind: recipe.Correctness, Failed: false}, nil
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 16
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ids := make([]int, cfg.TrialCount)
	for i := range ids {
		ids[i] = i
	}

	results := make([]trialOutcome, len(ids))
	var errCount atomic.Int64

	p := pool.New().WithMaxGoroutines(workers)
	for i, id := range ids {
		i, id := i, id
		candidate := cfg.Candidates[rng.Intn(len(cfg.Candidates))]
		p.Go(func() {
			paths := recipe.NewPaths(cfg.WorkDir, recipe.Correctness, id)
			res, err := recipe.Run(ctx, cfg.Tools, candidate, recipe.Correctness, id, cfg.WorkDir, cfg.PassSpec)
			if err != nil {
				errCount.Inc()
			}
			results[i] = trialOutcome{result: res, paths: paths}
		})
	}
	p.Wait()

	if n := errCount.Load(); n > 0 {
		logger.Debug("directory mode: %d of %d trials hit a subprocess error", n, len(ids))
	}

	finding, ok := selectRetained(results)
	if !ok {
		return &Outcome{Kind: recipe.Correctness, Failed: false, Trials: len(ids)}, nil
	}

	for _, r := range results {
		if r.result.Interesting && r.result.Stem != finding.result.Stem {
			recipe.Cleanup(r.paths)
		}
	}
	return &Outcome{Kind: recipe.Correctness, Failed: true, Finding: &finding.result, ScratchFiles: finding.paths.Files(), Trials: len(ids)}, nil
}
