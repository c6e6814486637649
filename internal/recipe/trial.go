package recipe

import (
	"context"
	"fmt"

	"github.com/zjy-dev/defuzz-llvm/internal/cost"
	"github.com/zjy-dev/defuzz-llvm/internal/llvmtools"
	"github.com/zjy-dev/defuzz-llvm/internal/seed"
)

// Run executes trial id of recipe k against the prepared artifacts and
// returns its classification. It is the single reusable trial function the
// five recipes share (spec §2 item 5, §4.5): mutate, optimize, then a
// recipe-specific oracle.
//
// Any subprocess-level error is swallowed and reported as not interesting,
// mirroring §4.7 ("any uncaught exception ... is swallowed"); callers that
// want visibility into tool-invocation failures should still check the
// returned error for logging, but must not treat a non-nil error as itself
// an interesting finding.
//
// Cleanup is always-run (§4.7): whenever the trial is not interesting —
// including when it ended in a swallowed subprocess error — every scratch
// file it may have produced is deleted before Run returns, so callers never
// need to clean up a not-interesting trial themselves.
func Run(ctx context.Context, tools *llvmtools.Set, artifacts *seed.Artifacts, k Kind, id int, workDir, passSpec string) (Result, error) {
	paths := NewPaths(workDir, k, id)
	stem := paths.Stem()

	var result Result
	var err error
	switch k {
	case Correctness:
		result, err = runCorrectness(ctx, tools, artifacts, paths, stem, passSpec)
	case Commutative, CanonicalForm:
		result, err = runGeneralization(ctx, tools, artifacts, k, paths, stem, passSpec)
	case MultiUse:
		result, err = runMultiUse(ctx, tools, artifacts, paths, stem, passSpec)
	case FlagPreserving:
		result, err = runFlagPreserving(ctx, tools, artifacts, paths, stem, passSpec)
	default:
		result = Result{Stem: stem}
	}

	if !result.Interesting {
		Cleanup(paths)
	}
	return result, err
}

func runCorrectness(ctx context.Context, tools *llvmtools.Set, artifacts *seed.Artifacts, paths Paths, stem, passSpec string) (Result, error) {
	if err := tools.Mutate(ctx, artifacts.MergedSeed, paths.Src, Correctness.String()); err != nil {
		return Result{Stem: stem}, err
	}

	outcome, err := tools.Optimize(ctx, paths.Src, paths.Tgt, passSpec)
	if err != nil {
		return Result{Stem: stem}, err
	}
	switch outcome {
	case llvmtools.OptimizeTimedOut:
		return Result{Stem: stem, Interesting: true, Reason: "timeout"}, nil
	case llvmtools.OptimizeCrashed:
		return Result{Stem: stem, Interesting: true, Reason: "crash"}, nil
	}

	validateOutcome, report, err := tools.Validate(ctx, paths.Src, paths.Tgt)
	if err != nil {
		return Result{Stem: stem}, err
	}
	switch validateOutcome {
	case llvmtools.ValidateTimedOut:
		return Result{Stem: stem}, nil
	case llvmtools.ValidateCrashed:
		return Result{Stem: stem, Interesting: true, Reason: "alive2 crash"}, nil
	case llvmtools.ValidateIncorrect:
		return Result{Stem: stem, Interesting: true}, nil
	default:
		_ = report
		return Result{Stem: stem}, nil
	}
}

func runGeneralization(ctx context.Context, tools *llvmtools.Set, artifacts *seed.Artifacts, k Kind, paths Paths, stem, passSpec string) (Result, error) {
	if err := tools.Mutate(ctx, artifacts.MergedSeed, paths.Src, k.String()); err != nil {
		return Result{Stem: stem}, err
	}

	outcome, err := tools.Optimize(ctx, paths.Src, paths.Tgt, passSpec)
	if err != nil {
		return Result{Stem: stem}, err
	}
	switch outcome {
	case llvmtools.OptimizeTimedOut:
		return Result{Stem: stem, Interesting: true, Reason: "timeout"}, nil
	case llvmtools.OptimizeCrashed:
		return Result{Stem: stem, Interesting: true, Reason: "crash"}, nil
	}

	mutationCost, err := tools.Cost(ctx, paths.Tgt)
	if err != nil {
		return Result{Stem: stem}, err
	}

	if key, regressed := cost.Compare(artifacts.ReferenceCost, mutationCost, nil); regressed {
		return Result{Stem: stem, Interesting: true, Reason: fmt.Sprintf("%s:%s is not optimized as well.", paths.Tgt, key)}, nil
	}
	return Result{Stem: stem}, nil
}

func runMultiUse(ctx context.Context, tools *llvmtools.Set, artifacts *seed.Artifacts, paths Paths, stem, passSpec string) (Result, error) {
	if err := tools.Mutate(ctx, artifacts.MergedSeed, paths.Src, MultiUse.String()); err != nil {
		return Result{Stem: stem}, err
	}

	outcome, err := tools.Optimize(ctx, paths.Src, paths.Tgt, passSpec)
	if err != nil {
		return Result{Stem: stem}, err
	}
	switch outcome {
	case llvmtools.OptimizeTimedOut:
		return Result{Stem: stem, Interesting: true, Reason: "timeout"}, nil
	case llvmtools.OptimizeCrashed:
		return Result{Stem: stem, Interesting: true, Reason: "crash"}, nil
	}

	before, err := tools.Cost(ctx, paths.Src)
	if err != nil {
		return Result{Stem: stem}, err
	}
	after, err := tools.Cost(ctx, paths.Tgt)
	if err != nil {
		return Result{Stem: stem}, err
	}

	if key, regressed := cost.Compare(before, after, artifacts.ReferenceCost); regressed {
		return Result{Stem: stem, Interesting: true, Reason: fmt.Sprintf("%s:%s has more instructions than before.", paths.Tgt, key)}, nil
	}
	return Result{Stem: stem}, nil
}

func runFlagPreserving(ctx context.Context, tools *llvmtools.Set, artifacts *seed.Artifacts, paths Paths, stem, passSpec string) (Result, error) {
	if err := tools.Mutate(ctx, artifacts.MergedSeed, paths.Src, FlagPreserving.String()); err != nil {
		return Result{Stem: stem}, err
	}

	outcome, err := tools.Optimize(ctx, paths.Src, paths.Tgt, passSpec)
	if err != nil {
		return Result{Stem: stem}, err
	}
	switch outcome {
	case llvmtools.OptimizeTimedOut:
		return Result{Stem: stem, Interesting: true, Reason: "timeout"}, nil
	case llvmtools.OptimizeCrashed:
		return Result{Stem: stem, Interesting: true, Reason: "crash"}, nil
	}

	if err := tools.Mutate(ctx, paths.Tgt, paths.Tgt2, FlagPreserving.String()); err != nil {
		return Result{Stem: stem}, err
	}

	validateOutcome, report, err := tools.Validate(ctx, paths.Src, paths.Tgt2)
	if err != nil {
		return Result{Stem: stem}, err
	}
	switch validateOutcome {
	case llvmtools.ValidateTimedOut:
		return Result{Stem: stem}, nil
	case llvmtools.ValidateCrashed:
		return Result{Stem: stem, Interesting: true, Reason: "alive2 crash"}, nil
	}

	if llvmtools.ReportsSyntacticallyEqual(report) {
		return Result{Stem: stem}, fmt.Errorf("flag-preserving mutation %s produced a syntactically identical tgt2, degenerate mutation", stem)
	}

	if llvmtools.ReportsTransformationCorrect(report) {
		return Result{Stem: stem, Interesting: true}, nil
	}
	return Result{Stem: stem}, nil
}
