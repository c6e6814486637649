package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/zjy-dev/defuzz-llvm/internal/cost"
	"github.com/zjy-dev/defuzz-llvm/internal/llvmtools"
)

// extractConcurrency bounds how many llvm-extract/copy calls run at once
// while preparing a seed set, independent of the trial worker pool.
const extractConcurrency = 8

// Artifacts is the prepared input every trial mutates from: the merged
// single-module seed, its optimized reference, and the reference's cached
// CostVector (spec §3, SeedArtifacts).
type Artifacts struct {
	WorkDir       string
	MergedSeed    string
	Reference     string
	ReferenceCost cost.Vector
}

// PreparePatchSeeds extracts each harvested seed from the patched source
// tree into its own numbered file, merges them into a single module, and
// optimizes that module with passSpec to produce the reference.
//
// Individual extraction failures are tolerated (spec §4.2): a seed that
// fails to extract is simply absent from the merged module.
func PreparePatchSeeds(ctx context.Context, tools *llvmtools.Set, seeds []Seed, srcRoot, workDir, passSpec string) (*Artifacts, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(extractConcurrency)
	for i, s := range seeds {
		i, s := i, s
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			in := filepath.Join(srcRoot, s.File)
			out := filepath.Join(workDir, fmt.Sprintf("seed%d.ll", i))
			if err := tools.Extract(gctx, s.Function, in, out); err != nil {
				_ = os.Remove(out)
				return nil
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return finishPreparation(ctx, tools, workDir, passSpec)
}

// PrepareDirectoryCandidate copies a single existing-test candidate into its
// own numbered scratch subdirectory, then merges and optimizes it there.
// A candidate whose preparation fails returns (nil, nil): the caller drops
// it silently, per spec §4.3.
func PrepareDirectoryCandidate(ctx context.Context, tools *llvmtools.Set, testDir, candidate string, workDir string, index int, passSpec string) (*Artifacts, error) {
	subdir := filepath.Join(workDir, fmt.Sprintf("test%d", index))
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return nil, err
	}

	if err := copyFile(filepath.Join(testDir, candidate), filepath.Join(subdir, candidate)); err != nil {
		return nil, nil
	}

	artifacts, err := finishPreparation(ctx, tools, subdir, passSpec)
	if err != nil {
		return nil, nil
	}
	return artifacts, nil
}

// PrepareDirectoryCandidates prepares every candidate in parallel, returning
// only the ones that succeeded, in the candidates' original (sorted) order.
func PrepareDirectoryCandidates(ctx context.Context, tools *llvmtools.Set, testDir string, candidates []string, workDir, passSpec string) ([]*Artifacts, error) {
	results := make([]*Artifacts, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(extractConcurrency)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			a, err := PrepareDirectoryCandidate(gctx, tools, testDir, c, workDir, i, passSpec)
			if err != nil {
				return err
			}
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prepared := make([]*Artifacts, 0, len(results))
	for _, a := range results {
		if a != nil {
			prepared = append(prepared, a)
		}
	}
	return prepared, nil
}

// finishPreparation merges every per-function file in dir into a single
// module, optimizes it with passSpec, and caches the reference's cost
// vector (spec §4.4).
func finishPreparation(ctx context.Context, tools *llvmtools.Set, dir, passSpec string) (*Artifacts, error) {
	merged := filepath.Join(dir, "merged.ll")
	if err := tools.Merge(ctx, dir, merged); err != nil {
		return nil, err
	}

	reference := filepath.Join(dir, "reference.ll")
	outcome, err := tools.Optimize(ctx, merged, reference, passSpec)
	if err != nil {
		return nil, err
	}
	if outcome != llvmtools.OptimizeOK {
		return nil, fmt.Errorf("reference optimization did not complete cleanly (outcome %d)", outcome)
	}

	refCost, err := tools.Cost(ctx, reference)
	if err != nil {
		return nil, err
	}

	return &Artifacts{
		WorkDir:       dir,
		MergedSeed:    merged,
		Reference:     reference,
		ReferenceCost: refCost,
	}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
