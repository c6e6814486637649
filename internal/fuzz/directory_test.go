package fuzz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/defuzz-llvm/internal/exec"
	"github.com/zjy-dev/defuzz-llvm/internal/llvmtools"
	"github.com/zjy-dev/defuzz-llvm/internal/seed"
)

type cleanCorrectnessDriver struct{}

func (d *cleanCorrectnessDriver) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (*exec.Result, error) {
	switch name {
	case "mutate", "opt":
		return &exec.Result{ExitCode: 0}, nil
	case "alive-tv":
		return &exec.Result{ExitCode: 0, Stdout: "0 incorrect transformations\n"}, nil
	default:
		return &exec.Result{ExitCode: 1}, nil
	}
}

func TestRunDirectoryTrials(t *testing.T) {
	t.Run("no candidates passes trivially", func(t *testing.T) {
		outcome, err := RunDirectoryTrials(context.Background(), DirectoryConfig{
			Tools:      &llvmtools.Set{Driver: &cleanCorrectnessDriver{}},
			Candidates: nil,
			WorkDir:    t.TempDir(),
			TrialCount: 5,
		})
		require.NoError(t, err)
		assert.False(t, outcome.Failed)
	})

	t.Run("clean candidates pass every trial", func(t *testing.T) {
		dir := t.TempDir()
		candidates := []*seed.Artifacts{
			{WorkDir: dir, MergedSeed: dir + "/a/merged.ll", Reference: dir + "/a/ref.ll", ReferenceCost: map[string]int{}},
			{WorkDir: dir, MergedSeed: dir + "/b/merged.ll", Reference: dir + "/b/ref.ll", ReferenceCost: map[string]int{}},
		}
		outcome, err := RunDirectoryTrials(context.Background(), DirectoryConfig{
			Tools:      &llvmtools.Set{Driver: &cleanCorrectnessDriver{}, MutateBin: "mutate", OptBin: "opt", ValidatorBin: "alive-tv"},
			Candidates: candidates,
			WorkDir:    dir,
			PassSpec:   "instcombine",
			TrialCount: 10,
			Workers:    4,
		})
		require.NoError(t, err)
		assert.False(t, outcome.Failed)
		assert.Equal(t, 10, outcome.Trials)
	})
}
