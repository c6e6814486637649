package orchestrator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/defuzz-llvm/internal/config"
	"github.com/zjy-dev/defuzz-llvm/internal/exec"
)

// fakeDriver scripts every external tool this package invokes, keyed by
// binary basename so callers don't need to know the full constructed path.
type fakeDriver struct {
	lsdiffOutput string
	cleanOptimizerAndValidator bool
}

func (d *fakeDriver) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (*exec.Result, error) {
	base := filepath.Base(name)
	switch base {
	case "lsdiff":
		return &exec.Result{ExitCode: 0, Stdout: d.lsdiffOutput}, nil
	case "mutate":
		out := args[1]
		return &exec.Result{ExitCode: 0}, os.WriteFile(out, []byte("; m\n"), 0o644)
	case "merge":
		out := args[1]
		return &exec.Result{ExitCode: 0}, os.WriteFile(out, []byte("; merged\n"), 0o644)
	case "opt":
		out := args[2]
		return &exec.Result{ExitCode: 0}, os.WriteFile(out, []byte("; opt\n"), 0o644)
	case "cost":
		return &exec.Result{ExitCode: 0, Stdout: "add 1\n"}, nil
	case "llvm-extract":
		out := args[4]
		return &exec.Result{ExitCode: 0}, os.WriteFile(out, []byte("; fn\n"), 0o644)
	case "alive-tv":
		if d.cleanOptimizerAndValidator {
			return &exec.Result{ExitCode: 0, Stdout: "0 incorrect transformations\n"}, nil
		}
		return &exec.Result{ExitCode: 0, Stdout: "1 incorrect transformations\n"}, nil
	default:
		return &exec.Result{ExitCode: 1, Stderr: "unexpected tool " + base}, nil
	}
}

// touchBinaries creates empty placeholder files at every path checkBinaries
// stats, so the existence precondition passes without a real toolchain.
func touchBinaries(t *testing.T, toolBinDir, optBinDir, validatorPath string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(toolBinDir, 0o755))
	require.NoError(t, os.MkdirAll(optBinDir, 0o755))
	for _, name := range []string{"mutate", "merge", "cost"} {
		require.NoError(t, os.WriteFile(filepath.Join(toolBinDir, name), []byte(""), 0o755))
	}
	for _, name := range []string{"opt", "llvm-extract"} {
		require.NoError(t, os.WriteFile(filepath.Join(optBinDir, name), []byte(""), 0o755))
	}
	require.NoError(t, os.WriteFile(validatorPath, []byte(""), 0o755))
}

func TestRunPatch_GatekeeperMiss(t *testing.T) {
	root := t.TempDir()
	toolBinDir := filepath.Join(root, "tools")
	optBinDir := filepath.Join(root, "opt-bin")
	validator := filepath.Join(root, "alive-tv")
	touchBinaries(t, toolBinDir, optBinDir, validator)

	patch := filepath.Join(root, "patch.diff")
	require.NoError(t, os.WriteFile(patch, []byte("diff --git a/README.md b/README.md\n"), 0o644))

	var out bytes.Buffer
	code, err := RunPatch(context.Background(), PatchOptions{
		ValidatorBin: validator,
		OptBinDir:    optBinDir,
		SrcRoot:      root,
		ToolBinDir:   toolBinDir,
		PatchFile:    patch,
		WorkDir:      filepath.Join(root, "fuzz"),
		Cfg:          &config.Config{BudgetMultiplier: 0.0001},
		Driver:       &fakeDriver{lsdiffOutput: "README.md\n"},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Not interesting")
}

func TestRunPatch_NoSeedsFound(t *testing.T) {
	root := t.TempDir()
	toolBinDir := filepath.Join(root, "tools")
	optBinDir := filepath.Join(root, "opt-bin")
	validator := filepath.Join(root, "alive-tv")
	touchBinaries(t, toolBinDir, optBinDir, validator)

	patch := filepath.Join(root, "patch.diff")
	require.NoError(t, os.WriteFile(patch, []byte("diff --git a/llvm/test/Transforms/InstCombine/foo.ll b/llvm/test/Transforms/InstCombine/foo.ll\n"), 0o644))

	var out bytes.Buffer
	code, err := RunPatch(context.Background(), PatchOptions{
		ValidatorBin: validator,
		OptBinDir:    optBinDir,
		SrcRoot:      root,
		ToolBinDir:   toolBinDir,
		PatchFile:    patch,
		WorkDir:      filepath.Join(root, "fuzz"),
		Cfg:          &config.Config{BudgetMultiplier: 0.0001},
		Driver:       &fakeDriver{lsdiffOutput: "llvm/test/Transforms/InstCombine/foo.ll\n"},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "No seeds found")
}

func TestRunPatch_CleanPatchAllRecipesPass(t *testing.T) {
	root := t.TempDir()
	toolBinDir := filepath.Join(root, "tools")
	optBinDir := filepath.Join(root, "opt-bin")
	validator := filepath.Join(root, "alive-tv")
	touchBinaries(t, toolBinDir, optBinDir, validator)

	srcFile := filepath.Join(root, "llvm", "test", "Transforms", "InstCombine", "foo.ll")
	require.NoError(t, os.MkdirAll(filepath.Dir(srcFile), 0o755))
	require.NoError(t, os.WriteFile(srcFile, []byte("define i32 @foo(i32 %x) {\n  ret i32 %x\n}\n"), 0o644))

	patch := filepath.Join(root, "patch.diff")
	patchContent := "diff --git a/llvm/test/Transforms/InstCombine/foo.ll b/llvm/test/Transforms/InstCombine/foo.ll\n" +
		"+define i32 @foo(i32 %x) {\n"
	require.NoError(t, os.WriteFile(patch, []byte(patchContent), 0o644))

	var out bytes.Buffer
	code, err := RunPatch(context.Background(), PatchOptions{
		ValidatorBin: validator,
		OptBinDir:    optBinDir,
		SrcRoot:      root,
		ToolBinDir:   toolBinDir,
		PatchFile:    patch,
		WorkDir:      filepath.Join(root, "fuzz"),
		Cfg:          &config.Config{BudgetMultiplier: 0.0001},
		Driver: &fakeDriver{
			lsdiffOutput:               "llvm/test/Transforms/InstCombine/foo.ll\n",
			cleanOptimizerAndValidator: true,
		},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, 5, strings.Count(out.String(), "✅"))
	assert.NotContains(t, out.String(), "❌")
}

func TestRunPatch_MissingBinaryIsFatal(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer
	_, err := RunPatch(context.Background(), PatchOptions{
		ValidatorBin: filepath.Join(root, "alive-tv"),
		OptBinDir:    filepath.Join(root, "opt-bin"),
		SrcRoot:      root,
		ToolBinDir:   filepath.Join(root, "tools"),
		PatchFile:    filepath.Join(root, "patch.diff"),
		WorkDir:      filepath.Join(root, "fuzz"),
		Cfg:          &config.Config{},
		Driver:       &fakeDriver{},
	}, &out)
	assert.Error(t, err)
}

func TestRunExisting_DirectoryMode(t *testing.T) {
	root := t.TempDir()
	toolBinDir := filepath.Join(root, "tools")
	optBinDir := filepath.Join(root, "opt-bin")
	validator := filepath.Join(root, "alive-tv")
	touchBinaries(t, toolBinDir, optBinDir, validator)

	testDir := filepath.Join(root, "tests")
	require.NoError(t, os.MkdirAll(testDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "one.ll"), []byte("; one\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "two.ll"), []byte("; two\n"), 0o644))

	var out bytes.Buffer
	code, err := RunExisting(context.Background(), ExistingOptions{
		ValidatorBin: validator,
		OptBinDir:    optBinDir,
		ToolBinDir:   toolBinDir,
		TestDir:      testDir,
		TrialCount:   5,
		WorkDir:      filepath.Join(root, "fuzz"),
		Cfg:          &config.Config{},
		Driver:       &fakeDriver{cleanOptimizerAndValidator: true},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "✅")
}
