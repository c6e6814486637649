package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearFuzzEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"FUZZ_MODE", "LLVM_REVISION", "COMMIT_URL", "PATCH_SHA256", "DEFUZZ_WORKERS", "DEFUZZ_LOG_LEVEL"} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoad_BudgetMultiplier(t *testing.T) {
	t.Run("quickfuzz scales budgets by 0.01", func(t *testing.T) {
		clearFuzzEnv(t)
		os.Setenv("FUZZ_MODE", "quickfuzz")
		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, 0.01, cfg.BudgetMultiplier)
	})

	t.Run("unset FUZZ_MODE runs at full budget", func(t *testing.T) {
		clearFuzzEnv(t)
		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, 1.0, cfg.BudgetMultiplier)
	})

	t.Run("any other value also runs at full budget", func(t *testing.T) {
		clearFuzzEnv(t)
		os.Setenv("FUZZ_MODE", "verbose")
		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, 1.0, cfg.BudgetMultiplier)
	})
}

func TestLoad_DisplayFields(t *testing.T) {
	clearFuzzEnv(t)
	os.Setenv("LLVM_REVISION", "abc123")
	os.Setenv("COMMIT_URL", "https://example.invalid/commit/abc123")
	os.Setenv("PATCH_SHA256", "deadbeef")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "abc123", cfg.LLVMRevision)
	assert.Equal(t, "https://example.invalid/commit/abc123", cfg.CommitURL)
	assert.Equal(t, "deadbeef", cfg.PatchSHA256)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearFuzzEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FUZZ_MODE=quickfuzz\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.BudgetMultiplier)
}

func TestLoad_MissingDotEnvIsNotAnError(t *testing.T) {
	clearFuzzEnv(t)
	_, err := Load(t.TempDir())
	assert.NoError(t, err)
}
