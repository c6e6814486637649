// Package config loads the run-level knobs that are not already arguments
// on the command line: the quick/full budget multiplier, the display-only
// patch provenance strings, and worker/logging overrides.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// quickFuzzMultiplier and fullMultiplier are the two budget scales FUZZ_MODE
// selects between (spec §6).
const (
	quickFuzzMultiplier = 0.01
	fullMultiplier      = 1.0
)

// Config holds the environment-derived and viper-overridable settings
// every run reads once at startup.
type Config struct {
	// BudgetMultiplier scales every recipe's wall-clock budget.
	BudgetMultiplier float64

	// LLVMRevision, CommitURL, PatchSHA256 are display-only strings printed
	// in the run preamble (spec §6); they carry no behavioral weight.
	LLVMRevision string
	CommitURL    string
	PatchSHA256  string

	// Workers is the worker-pool size. Defaults to runtime.NumCPU() in
	// patch mode; callers running directory mode override it to 16.
	Workers int

	LogLevel string
	LogDir   string
}

// Load reads FUZZ_MODE, LLVM_REVISION, COMMIT_URL, and PATCH_SHA256 from the
// environment (after loading a .env file if one is present in dir or an
// ancestor), layers any LOG_LEVEL/LOG_DIR/WORKERS viper overrides on top,
// and returns the assembled Config.
//
// Env vars always win for the display-only fields (spec §6): there is no
// config-file equivalent for LLVMRevision/CommitURL/PatchSHA256, they are
// pass-through display strings by design.
func Load(dir string) (*Config, error) {
	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("DEFUZZ")
	v.AutomaticEnv()
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "")
	v.SetDefault("workers", runtime.NumCPU())

	cfg := &Config{
		BudgetMultiplier: multiplierFor(os.Getenv("FUZZ_MODE")),
		LLVMRevision:     os.Getenv("LLVM_REVISION"),
		CommitURL:        os.Getenv("COMMIT_URL"),
		PatchSHA256:      os.Getenv("PATCH_SHA256"),
		Workers:          v.GetInt("workers"),
		LogLevel:         v.GetString("log_level"),
		LogDir:           v.GetString("log_dir"),
	}
	return cfg, nil
}

// multiplierFor implements FUZZ_MODE's two-valued contract: "quickfuzz"
// scales budgets by 0.01, anything else (including unset) is full-speed.
func multiplierFor(mode string) float64 {
	if strings.EqualFold(mode, "quickfuzz") {
		return quickFuzzMultiplier
	}
	return fullMultiplier
}

// loadDotEnv loads a .env file from dir if present. Missing is not an
// error — a .env file is an optional convenience for local runs.
func loadDotEnv(dir string) error {
	path := dir + "/.env"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}
