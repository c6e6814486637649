// Package orchestrator wires the gatekeeper, seed harvester/preparer,
// recipe engine, and report printer into the two run modes spec.md's CLI
// exposes: patch-driven and directory-driven.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/zjy-dev/defuzz-llvm/internal/config"
	"github.com/zjy-dev/defuzz-llvm/internal/exec"
	"github.com/zjy-dev/defuzz-llvm/internal/fuzz"
	"github.com/zjy-dev/defuzz-llvm/internal/gatekeeper"
	"github.com/zjy-dev/defuzz-llvm/internal/llvmtools"
	"github.com/zjy-dev/defuzz-llvm/internal/logger"
	"github.com/zjy-dev/defuzz-llvm/internal/recipe"
	"github.com/zjy-dev/defuzz-llvm/internal/report"
	"github.com/zjy-dev/defuzz-llvm/internal/seed"
)

// directoryModeWorkers is the fixed worker count for directory mode (spec §4.8).
const directoryModeWorkers = 16

// PatchOptions is every input the patch-driven CLI contract needs (spec §6).
type PatchOptions struct {
	ValidatorBin string
	OptBinDir    string
	SrcRoot      string
	ToolBinDir   string
	PatchFile    string
	WorkDir      string
	Cfg          *config.Config

	// Driver overrides the subprocess driver; nil uses a real CommandDriver.
	// Exposed for tests to script tool-binary behavior.
	Driver exec.Driver
}

func (o PatchOptions) toolSet() *llvmtools.Set {
	driver := o.Driver
	if driver == nil {
		driver = exec.NewCommandDriver()
	}
	return &llvmtools.Set{
		Driver:       driver,
		MutateBin:    filepath.Join(o.ToolBinDir, "mutate"),
		MergeBin:     filepath.Join(o.ToolBinDir, "merge"),
		CostBin:      filepath.Join(o.ToolBinDir, "cost"),
		OptBin:       filepath.Join(o.OptBinDir, "opt"),
		ExtractBin:   filepath.Join(o.OptBinDir, "llvm-extract"),
		ValidatorBin: o.ValidatorBin,
	}
}

// RunPatch implements the patch-driven mode: gatekeep, harvest, prepare,
// run all five recipes in order. Returns the process exit code — always 0
// unless a setup precondition fails (spec §6, invariant 1).
func RunPatch(ctx context.Context, opts PatchOptions, out io.Writer) (int, error) {
	if err := freshWorkDir(opts.WorkDir); err != nil {
		return 1, fmt.Errorf("failed to create work directory: %w", err)
	}

	tools := opts.toolSet()
	if err := checkBinaries(tools); err != nil {
		return 1, err
	}

	printer := report.NewChecklistPrinter(out)
	printer.PrintPreamble(report.Preamble{
		LLVMRevision: opts.Cfg.LLVMRevision,
		CommitURL:    opts.Cfg.CommitURL,
		PatchSHA256:  opts.Cfg.PatchSHA256,
	})

	passSpec, ok, err := gatekeeper.Check(ctx, tools.Driver, gatekeeper.PatchDescriptor{
		Path:             opts.PatchFile,
		BaselineRevision: opts.Cfg.LLVMRevision,
		CommitURL:        opts.Cfg.CommitURL,
		PatchSHA256:      opts.Cfg.PatchSHA256,
	})
	if err != nil {
		return 1, fmt.Errorf("gatekeeper check failed: %w", err)
	}
	if !ok {
		printer.PrintNotInteresting()
		return 0, nil
	}

	patchFile, err := os.Open(opts.PatchFile)
	if err != nil {
		return 1, fmt.Errorf("failed to open patch file: %w", err)
	}
	defer patchFile.Close()

	seeds, err := seed.HarvestFromPatch(patchFile)
	if err != nil {
		return 1, fmt.Errorf("malformed patch file: %w", err)
	}
	if len(seeds) == 0 {
		fmt.Fprintln(out, "No seeds found")
		return 0, nil
	}

	seedDir := filepath.Join(opts.WorkDir, "seeds")
	artifacts, err := seed.PreparePatchSeeds(ctx, tools, seeds.Slice(), opts.SrcRoot, seedDir, passSpec)
	if err != nil {
		return 1, fmt.Errorf("failed to prepare seed artifacts: %w", err)
	}

	reporter := report.NewMarkdownReporter(filepath.Join(opts.WorkDir, "reports"))
	runRecipes(ctx, fuzz.Config{
		Tools:            tools,
		Artifacts:        artifacts,
		WorkDir:          opts.WorkDir,
		PassSpec:         passSpec,
		Workers:          runtime.NumCPU(),
		BudgetMultiplier: opts.Cfg.BudgetMultiplier,
	}, printer, reporter)

	return 0, nil
}

// ExistingOptions is every input the directory-driven CLI contract needs.
type ExistingOptions struct {
	ValidatorBin string
	OptBinDir    string
	ToolBinDir   string
	TestDir      string
	TrialCount   int
	WorkDir      string
	Cfg          *config.Config

	// Driver overrides the subprocess driver; nil uses a real CommandDriver.
	Driver exec.Driver
}

func (o ExistingOptions) toolSet() *llvmtools.Set {
	driver := o.Driver
	if driver == nil {
		driver = exec.NewCommandDriver()
	}
	return &llvmtools.Set{
		Driver:       driver,
		MutateBin:    filepath.Join(o.ToolBinDir, "mutate"),
		MergeBin:     filepath.Join(o.ToolBinDir, "merge"),
		CostBin:      filepath.Join(o.ToolBinDir, "cost"),
		OptBin:       filepath.Join(o.OptBinDir, "opt"),
		ExtractBin:   filepath.Join(o.OptBinDir, "llvm-extract"),
		ValidatorBin: o.ValidatorBin,
	}
}

// directoryPassSpec is the fixed pass the original directory-mode driver
// always exercises (there is no patch to gatekeep on, so there is no
// PassBinding table lookup — see original_source/fuzz_existing.py).
const directoryPassSpec = "instcombine<no-verify-fixpoint>"

// RunExisting implements the directory-driven mode: prepare every
// non-blocked candidate in testDir, then run trialCount correctness
// trials against randomly chosen candidates (spec §4.3, §6).
func RunExisting(ctx context.Context, opts ExistingOptions, out io.Writer) (int, error) {
	if err := freshWorkDir(opts.WorkDir); err != nil {
		return 1, fmt.Errorf("failed to create work directory: %w", err)
	}

	tools := opts.toolSet()
	if err := checkBinaries(tools); err != nil {
		return 1, err
	}

	printer := report.NewChecklistPrinter(out)
	printer.PrintPreamble(report.Preamble{
		LLVMRevision: opts.Cfg.LLVMRevision,
		CommitURL:    opts.Cfg.CommitURL,
		PatchSHA256:  opts.Cfg.PatchSHA256,
	})

	names, err := seed.HarvestFromDirectory(opts.TestDir, seed.BlockList)
	if err != nil {
		return 1, fmt.Errorf("failed to list test directory: %w", err)
	}

	seedDir := filepath.Join(opts.WorkDir, "seed")
	prepared, err := seed.PrepareDirectoryCandidates(ctx, tools, opts.TestDir, names, seedDir, directoryPassSpec)
	if err != nil {
		return 1, fmt.Errorf("failed to prepare candidates: %w", err)
	}
	logger.Info("valid tests: %d", len(prepared))

	outcome, err := fuzz.RunDirectoryTrials(ctx, fuzz.DirectoryConfig{
		Tools:      tools,
		Candidates: prepared,
		WorkDir:    opts.WorkDir,
		PassSpec:   directoryPassSpec,
		TrialCount: opts.TrialCount,
		Workers:    directoryModeWorkers,
	})
	if err != nil {
		logger.Warn("directory trials reported errors: %v", err)
	}

	reporter := report.NewMarkdownReporter(filepath.Join(opts.WorkDir, "reports"))
	reportOutcome(recipe.Correctness, outcome, printer, reporter)

	return 0, nil
}

// runRecipes runs every recipe in the fixed order, printing and saving
// each one's outcome; a failing recipe does not stop the remaining ones
// (spec §2, §7).
func runRecipes(ctx context.Context, cfg fuzz.Config, printer *report.ChecklistPrinter, reporter report.Reporter) {
	engine := fuzz.NewEngine(cfg)
	for _, k := range recipe.Order {
		outcome, err := engine.RunRecipe(ctx, k)
		if err != nil {
			logger.Warn("recipe %s reported errors: %v", k, err)
		}
		reportOutcome(k, outcome, printer, reporter)
	}
}

func reportOutcome(k recipe.Kind, outcome *fuzz.Outcome, printer *report.ChecklistPrinter, reporter report.Reporter) {
	if !outcome.Failed {
		printer.PrintPass(k.String())
		return
	}
	printer.PrintFail(k.String(), outcome.Finding.Stem, outcome.Finding.Reason)
	if err := reporter.Save(&report.Finding{
		Recipe:       k.String(),
		Stem:         outcome.Finding.Stem,
		Reason:       outcome.Finding.Reason,
		ScratchFiles: outcome.ScratchFiles,
	}); err != nil {
		logger.Warn("failed to save report for %s: %v", k, err)
	}
}

// freshWorkDir recreates dir empty, per the work directory's
// "owned exclusively by one process-wide fuzz run" invariant (spec §3).
func freshWorkDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// checkBinaries fails fatally if any required tool binary is missing
// (spec §7: "missing tool binary" is a Fatal error class).
func checkBinaries(tools *llvmtools.Set) error {
	for _, b := range tools.RequiredBinaries() {
		if _, err := os.Stat(b.Path); err != nil {
			return fmt.Errorf("required tool binary %s not found at %s: %w", b.Label, b.Path, err)
		}
	}
	if _, err := os.Stat(tools.ValidatorBin); err != nil {
		return fmt.Errorf("translation validator not found at %s: %w", tools.ValidatorBin, err)
	}
	return nil
}
