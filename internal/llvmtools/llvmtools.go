// Package llvmtools wraps the external tool-binary contracts (mutator,
// merger, cost analyzer, optimizer, extractor, translation validator)
// behind typed Go calls, grounded on the teacher's compiler-invocation
// style (internal/compiler/gcc.go: build an argv, run it, inspect the
// result) generalized to timeout-bounded subprocess calls.
package llvmtools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zjy-dev/defuzz-llvm/internal/cost"
	"github.com/zjy-dev/defuzz-llvm/internal/exec"
)

// subprocessTimeout bounds every call below except Validate, which layers
// its own, slightly longer timeout on top of the validator's internal
// --smt-to cap so a wedged SMT solver still gets reaped.
const subprocessTimeout = 60 * time.Second

// Set bundles the paths to every external tool this fuzzer depends on,
// plus the command driver used to invoke them.
type Set struct {
	Driver exec.Driver

	MutateBin    string
	MergeBin     string
	CostBin      string
	OptBin       string
	ExtractBin   string
	ValidatorBin string
}

// RequiredBinaries returns (label, path) pairs for the existence check the
// orchestrator performs once at startup (spec: missing tool binary is
// fatal).
func (s *Set) RequiredBinaries() []struct{ Label, Path string } {
	return []struct{ Label, Path string }{
		{"mutate", s.MutateBin},
		{"merge", s.MergeBin},
		{"cost", s.CostBin},
		{"opt", s.OptBin},
		{"llvm-extract", s.ExtractBin},
	}
}

// Mutate invokes `mutate <in> <out> <recipe>`.
func (s *Set) Mutate(ctx context.Context, in, out, recipe string) error {
	res, err := s.Driver.Run(ctx, subprocessTimeout, s.MutateBin, in, out, recipe)
	if err != nil {
		return err
	}
	if res.TimedOut {
		return fmt.Errorf("mutate timed out")
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("mutate failed (exit %d): %s", res.ExitCode, res.Stderr)
	}
	return nil
}

// Merge invokes `merge <dir> <out>`.
func (s *Set) Merge(ctx context.Context, dir, out string) error {
	res, err := s.Driver.Run(ctx, subprocessTimeout, s.MergeBin, dir, out)
	if err != nil {
		return err
	}
	if res.TimedOut {
		return fmt.Errorf("merge timed out")
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("merge failed (exit %d): %s", res.ExitCode, res.Stderr)
	}
	return nil
}

// Cost invokes `cost <ll>` and parses its stdout into a cost.Vector.
func (s *Set) Cost(ctx context.Context, file string) (cost.Vector, error) {
	res, err := s.Driver.Run(ctx, subprocessTimeout, s.CostBin, file)
	if err != nil {
		return nil, err
	}
	if res.TimedOut {
		return nil, fmt.Errorf("cost analysis timed out on %s", file)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("cost analysis failed on %s (exit %d): %s", file, res.ExitCode, res.Stderr)
	}
	return cost.Parse(res.Stdout)
}

// Extract invokes `llvm-extract -S -func <name> -o <out> <in>`.
func (s *Set) Extract(ctx context.Context, name, in, out string) error {
	res, err := s.Driver.Run(ctx, subprocessTimeout, s.ExtractBin, "-S", "-func", name, "-o", out, in)
	if err != nil {
		return err
	}
	if res.TimedOut {
		return fmt.Errorf("llvm-extract timed out on %s", name)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("llvm-extract failed on %s (exit %d): %s", name, res.ExitCode, res.Stderr)
	}
	return nil
}

// OptimizeOutcome classifies an optimizer invocation's result, distinguishing
// the "interesting with reason tag" classes from a clean run (spec §4.5,
// §7 — optimizer timeout is `timeout`, a non-timeout failure is `crash`).
type OptimizeOutcome int

const (
	OptimizeOK OptimizeOutcome = iota
	OptimizeTimedOut
	OptimizeCrashed
)

// Optimize invokes `opt -S -o <out> <in> -passes=<passSpec>`.
func (s *Set) Optimize(ctx context.Context, in, out, passSpec string) (OptimizeOutcome, error) {
	res, err := s.Driver.Run(ctx, subprocessTimeout, s.OptBin, "-S", "-o", out, in, "-passes="+passSpec)
	if err != nil {
		return OptimizeCrashed, err
	}
	if res.TimedOut {
		return OptimizeTimedOut, nil
	}
	if res.ExitCode != 0 {
		return OptimizeCrashed, nil
	}
	return OptimizeOK, nil
}

// ValidateOutcome classifies a translation validator report.
type ValidateOutcome int

const (
	// ValidateCorrect means the validator found no incorrect transformation.
	ValidateCorrect ValidateOutcome = iota
	// ValidateIncorrect means the validator reported an unsound rewrite.
	ValidateIncorrect
	// ValidateTimedOut means the validator's own SMT engine or the call's
	// Go-side deadline was exceeded; this is never interesting on its own.
	ValidateTimedOut
	// ValidateCrashed means the validator exited abnormally for a reason
	// other than a timeout.
	ValidateCrashed
)

const (
	correctToken         = "0 incorrect transformations"
	syntacticallyEqual   = "(syntactically equal)"
	transformCorrectFlag = "Transformation seems to be correct"
	smtTimeoutSeconds    = 100
	// validatorTimeout leaves headroom over the validator's own --smt-to cap
	// so the Go-side timeout only fires if the process itself wedges.
	validatorTimeout = smtTimeoutSeconds*time.Second + 20*time.Second
)

// Validate invokes `<validator> --smt-to=100 --disable-undef-input <src> <tgt>`
// and classifies its report.
func (s *Set) Validate(ctx context.Context, src, tgt string) (ValidateOutcome, string, error) {
	res, err := s.Driver.Run(ctx, validatorTimeout, s.ValidatorBin,
		fmt.Sprintf("--smt-to=%d", smtTimeoutSeconds), "--disable-undef-input", src, tgt)
	if err != nil {
		return ValidateCrashed, "", err
	}
	if res.TimedOut {
		return ValidateTimedOut, res.Stdout, nil
	}
	if res.ExitCode != 0 {
		return ValidateCrashed, res.Stdout, nil
	}
	if !strings.Contains(res.Stdout, correctToken) {
		return ValidateIncorrect, res.Stdout, nil
	}
	return ValidateCorrect, res.Stdout, nil
}

// ReportsSyntacticallyEqual checks whether a validator report flagged its
// two inputs as syntactically identical — used by the flag-preserving
// recipe as a defensive sanity check against degenerate mutations.
func ReportsSyntacticallyEqual(report string) bool {
	return strings.Contains(report, syntacticallyEqual)
}

// ReportsTransformationCorrect checks whether a validator report claims the
// rewrite under test is semantically correct.
func ReportsTransformationCorrect(report string) bool {
	return strings.Contains(report, transformCorrectFlag)
}
