// Package gatekeeper decides whether a patch touches a pass this fuzzer
// knows how to exercise, and if so, which optimizer pass-spec to run.
package gatekeeper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zjy-dev/defuzz-llvm/internal/exec"
)

// lsdiffTimeout bounds the one-shot call to enumerate a patch's touched files.
const lsdiffTimeout = 10 * time.Second

// PatchDescriptor is the opaque patch file plus the display-only strings
// printed in the run preamble. It never changes over the lifetime of a run.
type PatchDescriptor struct {
	Path             string
	BaselineRevision string
	CommitURL        string
	PatchSHA256      string
}

// PassBinding pairs a human-readable pass keyword with the optimizer
// pass-spec string that implements it.
type PassBinding struct {
	Keyword  string
	PassSpec string
}

// Table is the fixed, ordered list of pass bindings. The first entry whose
// Keyword substring appears among the patch's touched paths wins; order is
// significant and must not be reshuffled. ValueTracking is a historical
// alias folded onto the same pass-spec as InstCombine/InstSimplify for
// back-compat with older patches that only touched analysis code.
var Table = []PassBinding{
	{"test/Transforms/InstCombine", "instcombine<no-verify-fixpoint>"},
	{"test/Transforms/InstSimplify", "instcombine<no-verify-fixpoint>"},
	{"test/Analysis/ValueTracking", "instcombine<no-verify-fixpoint>"},
	{"test/Transforms/ConstraintElimination", "constraint-elimination"},
	{"test/Transforms/EarlyCSE", "early-cse"},
	{"test/Transforms/GVN", "gvn"},
	{"test/Transforms/NewGVN", "newgvn"},
	{"test/Transforms/Reassociate", "reassociate"},
	{"test/Transforms/SCCP", "sccp"},
	{"test/Transforms/CorrelatedValuePropagation", "correlated-propagation"},
	{"test/Transforms/SimplifyCFG", "simplifycfg"},
	{"test/Transforms/VectorCombine", "vector-combine"},
	{"PhaseOrdering", "default<O3>"},
}

// Check enumerates the patch's touched paths via lsdiff and scans Table in
// order for the first matching keyword. ok is false if no keyword matches,
// in which case the run should report "Not interesting" and stop.
func Check(ctx context.Context, driver exec.Driver, patch PatchDescriptor) (passSpec string, ok bool, err error) {
	result, err := driver.Run(ctx, lsdiffTimeout, "lsdiff", patch.Path)
	if err != nil {
		return "", false, fmt.Errorf("failed to enumerate patch contents: %w", err)
	}
	if result.TimedOut {
		return "", false, fmt.Errorf("lsdiff timed out on %s", patch.Path)
	}
	if result.ExitCode != 0 {
		return "", false, fmt.Errorf("lsdiff failed on %s: %s", patch.Path, result.Stderr)
	}

	touched := result.Stdout
	for _, binding := range Table {
		if strings.Contains(touched, binding.Keyword) {
			return strings.ToLower(binding.PassSpec), true, nil
		}
	}
	return "", false, nil
}
