// Package recipe implements the five mutate/optimize/oracle checks that
// decide whether one trial against a prepared seed is an interesting
// finding (spec §4.5). A single Run function is parameterized by Kind
// rather than dispatched by name, so adding or auditing a recipe never
// touches a string-keyed registry.
package recipe

import (
	"fmt"
	"path/filepath"
)

// Kind tags which of the five checks a trial runs. Using a small enum
// instead of a bare recipe-name string keeps the mutator argument, the
// oracle dispatch, and the scratch-file prefix all derived from one value.
type Kind int

const (
	Correctness Kind = iota
	Commutative
	CanonicalForm
	MultiUse
	FlagPreserving
)

// String returns the mutator recipe-name token and scratch-file prefix for
// k (they are the same string, spec §4.5/§6).
func (k Kind) String() string {
	switch k {
	case Correctness:
		return "correctness"
	case Commutative:
		return "commutative"
	case CanonicalForm:
		return "canonical-form"
	case MultiUse:
		return "multi-use"
	case FlagPreserving:
		return "flag-preserving"
	default:
		return "unknown"
	}
}

// Order is the fixed sequential order recipes run in (spec §4.8).
var Order = []Kind{Correctness, Commutative, MultiUse, FlagPreserving, CanonicalForm}

// Budget returns the recipe's full-mode wall-clock budget in seconds,
// before the quick/full multiplier is applied (spec §4.8).
func (k Kind) Budget() float64 {
	if k == Correctness {
		return 3600
	}
	return 300
}

// Paths holds the up-to-three scratch file paths a trial owns, named
// <recipe>-<id>.{src,tgt,tgt2}.ll under the work directory (spec §3).
type Paths struct {
	Src  string
	Tgt  string
	Tgt2 string
}

// NewPaths builds the scratch paths for trial id under workDir for recipe
// kind k. Tgt2 is only populated by the flag-preserving recipe but the
// field always has a value so callers can unconditionally clean it up.
func NewPaths(workDir string, k Kind, id int) Paths {
	stem := fmt.Sprintf("%s-%d", k, id)
	return Paths{
		Src:  filepath.Join(workDir, stem+".src.ll"),
		Tgt:  filepath.Join(workDir, stem+".tgt.ll"),
		Tgt2: filepath.Join(workDir, stem+".tgt2.ll"),
	}
}

// Stem returns the scratch-name-stem TrialResult reports (spec §3).
func (p Paths) Stem() string {
	return filepath.Base(p.Src[:len(p.Src)-len(".src.ll")])
}

// Result is the outcome of one trial: whether it is interesting, and if
// so, why (spec §3, TrialResult).
type Result struct {
	Stem        string
	Interesting bool
	Reason      string
}

// Files returns every scratch path this trial may have created, in a
// stable order, for the runner's cleanup-on-uninteresting-exit pass
// (spec §4.7).
func (p Paths) Files() []string {
	return []string{p.Src, p.Tgt, p.Tgt2}
}
