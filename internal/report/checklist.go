package report

import (
	"fmt"
	"io"
)

// Preamble is the display-only patch provenance the run prints before its
// checklist, sourced straight from the environment (spec §6).
type Preamble struct {
	LLVMRevision string
	CommitURL    string
	PatchSHA256  string
}

// ChecklistPrinter writes one line per recipe as it finishes: a passing
// recipe prints a checkmark, a failing one an X plus its reason.
type ChecklistPrinter struct {
	w io.Writer
}

// NewChecklistPrinter wraps w for checklist output.
func NewChecklistPrinter(w io.Writer) *ChecklistPrinter {
	return &ChecklistPrinter{w: w}
}

// PrintPreamble prints the run's display-only provenance strings.
func (c *ChecklistPrinter) PrintPreamble(p Preamble) {
	fmt.Fprintf(c.w, "LLVM revision: %s\n", valueOrUnset(p.LLVMRevision))
	fmt.Fprintf(c.w, "Commit: %s\n", valueOrUnset(p.CommitURL))
	fmt.Fprintf(c.w, "Patch SHA256: %s\n", valueOrUnset(p.PatchSHA256))
}

// PrintPass prints a ✅ line for a recipe that ran clean to its budget.
func (c *ChecklistPrinter) PrintPass(recipe string) {
	fmt.Fprintf(c.w, "✅ %s\n", recipe)
}

// PrintFail prints a ❌ line for a recipe that found an interesting trial.
func (c *ChecklistPrinter) PrintFail(recipe, stem, reason string) {
	if reason == "" {
		fmt.Fprintf(c.w, "❌ %s (%s)\n", recipe, stem)
		return
	}
	fmt.Fprintf(c.w, "❌ %s (%s): %s\n", recipe, stem, reason)
}

// PrintNotInteresting prints the gatekeeper's "not interesting" verdict.
func (c *ChecklistPrinter) PrintNotInteresting() {
	fmt.Fprintln(c.w, "Not interesting")
}

func valueOrUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
