// Package report turns a recipe's interesting finding into a human-readable
// artifact: a markdown reproducer file, and a terse checklist line printed
// to stdout as each recipe finishes.
package report

// Finding is the reportable shape of an interesting trial: which recipe
// and trial produced it, why, and which of its scratch files survived the
// orchestrator's retention pass.
type Finding struct {
	Recipe       string
	Stem         string
	Reason       string
	ScratchFiles []string
}

// Reporter saves a finding to durable storage for post-mortem.
type Reporter interface {
	Save(f *Finding) error
}
