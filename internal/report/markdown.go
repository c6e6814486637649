package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MarkdownReporter implements Reporter by saving reports as markdown files.
type MarkdownReporter struct {
	outputDir string
	now       func() time.Time
}

// NewMarkdownReporter creates a new MarkdownReporter.
func NewMarkdownReporter(outputDir string) *MarkdownReporter {
	return &MarkdownReporter{outputDir: outputDir, now: time.Now}
}

// Save writes a reproducer markdown file naming the recipe, the reason it
// was flagged, and the embedded .ll contents of the scratch files retained
// for post-mortem. A scratch file that can no longer be read (already
// cleaned up, or never written for this recipe — e.g. Tgt2 outside
// flag-preserving) is noted rather than failing the whole report.
func (r *MarkdownReporter) Save(f *Finding) error {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	reportName := fmt.Sprintf("%s_%d.md", f.Stem, r.now().UnixNano())
	reportPath := filepath.Join(r.outputDir, reportName)

	var content string
	content += fmt.Sprintf("# %s: %s\n\n", f.Recipe, f.Stem)
	if f.Reason != "" {
		content += fmt.Sprintf("## Reason\n\n%s\n\n", f.Reason)
	}
	content += "## Scratch files\n\n"
	for _, path := range f.ScratchFiles {
		content += fmt.Sprintf("### `%s`\n\n", path)
		body, err := os.ReadFile(path)
		if err != nil {
			content += fmt.Sprintf("_could not read file: %v_\n\n", err)
			continue
		}
		content += fmt.Sprintf("```llvm\n%s\n```\n\n", string(body))
	}

	return os.WriteFile(reportPath, []byte(content), 0644)
}
