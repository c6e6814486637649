package seed

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// funcDefPattern matches an LLVM IR function-definition header and captures
// its name. Identifier characters include letters, digits, underscore,
// hyphen, and dot — a plain \w+ would miss the hyphen and dot LLVM allows in
// mangled names, per the DESIGN NOTES grammar.
var funcDefPattern = regexp.MustCompile(`define .+ @([A-Za-z0-9_.\-]+)\(`)

// HarvestFromPatch scans a unified diff for added/modified/removed lines
// inside .ll files and extracts every function name it mentions.
//
// The current file is tracked from the most recent "diff --git a/<path>"
// header. The function-header regex is applied to every line within a .ll
// file's hunks — context lines and removed lines included, not just added
// ones — intentionally: any function mentioned anywhere in the diff for
// that file is fair game as a seed (spec §4.2).
func HarvestFromPatch(r io.Reader) (Set, error) {
	set := make(Set)
	currentFile := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "diff --git a/") {
			rest := strings.TrimPrefix(line, "diff --git a/")
			if idx := strings.IndexByte(rest, ' '); idx >= 0 {
				currentFile = rest[:idx]
			} else {
				currentFile = rest
			}
			continue
		}

		if !strings.HasSuffix(currentFile, ".ll") {
			continue
		}

		m := funcDefPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		set.Add(Seed{File: currentFile, Function: m[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}
