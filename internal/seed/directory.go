package seed

import (
	"os"
	"sort"
	"strings"
)

// BlockList encodes known-flaky existing tests (floating-point quirks and
// known upstream issues) that directory-mode harvesting must skip.
//
// The original driver's block list string-concatenated its first two
// entries with no separating comma, silently merging them into one string
// that matches no real filename (DESIGN NOTES, open question (a)). That
// looked like a bug, not an intentional exclusion of a combined name, so
// this port keeps every entry separate rather than reproducing it — see
// DESIGN.md for the reasoning.
var BlockList = []string{
	"select-cmp-cttz-ctlz.ll", // https://github.com/llvm/llvm-project/issues/121428
	"minmax-fold.ll",          // known FP issue
	"fneg-fabs.ll",            // https://github.com/llvm/llvm-project/issues/121430
}

// HarvestFromDirectory lists every .ll file directly under testDir whose
// basename is not on blockList. Entries are returned in sorted order so
// that numbering (used to build the per-candidate scratch subdirectory
// name) is stable across runs on an unchanged directory.
func HarvestFromDirectory(testDir string, blockList []string) ([]string, error) {
	blocked := make(map[string]struct{}, len(blockList))
	for _, name := range blockList {
		blocked[name] = struct{}{}
	}

	entries, err := os.ReadDir(testDir)
	if err != nil {
		return nil, err
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".ll") {
			continue
		}
		if _, ok := blocked[name]; ok {
			continue
		}
		candidates = append(candidates, name)
	}
	sort.Strings(candidates)
	return candidates, nil
}
