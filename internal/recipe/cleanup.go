package recipe

import "os"

// Cleanup removes every scratch file p may own, ignoring files that were
// never created (flag-preserving is the only recipe that writes tgt2, but
// every trial's Paths carries all three names so the caller never needs to
// special-case the recipe kind).
func Cleanup(p Paths) {
	for _, f := range p.Files() {
		_ = os.Remove(f)
	}
}
