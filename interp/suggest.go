package interp

import (
	"fmt"

	"github.com/sahilm/fuzzy"
)

// suggestion returns a did-you-mean hint for an unknown name, ready to
// be appended to an error message, or an empty string when no candidate
// comes close enough.
func suggestion(name string, candidates []string) string {
	matches := fuzzy.Find(name, candidates)
	if len(matches) == 0 {
		return ""
	}
	best := matches[0]
	// A match covering less than half of the candidate is more likely to
	// mislead than to help.
	if len(best.MatchedIndexes)*2 < len(best.Str) {
		return ""
	}

	return fmt.Sprintf(" (did you mean %q?)", best.Str)
}
