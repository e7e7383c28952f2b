package rag

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultContextBudget is the hard character limit for an assembled
	// context block when no budget is configured.
	DefaultContextBudget = 4000

	// EmptyContext is sent to the model when retrieval found nothing. It
	// instructs the model to ask for more information rather than invent an
	// answer; returning it instead of an empty string is deliberate policy.
	EmptyContext = "No personal data was found for this query. " +
		"Tell the user you could not find anything relevant and ask them for more details instead of guessing."

	// visualMarker annotates entries whose text is a description of visual
	// media rather than directly quoted personal text.
	visualMarker = "[photo]"

	// truncationMarker is appended whenever the assembled block had to be cut
	// to fit the budget.
	truncationMarker = "\n...[truncated]"

	// minContextBudget is the smallest budget BuildContext honors. A block
	// cut any shorter could not carry the truncation marker that signals
	// the cut, so lower budgets are raised to this floor.
	minContextBudget = len(truncationMarker) + 1
)

// BuildContext turns retrieval results into a single grounding string no
// longer than budget characters, plus the matches in the order they were
// rendered (for provenance reporting).
//
// Matches are ranked by score descending before rendering; ties keep their
// arrival order. Truncation happens once, after full assembly, so the
// highest-ranked matches are always fully present before lower-ranked ones
// are cut. Truncating per entry during assembly would instead favor whatever
// entries happened to be iterated first.
func BuildContext(matches []RetrievedMatch, budget int) (string, []RetrievedMatch) {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	if budget < minContextBudget {
		budget = minContextBudget
	}

	if len(matches) == 0 {
		return EmptyContext, nil
	}

	ranked := make([]RetrievedMatch, len(matches))
	copy(ranked, matches)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant entries from the user's personal data:\n\n", len(ranked))
	for i, m := range ranked {
		if isVisual(m.SourceType) {
			fmt.Fprintf(&b, "%d. (%.1f%% relevant) %s %s\n", i+1, m.Score*100, visualMarker, m.Text)
		} else {
			fmt.Fprintf(&b, "%d. (%.1f%% relevant) %s\n", i+1, m.Score*100, m.Text)
		}
	}

	return truncate(b.String(), budget), ranked
}

// isVisual reports whether the source type holds described rather than
// directly quoted content.
func isVisual(t SourceType) bool {
	return t == SourcePhoto
}

// truncate cuts s to at most budget bytes, appending the truncation marker
// when anything was removed. The cut backs off to the previous rune boundary
// so multi-byte text never ends up split mid-rune. Callers guarantee budget
// exceeds the marker length.
func truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	cut := budget - len(truncationMarker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}
