package rag

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildContext_EmptyMatches(t *testing.T) {
	// The empty case must hit the exact sentinel, every time.
	for i := 0; i < 2; i++ {
		block, ordered := BuildContext(nil, DefaultContextBudget)
		if block != EmptyContext {
			t.Errorf("BuildContext(nil) = %q, want the empty-context sentinel", block)
		}
		if len(ordered) != 0 {
			t.Errorf("BuildContext(nil) returned %d ordered matches, want 0", len(ordered))
		}
	}

	block, _ := BuildContext([]RetrievedMatch{}, DefaultContextBudget)
	if block != EmptyContext {
		t.Errorf("BuildContext(empty slice) = %q, want the empty-context sentinel", block)
	}
}

func TestBuildContext_RanksByScoreDescending(t *testing.T) {
	matches := []RetrievedMatch{
		{ID: "b", Score: 0.87, SourceType: SourceText, Text: "played tennis with Sam"},
		{ID: "c", Score: 0.60, SourceType: SourcePhoto, Text: "a racket on a court"},
		{ID: "a", Score: 0.91, SourceType: SourceHealth, Text: "burned 400 calories"},
	}

	block, ordered := BuildContext(matches, DefaultContextBudget)

	wantIDs := []string{"a", "b", "c"}
	for i, id := range wantIDs {
		if ordered[i].ID != id {
			t.Errorf("ordered[%d].ID = %q, want %q", i, ordered[i].ID, id)
		}
	}

	// Rendered lines follow the same order
	posA := strings.Index(block, "burned 400 calories")
	posB := strings.Index(block, "played tennis with Sam")
	posC := strings.Index(block, "a racket on a court")
	if posA < 0 || posB < 0 || posC < 0 {
		t.Fatalf("missing match text in block:\n%s", block)
	}
	if !(posA < posB && posB < posC) {
		t.Errorf("rendered order wrong: positions a=%d b=%d c=%d", posA, posB, posC)
	}

	// The photo entry carries the visual marker; the others do not
	if !strings.Contains(block, "3. (60.0% relevant) [photo] a racket on a court") {
		t.Errorf("photo line missing visual marker:\n%s", block)
	}
	if !strings.Contains(block, "1. (91.0% relevant) burned 400 calories") {
		t.Errorf("top line rendered wrong:\n%s", block)
	}
}

func TestBuildContext_StableOnTies(t *testing.T) {
	matches := []RetrievedMatch{
		{ID: "first", Score: 0.5, Text: "first arrival"},
		{ID: "second", Score: 0.5, Text: "second arrival"},
		{ID: "third", Score: 0.5, Text: "third arrival"},
	}

	_, ordered := BuildContext(matches, DefaultContextBudget)

	for i, want := range []string{"first", "second", "third"} {
		if ordered[i].ID != want {
			t.Errorf("ordered[%d].ID = %q, want %q (ties must keep arrival order)", i, ordered[i].ID, want)
		}
	}
}

func TestBuildContext_HeaderCountsMatches(t *testing.T) {
	matches := []RetrievedMatch{
		{ID: "1", Score: 0.9, Text: "one"},
		{ID: "2", Score: 0.8, Text: "two"},
	}
	block, _ := BuildContext(matches, DefaultContextBudget)
	if !strings.HasPrefix(block, "Found 2 relevant entries") {
		t.Errorf("block header wrong:\n%s", block)
	}
}

func TestBuildContext_TruncatesAtBudget(t *testing.T) {
	long := strings.Repeat("x", 500)
	matches := []RetrievedMatch{
		{ID: "top", Score: 0.95, Text: "the highest ranked entry"},
		{ID: "mid", Score: 0.70, Text: long},
		{ID: "low", Score: 0.40, Text: long},
	}

	budget := 300
	block, ordered := BuildContext(matches, budget)

	if len(block) > budget {
		t.Errorf("block length %d exceeds budget %d", len(block), budget)
	}
	if !strings.HasSuffix(block, "...[truncated]") {
		t.Errorf("truncated block missing marker, got suffix %q", block[len(block)-20:])
	}
	// Truncation happens after ranking: the top entry survives intact.
	if !strings.Contains(block, "the highest ranked entry") {
		t.Errorf("highest ranked entry was cut:\n%s", block)
	}
	// Provenance still reports everything that was ranked.
	if len(ordered) != 3 {
		t.Errorf("ordered count = %d, want 3", len(ordered))
	}
}

func TestBuildContext_TruncationKeepsValidUTF8(t *testing.T) {
	// Multi-byte text must never be split mid-rune by the budget cut.
	matches := []RetrievedMatch{
		{ID: "jp", Score: 0.9, Text: strings.Repeat("公園で桜の写真を撮った日記", 20)},
	}

	for budget := 60; budget <= 120; budget++ {
		block, _ := BuildContext(matches, budget)
		if !utf8.ValidString(block) {
			t.Fatalf("budget %d produced invalid UTF-8: %q", budget, block)
		}
		if len(block) > budget {
			t.Fatalf("budget %d: block length %d exceeds budget", budget, len(block))
		}
		if !strings.HasSuffix(block, "...[truncated]") {
			t.Fatalf("budget %d: truncated block missing marker", budget)
		}
	}
}

func TestBuildContext_TinyBudgetStillCarriesMarker(t *testing.T) {
	// Budgets too small to even hold the marker are raised to a floor; a cut
	// block always ends with the marker.
	matches := []RetrievedMatch{
		{ID: "1", Score: 0.9, Text: strings.Repeat("z", 200)},
	}
	full, _ := BuildContext(matches, DefaultContextBudget)

	for _, budget := range []int{1, 5, 10, len("\n...[truncated]")} {
		block, _ := BuildContext(matches, budget)
		if len(block) >= len(full) {
			t.Errorf("budget %d: block was not cut", budget)
		}
		if !strings.HasSuffix(block, "...[truncated]") {
			t.Errorf("budget %d: cut block missing marker, got %q", budget, block)
		}
	}
}

func TestBuildContext_NoTruncationUnderBudget(t *testing.T) {
	matches := []RetrievedMatch{
		{ID: "1", Score: 0.9, Text: "short"},
	}
	block, _ := BuildContext(matches, DefaultContextBudget)
	if strings.Contains(block, "...[truncated]") {
		t.Errorf("unexpected truncation marker in %q", block)
	}
}

func TestBuildContext_DoesNotMutateInput(t *testing.T) {
	matches := []RetrievedMatch{
		{ID: "low", Score: 0.1, Text: "low"},
		{ID: "high", Score: 0.9, Text: "high"},
	}
	BuildContext(matches, DefaultContextBudget)
	if matches[0].ID != "low" || matches[1].ID != "high" {
		t.Error("BuildContext reordered its input slice")
	}
}

func TestBuildContext_RelevancePercentageOneDecimal(t *testing.T) {
	matches := []RetrievedMatch{
		{ID: "1", Score: 0.876, Text: "entry"},
	}
	block, _ := BuildContext(matches, DefaultContextBudget)
	if !strings.Contains(block, "(87.6% relevant)") {
		t.Errorf("relevance percentage not rendered to one decimal:\n%s", block)
	}
}
