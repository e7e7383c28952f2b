package rag

import "strings"

// QueryAnalysis is the intent router's classification of a raw question.
// It is a routing aid only: a wrong suggestion degrades retrieval scope but
// never correctness, because the unscoped path remains a valid fallback.
type QueryAnalysis struct {
	// SuggestedDataType is the source category to scope retrieval to, or
	// empty when no category cue was found.
	SuggestedDataType SourceType `json:"suggested_data_type,omitempty"`
	// SuggestedActivity is a named activity from the fixed vocabulary, or
	// empty when none matched.
	SuggestedActivity string `json:"suggested_activity,omitempty"`
	IsCountQuery      bool   `json:"is_count_query"`
	IsAverageQuery    bool   `json:"is_average_query"`
	IsComparisonQuery bool   `json:"is_comparison_query"`
}

var (
	countCues      = []string{"how many", "number of", "count", "times"}
	averageCues    = []string{"average", "mean", "typical"}
	comparisonCues = []string{"more than", "less than", "compare", "versus"}
)

// dataTypeCues maps each suggestible category to its lexical cues.
// Categories are checked in the fixed order of dataTypePriority; a query
// matching several categories resolves to the first one in that order.
var dataTypeCues = map[SourceType][]string{
	SourcePhoto:    {"photo", "picture", "image", "selfie", "camera"},
	SourceHealth:   {"steps", "sleep", "heart rate", "workout", "exercise", "calories", "weight", "blood pressure"},
	SourceLocation: {"where", "location", "place", "visited", "travel", "trip"},
	SourceVoice:    {"voice note", "voice memo", "recording", "recorded", "audio"},
}

// dataTypePriority is the documented tie-break: visual cues win over health,
// health over location, location over voice.
var dataTypePriority = []SourceType{SourcePhoto, SourceHealth, SourceLocation, SourceVoice}

// activityVocabulary is the fixed set of named activities the router can
// suggest. It is deliberately static; see DESIGN.md.
var activityVocabulary = []string{
	"badminton",
	"basketball",
	"cycling",
	"golf",
	"hiking",
	"running",
	"soccer",
	"swimming",
	"tennis",
	"yoga",
}

// Analyze classifies a raw question by lexical cues so callers can pick the
// right engine entry point. It is pure and deterministic: no model call, no
// side effects, the same text always yields the same analysis.
func Analyze(text string) QueryAnalysis {
	q := strings.ToLower(text)

	analysis := QueryAnalysis{
		IsCountQuery:      containsAny(q, countCues),
		IsAverageQuery:    containsAny(q, averageCues),
		IsComparisonQuery: containsAny(q, comparisonCues),
	}

	for _, t := range dataTypePriority {
		if containsAny(q, dataTypeCues[t]) {
			analysis.SuggestedDataType = t
			break
		}
	}

	for _, activity := range activityVocabulary {
		if strings.Contains(q, activity) {
			analysis.SuggestedActivity = activity
			break
		}
	}

	return analysis
}

func containsAny(s string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}
