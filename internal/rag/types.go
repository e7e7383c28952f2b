package rag

// SourceType identifies which kind of personal data a retrieved match came from.
type SourceType string

const (
	SourceHealth   SourceType = "health"
	SourceLocation SourceType = "location"
	SourceVoice    SourceType = "voice"
	SourcePhoto    SourceType = "photo"
	SourceText     SourceType = "text"
)

// Message represents a single turn in a conversation.
// Sequences are ordered oldest first; that ordering is preserved all the way
// to the completion API.
type Message struct {
	// Role is either "user" or "assistant".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// Timestamp is an RFC 3339 timestamp of when the message was created.
	Timestamp string `json:"timestamp"`
}

// RetrievedMatch is a single scored result from the vector index.
// Matches arrive unordered; ranking is the context builder's job.
type RetrievedMatch struct {
	// ID is the stable identifier of the indexed item.
	ID string `json:"id"`
	// Score is a similarity measure in [0,1]; higher is more relevant.
	Score float32 `json:"score"`
	// SourceType is the personal data category the match came from.
	SourceType SourceType `json:"source_type"`
	// Text is the stored text (or description, for visual media) of the item.
	Text string `json:"text"`
}

// ContextReference records the provenance of one match that grounded an
// answer, in the same order the model saw it.
type ContextReference struct {
	ID      string     `json:"id"`
	Score   float32    `json:"score"`
	Type    SourceType `json:"type"`
	Snippet string     `json:"snippet"`
}

// QueryResult is the outcome of a successful query: the generated answer
// plus the provenance of everything rendered into the grounding context.
type QueryResult struct {
	// Response is the generated answer from the LLM.
	Response string `json:"response"`
	// ContextUsed lists the matches that grounded the answer, in the order
	// they were presented to the model. Empty when retrieval found nothing.
	ContextUsed []ContextReference `json:"context_used"`
}

// ScopeKind discriminates the retrieval scope variants.
type ScopeKind int

const (
	// ScopeUnscoped searches across all of the user's data.
	ScopeUnscoped ScopeKind = iota
	// ScopeDataType restricts retrieval to a single source category.
	ScopeDataType
	// ScopeActivity restricts retrieval to items tagged with a named activity.
	ScopeActivity
)

// Scope describes how a retrieval is filtered.
// Use the constructors rather than building the struct by hand.
type Scope struct {
	Kind     ScopeKind
	DataType SourceType
	Activity string
}

// Unscoped returns a scope that searches all of the user's data.
func Unscoped() Scope {
	return Scope{Kind: ScopeUnscoped}
}

// ByDataType returns a scope restricted to one source category.
func ByDataType(t SourceType) Scope {
	return Scope{Kind: ScopeDataType, DataType: t}
}

// ByActivity returns a scope restricted to a named activity.
func ByActivity(name string) Scope {
	return Scope{Kind: ScopeActivity, Activity: name}
}
