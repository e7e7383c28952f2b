package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_clients.go -package=mocks lifelog-ai/internal/rag Embedder,Retriever,Completer

import (
	"context"
	"time"

	"lifelog-ai/internal/contextutil"
)

// Embedder maps a text string to a fixed-length vector.
// This interface is defined from the engine's perspective (consumer-first).
type Embedder interface {
	// EmbedText returns the embedding for a single text. A successful call
	// never returns a zero-length vector.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Retriever performs nearest-neighbor search over a user's indexed data.
type Retriever interface {
	// Retrieve returns up to k matches for the query vector, scoped strictly
	// to userID and narrowed by scope. An empty result is not an error.
	Retrieve(ctx context.Context, vector []float32, userID string, k int, scope Scope) ([]RetrievedMatch, error)
}

// Completer generates a natural-language response from a message list and a
// grounding context string.
type Completer interface {
	Complete(ctx context.Context, messages []Message, grounding string) (string, error)
}

// Engine answers free-text questions about a user's personal data by
// combining vector retrieval with an LLM completion.
type Engine interface {
	// Query answers a question with unscoped retrieval.
	Query(ctx context.Context, text, userID string) (QueryResult, error)
	// QueryWithHistory additionally forwards prior conversation turns to the
	// completion client. Retrieval itself is unaffected by the history.
	QueryWithHistory(ctx context.Context, text, userID string, history []Message) (QueryResult, error)
	// QueryByDataType restricts retrieval to a single source category.
	QueryByDataType(ctx context.Context, text, userID string, dataType SourceType) (QueryResult, error)
	// QueryByActivity restricts retrieval to a named activity and requests a
	// larger result set, since activity questions tend to need broader
	// aggregation evidence.
	QueryByActivity(ctx context.Context, text, userID string, activity string) (QueryResult, error)
}

const (
	// DefaultTopK is the retrieval size for unscoped and by-type queries.
	DefaultTopK = 5
	// DefaultActivityTopK is the larger retrieval size for activity queries.
	DefaultActivityTopK = 10
)

// Options tune the engine. Zero values fall back to the defaults above.
type Options struct {
	// TopK is the result count requested for unscoped and by-type retrieval.
	TopK int
	// ActivityTopK is the result count requested for by-activity retrieval.
	ActivityTopK int
	// ContextBudget is the hard character limit for the assembled context.
	ContextBudget int
}

// engine implements Engine. It holds only handles to its collaborators, so
// concurrent queries are fully independent and need no locking.
type engine struct {
	embedder  Embedder
	retriever Retriever
	completer Completer
	opts      Options
}

// NewEngine creates an Engine with explicit collaborators. There is no
// package-level instance; tests inject fakes per test.
func NewEngine(embedder Embedder, retriever Retriever, completer Completer, opts Options) Engine {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.ActivityTopK <= 0 {
		opts.ActivityTopK = DefaultActivityTopK
	}
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = DefaultContextBudget
	}
	return &engine{
		embedder:  embedder,
		retriever: retriever,
		completer: completer,
		opts:      opts,
	}
}

func (e *engine) Query(ctx context.Context, text, userID string) (QueryResult, error) {
	return e.run(ctx, text, userID, Unscoped(), nil)
}

func (e *engine) QueryWithHistory(ctx context.Context, text, userID string, history []Message) (QueryResult, error) {
	return e.run(ctx, text, userID, Unscoped(), history)
}

func (e *engine) QueryByDataType(ctx context.Context, text, userID string, dataType SourceType) (QueryResult, error) {
	return e.run(ctx, text, userID, ByDataType(dataType), nil)
}

func (e *engine) QueryByActivity(ctx context.Context, text, userID string, activity string) (QueryResult, error) {
	return e.run(ctx, text, userID, ByActivity(activity), nil)
}

// run is the single pipeline behind all four entry points:
// embed -> retrieve -> build context -> complete. Each step depends on the
// previous one's output, so the pipeline is strictly sequential. Any step
// failure aborts the whole query; there are no partial answers and no
// internal retries (retry policy belongs to the client wrappers, where it
// cannot silently stack billable calls).
func (e *engine) run(ctx context.Context, text, userID string, scope Scope, history []Message) (QueryResult, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	logger.InfoContext(ctx, "query started",
		"user_id", userID,
		"scope_kind", scope.Kind,
		"history_len", len(history),
	)

	vector, err := e.embedder.EmbedText(ctx, text)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return QueryResult{}, &EmbeddingError{Err: err}
	}

	k := e.opts.TopK
	if scope.Kind == ScopeActivity {
		k = e.opts.ActivityTopK
	}

	matches, err := e.retriever.Retrieve(ctx, vector, userID, k, scope)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search vector index", "error", err)
		return QueryResult{}, &RetrievalError{Err: err}
	}
	logger.InfoContext(ctx, "retrieval completed", "results", len(matches), "k", k)

	grounding, ranked := BuildContext(matches, e.opts.ContextBudget)
	logger.DebugContext(ctx, "context assembled",
		"context_length", len(grounding),
		"matches_rendered", len(ranked),
	)

	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, Message{
		Role:      "user",
		Content:   text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	answer, err := e.completer.Complete(ctx, messages, grounding)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get completion", "error", err)
		return QueryResult{}, &CompletionError{Err: err}
	}

	references := make([]ContextReference, 0, len(ranked))
	for _, m := range ranked {
		references = append(references, ContextReference{
			ID:      m.ID,
			Score:   m.Score,
			Type:    m.SourceType,
			Snippet: m.Text,
		})
	}

	logger.InfoContext(ctx, "query completed",
		"user_id", userID,
		"matches_used", len(references),
		"answer_length", len(answer),
		"duration", time.Since(start),
	)

	return QueryResult{
		Response:    answer,
		ContextUsed: references,
	}, nil
}
