package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"lifelog-ai/internal/contextutil"
	"lifelog-ai/internal/rag"
	"lifelog-ai/internal/storage"
)

// QueryHandler handles HTTP requests for RAG queries.
type QueryHandler struct {
	engine        rag.Engine
	conversations storage.ConversationStore
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(engine rag.Engine, conversations storage.ConversationStore) *QueryHandler {
	return &QueryHandler{
		engine:        engine,
		conversations: conversations,
	}
}

// QueryRequest represents the HTTP request payload for RAG queries.
//
// swagger:model QueryRequest
type QueryRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id"`
	// ConversationID, when set, loads prior turns into the query and
	// persists the new exchange afterwards.
	ConversationID string `json:"conversation_id,omitempty"`
	// DataType explicitly scopes retrieval to one source category,
	// overriding the intent router's suggestion.
	DataType string `json:"data_type,omitempty"`
	// Activity explicitly scopes retrieval to one named activity,
	// overriding the intent router's suggestion.
	Activity string `json:"activity,omitempty"`
}

// QueryResponse represents the HTTP response payload for RAG queries.
//
// swagger:model QueryResponse
type QueryResponse struct {
	// The generated answer
	Response string `json:"response"`

	// Provenance of the matches rendered into the grounding context,
	// in the order the model saw them
	ContextUsed []rag.ContextReference `json:"context_used"`

	// How the intent router classified the question
	Analysis rag.QueryAnalysis `json:"analysis"`
}

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles POST /api/query.
//
// The handler is the caller the engine design expects: it consults the
// intent router to pick an entry point (the engine itself never does), loads
// conversation history when a conversation is named, and maps the engine's
// typed failures to HTTP statuses.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.DataType != "" && !validDataType(req.DataType) {
		writeError(w, http.StatusBadRequest, "unknown data_type")
		return
	}

	analysis := rag.Analyze(req.Question)

	var result rag.QueryResult
	var err error

	switch {
	case req.ConversationID != "":
		result, err = h.queryWithConversation(r, req)
	case req.Activity != "":
		result, err = h.engine.QueryByActivity(ctx, req.Question, req.UserID, req.Activity)
	case req.DataType != "":
		result, err = h.engine.QueryByDataType(ctx, req.Question, req.UserID, rag.SourceType(req.DataType))
	case analysis.SuggestedActivity != "":
		result, err = h.engine.QueryByActivity(ctx, req.Question, req.UserID, analysis.SuggestedActivity)
	case analysis.SuggestedDataType != "":
		result, err = h.engine.QueryByDataType(ctx, req.Question, req.UserID, analysis.SuggestedDataType)
	default:
		result, err = h.engine.Query(ctx, req.Question, req.UserID)
	}

	if err != nil {
		logger.ErrorContext(ctx, "query failed", "error", err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(QueryResponse{
		Response:    result.Response,
		ContextUsed: result.ContextUsed,
		Analysis:    analysis,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// queryWithConversation replays prior turns into the engine and persists the
// new exchange once the answer is back.
func (h *QueryHandler) queryWithConversation(r *http.Request, req QueryRequest) (rag.QueryResult, error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if err := h.conversations.Ensure(ctx, req.ConversationID, req.UserID); err != nil {
		return rag.QueryResult{}, err
	}

	history, err := h.conversations.ListMessages(ctx, req.ConversationID)
	if err != nil {
		return rag.QueryResult{}, err
	}

	result, err := h.engine.QueryWithHistory(ctx, req.Question, req.UserID, history)
	if err != nil {
		return rag.QueryResult{}, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := h.conversations.AppendMessage(ctx, req.ConversationID, rag.Message{
		Role: "user", Content: req.Question, Timestamp: now,
	}); err != nil {
		logger.WarnContext(ctx, "failed to persist user turn", "error", err)
	}
	if err := h.conversations.AppendMessage(ctx, req.ConversationID, rag.Message{
		Role: "assistant", Content: result.Response, Timestamp: now,
	}); err != nil {
		logger.WarnContext(ctx, "failed to persist assistant turn", "error", err)
	}

	return result, nil
}

// statusForError maps engine failures to HTTP statuses. Upstream service
// failures surface as 502 so a higher layer can choose to retry.
func statusForError(err error) int {
	var embErr *rag.EmbeddingError
	var retErr *rag.RetrievalError
	var compErr *rag.CompletionError
	if errors.As(err, &embErr) || errors.As(err, &retErr) || errors.As(err, &compErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func validDataType(t string) bool {
	switch rag.SourceType(t) {
	case rag.SourceHealth, rag.SourceLocation, rag.SourceVoice, rag.SourcePhoto, rag.SourceText:
		return true
	}
	return false
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
