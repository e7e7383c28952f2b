package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"lifelog-ai/internal/rag"
)

// stubEngine satisfies rag.Engine with canned results.
type stubEngine struct{}

func (stubEngine) Query(ctx context.Context, text, userID string) (rag.QueryResult, error) {
	return rag.QueryResult{Response: "ok", ContextUsed: []rag.ContextReference{}}, nil
}

func (stubEngine) QueryWithHistory(ctx context.Context, text, userID string, history []rag.Message) (rag.QueryResult, error) {
	return rag.QueryResult{Response: "ok", ContextUsed: []rag.ContextReference{}}, nil
}

func (stubEngine) QueryByDataType(ctx context.Context, text, userID string, dataType rag.SourceType) (rag.QueryResult, error) {
	return rag.QueryResult{Response: "ok", ContextUsed: []rag.ContextReference{}}, nil
}

func (stubEngine) QueryByActivity(ctx context.Context, text, userID string, activity string) (rag.QueryResult, error) {
	return rag.QueryResult{Response: "ok", ContextUsed: []rag.ContextReference{}}, nil
}

// stubConversations satisfies storage.ConversationStore without a database.
type stubConversations struct{}

func (stubConversations) Ensure(ctx context.Context, conversationID, userID string) error {
	return nil
}

func (stubConversations) AppendMessage(ctx context.Context, conversationID string, msg rag.Message) error {
	return nil
}

func (stubConversations) ListMessages(ctx context.Context, conversationID string) ([]rag.Message, error) {
	return nil, nil
}

// stubChecker reports a reachable vector index.
type stubChecker struct{}

func (stubChecker) CollectionExists(ctx context.Context) (bool, error) {
	return true, nil
}

func newTestRouter() http.Handler {
	return NewRouter(&Deps{
		Engine:        stubEngine{},
		Conversations: stubConversations{},
		VectorIndex:   stubChecker{},
	})
}

func TestNewRouter(t *testing.T) {
	if newTestRouter() == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{
			name:       "GET /healthz exists",
			method:     http.MethodGet,
			path:       "/healthz",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/query exists",
			method:     http.MethodPost,
			path:       "/api/query",
			wantStatus: http.StatusBadRequest, // Bad request due to empty body, but route exists
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/unknown",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "GET /api/query not allowed",
			method:     http.MethodGet,
			path:       "/api/query",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}
