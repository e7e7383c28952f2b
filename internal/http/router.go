package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lifelog-ai/internal/handlers"
	"lifelog-ai/internal/rag"
	"lifelog-ai/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine        rag.Engine
	Conversations storage.ConversationStore
	VectorIndex   handlers.CollectionChecker
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(LoggerMiddleware)

	queryHandler := handlers.NewQueryHandler(deps.Engine, deps.Conversations)
	healthHandler := handlers.NewHealthHandler(deps.VectorIndex)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/query", queryHandler)
	})
	r.Method(http.MethodGet, "/healthz", healthHandler)

	return r
}
