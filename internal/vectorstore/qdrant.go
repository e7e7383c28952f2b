package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"lifelog-ai/internal/contextutil"
	"lifelog-ai/internal/rag"
)

// Entry is a single personal-data item to index: the embedding plus the
// payload the query engine needs back at retrieval time.
type Entry struct {
	ID         string
	Vector     []float32
	UserID     string
	SourceType rag.SourceType
	Activity   string
	Text       string
}

// QdrantIndex stores and searches personal-data embeddings in Qdrant.
// Its Retrieve method satisfies the query engine's Retriever interface.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
}

// grpcAddr derives the gRPC host and port from an HTTP-style Qdrant URL.
// The gRPC port is the HTTP port + 1, falling back to 6334 when no port is
// given.
func grpcAddr(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			port = httpPort + 1
		}
	}

	return host, port, nil
}

// NewQdrantIndex creates a Qdrant-backed vector index client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) is derived from the HTTP port.
func NewQdrantIndex(urlStr, collection string) (*QdrantIndex, error) {
	host, port, err := grpcAddr(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantIndex{
		client:     client,
		collection: collection,
	}, nil
}

// Retrieve performs a similarity search scoped strictly to userID and
// narrowed by scope. Zero matches are returned as an empty slice, not an
// error. No ordering of the results is guaranteed or relied upon here;
// ranking is the query engine's job.
func (s *QdrantIndex) Retrieve(ctx context.Context, vector []float32, userID string, k int, scope rag.Scope) ([]rag.RetrievedMatch, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	if userID == "" {
		return nil, fmt.Errorf("userID must not be empty")
	}

	// The user_id condition is unconditional: a search that could return
	// another user's data is a correctness violation.
	mustConditions := []*qdrant.Condition{
		qdrant.NewMatch("user_id", userID),
	}
	switch scope.Kind {
	case rag.ScopeDataType:
		mustConditions = append(mustConditions, qdrant.NewMatch("source_type", string(scope.DataType)))
	case rag.ScopeActivity:
		mustConditions = append(mustConditions, qdrant.NewMatch("activity", scope.Activity))
	}

	limit := uint64(k)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: mustConditions,
		},
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", s.collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	matches := make([]rag.RetrievedMatch, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		id := ""
		if point.Id != nil {
			id = point.Id.GetUuid()
		}

		sourceType := rag.SourceText
		text := ""
		if point.Payload != nil {
			if v, ok := point.Payload["source_type"]; ok && v.GetStringValue() != "" {
				sourceType = rag.SourceType(v.GetStringValue())
			}
			if v, ok := point.Payload["text"]; ok {
				text = v.GetStringValue()
			}
		}

		matches = append(matches, rag.RetrievedMatch{
			ID:         id,
			Score:      point.Score,
			SourceType: sourceType,
			Text:       text,
		})
	}

	logger.InfoContext(ctx, "search completed", "collection", s.collection, "k", k, "results", len(matches))
	return matches, nil
}

// entryPayload builds the point payload for an entry. The keys must line up
// with the filter conditions Retrieve builds; activity is omitted when the
// entry has none so an activity filter never matches it.
func entryPayload(entry Entry) map[string]any {
	payload := map[string]any{
		"user_id":     entry.UserID,
		"source_type": string(entry.SourceType),
		"text":        entry.Text,
	}
	if entry.Activity != "" {
		payload["activity"] = entry.Activity
	}
	return payload
}

// Upsert inserts or updates entries in the collection. The ingestion side of
// the life-logging app calls this when new personal data is embedded.
func (s *QdrantIndex) Upsert(ctx context.Context, entries []Entry) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, entry := range entries {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(entry.ID),
			Vectors: qdrant.NewVectors(entry.Vector...),
			Payload: qdrant.NewValueMap(entryPayload(entry)),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", s.collection, "count", len(entries), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", s.collection, "count", len(entries))
	return nil
}

// Delete removes entries by their IDs.
func (s *QdrantIndex) Delete(ctx context.Context, ids []string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewID(id))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "collection", s.collection, "count", len(ids), "error", err)
		return fmt.Errorf("failed to delete points: %w", err)
	}

	logger.InfoContext(ctx, "deleted points", "collection", s.collection, "count", len(ids))
	return nil
}

// CollectionExists reports whether the configured collection exists.
func (s *QdrantIndex) CollectionExists(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// EnsureCollection creates the collection if it does not exist, or validates
// that the existing collection's vector size matches.
func (s *QdrantIndex) EnsureCollection(ctx context.Context, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		logger.InfoContext(ctx, "collection created", "collection", s.collection, "vector_size", vectorSize)
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	config := info.Config
	if config == nil || config.Params == nil {
		return fmt.Errorf("collection config is invalid")
	}
	vectorsConfig := config.Params.GetVectorsConfig()
	if vectorsConfig == nil {
		return fmt.Errorf("collection vectors config is invalid")
	}
	params := vectorsConfig.GetParams()
	if params == nil {
		return fmt.Errorf("collection vector params are invalid")
	}

	if int(params.Size) != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, params.Size)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", vectorSize)
	return nil
}
