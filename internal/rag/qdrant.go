package rag

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"wayfarer/internal/models"
)

// QdrantConfig holds Qdrant connection configuration.
type QdrantConfig struct {
	// URL is the Qdrant server address (e.g., "https://example.qdrant.io:6334").
	URL string

	// CollectionName is the name of the collection holding the knowledge base.
	CollectionName string

	// APIKey is optional API key for authentication.
	APIKey string
}

// QdrantIndex implements Index backed by a Qdrant collection.
type QdrantIndex struct {
	client         *qdrant.Client
	collectionName string
}

// NewQdrantIndex connects to Qdrant and returns an index bound to one
// collection.
func NewQdrantIndex(cfg QdrantConfig) (*QdrantIndex, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}

	parsedURL := cfg.URL
	if !strings.HasPrefix(parsedURL, "http://") && !strings.HasPrefix(parsedURL, "https://") {
		parsedURL = "https://" + parsedURL
	}

	u, err := url.Parse(parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	host := u.Hostname()
	port := 6334 // default gRPC port
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantIndex{client: client, collectionName: cfg.CollectionName}, nil
}

// Upsert implements Index. Administrative path only; Qdrant handles
// concurrent reads during upserts on its own.
func (q *QdrantIndex) Upsert(ctx context.Context, chunks []models.Chunk) error {
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		if c.ID == "" || len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %q missing id or embedding", c.ID)
		}
		payload := map[string]any{"text": c.Text}
		for k, v := range c.Metadata {
			payload[k] = v
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(c.ID),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

// Search implements Index. Qdrant already ranks by similarity; the chunk-id
// tie-break is applied on top for the determinism the pipeline promises.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	limit := uint64(k)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	results := make([]models.ScoredChunk, 0, len(points))
	for _, point := range points {
		sc := models.ScoredChunk{Similarity: float64(point.Score)}
		sc.Metadata = make(map[string]string)

		if point.Id != nil {
			if uuid := point.Id.GetUuid(); uuid != "" {
				sc.ID = uuid
			} else if num := point.Id.GetNum(); num != 0 {
				sc.ID = fmt.Sprintf("%d", num)
			}
		}

		for key, value := range point.Payload {
			if key == "text" {
				sc.Text = value.GetStringValue()
				continue
			}
			if s := value.GetStringValue(); s != "" {
				sc.Metadata[key] = s
			}
		}

		results = append(results, sc)
	}

	// Equal scores sort by chunk id, matching the in-memory index.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j-1].Similarity == results[j].Similarity && results[j].ID < results[j-1].ID; j-- {
			results[j-1], results[j] = results[j], results[j-1]
		}
	}

	return results, nil
}

// Count implements Index.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collectionName,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count failed: %w", err)
	}
	return int(count), nil
}

// Close releases the underlying gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

// Compile-time check that QdrantIndex implements Index.
var _ Index = (*QdrantIndex)(nil)
