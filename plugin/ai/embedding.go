package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Embedder is the vector embedding capability interface.
type Embedder interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch generates vectors for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

type embeddingService struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewEmbedder creates an Embedder backed by an OpenAI-compatible endpoint.
func NewEmbedder(cfg *EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "openai", "ollama", "siliconflow":
		// All speak the OpenAI embeddings API.
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = DimensionsForModel(cfg.Model)
	}

	return &embeddingService{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: dimensions,
	}, nil
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(s.model),
	}

	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}

	vectors := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		vector := make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			vector[j] = float64(v)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}

// BatchEmbedder embeds large text sets in small paced batches so a local
// model server is not overwhelmed. A failed batch is replaced element-wise
// with zero vectors instead of aborting the whole set.
type BatchEmbedder struct {
	embedder  Embedder
	batchSize int
	limiter   *rate.Limiter
}

// NewBatchEmbedder creates a BatchEmbedder around an Embedder.
func NewBatchEmbedder(embedder Embedder, cfg *EmbeddingConfig) *BatchEmbedder {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	interval := cfg.BatchInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &BatchEmbedder{
		embedder:  embedder,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
	}
}

// EmbedAll embeds every text, one paced batch at a time.
// The returned slice always has len(texts) entries.
func (b *BatchEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		batchVectors, err := b.embedder.EmbedBatch(ctx, batch)
		if err != nil || len(batchVectors) != len(batch) {
			slog.Warn("embedding batch failed, substituting zero vectors",
				"batch_start", start,
				"batch_size", len(batch),
				"error", err)
			batchVectors = make([][]float64, len(batch))
			for i := range batchVectors {
				batchVectors[i] = make([]float64, b.embedder.Dimensions())
			}
		}
		vectors = append(vectors, batchVectors...)
	}
	return vectors, nil
}
