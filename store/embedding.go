package store

import (
	"context"
	"time"
)

// Embedding represents one embedded chunk of a record's searchable text.
// ObjectType+ObjectID is a weak back-reference to the owning record; the
// embedding is deleted when the record is deleted.
type Embedding struct {
	ID         string // "{recordID}_chunk_{i}"
	ObjectType string // record domain, e.g. "finance"
	ObjectID   string // owning record ID
	ChunkText  string
	Vector     []float64
	// CreatedTs is the owning record's event timestamp, so time-filtered
	// searches resolve against record time rather than ingestion time.
	CreatedTs int64
}

// FindEmbedding is the find condition for embeddings.
type FindEmbedding struct {
	ObjectType *string
	ObjectID   *string
	Start      *time.Time
	End        *time.Time
	Limit      int
}

// UpsertEmbedding inserts or replaces an embedding.
func (s *Store) UpsertEmbedding(ctx context.Context, embedding *Embedding) (*Embedding, error) {
	return s.driver.UpsertEmbedding(ctx, embedding)
}

// ListEmbeddings lists embeddings matching the find condition.
func (s *Store) ListEmbeddings(ctx context.Context, find *FindEmbedding) ([]*Embedding, error) {
	return s.driver.ListEmbeddings(ctx, find)
}

// DeleteEmbeddingsByObject deletes all embeddings owned by one record.
func (s *Store) DeleteEmbeddingsByObject(ctx context.Context, objectType, objectID string) error {
	return s.driver.DeleteEmbeddingsByObject(ctx, objectType, objectID)
}

// CountEmbeddings returns the total number of stored embeddings.
func (s *Store) CountEmbeddings(ctx context.Context) (int, error) {
	return s.driver.CountEmbeddings(ctx)
}
