package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Record model related methods.
	CreateRecord(ctx context.Context, create *Record) (*Record, error)
	ListRecords(ctx context.Context, find *FindRecord) ([]*Record, error)
	DeleteRecord(ctx context.Context, domain Domain, id string) error

	// Embedding model related methods.
	UpsertEmbedding(ctx context.Context, embedding *Embedding) (*Embedding, error)
	ListEmbeddings(ctx context.Context, find *FindEmbedding) ([]*Embedding, error)
	DeleteEmbeddingsByObject(ctx context.Context, objectType, objectID string) error
	CountEmbeddings(ctx context.Context) (int, error)
}
