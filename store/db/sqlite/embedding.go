package sqlite

import (
	"context"
	"encoding/binary"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/jeffreyouni/life-butler/store"
)

// Vectors are stored as raw little-endian float64 arrays so the table stays
// portable across drivers without a vector extension.

func encodeVector(vector []float64) []byte {
	buf := make([]byte, 8*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, errors.Errorf("malformed vector blob: %d bytes", len(buf))
	}
	vector := make([]float64, len(buf)/8)
	for i := range vector {
		vector[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vector, nil
}

func (d *DB) UpsertEmbedding(ctx context.Context, embedding *store.Embedding) (*store.Embedding, error) {
	stmt := `
		INSERT OR REPLACE INTO embedding (id, object_type, object_id, chunk_text, vector, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := d.db.ExecContext(ctx, stmt,
		embedding.ID,
		embedding.ObjectType,
		embedding.ObjectID,
		embedding.ChunkText,
		encodeVector(embedding.Vector),
		embedding.CreatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert embedding")
	}
	return embedding, nil
}

func (d *DB) ListEmbeddings(ctx context.Context, find *store.FindEmbedding) ([]*store.Embedding, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ObjectType != nil {
		where, args = append(where, "object_type = ?"), append(args, *find.ObjectType)
	}
	if find.ObjectID != nil {
		where, args = append(where, "object_id = ?"), append(args, *find.ObjectID)
	}
	if find.Start != nil {
		where, args = append(where, "created_ts >= ?"), append(args, find.Start.Unix())
	}
	if find.End != nil {
		where, args = append(where, "created_ts < ?"), append(args, find.End.Unix())
	}

	query := `
		SELECT id, object_type, object_id, chunk_text, vector, created_ts
		FROM embedding
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query embeddings")
	}
	defer rows.Close()

	embeddings := []*store.Embedding{}
	for rows.Next() {
		var embedding store.Embedding
		var blob []byte
		if err := rows.Scan(
			&embedding.ID,
			&embedding.ObjectType,
			&embedding.ObjectID,
			&embedding.ChunkText,
			&blob,
			&embedding.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan embedding")
		}
		vector, err := decodeVector(blob)
		if err != nil {
			return nil, errors.Wrapf(err, "embedding %s", embedding.ID)
		}
		embedding.Vector = vector
		embeddings = append(embeddings, &embedding)
	}
	return embeddings, rows.Err()
}

func (d *DB) DeleteEmbeddingsByObject(ctx context.Context, objectType, objectID string) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM embedding WHERE object_type = ? AND object_id = ?", objectType, objectID); err != nil {
		return errors.Wrap(err, "failed to delete embeddings")
	}
	return nil
}

func (d *DB) CountEmbeddings(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embedding").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count embeddings")
	}
	return count, nil
}
