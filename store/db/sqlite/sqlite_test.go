package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffreyouni/life-butler/internal/profile"
	"github.com/jeffreyouni/life-butler/store"
)

func newTestDriver(t *testing.T) store.Driver {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "butler_test.db"),
	}
	driver, err := NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	return driver
}

func TestVectorRoundTrip(t *testing.T) {
	vectors := [][]float64{
		{1.5, -2.25, 0, 3.14159},
		{},
		{0.000001},
	}
	for _, v := range vectors {
		decoded, err := decodeVector(encodeVector(v))
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	}
}

func TestDecodeVector_MalformedBlob(t *testing.T) {
	_, err := decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestRecordCRUD(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	created, err := driver.CreateRecord(ctx, &store.Record{
		ID:        "f1",
		Domain:    store.DomainFinance,
		Timestamp: ts,
		Data:      map[string]string{"type": "expense", "amount": "35.50", "category": "takeout"},
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	domain := store.DomainFinance
	records, err := driver.ListRecords(ctx, &store.FindRecord{Domain: &domain})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "f1", records[0].ID)
	assert.Equal(t, ts, records[0].Timestamp)
	assert.Equal(t, "35.50", records[0].Data["amount"])

	require.NoError(t, driver.DeleteRecord(ctx, store.DomainFinance, "f1"))
	records, err = driver.ListRecords(ctx, &store.FindRecord{Domain: &domain})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListRecords_Filters(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }
	seed := []*store.Record{
		{ID: "f1", Domain: store.DomainFinance, Timestamp: day(1), Data: map[string]string{}},
		{ID: "f2", Domain: store.DomainFinance, Timestamp: day(15), Data: map[string]string{}},
		{ID: "m1", Domain: store.DomainMeals, Timestamp: day(15), Data: map[string]string{}},
	}
	for _, r := range seed {
		_, err := driver.CreateRecord(ctx, r)
		require.NoError(t, err)
	}

	domain := store.DomainFinance
	start, end := day(10), day(20)
	records, err := driver.ListRecords(ctx, &store.FindRecord{Domain: &domain, Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "f2", records[0].ID)

	// No filter returns everything, oldest first.
	records, err = driver.ListRecords(ctx, &store.FindRecord{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "f1", records[0].ID)
}

func TestCreateRecord_UpsertsOnSameKey(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	r := &store.Record{ID: "f1", Domain: store.DomainFinance, Timestamp: time.Now(), Data: map[string]string{"amount": "10"}}
	_, err := driver.CreateRecord(ctx, r)
	require.NoError(t, err)

	r.Data["amount"] = "20"
	_, err = driver.CreateRecord(ctx, r)
	require.NoError(t, err)

	domain := store.DomainFinance
	records, err := driver.ListRecords(ctx, &store.FindRecord{Domain: &domain})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "20", records[0].Data["amount"])
}

func TestEmbeddingCRUD(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	embedding := &store.Embedding{
		ID:         "f1_chunk_0",
		ObjectType: "finance",
		ObjectID:   "f1",
		ChunkText:  "expense 支出 amount 金额 35.50",
		Vector:     []float64{0.1, -0.2, 0.3},
		CreatedTs:  time.Now().Unix(),
	}
	_, err := driver.UpsertEmbedding(ctx, embedding)
	require.NoError(t, err)

	objectType := "finance"
	embeddings, err := driver.ListEmbeddings(ctx, &store.FindEmbedding{ObjectType: &objectType})
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
	assert.Equal(t, embedding.ChunkText, embeddings[0].ChunkText)
	assert.Equal(t, embedding.Vector, embeddings[0].Vector)

	count, err := driver.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, driver.DeleteEmbeddingsByObject(ctx, "finance", "f1"))
	count, err = driver.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestListEmbeddings_Limit(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		_, err := driver.UpsertEmbedding(ctx, &store.Embedding{
			ID:         id + "_chunk_0",
			ObjectType: "journals",
			ObjectID:   id,
			ChunkText:  "entry",
			Vector:     []float64{1},
			CreatedTs:  int64(1000 + i),
		})
		require.NoError(t, err)
	}

	embeddings, err := driver.ListEmbeddings(ctx, &store.FindEmbedding{Limit: 2})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	// Newest first.
	assert.Equal(t, "c_chunk_0", embeddings[0].ID)
}

func TestListEmbeddings_TimeWindow(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	march := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	april := march.AddDate(0, 1, 0)
	for id, ts := range map[string]time.Time{
		"feb": march.AddDate(0, 0, -10),
		"mar": march.AddDate(0, 0, 10),
		"apr": april.AddDate(0, 0, 10),
	} {
		_, err := driver.UpsertEmbedding(ctx, &store.Embedding{
			ID:         id + "_chunk_0",
			ObjectType: "finance",
			ObjectID:   id,
			ChunkText:  "entry",
			Vector:     []float64{1},
			CreatedTs:  ts.Unix(),
		})
		require.NoError(t, err)
	}

	embeddings, err := driver.ListEmbeddings(ctx, &store.FindEmbedding{Start: &march, End: &april})
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
	assert.Equal(t, "mar_chunk_0", embeddings[0].ID)
}

func TestStoreListDomainRecords(t *testing.T) {
	driver := newTestDriver(t)
	s := store.New(driver)
	ctx := context.Background()

	march := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	april := march.AddDate(0, 1, 0)
	records := []*store.Record{
		{ID: "f1", Domain: store.DomainFinance, Timestamp: march.AddDate(0, 0, 5),
			Data: map[string]string{"amount": "10"}},
		{ID: "f2", Domain: store.DomainFinance, Timestamp: april.AddDate(0, 0, 5),
			Data: map[string]string{"amount": "20"}},
		{ID: "m1", Domain: store.DomainMeals, Timestamp: march.AddDate(0, 0, 6),
			Data: map[string]string{"name": "noodles"}},
	}
	for _, r := range records {
		_, err := s.CreateRecord(ctx, r)
		require.NoError(t, err)
	}

	got, err := s.ListDomainRecords(ctx, store.DomainFinance, &march, &april)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].ID)

	got, err = s.ListDomainRecords(ctx, store.DomainFinance, nil, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStoreDeleteRecord_CascadesToEmbeddings(t *testing.T) {
	driver := newTestDriver(t)
	s := store.New(driver)
	ctx := context.Background()

	_, err := s.CreateRecord(ctx, &store.Record{
		ID: "j1", Domain: store.DomainJournals, Timestamp: time.Now(),
		Data: map[string]string{"content": "long day"},
	})
	require.NoError(t, err)
	_, err = s.UpsertEmbedding(ctx, &store.Embedding{
		ID: "j1_chunk_0", ObjectType: "journals", ObjectID: "j1",
		ChunkText: "long day", Vector: []float64{1}, CreatedTs: time.Now().Unix(),
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecord(ctx, store.DomainJournals, "j1"))

	objectType := "journals"
	embeddings, err := s.ListEmbeddings(ctx, &store.FindEmbedding{ObjectType: &objectType})
	require.NoError(t, err)
	assert.Empty(t, embeddings)
}
