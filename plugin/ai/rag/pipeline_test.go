package rag

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffreyouni/life-butler/plugin/ai"
	"github.com/jeffreyouni/life-butler/store"
)

type fakeEmbedder struct {
	vectors map[string][]float64
	def     []float64
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.def, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.def) }

type fakeChat struct {
	response string
	err      error
	messages []ai.Message
}

func (f *fakeChat) Chat(_ context.Context, messages []ai.Message, _ float32) (string, error) {
	f.messages = append(f.messages, messages...)
	return f.response, f.err
}

type fakeEmbeddingStore struct {
	embeddings []*store.Embedding
	upsertErr  error
	listErr    error
	deleted    []string
}

func (f *fakeEmbeddingStore) UpsertEmbedding(_ context.Context, embedding *store.Embedding) (*store.Embedding, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.embeddings = append(f.embeddings, embedding)
	return embedding, nil
}

func (f *fakeEmbeddingStore) ListEmbeddings(_ context.Context, find *store.FindEmbedding) ([]*store.Embedding, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*store.Embedding
	for _, e := range f.embeddings {
		if find.ObjectType != nil && e.ObjectType != *find.ObjectType {
			continue
		}
		if find.Start != nil && e.CreatedTs < find.Start.Unix() {
			continue
		}
		if find.End != nil && e.CreatedTs >= find.End.Unix() {
			continue
		}
		out = append(out, e)
		if find.Limit > 0 && len(out) >= find.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEmbeddingStore) DeleteEmbeddingsByObject(_ context.Context, objectType, objectID string) error {
	f.deleted = append(f.deleted, objectType+"/"+objectID)
	kept := f.embeddings[:0]
	for _, e := range f.embeddings {
		if e.ObjectType == objectType && e.ObjectID == objectID {
			continue
		}
		kept = append(kept, e)
	}
	f.embeddings = kept
	return nil
}

type fakeRecordSource struct {
	records []*store.Record
}

func (f *fakeRecordSource) ListRecords(_ context.Context, find *store.FindRecord) ([]*store.Record, error) {
	var out []*store.Record
	for _, r := range f.records {
		if find.Domain != nil && r.Domain != *find.Domain {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func newTestPipeline(embeddings *fakeEmbeddingStore, records *fakeRecordSource, embedder ai.Embedder, chat ai.ChatCompleter, config Config) *Pipeline {
	cfg := &ai.EmbeddingConfig{BatchSize: 5, BatchInterval: time.Millisecond}
	return New(embeddings, records, embedder, chat, cfg, config)
}

func journalRecord(id, content string) *store.Record {
	return &store.Record{
		ID:        id,
		Domain:    store.DomainJournals,
		Timestamp: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Data:      map[string]string{"content": content},
	}
}

func TestPipelineIngest_ChunkIDs(t *testing.T) {
	embeddings := &fakeEmbeddingStore{}
	embedder := &fakeEmbedder{def: []float64{1, 0}}
	p := newTestPipeline(embeddings, &fakeRecordSource{}, embedder, nil, DefaultConfig())

	err := p.Ingest(context.Background(), journalRecord("rec1", "slept badly, skipped breakfast"))
	require.NoError(t, err)
	require.Len(t, embeddings.embeddings, 1)

	got := embeddings.embeddings[0]
	assert.Equal(t, "rec1_chunk_0", got.ID)
	assert.Equal(t, "journals", got.ObjectType)
	assert.Equal(t, "rec1", got.ObjectID)
	assert.NotEmpty(t, got.ChunkText)
	assert.Equal(t, []float64{1, 0}, got.Vector)
}

func TestPipelineIngest_MultipleChunksNumberedSequentially(t *testing.T) {
	embeddings := &fakeEmbeddingStore{}
	embedder := &fakeEmbedder{def: []float64{1, 0}}
	config := DefaultConfig()
	config.ChunkMaxTokens = 10
	config.ChunkOverlapTokens = 2
	p := newTestPipeline(embeddings, &fakeRecordSource{}, embedder, nil, config)

	var long string
	for i := 0; i < 20; i++ {
		long += fmt.Sprintf("sentence number %d about my day. ", i)
	}
	err := p.Ingest(context.Background(), journalRecord("rec2", long))
	require.NoError(t, err)
	require.Greater(t, len(embeddings.embeddings), 1)

	for i, e := range embeddings.embeddings {
		assert.Equal(t, fmt.Sprintf("rec2_chunk_%d", i), e.ID)
	}
}

func TestPipelineIngest_NilEmbedderIsNoOp(t *testing.T) {
	embeddings := &fakeEmbeddingStore{}
	p := newTestPipeline(embeddings, &fakeRecordSource{}, nil, nil, DefaultConfig())

	err := p.Ingest(context.Background(), journalRecord("rec1", "anything"))
	require.NoError(t, err)
	assert.Empty(t, embeddings.embeddings)
}

func TestPipelineIngest_EmbedFailureSubstitutesZeroVectors(t *testing.T) {
	embeddings := &fakeEmbeddingStore{}
	embedder := &fakeEmbedder{def: []float64{1, 0}, err: errors.New("provider down")}
	p := newTestPipeline(embeddings, &fakeRecordSource{}, embedder, nil, DefaultConfig())

	err := p.Ingest(context.Background(), journalRecord("rec1", "anything"))
	require.NoError(t, err)
	// A failed batch degrades to zero vectors; the chunk is still stored
	// and re-embedded on the next rebuild.
	require.Len(t, embeddings.embeddings, 1)
	assert.Equal(t, []float64{0, 0}, embeddings.embeddings[0].Vector)
}

func TestPipelineIngest_EmbeddingCarriesRecordTime(t *testing.T) {
	embeddings := &fakeEmbeddingStore{}
	embedder := &fakeEmbedder{def: []float64{1, 0}}
	p := newTestPipeline(embeddings, &fakeRecordSource{}, embedder, nil, DefaultConfig())

	record := journalRecord("rec1", "slept badly, skipped breakfast")
	require.NoError(t, p.Ingest(context.Background(), record))
	require.Len(t, embeddings.embeddings, 1)
	assert.Equal(t, record.Timestamp.Unix(), embeddings.embeddings[0].CreatedTs)
}

func TestPipelineSearch_TimeWindowMatchesRecordTime(t *testing.T) {
	embeddings := &fakeEmbeddingStore{}
	embedder := &fakeEmbedder{def: []float64{1, 0}}
	p := newTestPipeline(embeddings, &fakeRecordSource{}, embedder, nil, DefaultConfig())

	// The record happened 2025-03-10 even though it is ingested now: the
	// March window must find it and the April window must not.
	require.NoError(t, p.Ingest(context.Background(), journalRecord("rec1", "slept badly, skipped breakfast")))

	march := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	april := march.AddDate(0, 1, 0)
	may := march.AddDate(0, 2, 0)

	results, err := p.Search(context.Background(), "sleep", SearchFilters{Start: &march, End: &april}, 5, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rec1_chunk_0", results[0].EmbeddingID)

	results, err = p.Search(context.Background(), "sleep", SearchFilters{Start: &april, End: &may}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPipelineSearch_ScoresSortsAndFilters(t *testing.T) {
	embeddings := &fakeEmbeddingStore{embeddings: []*store.Embedding{
		{ID: "a_chunk_0", ObjectType: "journals", ObjectID: "a", ChunkText: "exact match", Vector: []float64{1, 0}},
		{ID: "b_chunk_0", ObjectType: "journals", ObjectID: "b", ChunkText: "orthogonal", Vector: []float64{0, 1}},
		{ID: "c_chunk_0", ObjectType: "journals", ObjectID: "c", ChunkText: "partial match", Vector: []float64{0.6, 0.8}},
		{ID: "d_chunk_0", ObjectType: "journals", ObjectID: "d", ChunkText: "wrong dimension", Vector: []float64{1, 0, 0}},
	}}
	embedder := &fakeEmbedder{def: []float64{1, 0}}
	p := newTestPipeline(embeddings, &fakeRecordSource{}, embedder, nil, DefaultConfig())

	results, err := p.Search(context.Background(), "how did I sleep", SearchFilters{}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a_chunk_0", results[0].EmbeddingID)
	assert.Equal(t, "c_chunk_0", results[1].EmbeddingID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.6, results[1].Score, 1e-9)
}

func TestPipelineSearch_HonorsLimit(t *testing.T) {
	embeddings := &fakeEmbeddingStore{embeddings: []*store.Embedding{
		{ID: "a_chunk_0", ObjectType: "journals", Vector: []float64{1, 0}},
		{ID: "c_chunk_0", ObjectType: "journals", Vector: []float64{0.6, 0.8}},
	}}
	embedder := &fakeEmbedder{def: []float64{1, 0}}
	p := newTestPipeline(embeddings, &fakeRecordSource{}, embedder, nil, DefaultConfig())

	results, err := p.Search(context.Background(), "query", SearchFilters{}, 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a_chunk_0", results[0].EmbeddingID)
}

func TestPipelineSearch_ObjectTypeFilter(t *testing.T) {
	embeddings := &fakeEmbeddingStore{embeddings: []*store.Embedding{
		{ID: "f_chunk_0", ObjectType: "finance", Vector: []float64{1, 0}},
		{ID: "j_chunk_0", ObjectType: "journals", Vector: []float64{1, 0}},
	}}
	embedder := &fakeEmbedder{def: []float64{1, 0}}
	p := newTestPipeline(embeddings, &fakeRecordSource{}, embedder, nil, DefaultConfig())

	results, err := p.Search(context.Background(), "query", SearchFilters{ObjectTypes: []string{"finance"}}, 5, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "f_chunk_0", results[0].EmbeddingID)
}

func TestPipelineAnswer_NoDataMessage(t *testing.T) {
	embedder := &fakeEmbedder{def: []float64{1, 0}}
	p := newTestPipeline(&fakeEmbeddingStore{}, &fakeRecordSource{}, embedder, nil, DefaultConfig())

	answer, results, err := p.Answer(context.Background(), "what did I eat last week", SearchFilters{}, AnswerOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Contains(t, answer, "No relevant records")

	answer, _, err = p.Answer(context.Background(), "我上周吃了什么", SearchFilters{}, AnswerOptions{})
	require.NoError(t, err)
	assert.Contains(t, answer, "没有找到相关记录")
}

func TestPipelineAnswer_GeneratesFromContext(t *testing.T) {
	embeddings := &fakeEmbeddingStore{embeddings: []*store.Embedding{
		{ID: "a_chunk_0", ObjectType: "journals", ChunkText: "slept 5 hours, felt groggy", Vector: []float64{1, 0}},
	}}
	embedder := &fakeEmbedder{def: []float64{1, 0}}
	chat := &fakeChat{response: "You slept poorly this week."}
	p := newTestPipeline(embeddings, &fakeRecordSource{}, embedder, chat, DefaultConfig())

	answer, results, err := p.Answer(context.Background(), "how did I sleep", SearchFilters{}, AnswerOptions{})
	require.NoError(t, err)
	assert.Equal(t, "You slept poorly this week.", answer)
	require.Len(t, results, 1)
	require.Len(t, chat.messages, 2)
	assert.Equal(t, "system", chat.messages[0].Role)
	assert.Contains(t, chat.messages[1].Content, "how did I sleep")
	assert.Contains(t, chat.messages[1].Content, "slept 5 hours")
}

func TestPipelineAnswer_ChatFailureFallsBackToListing(t *testing.T) {
	embeddings := &fakeEmbeddingStore{embeddings: []*store.Embedding{
		{ID: "a_chunk_0", ObjectType: "journals", ChunkText: "slept 5 hours, felt groggy", Vector: []float64{1, 0}},
	}}
	embedder := &fakeEmbedder{def: []float64{1, 0}}
	chat := &fakeChat{err: errors.New("model unavailable")}
	p := newTestPipeline(embeddings, &fakeRecordSource{}, embedder, chat, DefaultConfig())

	answer, results, err := p.Answer(context.Background(), "how did I sleep", SearchFilters{}, AnswerOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, answer, "Based on your records:")
	assert.Contains(t, answer, "slept 5 hours, felt groggy")
}

func TestPipelineAnswer_EmbedderFailureStillAnswers(t *testing.T) {
	embeddings := &fakeEmbeddingStore{embeddings: []*store.Embedding{
		{ID: "a_chunk_0", ObjectType: "journals", ChunkText: "slept 5 hours", Vector: []float64{1, 0}},
	}}
	embedder := &fakeEmbedder{def: []float64{1, 0}, err: errors.New("provider down")}
	p := newTestPipeline(embeddings, &fakeRecordSource{}, embedder, &fakeChat{response: "x"}, DefaultConfig())

	answer, results, err := p.Answer(context.Background(), "how did I sleep", SearchFilters{}, AnswerOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotEmpty(t, answer)
}

func TestPipelineRebuild(t *testing.T) {
	embeddings := &fakeEmbeddingStore{embeddings: []*store.Embedding{
		// Stale chunk from a previous, longer rendering of rec1.
		{ID: "rec1_chunk_3", ObjectType: "journals", ObjectID: "rec1", Vector: []float64{1, 0}},
	}}
	records := &fakeRecordSource{records: []*store.Record{
		journalRecord("rec1", "first entry"),
		journalRecord("rec2", "second entry"),
	}}
	embedder := &fakeEmbedder{def: []float64{1, 0}}
	p := newTestPipeline(embeddings, records, embedder, nil, DefaultConfig())

	updates := p.Status().Subscribe()
	var progress [][2]int
	err := p.Rebuild(context.Background(), func(current, total int) {
		progress = append(progress, [2]int{current, total})
	})
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)
	assert.Contains(t, embeddings.deleted, "journals/rec1")
	assert.Contains(t, embeddings.deleted, "journals/rec2")
	assert.Equal(t, RebuildComplete, p.Status().State())

	ids := make([]string, 0, len(embeddings.embeddings))
	for _, e := range embeddings.embeddings {
		ids = append(ids, e.ID)
	}
	assert.NotContains(t, ids, "rec1_chunk_3")
	assert.Contains(t, ids, "rec1_chunk_0")
	assert.Contains(t, ids, "rec2_chunk_0")

	assert.Equal(t, RebuildInProgress, <-updates)
	assert.Equal(t, RebuildComplete, <-updates)
}

func TestPipelineRebuild_CancelledRunIsNotComplete(t *testing.T) {
	embeddings := &fakeEmbeddingStore{}
	records := &fakeRecordSource{records: []*store.Record{
		journalRecord("rec1", "first entry"),
		journalRecord("rec2", "second entry"),
	}}
	embedder := &fakeEmbedder{def: []float64{1, 0}}
	p := newTestPipeline(embeddings, records, embedder, nil, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	updates := p.Status().Subscribe()

	err := p.Rebuild(ctx, nil)
	require.Error(t, err)

	// The abort resets the guard instead of announcing Complete.
	assert.Equal(t, RebuildNotStarted, p.Status().State())
	assert.Equal(t, RebuildInProgress, <-updates)
	assert.Equal(t, RebuildNotStarted, <-updates)

	// A fresh rebuild can run after the abort.
	require.NoError(t, p.Rebuild(context.Background(), nil))
	assert.Equal(t, RebuildComplete, p.Status().State())
}

func TestPipelineRebuild_RejectsConcurrentRun(t *testing.T) {
	p := newTestPipeline(&fakeEmbeddingStore{}, &fakeRecordSource{}, &fakeEmbedder{def: []float64{1}}, nil, DefaultConfig())

	require.True(t, p.Status().Start())
	err := p.Rebuild(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, RebuildInProgress, p.Status().State())
}
