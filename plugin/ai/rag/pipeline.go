package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jeffreyouni/life-butler/plugin/ai"
	"github.com/jeffreyouni/life-butler/store"
)

// EmbeddingStore is the slice of the store the pipeline writes to.
type EmbeddingStore interface {
	UpsertEmbedding(ctx context.Context, embedding *store.Embedding) (*store.Embedding, error)
	ListEmbeddings(ctx context.Context, find *store.FindEmbedding) ([]*store.Embedding, error)
	DeleteEmbeddingsByObject(ctx context.Context, objectType, objectID string) error
}

// RecordSource is the read-only record access the pipeline consumes.
type RecordSource interface {
	ListRecords(ctx context.Context, find *store.FindRecord) ([]*store.Record, error)
}

// SearchResult is one scored chunk from a similarity search.
type SearchResult struct {
	EmbeddingID string
	ChunkText   string
	ObjectType  string
	ObjectID    string
	Score       float64
}

// SearchFilters narrows a search to object types and/or a creation window.
type SearchFilters struct {
	ObjectTypes []string
	Start       *time.Time
	End         *time.Time
}

// Config holds the pipeline tuning knobs.
type Config struct {
	ChunkMaxTokens     int
	ChunkOverlapTokens int
	// ContextBudget bounds the assembled context block in characters.
	ContextBudget int
	// CandidateMultiplier controls how many candidates are pulled from
	// the store per requested result.
	CandidateMultiplier int
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		ChunkMaxTokens:      200,
		ChunkOverlapTokens:  20,
		ContextBudget:       2000,
		CandidateMultiplier: 2,
	}
}

// Pipeline is the ingest/search/answer engine over embedded chunks.
// The embedder and chat completer are optional capabilities: a nil chat
// completer degrades Answer to its rule-based fallback, a nil embedder
// disables ingest and search.
type Pipeline struct {
	embeddings EmbeddingStore
	records    RecordSource
	embedder   ai.Embedder
	batch      *ai.BatchEmbedder
	chat       ai.ChatCompleter
	config     Config
	status     *RebuildStatus
	logger     *slog.Logger
}

// New creates a Pipeline.
func New(embeddings EmbeddingStore, records RecordSource, embedder ai.Embedder, chat ai.ChatCompleter, embeddingCfg *ai.EmbeddingConfig, config Config) *Pipeline {
	p := &Pipeline{
		embeddings: embeddings,
		records:    records,
		embedder:   embedder,
		chat:       chat,
		config:     config,
		status:     NewRebuildStatus(),
		logger:     slog.Default(),
	}
	if embedder != nil {
		p.batch = ai.NewBatchEmbedder(embedder, embeddingCfg)
	}
	return p
}

// Status returns the rebuild status handle.
func (p *Pipeline) Status() *RebuildStatus {
	return p.status
}

// Ingest extracts the record's searchable text, chunks it, embeds each
// chunk and stores one embedding per chunk keyed "{recordID}_chunk_{i}".
// Empty text is a silent no-op. Embedding or storage failures are logged
// and skipped so a larger rebuild is never aborted by one record.
func (p *Pipeline) Ingest(ctx context.Context, record *store.Record) error {
	if p.embedder == nil {
		return nil
	}

	text := SearchText(record)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	chunks := Chunk(text, p.config.ChunkMaxTokens, p.config.ChunkOverlapTokens)
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := p.batch.EmbedAll(ctx, chunks)
	if err != nil {
		p.logger.Warn("skipping record: embedding failed",
			"record_id", record.ID,
			"domain", record.Domain,
			"error", err)
		return nil
	}

	// Embeddings carry the record's event time, not the ingestion time:
	// date-filtered searches must match the record's own window no matter
	// when the embedding was (re)built.
	ts := record.Timestamp.Unix()
	for i, chunk := range chunks {
		embedding := &store.Embedding{
			ID:         fmt.Sprintf("%s_chunk_%d", record.ID, i),
			ObjectType: string(record.Domain),
			ObjectID:   record.ID,
			ChunkText:  chunk,
			Vector:     vectors[i],
			CreatedTs:  ts,
		}
		if _, err := p.embeddings.UpsertEmbedding(ctx, embedding); err != nil {
			p.logger.Warn("skipping chunk: storage failed",
				"embedding_id", embedding.ID,
				"error", err)
		}
	}
	return nil
}

// Search embeds the query, pulls candidate embeddings matching the
// filters, scores them by cosine similarity, discards results below
// minScore and returns the top limit results sorted descending.
func (p *Pipeline) Search(ctx context.Context, query string, filters SearchFilters, limit int, minScore float64) ([]*SearchResult, error) {
	if p.embedder == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	queryVector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := p.listCandidates(ctx, filters, limit*p.config.CandidateMultiplier)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(candidates))
	mismatchLogged := false
	for _, candidate := range candidates {
		if len(candidate.Vector) != len(queryVector) && !mismatchLogged {
			p.logger.Warn("embedding dimension mismatch, treating as similarity 0",
				"embedding_id", candidate.ID,
				"stored_dim", len(candidate.Vector),
				"query_dim", len(queryVector))
			mismatchLogged = true
		}
		score := CosineSimilarity(queryVector, candidate.Vector)
		if score < minScore {
			continue
		}
		results = append(results, &SearchResult{
			EmbeddingID: candidate.ID,
			ChunkText:   candidate.ChunkText,
			ObjectType:  candidate.ObjectType,
			ObjectID:    candidate.ObjectID,
			Score:       score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (p *Pipeline) listCandidates(ctx context.Context, filters SearchFilters, limit int) ([]*store.Embedding, error) {
	find := &store.FindEmbedding{
		Start: filters.Start,
		End:   filters.End,
		Limit: limit,
	}

	if len(filters.ObjectTypes) == 0 {
		return p.embeddings.ListEmbeddings(ctx, find)
	}

	var candidates []*store.Embedding
	for _, objectType := range filters.ObjectTypes {
		objectType := objectType
		scoped := *find
		scoped.ObjectType = &objectType
		list, err := p.embeddings.ListEmbeddings(ctx, &scoped)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, list...)
	}
	return candidates, nil
}

// AnswerOptions tune a single Answer call.
type AnswerOptions struct {
	Limit              int
	MinScore           float64
	Template           string
	CalculationSummary string
	// Temperature for generation; 0 falls back to 0.7.
	Temperature float32
}

// Answer runs Search and generates a natural-language answer over the
// results. A missing or failing chat completer falls back to a
// deterministic listing of the top results: a user query must never fail
// solely because generation failed.
func (p *Pipeline) Answer(ctx context.Context, query string, filters SearchFilters, opts AnswerOptions) (string, []*SearchResult, error) {
	results, err := p.Search(ctx, query, filters, opts.Limit, opts.MinScore)
	if err != nil {
		p.logger.Warn("search failed, answering without retrieval", "error", err)
		results = nil
	}

	if len(results) == 0 {
		return noDataMessage(query), nil, nil
	}

	contextBlock := BuildContextBlock(results, p.config.ContextBudget)
	prompt := BuildPrompt(opts.Template, query, contextBlock, opts.CalculationSummary)

	if p.chat != nil {
		temperature := opts.Temperature
		if temperature == 0 {
			temperature = 0.7
		}
		messages := []ai.Message{
			ai.SystemPrompt(answerSystemPrompt),
			ai.UserMessage(prompt),
		}
		answer, err := p.chat.Chat(ctx, messages, temperature)
		if err == nil && strings.TrimSpace(answer) != "" {
			return answer, results, nil
		}
		p.logger.Warn("generation failed, using rule-based fallback", "error", err)
	}

	return fallbackAnswer(query, results, opts.CalculationSummary), results, nil
}

// noDataMessage is the language-aware first-class "no relevant data"
// response.
func noDataMessage(query string) string {
	if ai.DetectLanguage(query) == "zh" {
		return "没有找到相关记录。试着换个说法，或者先录入一些数据。"
	}
	return "No relevant records found. Try rephrasing, or add some data first."
}

// fallbackAnswer lists the top results verbatim when generation is
// unavailable.
func fallbackAnswer(query string, results []*SearchResult, calculationSummary string) string {
	var sb strings.Builder
	if ai.DetectLanguage(query) == "zh" {
		sb.WriteString("根据你的记录：\n")
	} else {
		sb.WriteString("Based on your records:\n")
	}
	for _, r := range results {
		fmt.Fprintf(&sb, "- %s\n", strings.TrimSpace(r.ChunkText))
	}
	if strings.TrimSpace(calculationSummary) != "" {
		sb.WriteString("\n")
		sb.WriteString(calculationSummary)
	}
	return strings.TrimSpace(sb.String())
}

// Rebuild re-ingests every record and reports (current, total) progress.
// Per-record errors are logged and skipped. A rebuild already in progress
// is not started twice.
func (p *Pipeline) Rebuild(ctx context.Context, onProgress func(current, total int)) error {
	if !p.status.Start() {
		return fmt.Errorf("embedding rebuild already in progress")
	}

	var all []*store.Record
	for _, domain := range store.AllDomains {
		domain := domain
		records, err := p.records.ListRecords(ctx, &store.FindRecord{Domain: &domain})
		if err != nil {
			p.logger.Warn("skipping domain in rebuild", "domain", domain, "error", err)
			continue
		}
		all = append(all, records...)
	}

	total := len(all)
	for i, record := range all {
		if err := ctx.Err(); err != nil {
			// An aborted rebuild is not complete; release the guard so
			// the next attempt can start.
			p.status.Reset()
			return err
		}
		// Drop stale chunks before re-ingesting; the chunk count may
		// have shrunk.
		if err := p.embeddings.DeleteEmbeddingsByObject(ctx, string(record.Domain), record.ID); err != nil {
			p.logger.Warn("failed to clear old embeddings", "record_id", record.ID, "error", err)
		}
		if err := p.Ingest(ctx, record); err != nil {
			p.logger.Warn("failed to ingest record", "record_id", record.ID, "error", err)
		}
		if onProgress != nil {
			onProgress(i+1, total)
		}
	}
	p.status.Complete()
	return nil
}
